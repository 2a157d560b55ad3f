package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/switchboard/internal/events"
	"github.com/smazurov/switchboard/internal/metrics"
)

// Publisher is the part of the event bus the exporter needs.
type Publisher interface {
	Publish(ev events.Event)
}

// SSEExporter turns the cached mixer counters into MixerStatsEvents for
// /api/metrics and the NATS stats subject. A mixer is published when its
// counters change and at least every refresh ticks otherwise, so a client
// that connects late still sees every mixer.
type SSEExporter struct {
	bus      Publisher
	interval time.Duration
	refresh  int

	last map[string]metrics.MixerStats
	tick int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// SSEOption configures an SSEExporter.
type SSEOption func(*SSEExporter)

// WithInterval sets how often counters are sampled.
func WithInterval(d time.Duration) SSEOption {
	return func(s *SSEExporter) { s.interval = d }
}

// WithRefresh sets after how many unchanged samples a mixer is
// republished anyway. 1 publishes every sample.
func WithRefresh(ticks int) SSEOption {
	return func(s *SSEExporter) { s.refresh = max(ticks, 1) }
}

// NewSSEExporter samples once a second and refreshes every 5 seconds.
func NewSSEExporter(bus Publisher, opts ...SSEOption) *SSEExporter {
	s := &SSEExporter{
		bus:      bus,
		interval: time.Second,
		refresh:  5,
		last:     make(map[string]metrics.MixerStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start samples until ctx is cancelled or Stop is called.
func (s *SSEExporter) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sample()
			}
		}
	}()
}

// Stop ends sampling and waits for the loop to exit.
func (s *SSEExporter) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *SSEExporter) sample() {
	s.tick++
	full := s.tick%s.refresh == 0
	all := metrics.GetAllMixerStats()
	ts := events.Now()

	for name := range s.last {
		if _, ok := all[name]; !ok {
			delete(s.last, name)
		}
	}
	for _, name := range metrics.MixerNames() {
		cur, ok := all[name]
		if !ok {
			continue
		}
		if prev, seen := s.last[name]; seen && prev == *cur && !full {
			continue
		}
		s.last[name] = *cur
		s.bus.Publish(events.MixerStatsEvent{
			MixerName:      name,
			Inputs:         cur.Inputs,
			Outputs:        cur.Outputs,
			BusErrors:      cur.BusErrors,
			ActiveSwitches: cur.ActiveSwitches,
			Timestamp:      ts,
		})
	}
}

// EventTypes maps SSE event names to payloads for the /api/metrics schema.
func EventTypes() map[string]any {
	return map[string]any{
		"mixer-stats": events.MixerStatsEvent{},
	}
}
