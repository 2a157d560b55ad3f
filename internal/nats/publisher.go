package nats

import (
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/smazurov/switchboard/internal/events"
)

// Publisher forwards event bus traffic to NATS.
// Gracefully degrades when NATS is unavailable.
type Publisher struct {
	url       string
	eventBus  *events.Bus
	conn      *nats.Conn
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool
	unsub     func()
	stop      chan struct{}
	done      chan struct{}
}

// NewPublisher creates a publisher for the events on eventBus.
func NewPublisher(url string, eventBus *events.Bus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		url:      url,
		eventBus: eventBus,
		logger:   logger.With("component", "nats-publisher"),
	}
}

// Start connects to NATS and begins forwarding events. The bus subscription
// is kept when the connection fails so events flow once NATS comes back.
func (p *Publisher) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return nil
	}

	ch := make(chan any, 256)
	unsubMixer := events.SubscribeMixerEvents(p.eventBus, ch)
	unsubStats := events.SubscribeToChannel[events.MixerStatsEvent](p.eventBus, ch)
	p.unsub = func() {
		unsubMixer()
		unsubStats()
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.forward(ch, p.stop, p.done)

	conn, err := nats.Connect(p.url,
		nats.Name("switchboard-publisher"),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.setConnected(false)
			if err != nil {
				p.logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			p.setConnected(true)
			p.logger.Info("NATS reconnected")
		}),
		nats.ConnectHandler(func(_ *nats.Conn) {
			p.setConnected(true)
			p.logger.Debug("NATS connected")
		}),
	)
	if err != nil {
		p.logger.Warn("Failed to connect to NATS, events will not be published", "error", err)
		return err
	}
	p.conn = conn
	p.connected = conn.IsConnected()
	p.logger.Info("NATS publisher started", "url", p.url)
	return nil
}

func (p *Publisher) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *Publisher) forward(ch <-chan any, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev := <-ch:
			p.publish(ev)
		}
	}
}

// publish sends one event. No-op if not connected.
func (p *Publisher) publish(ev any) {
	p.mu.RLock()
	conn := p.conn
	connected := p.connected
	p.mu.RUnlock()

	if conn == nil || !connected {
		return
	}

	mixerName := events.MixerOf(ev)
	if mixerName == "" {
		return
	}
	subject := SubjectMixerEvents(mixerName)
	if _, ok := ev.(events.MixerStatsEvent); ok {
		subject = SubjectMixerStats(mixerName)
	}

	msg := EventMessage{
		ID:        events.NewID(),
		Event:     events.NameOf(ev),
		Mixer:     mixerName,
		Timestamp: events.Now(),
		Data:      ev,
	}
	data, err := msg.Marshal()
	if err != nil {
		p.logger.Warn("Failed to marshal event", "error", err, "event", msg.Event)
		return
	}
	if err := conn.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", "error", err, "subject", subject)
	}
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.conn != nil
}

// Stop unsubscribes from the bus and closes the connection.
func (p *Publisher) Stop() {
	p.mu.Lock()
	stop, done, unsub := p.stop, p.done, p.unsub
	p.stop, p.done, p.unsub = nil, nil, nil
	p.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if stop != nil {
		close(stop)
		<-done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.connected = false
}
