// Package metrics provides Prometheus metrics for mixers.
package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	mixerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "switchboard",
		Name:      "mixer_count",
		Help:      "Number of registered mixers",
	})

	mixerInputs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "switchboard",
		Subsystem: "mixer",
		Name:      "inputs",
		Help:      "Number of inputs linked into a mixer",
	}, []string{"mixer"})

	mixerOutputs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "switchboard",
		Subsystem: "mixer",
		Name:      "outputs",
		Help:      "Number of outputs fed by a mixer",
	}, []string{"mixer"})

	mixerBusErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Subsystem: "mixer",
		Name:      "bus_errors_total",
		Help:      "Error messages posted on a mixer bus",
	}, []string{"mixer"})

	mixerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Subsystem: "mixer",
		Name:      "operations_total",
		Help:      "Registry operations by name and result",
	}, []string{"op", "result"})

	mixerActiveSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "switchboard",
		Subsystem: "mixer",
		Name:      "active_switches_total",
		Help:      "Active input switches per mixer",
	}, []string{"mixer"})

	// Local cache for SSE exporter access.
	mixerCache   = make(map[string]*MixerStats)
	mixerCacheMu sync.RWMutex
)

// MixerStats holds current metric values for a mixer.
type MixerStats struct {
	Inputs         int
	Outputs        int
	BusErrors      int
	ActiveSwitches int
}

// SetMixerCount sets the number of registered mixers.
func SetMixerCount(n int) {
	mixerCount.Set(float64(n))
}

// SetMixerInputs sets the input count of a mixer.
func SetMixerInputs(mixer string, n int) {
	mixerInputs.WithLabelValues(mixer).Set(float64(n))
	updateCache(mixer, func(s *MixerStats) { s.Inputs = n })
}

// SetMixerOutputs sets the output count of a mixer.
func SetMixerOutputs(mixer string, n int) {
	mixerOutputs.WithLabelValues(mixer).Set(float64(n))
	updateCache(mixer, func(s *MixerStats) { s.Outputs = n })
}

// IncBusErrors counts an error posted on a mixer bus.
func IncBusErrors(mixer string) {
	mixerBusErrors.WithLabelValues(mixer).Inc()
	updateCache(mixer, func(s *MixerStats) { s.BusErrors++ })
}

// IncActiveSwitches counts an active input switch.
func IncActiveSwitches(mixer string) {
	mixerActiveSwitches.WithLabelValues(mixer).Inc()
	updateCache(mixer, func(s *MixerStats) { s.ActiveSwitches++ })
}

// ObserveOperation counts a registry operation.
func ObserveOperation(op string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	mixerOperations.WithLabelValues(op, result).Inc()
}

// DeleteMixerMetrics removes all per-mixer series.
func DeleteMixerMetrics(mixer string) {
	mixerInputs.DeleteLabelValues(mixer)
	mixerOutputs.DeleteLabelValues(mixer)
	mixerBusErrors.DeleteLabelValues(mixer)
	mixerActiveSwitches.DeleteLabelValues(mixer)

	mixerCacheMu.Lock()
	delete(mixerCache, mixer)
	mixerCacheMu.Unlock()
}

// GetMixerStats returns current metric values for a mixer.
func GetMixerStats(mixer string) *MixerStats {
	mixerCacheMu.RLock()
	defer mixerCacheMu.RUnlock()
	if s, ok := mixerCache[mixer]; ok {
		dup := *s
		return &dup
	}
	return nil
}

// GetAllMixerStats returns metrics for all mixers.
func GetAllMixerStats() map[string]*MixerStats {
	mixerCacheMu.RLock()
	defer mixerCacheMu.RUnlock()
	result := make(map[string]*MixerStats, len(mixerCache))
	for name, s := range mixerCache {
		dup := *s
		result[name] = &dup
	}
	return result
}

// MixerNames returns the mixers with cached stats in sorted order.
func MixerNames() []string {
	mixerCacheMu.RLock()
	defer mixerCacheMu.RUnlock()
	names := make([]string, 0, len(mixerCache))
	for name := range mixerCache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func updateCache(mixer string, update func(*MixerStats)) {
	mixerCacheMu.Lock()
	defer mixerCacheMu.Unlock()
	s, ok := mixerCache[mixer]
	if !ok {
		s = &MixerStats{}
		mixerCache[mixer] = s
	}
	update(s)
}
