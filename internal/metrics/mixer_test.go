package metrics

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMixerStatsCache(t *testing.T) {
	mixer := "test-mixer-1"
	DeleteMixerMetrics(mixer)

	if s := GetMixerStats(mixer); s != nil {
		t.Error("expected nil for unknown mixer")
	}

	SetMixerInputs(mixer, 3)
	SetMixerOutputs(mixer, 2)
	IncBusErrors(mixer)
	IncActiveSwitches(mixer)
	IncActiveSwitches(mixer)

	s := GetMixerStats(mixer)
	if s == nil {
		t.Fatal("expected non-nil stats")
	}
	if s.Inputs != 3 || s.Outputs != 2 || s.BusErrors != 1 || s.ActiveSwitches != 2 {
		t.Errorf("stats = %+v", s)
	}

	s.Inputs = 99
	if GetMixerStats(mixer).Inputs != 3 {
		t.Error("cache was modified through returned copy")
	}

	if got := testutil.ToFloat64(mixerInputs.WithLabelValues(mixer)); got != 3 {
		t.Errorf("inputs gauge = %v, want 3", got)
	}
	if got := testutil.ToFloat64(mixerActiveSwitches.WithLabelValues(mixer)); got != 2 {
		t.Errorf("active switches = %v, want 2", got)
	}

	DeleteMixerMetrics(mixer)
	if GetMixerStats(mixer) != nil {
		t.Error("expected nil after delete")
	}
}

func TestMixerCount(t *testing.T) {
	SetMixerCount(4)
	if got := testutil.ToFloat64(mixerCount); got != 4 {
		t.Errorf("mixer_count = %v, want 4", got)
	}
	SetMixerCount(0)
}

func TestObserveOperation(t *testing.T) {
	okBefore := testutil.ToFloat64(mixerOperations.WithLabelValues("test_op", ResultOK))
	errBefore := testutil.ToFloat64(mixerOperations.WithLabelValues("test_op", ResultError))

	ObserveOperation("test_op", nil)
	ObserveOperation("test_op", errors.New("boom"))
	ObserveOperation("test_op", nil)

	if got := testutil.ToFloat64(mixerOperations.WithLabelValues("test_op", ResultOK)) - okBefore; got != 2 {
		t.Errorf("ok delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(mixerOperations.WithLabelValues("test_op", ResultError)) - errBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestGetAllMixerStats(t *testing.T) {
	DeleteMixerMetrics("mixer-a")
	DeleteMixerMetrics("mixer-b")

	SetMixerInputs("mixer-a", 1)
	SetMixerOutputs("mixer-b", 5)

	all := GetAllMixerStats()
	if all["mixer-a"] == nil || all["mixer-a"].Inputs != 1 {
		t.Errorf("mixer-a = %+v", all["mixer-a"])
	}
	if all["mixer-b"] == nil || all["mixer-b"].Outputs != 5 {
		t.Errorf("mixer-b = %+v", all["mixer-b"])
	}

	names := MixerNames()
	ia, ib := -1, -1
	for i, n := range names {
		switch n {
		case "mixer-a":
			ia = i
		case "mixer-b":
			ib = i
		}
	}
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("MixerNames() = %v, want sorted with mixer-a before mixer-b", names)
	}

	DeleteMixerMetrics("mixer-a")
	DeleteMixerMetrics("mixer-b")
}

func TestMixerStatsConcurrentAccess(_ *testing.T) {
	mixer := "concurrent-mixer"
	DeleteMixerMetrics(mixer)
	defer DeleteMixerMetrics(mixer)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			SetMixerInputs(mixer, n)
			IncActiveSwitches(mixer)
		}(i)
		go func() {
			defer wg.Done()
			_ = GetMixerStats(mixer)
			_ = GetAllMixerStats()
		}()
	}
	wg.Wait()
}
