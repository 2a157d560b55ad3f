package events

import (
	"sync"
	"testing"
	"time"

	"github.com/smazurov/switchboard/internal/mixer"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan InputAddedEvent, 1)

	unsub := bus.Subscribe(func(e InputAddedEvent) {
		received <- e
	})
	defer unsub()

	ev := InputAddedEvent{
		ID:        NewID(),
		MixerName: "studio",
		Input:     mixer.InputInfo{Name: "camera1"},
		Timestamp: Now(),
	}
	bus.Publish(ev)

	got := <-received
	if got.Input.Name != "camera1" || got.MixerName != "studio" {
		t.Errorf("Expected studio/camera1, got %s/%s", got.MixerName, got.Input.Name)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan MixerCreatedEvent, 1)
	received2 := make(chan MixerCreatedEvent, 1)

	unsub1 := bus.Subscribe(func(e MixerCreatedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e MixerCreatedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(MixerCreatedEvent{Mixer: mixer.Info{Name: "studio"}, Action: "created"})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan OutputRemovedEvent, 1)

	unsub := bus.Subscribe(func(e OutputRemovedEvent) { received <- e })

	bus.Publish(OutputRemovedEvent{OutputName: "a"})
	<-received

	unsub()

	bus.Publish(OutputRemovedEvent{OutputName: "b"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()
	added := make(chan bool, 1)
	removed := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ InputAddedEvent) { added <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ InputRemovedEvent) { removed <- true })
	defer unsub2()

	bus.Publish(InputAddedEvent{MixerName: "studio"})
	<-added

	select {
	case <-removed:
		t.Fatal("InputRemovedEvent subscriber received InputAddedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(_ ActiveInputChangedEvent) { receivedCh <- true })
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(ActiveInputChangedEvent{MixerName: "studio", InputName: "a", Timestamp: Now()})
			}
		}()
	}
	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(_ string) {})
	unsub()
}

func TestSubscribeMixerEvents(t *testing.T) {
	bus := New()
	ch := make(chan any, 16)
	unsub := SubscribeMixerEvents(bus, ch)
	defer unsub()

	published := []Event{
		MixerCreatedEvent{Mixer: mixer.Info{Name: "m1"}},
		MixerDeletedEvent{MixerName: "m2"},
		MixerStateChangedEvent{MixerName: "m3"},
		MixerErrorEvent{MixerName: "m4"},
		InputAddedEvent{MixerName: "m5"},
		InputUpdatedEvent{MixerName: "m6"},
		InputRemovedEvent{MixerName: "m7"},
		ActiveInputChangedEvent{MixerName: "m8"},
		OutputAddedEvent{MixerName: "m9"},
		OutputRemovedEvent{MixerName: "m10"},
	}
	for _, ev := range published {
		bus.Publish(ev)
	}
	bus.Publish(LogEntryEvent{Message: "ignored"})

	seen := make(map[string]bool)
	for range published {
		select {
		case ev := <-ch:
			if NameOf(ev) == "" {
				t.Errorf("event %T has no name", ev)
			}
			seen[MixerOf(ev)] = true
		case <-time.After(time.Second):
			t.Fatalf("received %d of %d events", len(seen), len(published))
		}
	}
	if len(seen) != len(published) {
		t.Errorf("saw mixers %v", seen)
	}

	select {
	case ev := <-ch:
		t.Errorf("unexpected event %T", ev)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestNewIDUnique(t *testing.T) {
	if NewID() == NewID() {
		t.Error("NewID returned the same id twice")
	}
}
