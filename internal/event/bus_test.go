package event

import (
	"sync"
	"testing"

	"github.com/Iron-Ham/photogram/internal/recon"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()

	called := false
	id := bus.Subscribe("test.event", func(e Event) {
		called = true
	})

	if id == "" {
		t.Error("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("Expected 1 subscription, got %d", bus.SubscriptionCount())
	}
	if called {
		t.Error("Handler should not be called until an event is published")
	}
}

func TestBus_PublishSessionEvent(t *testing.T) {
	bus := NewBus()

	var received Event
	bus.Subscribe(SessionType(recon.EventInputComplete), func(e Event) {
		received = e
	})

	bus.Publish(NewSessionEvent("s-1", 1, recon.InputComplete{}))

	if received == nil {
		t.Fatal("Handler should have received the event")
	}
	if received.EventType() != "session.inputComplete" {
		t.Errorf("EventType() = %q", received.EventType())
	}
	se, ok := received.(SessionEvent)
	if !ok {
		t.Fatalf("expected SessionEvent, got %T", received)
	}
	if se.SessionID != "s-1" || se.Seq != 1 {
		t.Errorf("SessionEvent = %+v", se)
	}
}

func TestBus_SpecificBeforeWildcard(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe("run.exit", func(e Event) { order = append(order, "specific") })

	bus.Publish(NewExitEvent(0, "done"))

	if len(order) != 2 || order[0] != "specific" || order[1] != "all" {
		t.Errorf("order = %v, want [specific all]", order)
	}
}

func TestBus_NoMatchingHandlers(t *testing.T) {
	bus := NewBus()

	bus.Subscribe("other.event", func(e Event) {
		t.Error("Handler should not be called for non-matching event type")
	})

	bus.Publish(NewExportEvent("a", "b", nil))
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	count := 0
	id := bus.SubscribeAll(func(e Event) { count++ })
	bus.SubscribeAll(func(e Event) { count += 10 })

	if !bus.Unsubscribe(id) {
		t.Fatal("Unsubscribe should return true for a known ID")
	}
	if bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return false the second time")
	}

	bus.Publish(NewExitEvent(0, ""))
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}

func TestBus_PanicRecovery(t *testing.T) {
	bus := NewBus()

	var panicked string
	bus.SetPanicHandler(func(eventType string, r any, stack []byte) {
		panicked = eventType
	})

	secondCalled := false
	bus.SubscribeAll(func(e Event) { panic("boom") })
	bus.SubscribeAll(func(e Event) { secondCalled = true })

	bus.Publish(NewExitEvent(1, "fail"))

	if panicked != "run.exit" {
		t.Errorf("panic handler got %q", panicked)
	}
	if !secondCalled {
		t.Error("handlers after a panicking handler should still run")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			bus.Publish(NewSessionEvent("s", uint64(n), recon.ProcessingComplete{}))
		}(i)
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}
