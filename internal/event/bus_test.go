package event

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Iron-Ham/postflow/internal/logging"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe("test.event", func(e Event) error {
		called = true
		return nil
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

func TestBus_Publish(t *testing.T) {
	bus := NewBus(nil)

	var receivedEvent Event
	bus.Subscribe(TypePostSubmitted, func(e Event) error {
		receivedEvent = e
		return nil
	})

	bus.Publish(NewPostSubmittedEvent("t1", "p1", "author", 1, []string{"s1", "s2"}))

	if receivedEvent == nil {
		t.Fatal("Handler should have received the event")
	}
	submitted, ok := receivedEvent.(PostSubmittedEvent)
	if !ok {
		t.Fatalf("received %T, want PostSubmittedEvent", receivedEvent)
	}
	if submitted.PostID != "p1" || len(submitted.StepIDs) != 2 {
		t.Errorf("unexpected event payload: %+v", submitted)
	}
}

func TestBus_PublishMultipleHandlers(t *testing.T) {
	bus := NewBus(nil)

	callCount := 0
	bus.Subscribe("test.event", func(e Event) error {
		callCount++
		return nil
	})
	bus.Subscribe("test.event", func(e Event) error {
		callCount++
		return nil
	})

	bus.Publish(newBaseEvent("test.event"))

	if callCount != 2 {
		t.Errorf("Expected both handlers to be called, got %d calls", callCount)
	}
}

func TestBus_PublishNoMatchingHandlers(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe("other.event", func(e Event) error {
		t.Error("Handler should not be called for non-matching event type")
		return nil
	})

	bus.Publish(newBaseEvent("test.event"))
}

func TestBus_SubscribeAll_RunsAfterSpecific(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(e Event) error {
		order = append(order, "all:"+e.EventType())
		return nil
	})
	bus.Subscribe(TypeStepApproved, func(e Event) error {
		order = append(order, "specific")
		return nil
	})

	bus.Publish(NewStepApprovedEvent("t1", "p1", "s1", 1, "u1", ""))
	bus.Publish(NewStepRejectedEvent("t1", "p1", "s2", "u1", "no"))

	want := []string{"specific", "all:step.approved", "all:step.rejected"}
	if len(order) != len(want) {
		t.Fatalf("calls = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)

	called := false
	id := bus.Subscribe("test.event", func(e Event) error {
		called = true
		return nil
	})

	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should return true for existing subscription")
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should return false")
	}
	if bus.Unsubscribe("non-existent-id") {
		t.Error("Unsubscribe should return false for non-existent subscription")
	}

	bus.Publish(newBaseEvent("test.event"))
	if called {
		t.Error("Handler should not be called after unsubscribe")
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus(nil)
	bus.Subscribe("a", func(e Event) error { return nil })
	bus.SubscribeAll(func(e Event) error { return nil })

	bus.Clear()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions after Clear, got %d", bus.SubscriptionCount())
	}
}

func TestBus_ListenerFailuresAreIsolated(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(logging.NewWriterLogger(&buf, logging.LevelDebug))

	secondCalled := false
	thirdCalled := false
	bus.Subscribe("test.event", func(e Event) error {
		panic("listener exploded")
	})
	bus.Subscribe("test.event", func(e Event) error {
		secondCalled = true
		return errors.New("audit file unavailable")
	})
	bus.SubscribeAll(func(e Event) error {
		thirdCalled = true
		return nil
	})

	bus.Publish(newBaseEvent("test.event"))

	if !secondCalled || !thirdCalled {
		t.Error("remaining handlers should run after a panic or error")
	}
	logged := buf.String()
	if !strings.Contains(logged, "event listener panicked") || !strings.Contains(logged, "listener exploded") {
		t.Errorf("panic should be logged, got: %s", logged)
	}
	if !strings.Contains(logged, "audit file unavailable") {
		t.Errorf("handler error should be logged, got: %s", logged)
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(nil)

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(newBaseEvent("test.event"))
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("Expected 50 deliveries, got %d", count)
	}
}

func TestBus_ConcurrentSubscribeUnsubscribe(t *testing.T) {
	bus := NewBus(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := bus.Subscribe("test.event", func(e Event) error { return nil })
			bus.Publish(newBaseEvent("test.event"))
			bus.Unsubscribe(id)
		}()
	}
	wg.Wait()

	if bus.SubscriptionCount() != 0 {
		t.Errorf("Expected 0 subscriptions, got %d", bus.SubscriptionCount())
	}
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus(nil)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := bus.Subscribe("e", func(e Event) error { return nil })
		if seen[id] {
			t.Fatalf("duplicate subscription id %q", id)
		}
		seen[id] = true
	}
}

func TestTypes_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, typ := range Types() {
		if seen[typ] {
			t.Errorf("duplicate event type %q", typ)
		}
		seen[typ] = true
	}
	if len(seen) != 8 {
		t.Errorf("expected 8 event types, got %d", len(seen))
	}
}
