package events

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAsyncBus_DeliversToAllSubscribers(t *testing.T) {
	bus := NewAsyncBus(testLogger())
	defer bus.Close()

	first := make(chan Event, 1)
	second := make(chan Event, 1)
	bus.Subscribe(func(ev Event) { first <- ev })
	bus.Subscribe(func(ev Event) { second <- ev })

	bus.Publish(Event{Type: TypeBlobCleanup, ProjectID: "proj-1", Keys: []string{"k"}})

	for name, ch := range map[string]chan Event{"first": first, "second": second} {
		select {
		case ev := <-ch:
			if ev.Type != TypeBlobCleanup || ev.ProjectID != "proj-1" {
				t.Errorf("%s subscriber got wrong event: %+v", name, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s subscriber never received the event", name)
		}
	}
}

func TestAsyncBus_PublishNeverBlocks(t *testing.T) {
	bus := NewAsyncBus(testLogger())
	defer bus.Close()

	release := make(chan struct{})
	bus.Subscribe(func(Event) { <-release })

	// Saturate the buffer and then some; the excess must be dropped, not
	// block the caller.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(Event{Type: TypePathRepair})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full buffer")
	}
	close(release)
}

func TestAsyncBus_PublishAfterCloseIsDropped(t *testing.T) {
	bus := NewAsyncBus(testLogger())

	received := make(chan Event, 1)
	bus.Subscribe(func(ev Event) { received <- ev })
	bus.Close()

	bus.Publish(Event{Type: TypeBlobOrphaned})

	select {
	case <-received:
		t.Error("event delivered after Close")
	case <-time.After(50 * time.Millisecond):
	}
}
