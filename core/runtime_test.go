package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/voxloop/vox-core/core/events"
)

func TestRuntimeProcessesEventsInArrivalOrder(t *testing.T) {
	runtime := newSessionRuntime()
	defer runtime.end()

	for i := range 10 {
		if !runtime.tryEnqueue(events.NewTextSubmitted(fmt.Sprintf("event-%d", i))) {
			t.Fatalf("expected event %d to fit the queue without blocking", i)
		}
	}

	processed := make(chan events.Event, 16)
	runtime.start(func(event events.Event) { processed <- event })

	for i := range 10 {
		select {
		case event := <-processed:
			submitted, ok := event.(events.TextSubmitted)
			if !ok {
				t.Fatalf("unexpected event type %T", event)
			}
			if want := fmt.Sprintf("event-%d", i); submitted.Text != want {
				t.Fatalf("events processed out of order: got %q, want %q", submitted.Text, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestRuntimeEnqueueRejectedAfterEnd(t *testing.T) {
	runtime := newSessionRuntime()
	runtime.start(func(events.Event) {})
	runtime.end()
	runtime.awaitCompletion()

	if runtime.enqueue(events.NewRecordingStartRequested()) {
		t.Fatalf("expected enqueue to be rejected after the runtime ended")
	}
	if runtime.tryEnqueue(events.NewRecordingStartRequested()) {
		t.Fatalf("expected tryEnqueue to be rejected after the runtime ended")
	}
}
