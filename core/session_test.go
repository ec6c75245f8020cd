package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxloop/vox-core/core/backend"
	"github.com/voxloop/vox-core/core/events"
)

// stateRecorder collects every state transition and lets tests block until a
// particular state is observed.
type stateRecorder struct {
	mu       sync.Mutex
	observed []State
	arrivals chan State
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{arrivals: make(chan State, 64)}
}

func (r *stateRecorder) record(state State) {
	r.mu.Lock()
	r.observed = append(r.observed, state)
	r.mu.Unlock()

	select {
	case r.arrivals <- state:
	default:
	}
}

func (r *stateRecorder) waitFor(t *testing.T, want State) {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-r.arrivals:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q, observed %v", want, r.states())
		}
	}
}

func (r *stateRecorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.observed...)
}

func (r *stateRecorder) saw(state State) bool {
	for _, s := range r.states() {
		if s == state {
			return true
		}
	}
	return false
}

type blockingResponder struct {
	release   chan struct{}
	cancelled chan struct{}
	reply     *backend.Reply

	calls atomic.Int32
}

func (f *blockingResponder) Respond(ctx context.Context, _ string, _ []backend.Exchange, _ ...backend.RespondOption) (*backend.Reply, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			if f.cancelled != nil {
				close(f.cancelled)
			}
			return nil, ctx.Err()
		}
	}
	return f.reply, nil
}

func TestSubmitTextDrivesFullTurn(t *testing.T) {
	recorder := newStateRecorder()
	output := &drainableOutput{}

	o := NewOrchestrator(
		WithResponder(&fakeResponder{reply: &backend.Reply{Text: "hi there", Audio: []byte{1, 2}}}),
		WithAudioOutput(output),
	)
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.SubmitText("hello")

	recorder.waitFor(t, StateSpeaking)
	recorder.waitFor(t, StateIdle)

	entries := o.Conversation()
	if len(entries) != 2 {
		t.Fatalf("expected user and assistant entries, got %d", len(entries))
	}
	if entries[0].Sender != SenderUser || entries[0].Status != StatusSent || entries[0].Content != "hello" {
		t.Fatalf("unexpected user entry: %+v", entries[0])
	}
	if entries[1].Sender != SenderAssistant || entries[1].Content != "hi there" {
		t.Fatalf("unexpected assistant entry: %+v", entries[1])
	}
	if output.drainCalls.Load() != 1 {
		t.Fatalf("expected the reply audio to be played")
	}
}

func TestSubmitBlankTextIsIgnored(t *testing.T) {
	o := NewOrchestrator(WithResponder(&fakeResponder{reply: &backend.Reply{Text: "never"}}))
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)

	o.SubmitText("   \n\t  ")

	time.Sleep(50 * time.Millisecond)
	if got := len(o.Conversation()); got != 0 {
		t.Fatalf("blank input must not create entries, got %d", got)
	}
	if got := o.State(); got != StateIdle {
		t.Fatalf("blank input must not change state, got %q", got)
	}
}

func TestSubmitTextWhileProcessingIsRejected(t *testing.T) {
	recorder := newStateRecorder()
	responder := &blockingResponder{release: make(chan struct{}), reply: &backend.Reply{Text: "late"}}

	o := NewOrchestrator(WithResponder(responder), WithAudioOutput(&drainableOutput{}))
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.SubmitText("first")
	recorder.waitFor(t, StateProcessing)

	o.SubmitText("second")
	time.Sleep(50 * time.Millisecond)

	if got := responder.calls.Load(); got != 1 {
		t.Fatalf("expected the second submission to be rejected, %d respond calls", got)
	}
	if got := len(o.Conversation()); got != 1 {
		t.Fatalf("expected only the first entry, got %d", got)
	}

	close(responder.release)
	recorder.waitFor(t, StateIdle)
}

func TestRecordingFlowEndToEnd(t *testing.T) {
	recorder := newStateRecorder()
	device := &fakeCaptureDevice{}

	o := NewOrchestrator(
		WithCaptureDevice(device),
		WithTranscriber(&fakeTranscriber{transcription: "spoken words"}),
		WithResponder(&fakeResponder{reply: &backend.Reply{Text: "heard you", Audio: []byte{7}}}),
		WithAudioOutput(&drainableOutput{}),
	)
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.BeginRecording()
	recorder.waitFor(t, StateRecording)

	device.push([]byte{0, 0, 0, 0})
	o.EndRecording()

	recorder.waitFor(t, StateProcessing)
	recorder.waitFor(t, StateSpeaking)
	recorder.waitFor(t, StateIdle)

	entries := o.Conversation()
	if len(entries) != 2 {
		t.Fatalf("expected two entries after a voice turn, got %d", len(entries))
	}
	if entries[0].Content != "spoken words" {
		t.Fatalf("expected the pending entry to become the transcription, got %q", entries[0].Content)
	}
}

func TestBeginRecordingWithoutDeviceEntersErrorAndSelfHeals(t *testing.T) {
	recorder := newStateRecorder()
	errorMessages := make(chan string, 1)

	o := NewOrchestrator(WithErrorDisplayDelay(50 * time.Millisecond))
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx,
		WithStateChangedCallback(recorder.record),
		WithErrorCallback(func(message string) {
			select {
			case errorMessages <- message:
			default:
			}
		}),
	)

	o.BeginRecording()
	recorder.waitFor(t, StateError)

	select {
	case message := <-errorMessages:
		if message == "" {
			t.Fatalf("expected a human-readable error message")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the error callback")
	}

	recorder.waitFor(t, StateIdle)
	if got := o.ErrorMessage(); got != "" {
		t.Fatalf("error message must clear on self-heal, got %q", got)
	}
}

func TestEmptyTranscriptionEntersErrorNeverSpeaking(t *testing.T) {
	recorder := newStateRecorder()
	device := &fakeCaptureDevice{}

	o := NewOrchestrator(
		WithCaptureDevice(device),
		WithTranscriber(&fakeTranscriber{transcription: "   "}),
		WithResponder(&fakeResponder{reply: &backend.Reply{Text: "never"}}),
	)
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.BeginRecording()
	recorder.waitFor(t, StateRecording)
	device.push([]byte{0, 0, 0, 0})
	o.EndRecording()
	recorder.waitFor(t, StateError)

	if recorder.saw(StateSpeaking) {
		t.Fatalf("an empty transcription must never reach the speaking state")
	}

	entries := o.Conversation()
	if len(entries) != 1 || entries[0].Status != StatusError {
		t.Fatalf("expected the pending entry to be marked failed: %+v", entries)
	}
}

func TestRecordingCeilingForcesProcessing(t *testing.T) {
	recorder := newStateRecorder()
	device := &fakeCaptureDevice{}

	o := NewOrchestrator(
		WithCaptureDevice(device),
		WithRecordingCeiling(30*time.Millisecond),
		WithTranscriber(&fakeTranscriber{transcription: "cut short"}),
		WithResponder(&fakeResponder{reply: &backend.Reply{Text: "ok", Audio: []byte{1}}}),
		WithAudioOutput(&drainableOutput{}),
	)
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.BeginRecording()
	recorder.waitFor(t, StateRecording)
	recorder.waitFor(t, StateProcessing)
	recorder.waitFor(t, StateIdle)
}

func TestSilenceAutoStopsRecording(t *testing.T) {
	recorder := newStateRecorder()
	device := &fakeCaptureDevice{}

	var level atomic.Value
	level.Store(0.9)

	o := NewOrchestrator(
		WithCaptureDevice(device),
		WithLevelSource(func() float64 { return level.Load().(float64) }),
		WithSilenceWindow(SilenceWindowConfig{
			Threshold:         0.5,
			SustainedDuration: 20 * time.Millisecond,
			SampleInterval:    5 * time.Millisecond,
		}),
		WithSilenceGraceDelay(10*time.Millisecond),
		WithTranscriber(&fakeTranscriber{transcription: "auto stopped"}),
		WithResponder(&fakeResponder{reply: &backend.Reply{Text: "done", Audio: []byte{1}}}),
		WithAudioOutput(&drainableOutput{}),
	)
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.BeginRecording()
	recorder.waitFor(t, StateRecording)

	// Go quiet; the detector window plus the grace delay should stop the
	// recording without a manual EndRecording.
	level.Store(0.1)

	recorder.waitFor(t, StateProcessing)
	recorder.waitFor(t, StateIdle)

	entries := o.Conversation()
	if len(entries) != 2 || entries[0].Content != "auto stopped" {
		t.Fatalf("expected a completed voice turn, got %+v", entries)
	}
}

func TestBeginRecordingWhileSpeakingIsRejected(t *testing.T) {
	recorder := newStateRecorder()
	responder := &blockingResponder{release: make(chan struct{}), reply: &backend.Reply{Text: "slow"}}
	device := &fakeCaptureDevice{}

	o := NewOrchestrator(
		WithCaptureDevice(device),
		WithResponder(responder),
		WithAudioOutput(&drainableOutput{}),
	)
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.SubmitText("busy now")
	recorder.waitFor(t, StateProcessing)

	o.BeginRecording()
	time.Sleep(50 * time.Millisecond)
	if device.initCalls.Load() != 0 {
		t.Fatalf("recording must not start outside idle or error states")
	}

	close(responder.release)
	recorder.waitFor(t, StateIdle)
}

func TestStaleTimerGenerationsAreIgnored(t *testing.T) {
	recorder := newStateRecorder()
	device := &fakeCaptureDevice{}

	o := NewOrchestrator(
		WithCaptureDevice(device),
		WithTranscriber(&fakeTranscriber{transcription: "kept going"}),
		WithResponder(&fakeResponder{reply: &backend.Reply{Text: "ok", Audio: []byte{1}}}),
		WithAudioOutput(&drainableOutput{}),
	)
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.BeginRecording()
	recorder.waitFor(t, StateRecording)

	// Timer events from an older run carry a generation that no longer
	// matches; the loop must discard them without a transition.
	o.Handle(events.NewRecordingCeilingElapsed(12345))
	o.Handle(events.NewSilenceGraceElapsed(12345))
	time.Sleep(50 * time.Millisecond)

	if got := o.State(); got != StateRecording {
		t.Fatalf("stale timer event moved the state to %q", got)
	}

	device.push([]byte{0, 0})
	o.EndRecording()
	recorder.waitFor(t, StateIdle)
}

func TestErrorCancelsInFlightDispatch(t *testing.T) {
	recorder := newStateRecorder()
	responder := &blockingResponder{
		release:   make(chan struct{}),
		cancelled: make(chan struct{}),
		reply:     &backend.Reply{Text: "late"},
	}

	o := NewOrchestrator(WithResponder(responder), WithAudioOutput(&drainableOutput{}))
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx, WithStateChangedCallback(recorder.record))

	o.SubmitText("first")
	recorder.waitFor(t, StateProcessing)

	// A capture failure surfacing mid-dispatch supersedes the turn; the
	// backend call must be released, not left running to be discarded.
	o.Handle(events.NewCaptureFailed(errors.New("device torn down")))
	recorder.waitFor(t, StateError)

	select {
	case <-responder.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for the superseded dispatch to be cancelled")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	o := NewOrchestrator()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Orchestrate(ctx)

	o.Close()
	o.Close()
}
