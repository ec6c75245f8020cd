// Package session implements the voice session orchestrator: the state
// machine that decides when to capture audio, when an utterance is finished,
// when to dispatch it to the conversational backend, and how to sequence the
// audible reply, without ever overlapping or losing a turn.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/voxloop/vox-core/core/audio"
	"github.com/voxloop/vox-core/core/backend"
	"github.com/voxloop/vox-core/core/events"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSilenceGraceDelay = 500 * time.Millisecond
	defaultErrorDisplayDelay = 5 * time.Second

	pendingVoiceContent = "(voice message)"
)

type sessionConfig struct {
	silenceWindow     SilenceWindowConfig
	silenceGraceDelay time.Duration
	recordingCeiling  time.Duration
	errorDisplayDelay time.Duration
	chunkInterval     time.Duration
}

// Orchestrator owns the single visible session state and sequences capture,
// silence detection, dispatch, and playback. All transitions happen on one
// loop goroutine; re-entrant triggers are rejected by state guard, so a late
// collaborator event arriving after the state moved on is a no-op.
type Orchestrator struct {
	runtime *sessionRuntime

	conversation *conversationLog

	capture    *captureSession
	detector   *silenceDetector
	dispatcher *turnDispatcher
	player     *responsePlayer

	meter       *audio.Meter
	levelSource LevelSource

	config sessionConfig

	stateMu      sync.RWMutex
	state        State
	errorMessage string

	// Loop-owned: the generation counter is bumped on every state
	// transition, and every timer event carries the generation it was
	// armed in, so a stale timer can never fire into a newer state.
	generation     uint64
	graceTimer     *time.Timer
	ceilingTimer   *time.Timer
	errorTimer     *time.Timer
	dispatchCancel context.CancelFunc
	playbackCancel context.CancelFunc

	orchestrateOptions OrchestrateOptions
	notify             eventEmitter
	closeOnce          sync.Once
	baseContext        context.Context
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	meter := audio.NewMeter(audio.GetDefaultEncodingInfo())

	o := &Orchestrator{
		runtime:      newSessionRuntime(),
		conversation: newConversationLog(),
		capture:      newCaptureSession(nil),
		dispatcher:   newTurnDispatcher(),
		player:       newResponsePlayer(),
		meter:        meter,
		state:        StateIdle,
		notify:       noopEventEmitter,
		baseContext:  context.Background(),
		config: sessionConfig{
			silenceWindow:     DefaultSilenceWindowConfig(),
			silenceGraceDelay: defaultSilenceGraceDelay,
			recordingCeiling:  defaultRecordingCeiling,
			errorDisplayDelay: defaultErrorDisplayDelay,
			chunkInterval:     defaultChunkInterval,
		},
	}
	o.levelSource = meter.Level

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Orchestrate starts the session loop.
//
// Contract: call Orchestrate at most once per orchestrator instance. ctx is
// the base context for dispatch and playback; cancelling it closes the
// session.
func (o *Orchestrator) Orchestrate(ctx context.Context, opts ...OrchestrateOption) {
	if o.runtime.isClosed() {
		logger.Warn("session already closed, skipping Orchestrate")
		return
	}

	o.orchestrateOptions = OrchestrateOptions{}
	for _, opt := range opts {
		opt(&o.orchestrateOptions)
	}

	o.baseContext = ctx
	o.notify = newCallbackEventEmitter(o.orchestrateOptions)
	o.player.setEventEmitter(o.emitEvent)
	o.capture.setMaxDuration(o.config.recordingCeiling)

	if started := o.runtime.start(o.processEvent); started {
		go func() {
			<-ctx.Done()
			o.Close()
		}()
	}
}

func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.runtime.end()

		if o.detector != nil {
			o.detector.Stop()
		}
		o.capture.cleanup()

		o.runtime.awaitCompletion()

		// The loop has exited; its cancel funcs are safe to touch here.
		o.cancelInFlight()
	})
}

// State returns the current session state.
func (o *Orchestrator) State() State {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.state
}

// ErrorMessage returns the human-readable message of the current error
// state, or the empty string.
func (o *Orchestrator) ErrorMessage() string {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.errorMessage
}

// Conversation returns a point-in-time snapshot of the conversation entries.
func (o *Orchestrator) Conversation() []ConversationEntry {
	return o.conversation.Snapshot()
}

// InputLevel returns the current normalized microphone level.
func (o *Orchestrator) InputLevel() float64 {
	if o.levelSource == nil {
		return 0
	}
	return o.levelSource()
}

// BeginRecording requests a new recording. Accepted only while idle or in
// the error state; anything else is a no-op.
func (o *Orchestrator) BeginRecording() {
	o.emitEvent(events.NewRecordingStartRequested())
}

// EndRecording requests a manual stop of the active recording. A no-op
// outside the recording state.
func (o *Orchestrator) EndRecording() {
	o.emitEvent(events.NewRecordingStopRequested())
}

// SubmitText submits typed input, bypassing capture. Blank text is rejected
// before any conversation entry is created.
func (o *Orchestrator) SubmitText(text string) {
	if isBlank(text) {
		return
	}

	o.emitEvent(events.NewTextSubmitted(text))
}

// Handle injects an event into the session loop, letting external
// collaborators (or tests) drive the session without real devices.
func (o *Orchestrator) Handle(event events.Event) {
	o.emitEvent(event)
}

// emitEvent delivers an event to the session loop. It never blocks the loop
// goroutine: if the queue is momentarily full, delivery is handed off to a
// goroutine, trading arrival order for liveness. The queue capacity is sized
// so that path is never taken at interactive command rates.
func (o *Orchestrator) emitEvent(event events.Event) {
	if o.runtime.tryEnqueue(event) {
		return
	}

	go o.runtime.enqueue(event)
}

func (o *Orchestrator) processEvent(event events.Event) {
	defer func() {
		if recovered := recover(); recovered != nil {
			recoveredErr := fmt.Errorf("unexpected session failure: %v", recovered)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recoveredErr)
			span.SetStatus(codes.Error, recoveredErr.Error())
			o.enterError(recoveredErr.Error())
		}
	}()

	o.notify(event)

	switch typedEvent := event.(type) {
	case events.RecordingStartRequested:
		o.handleRecordingStartRequested()
	case events.RecordingStopRequested:
		o.handleRecordingStopRequested()
	case events.TextSubmitted:
		o.handleTextSubmitted(typedEvent)
	case events.SpeechEnded:
		o.handleSpeechEnded()
	case events.SpeechResumed:
		// Edge is surfaced through the speaking-state callback only; the
		// stop decision, once latched, stands.
	case events.SilenceGraceElapsed:
		o.handleSilenceGraceElapsed(typedEvent)
	case events.RecordingCeilingElapsed:
		o.handleRecordingCeilingElapsed(typedEvent)
	case events.CaptureFinalized:
		o.handleCaptureFinalized(typedEvent)
	case events.CaptureFailed:
		o.handleCaptureFailed(typedEvent)
	case events.TurnCompleted:
		o.handleTurnCompleted(typedEvent)
	case events.TurnFailed:
		o.handleTurnFailed(typedEvent)
	case events.PlaybackFinished:
		o.handlePlaybackFinished()
	case events.ErrorDisplayElapsed:
		o.handleErrorDisplayElapsed(typedEvent)
	}
}

func (o *Orchestrator) handleRecordingStartRequested() {
	state := o.State()
	if state != StateIdle && state != StateError {
		logger.Debug("recording request rejected by state guard", "state", string(state))
		return
	}
	if o.capture.isActive() {
		return
	}

	o.clearErrorTimer()
	o.setErrorMessage("")

	if err := o.capture.ensureInitialized(o.baseContext); err != nil {
		o.enterError(humanizeError(err))
		return
	}

	o.meter.Reset()
	err := o.capture.start(o.config.chunkInterval, captureCallbacks{
		onChunk: func(chunk []byte) {
			o.meter.Write(chunk)
			if onInputAudio := o.orchestrateOptions.onInputAudio; onInputAudio != nil {
				onInputAudio(chunk)
			}
		},
		onFinalized: func(blob []byte, mimeType string) {
			o.emitEvent(events.NewCaptureFinalized(blob, mimeType))
		},
		onError: func(err error) {
			o.emitEvent(events.NewCaptureFailed(err))
		},
	})
	if err != nil {
		o.capture.cleanup()
		o.enterError(humanizeError(err))
		return
	}

	o.ensureDetector()
	o.detector.Start(o.baseContext)

	o.setState(StateRecording)
	o.armCeilingTimer()
	o.emitEvent(events.NewCaptureStarted())
}

func (o *Orchestrator) handleRecordingStopRequested() {
	if o.State() != StateRecording {
		return
	}

	o.stopRecording()
}

func (o *Orchestrator) handleSpeechEnded() {
	if o.State() != StateRecording {
		// Late detector edge after a manual stop; the state guard makes
		// it a no-op.
		return
	}
	if o.graceTimer != nil {
		return
	}

	if o.config.silenceGraceDelay <= 0 {
		o.stopRecording()
		return
	}

	generation := o.generation
	o.graceTimer = time.AfterFunc(o.config.silenceGraceDelay, func() {
		o.emitEvent(events.NewSilenceGraceElapsed(generation))
	})
}

func (o *Orchestrator) handleSilenceGraceElapsed(event events.SilenceGraceElapsed) {
	if event.Generation != o.generation || o.State() != StateRecording {
		return
	}

	o.graceTimer = nil
	o.stopRecording()
}

func (o *Orchestrator) handleRecordingCeilingElapsed(event events.RecordingCeilingElapsed) {
	if event.Generation != o.generation || o.State() != StateRecording {
		return
	}

	o.ceilingTimer = nil
	o.stopRecording()
}

// stopRecording is the single stop path shared by the silence edge, the
// manual stop, and the hard ceiling. Capture finalization arrives as a
// separate event once the device has flushed.
func (o *Orchestrator) stopRecording() {
	o.clearRecordingTimers()
	o.detector.Stop()
	o.setState(StateProcessing)
	o.capture.stop()
}

func (o *Orchestrator) handleCaptureFinalized(event events.CaptureFinalized) {
	switch o.State() {
	case StateRecording:
		// The capture session stopped on its own (internal ceiling);
		// run the same bookkeeping as an orchestrated stop.
		o.clearRecordingTimers()
		o.detector.Stop()
		o.setState(StateProcessing)
	case StateProcessing:
	default:
		return
	}

	o.beginDispatch(NewAudioUtterance(event.Audio, event.MIMEType), pendingVoiceContent)
}

func (o *Orchestrator) handleCaptureFailed(event events.CaptureFailed) {
	state := o.State()
	if state != StateRecording && state != StateProcessing {
		return
	}

	if state == StateRecording {
		o.clearRecordingTimers()
		o.detector.Stop()
	}

	o.enterError(humanizeError(event.Err))
}

func (o *Orchestrator) handleTextSubmitted(event events.TextSubmitted) {
	state := o.State()
	if state != StateIdle && state != StateError {
		logger.Debug("text submission rejected by state guard", "state", string(state))
		return
	}

	o.clearErrorTimer()
	o.setErrorMessage("")
	o.setState(StateProcessing)
	o.beginDispatch(NewTextUtterance(event.Text), event.Text)
}

// beginDispatch appends the pending user entry and runs the dispatcher off
// the loop. History passed as context never includes the pending entry or
// failed ones.
func (o *Orchestrator) beginDispatch(utterance Utterance, pendingContent string) {
	o.conversation.append(SenderUser, pendingContent, StatusSending)
	o.notifyConversationUpdated()

	history := o.conversation.settledExchanges()

	ctx, cancel := context.WithCancel(o.baseContext)
	o.dispatchCancel = cancel

	go func() {
		defer cancel()

		result, err := o.dispatcher.dispatch(ctx, utterance, history)
		if err != nil {
			o.emitEvent(events.NewTurnFailed(err))
			return
		}

		o.emitEvent(events.NewTurnCompleted(result.Transcription, result.ResponseText, result.ResponseAudio))
	}()
}

func (o *Orchestrator) handleTurnCompleted(event events.TurnCompleted) {
	if o.State() != StateProcessing {
		return
	}
	o.dispatchCancel = nil

	// History first, playback second: an observer always sees the reply
	// text no later than its audio.
	o.conversation.updateLastPending(func(entry *ConversationEntry) {
		entry.Status = StatusSent
		if event.Transcription != "" {
			entry.Content = event.Transcription
		}
	})
	o.conversation.append(SenderAssistant, event.ResponseText, StatusSent)
	o.notifyConversationUpdated()

	o.setState(StateSpeaking)

	result := TurnResult{
		Transcription: event.Transcription,
		ResponseText:  event.ResponseText,
		ResponseAudio: event.ResponseAudio,
	}
	ctx, cancel := context.WithCancel(o.baseContext)
	o.playbackCancel = cancel
	go func() {
		defer cancel()
		o.player.play(ctx, result)
	}()
}

func (o *Orchestrator) handleTurnFailed(event events.TurnFailed) {
	if o.State() != StateProcessing {
		return
	}
	o.dispatchCancel = nil

	message := humanizeError(event.Err)
	o.conversation.updateLastPending(func(entry *ConversationEntry) {
		entry.Status = StatusError
		entry.ErrorDetail = message
	})
	o.notifyConversationUpdated()

	o.enterError(message)
}

func (o *Orchestrator) handlePlaybackFinished() {
	if o.State() != StateSpeaking {
		return
	}

	o.playbackCancel = nil
	o.setState(StateIdle)
}

func (o *Orchestrator) handleErrorDisplayElapsed(event events.ErrorDisplayElapsed) {
	if event.Generation != o.generation || o.State() != StateError {
		return
	}

	o.errorTimer = nil
	o.setErrorMessage("")
	o.setState(StateIdle)
}

// enterError routes any failure through the error state with a
// human-readable message and arms the bounded display window after which the
// session self-heals back to idle.
func (o *Orchestrator) enterError(message string) {
	o.cancelInFlight()
	o.clearRecordingTimers()
	o.clearErrorTimer()

	o.setErrorMessage(message)
	o.setState(StateError)

	if onError := o.orchestrateOptions.onError; onError != nil {
		onError(message)
	}

	generation := o.generation
	o.errorTimer = time.AfterFunc(o.config.errorDisplayDelay, func() {
		o.emitEvent(events.NewErrorDisplayElapsed(generation))
	})
}

func (o *Orchestrator) setState(next State) {
	o.stateMu.Lock()
	o.state = next
	o.stateMu.Unlock()

	o.generation++

	if onStateChanged := o.orchestrateOptions.onStateChanged; onStateChanged != nil {
		onStateChanged(next)
	}
}

func (o *Orchestrator) setErrorMessage(message string) {
	o.stateMu.Lock()
	o.errorMessage = message
	o.stateMu.Unlock()
}

func (o *Orchestrator) notifyConversationUpdated() {
	if onConversationUpdated := o.orchestrateOptions.onConversationUpdated; onConversationUpdated != nil {
		onConversationUpdated(o.conversation.Snapshot())
	}
}

func (o *Orchestrator) ensureDetector() {
	if o.detector == nil {
		o.detector = newSilenceDetector(o.sampleLevel, o.config.silenceWindow, o.emitEvent)
		return
	}

	// The window is immutable per run; apply any replacement while the
	// detector is stopped.
	if err := o.detector.Reconfigure(o.config.silenceWindow); err != nil {
		logger.Warn("failed to reconfigure silence detector", "error", err)
	}
}

// sampleLevel indirects through the field so a level source configured after
// detector creation still takes effect.
func (o *Orchestrator) sampleLevel() float64 {
	if o.levelSource == nil {
		return 0
	}
	return o.levelSource()
}

func (o *Orchestrator) armCeilingTimer() {
	if o.config.recordingCeiling <= 0 {
		return
	}

	generation := o.generation
	o.ceilingTimer = time.AfterFunc(o.config.recordingCeiling, func() {
		o.emitEvent(events.NewRecordingCeilingElapsed(generation))
	})
}

// cancelInFlight aborts any dispatch or playback the session has stopped
// waiting for, so a superseded turn releases its backend call promptly
// instead of running to completion just to be discarded by a state guard.
func (o *Orchestrator) cancelInFlight() {
	if o.dispatchCancel != nil {
		o.dispatchCancel()
		o.dispatchCancel = nil
	}
	if o.playbackCancel != nil {
		o.playbackCancel()
		o.playbackCancel = nil
	}
}

func (o *Orchestrator) clearRecordingTimers() {
	if o.graceTimer != nil {
		o.graceTimer.Stop()
		o.graceTimer = nil
	}
	if o.ceilingTimer != nil {
		o.ceilingTimer.Stop()
		o.ceilingTimer = nil
	}
}

func (o *Orchestrator) clearErrorTimer() {
	if o.errorTimer != nil {
		o.errorTimer.Stop()
		o.errorTimer = nil
	}
}

// humanizeError maps the error taxonomy onto user-presentable messages.
func humanizeError(err error) string {
	var apiErr *backend.APIError

	switch {
	case errors.Is(err, ErrEmptyTranscription):
		return "No speech was detected in the recording. Please try again."
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "The microphone is unavailable. Check permissions and try again."
	case errors.As(err, &apiErr):
		return apiErr.Error()
	case err == nil:
		return "unknown error"
	}

	return err.Error()
}

func isBlank(text string) bool {
	for _, r := range text {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
