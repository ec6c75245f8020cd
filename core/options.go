package session

import (
	"context"
	"time"

	"github.com/voxloop/vox-core/core/audio"
	"github.com/voxloop/vox-core/core/backend"
	"github.com/voxloop/vox-core/core/speech"
)

type OrchestratorOption func(*Orchestrator)

// CaptureDevice is the audio-capture collaborator. Initialize surfaces
// audio.ErrDeviceUnavailable when capture is unsupported or permission is
// denied; Cleanup must be safe to call repeatedly and without an active
// session.
type CaptureDevice interface {
	Initialize(ctx context.Context) error
	Start(chunkInterval time.Duration, onChunk func(chunk []byte)) error
	Stop() error
	Cleanup()
	State() audio.DeviceState
	EncodingInfo() audio.EncodingInfo
}

func WithCaptureDevice(device CaptureDevice) OrchestratorOption {
	return func(o *Orchestrator) { o.capture.set(device) }
}

// LevelSource yields one normalized audio level in [0, 1] per call. The
// silence detector samples it at its own cadence.
type LevelSource func() float64

// WithLevelSource overrides the built-in RMS meter as the detector's input.
func WithLevelSource(source LevelSource) OrchestratorOption {
	return func(o *Orchestrator) { o.levelSource = source }
}

// AudioOutput plays raw audio frames. Outputs that additionally implement
// AwaitDrain() error get drain-accurate playback completion; others are
// estimated from the encoding throughput.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	SendAudio(audio []byte) error
	ClearBuffer()
}

func WithAudioOutput(output AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.player.setOutput(output) }
}

func WithTranscriber(transcriber backend.Transcriber) OrchestratorOption {
	return func(o *Orchestrator) { o.dispatcher.transcriber = transcriber }
}

func WithResponder(responder backend.Responder) OrchestratorOption {
	return func(o *Orchestrator) { o.dispatcher.responder = responder }
}

// WithRespondOptions forwards options (voice, instructions) to every respond
// call the dispatcher makes.
func WithRespondOptions(opts ...backend.RespondOption) OrchestratorOption {
	return func(o *Orchestrator) { o.dispatcher.respondOptions = opts }
}

func WithSynthesizer(synthesizer speech.Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.player.synthesizer = synthesizer }
}

// WithSilenceWindow replaces the default silence detection window. Takes
// effect on the next recording; the window is immutable per detection run.
func WithSilenceWindow(config SilenceWindowConfig) OrchestratorOption {
	return func(o *Orchestrator) { o.config.silenceWindow = config.withDefaults() }
}

// WithRecordingCeiling bounds a single recording attempt.
func WithRecordingCeiling(ceiling time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.recordingCeiling = ceiling }
}

// WithSilenceGraceDelay sets the pause between a speech-ended edge and the
// automatic capture stop.
func WithSilenceGraceDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.silenceGraceDelay = delay }
}

// WithErrorDisplayDelay sets how long the session stays in the error state
// before self-healing back to idle.
func WithErrorDisplayDelay(delay time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.errorDisplayDelay = delay }
}

// WithChunkInterval sets how often the capture device delivers chunks.
func WithChunkInterval(interval time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.config.chunkInterval = interval }
}

type OrchestrateOptions struct {
	onStateChanged         func(state State)
	onConversationUpdated  func(entries []ConversationEntry)
	onError                func(message string)
	onTranscription        func(transcript string)
	onSpeakingStateChanged func(isSpeaking bool)
	onInputAudio           func(audio []byte)
	onCaptureFinalized     func(audio []byte, mimeType string)
	onPlaybackFinished     func(synthesized bool)
}

type OrchestrateOption func(*OrchestrateOptions)

// WithStateChangedCallback registers a callback for every session state
// transition. The callback runs on the orchestrator loop and should not
// block.
func WithStateChangedCallback(callback func(state State)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onStateChanged = callback
	}
}

// WithConversationUpdatedCallback registers a callback for conversation
// mutations. The callback receives a fresh snapshot each time.
func WithConversationUpdatedCallback(callback func(entries []ConversationEntry)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onConversationUpdated = callback
	}
}

// WithErrorCallback registers a callback for the human-readable message of
// every transition into the error state.
func WithErrorCallback(callback func(message string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onError = callback
	}
}

// WithTranscriptionCallback registers a callback for the final transcription
// of each audio turn.
func WithTranscriptionCallback(callback func(transcript string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onTranscription = callback
	}
}

// WithSpeakingStateChangedCallback registers a callback for silence-detector
// edges: true on speech resumed, false on speech ended.
func WithSpeakingStateChangedCallback(callback func(isSpeaking bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onSpeakingStateChanged = callback
	}
}

// WithInputAudioCallback registers a callback for raw capture chunks. The
// provided slice is passed through as-is (no defensive copy); the callback
// runs inline on the capture path and should not block.
func WithInputAudioCallback(callback func(audio []byte)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onInputAudio = callback
	}
}

// WithCaptureFinalizedCallback registers a callback for the finalized
// utterance blob of each recording.
func WithCaptureFinalizedCallback(callback func(audio []byte, mimeType string)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onCaptureFinalized = callback
	}
}

// WithPlaybackFinishedCallback registers a callback for the single playback
// done signal of each turn. The argument reports whether the speech-output
// fallback was used instead of backend audio.
func WithPlaybackFinishedCallback(callback func(synthesized bool)) OrchestrateOption {
	return func(o *OrchestrateOptions) {
		o.onPlaybackFinished = callback
	}
}
