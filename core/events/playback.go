package events

// KindPlaybackFinished identifies the single done signal of response playback.
const KindPlaybackFinished Kind = "playback.finished"

// PlaybackFinished marks the end of response playback, whichever path
// (backend audio, speech synthesis fallback, or simulated wait) produced it.
type PlaybackFinished struct {
	Base
	// Synthesized reports whether the speech-output fallback produced the
	// audible reply instead of backend-supplied audio.
	Synthesized bool
}

// NewPlaybackFinished creates a playback finished event.
func NewPlaybackFinished(synthesized bool) PlaybackFinished {
	return PlaybackFinished{Base: NewBase(KindPlaybackFinished), Synthesized: synthesized}
}
