package events

const (
	// KindSpeechEnded identifies sustained silence past the configured window.
	KindSpeechEnded Kind = "silence.speech_ended"
	// KindSpeechResumed identifies the level rising back above the threshold.
	KindSpeechResumed Kind = "silence.speech_resumed"
)

// SpeechEnded marks when the silence detector decides the user stopped
// talking. Fired at most once per detector run.
type SpeechEnded struct{ Base }

// NewSpeechEnded creates a speech ended event.
func NewSpeechEnded() SpeechEnded {
	return SpeechEnded{Base: NewBase(KindSpeechEnded)}
}

// SpeechResumed marks when the level crosses back above the threshold while
// the detector was quiet.
type SpeechResumed struct{ Base }

// NewSpeechResumed creates a speech resumed event.
func NewSpeechResumed() SpeechResumed {
	return SpeechResumed{Base: NewBase(KindSpeechResumed)}
}
