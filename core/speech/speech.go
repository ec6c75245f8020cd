// Package speech defines the contract for a speech-output device that renders
// text as audible speech.
package speech

import "context"

// Synthesizer speaks a single piece of text. Audio frames, the end of the
// utterance, and failures are delivered through the option callbacks; the end
// callback fires exactly once per Speak call.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts ...Option) (Controller, error)
}

// Controller drives one in-flight utterance.
type Controller interface {
	Pause() error
	Resume() error
	Stop() error
}
