package backend

// RespondOptions control optional behavior of a respond call.
type RespondOptions struct {
	// Voice asks the backend to render the reply as audio in the named voice.
	// Empty means text only.
	Voice string
	// SystemPrompt overrides the backend's default assistant instructions.
	SystemPrompt string
}

type RespondOption func(*RespondOptions)

// WithVoice requests backend-rendered reply audio in the given voice.
func WithVoice(voice string) RespondOption {
	return func(o *RespondOptions) {
		o.Voice = voice
	}
}

// WithSystemPrompt overrides the assistant instructions for this call.
func WithSystemPrompt(prompt string) RespondOption {
	return func(o *RespondOptions) {
		o.SystemPrompt = prompt
	}
}
