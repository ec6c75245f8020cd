package session

// State is the single source-of-truth session state. Exactly one instance
// exists per orchestrator and only the orchestrator loop mutates it.
type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateProcessing State = "processing"
	StateSpeaking   State = "speaking"
	StateError      State = "error"
)

// Utterance is one in-flight unit of user input: either a finalized audio
// blob with its declared MIME type, or plain text. It is created the moment
// capture finalizes (or text is submitted) and consumed exactly once by the
// dispatcher.
type Utterance struct {
	Audio    []byte
	MIMEType string
	Text     string
}

func NewAudioUtterance(audio []byte, mimeType string) Utterance {
	return Utterance{Audio: audio, MIMEType: mimeType}
}

func NewTextUtterance(text string) Utterance {
	return Utterance{Text: text}
}

// IsAudio reports whether this utterance takes the transcription pipeline.
func (u Utterance) IsAudio() bool {
	return len(u.Audio) > 0
}

// TurnResult is the normalized outcome of one dispatched utterance.
// Transcription is set only when the input was audio.
type TurnResult struct {
	Transcription string
	ResponseText  string
	ResponseAudio []byte
}
