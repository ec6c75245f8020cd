package events

const (
	// KindRecordingStartRequested identifies a user request to start recording.
	KindRecordingStartRequested Kind = "command.recording_start_requested"
	// KindRecordingStopRequested identifies a user request to stop recording.
	KindRecordingStopRequested Kind = "command.recording_stop_requested"
	// KindTextSubmitted identifies directly typed user input.
	KindTextSubmitted Kind = "command.text_submitted"
)

// RecordingStartRequested marks a user request to begin a recording.
type RecordingStartRequested struct{ Base }

// NewRecordingStartRequested creates a recording start request event.
func NewRecordingStartRequested() RecordingStartRequested {
	return RecordingStartRequested{Base: NewBase(KindRecordingStartRequested)}
}

// RecordingStopRequested marks a user request to stop the active recording.
type RecordingStopRequested struct{ Base }

// NewRecordingStopRequested creates a recording stop request event.
func NewRecordingStopRequested() RecordingStopRequested {
	return RecordingStopRequested{Base: NewBase(KindRecordingStopRequested)}
}

// TextSubmitted carries typed user input that bypasses audio capture.
type TextSubmitted struct {
	Base
	Text string
}

// NewTextSubmitted creates a text submission event.
func NewTextSubmitted(text string) TextSubmitted {
	return TextSubmitted{Base: NewBase(KindTextSubmitted), Text: text}
}
