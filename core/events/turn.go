package events

const (
	// KindTurnCompleted identifies a dispatched turn that produced a reply.
	KindTurnCompleted Kind = "turn.completed"
	// KindTurnFailed identifies a dispatched turn that failed.
	KindTurnFailed Kind = "turn.failed"
)

// TurnCompleted carries the normalized result of one dispatched turn.
// Transcription is empty unless the turn originated from audio input.
type TurnCompleted struct {
	Base
	Transcription string
	ResponseText  string
	ResponseAudio []byte
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(transcription, responseText string, responseAudio []byte) TurnCompleted {
	return TurnCompleted{
		Base:          NewBase(KindTurnCompleted),
		Transcription: transcription,
		ResponseText:  responseText,
		ResponseAudio: responseAudio,
	}
}

// TurnFailed carries the single typed failure of one dispatched turn.
type TurnFailed struct {
	Base
	Err error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), Err: err}
}
