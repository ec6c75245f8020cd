package session

import "errors"

var (
	// ErrEmptyTranscription means the audio produced no usable text. The
	// session surfaces it to the user and asks for a retry.
	ErrEmptyTranscription = errors.New("transcription came back empty")

	// ErrNoResponder means no backend responder is configured.
	ErrNoResponder = errors.New("no responder configured")

	// ErrNoTranscriber means an audio utterance was dispatched without a
	// configured transcriber.
	ErrNoTranscriber = errors.New("no transcriber configured")
)
