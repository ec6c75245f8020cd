// Package backend defines the contracts the session core uses to reach a
// conversational AI service. The wire scheme of each call is owned by the
// implementing client package, not by the core.
package backend

import (
	"context"
	"fmt"
)

// Role describes who produced an exchange in the conversation history.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Exchange is one settled entry of prior conversation passed as context.
type Exchange struct {
	Role    Role
	Content string
}

// Reply is the normalized result of a respond call. Audio is optional; when
// present it is raw encoded audio ready for playback.
type Reply struct {
	Text  string
	Audio []byte
}

// Transcriber turns one finalized audio blob into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Responder produces the assistant reply for one piece of user text given the
// prior conversation.
type Responder interface {
	Respond(ctx context.Context, text string, history []Exchange, opts ...RespondOption) (*Reply, error)
}

// APIError is a failed backend call. Message carries the backend's own error
// body when it was parseable, otherwise a protocol-level description.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("backend request failed with status %d", e.StatusCode)
}
