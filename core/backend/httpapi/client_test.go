package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxloop/vox-core/core/backend"
)

func TestTranscribeSendsRawAudioWithDeclaredMIMEType(t *testing.T) {
	var gotBody []byte
	var gotContentType, gotAuthorization string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transcribe" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		gotAuthorization = r.Header.Get("Authorization")

		_ = json.NewEncoder(w).Encode(map[string]string{"transcription": "hello world"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAPIKey("secret"))

	transcription, err := client.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/L16;rate=16000")
	if err != nil {
		t.Fatalf("unexpected transcribe error: %v", err)
	}

	if transcription != "hello world" {
		t.Fatalf("unexpected transcription %q", transcription)
	}
	if string(gotBody) != "\x01\x02\x03" {
		t.Fatalf("audio not sent raw: %v", gotBody)
	}
	if gotContentType != "audio/L16;rate=16000" {
		t.Fatalf("mime type not declared, got %q", gotContentType)
	}
	if gotAuthorization != "Bearer secret" {
		t.Fatalf("api key not sent, got %q", gotAuthorization)
	}
}

func TestRespondCarriesHistoryAndOptions(t *testing.T) {
	var got respondRequestBody

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/respond" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(respondResponseBody{Text: "reply", Audio: []byte{9, 8}})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	history := []backend.Exchange{
		{Role: backend.RoleUser, Content: "earlier"},
		{Role: backend.RoleAssistant, Content: "earlier reply"},
	}
	reply, err := client.Respond(context.Background(), "now", history,
		backend.WithVoice("asteria"),
		backend.WithSystemPrompt("be brief"),
	)
	if err != nil {
		t.Fatalf("unexpected respond error: %v", err)
	}

	if got.Message != "now" || got.Voice != "asteria" || got.Instructions != "be brief" {
		t.Fatalf("request body not assembled: %+v", got)
	}
	if len(got.History) != 2 || got.History[0].Role != "user" {
		t.Fatalf("history not carried: %+v", got.History)
	}
	if reply.Text != "reply" || len(reply.Audio) != 2 {
		t.Fatalf("reply not decoded: %+v", reply)
	}
}

func TestErrorBodyMessageSurfacesInAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited, slow down"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Respond(context.Background(), "hi", nil)
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status code not carried, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "rate limited, slow down" {
		t.Fatalf("backend error body not preferred, got %q", apiErr.Message)
	}
}

func TestErrorMessageFromBodyFallbacks(t *testing.T) {
	if got := errorMessageFromBody([]byte(`{"error":"plain string"}`), "500 Internal Server Error"); got != "plain string" {
		t.Fatalf("string error form not parsed, got %q", got)
	}
	if got := errorMessageFromBody([]byte(`not json`), "502 Bad Gateway"); got != "non-OK HTTP status: 502 Bad Gateway" {
		t.Fatalf("unparseable body must fall back to the status, got %q", got)
	}
}

func TestUnreachableBackendIsAPIError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")

	_, err := client.Transcribe(context.Background(), []byte{1}, "audio/L16;rate=16000")
	var apiErr *backend.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected an APIError for a transport failure, got %v", err)
	}
}
