// Package deepgram implements the backend Transcriber contract against the
// Deepgram listen websocket, so transcription can run on a different provider
// than the respond endpoint.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
)

const (
	defaultModel    = "nova-3"
	defaultLanguage = "en-US"

	// chunkSize bounds individual websocket frames when replaying the blob.
	chunkSize = 8192

	transcriptionDeadline = 30 * time.Second
)

type TranscriptionClient struct {
	apiKey   string
	model    string
	language string
}

type TranscriptionClientOption func(*TranscriptionClient)

// WithAPIKey overrides the key read from the DEEPGRAM_API_KEY environment
// variable.
func WithAPIKey(apiKey string) TranscriptionClientOption {
	return func(c *TranscriptionClient) { c.apiKey = apiKey }
}

func WithModel(model string) TranscriptionClientOption {
	return func(c *TranscriptionClient) { c.model = model }
}

func WithLanguage(language string) TranscriptionClientOption {
	return func(c *TranscriptionClient) { c.language = language }
}

func NewTranscriptionClient(opts ...TranscriptionClientOption) *TranscriptionClient {
	client := &TranscriptionClient{model: defaultModel, language: defaultLanguage}
	if apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY"); ok {
		client.apiKey = apiKey
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Transcribe replays one finalized audio blob over the listen websocket and
// collects the final transcript segments until the stream closes.
func (c *TranscriptionClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	encoding, err := encodingFromMIMEType(mimeType)
	if err != nil {
		return "", fmt.Errorf("invalid utterance encoding: %w", err)
	}

	conn, err := c.connectWebsocket(encoding)
	if err != nil {
		return "", fmt.Errorf("failed to open websocket: %w", err)
	}
	defer conn.Close()

	transcriptCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go readTranscript(conn, transcriptCh, errCh)

	for offset := 0; offset < len(audio); offset += chunkSize {
		end := min(offset+chunkSize, len(audio))
		if err := conn.WriteMessage(websocket.BinaryMessage, audio[offset:end]); err != nil {
			return "", fmt.Errorf("failed to write audio to deepgram: %w", err)
		}
	}

	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return "", fmt.Errorf("failed to close deepgram stream: %w", err)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(transcriptionDeadline):
		return "", fmt.Errorf("timed out waiting for transcript")
	case err := <-errCh:
		return "", err
	case transcript := <-transcriptCh:
		return transcript, nil
	}
}

func (c *TranscriptionClient) connectWebsocket(encoding encodingInfo) (*websocket.Conn, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	listenURL, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenURL.Query()
	queryParams.Set("encoding", encoding.Format.Name())
	queryParams.Set("sample_rate", strconv.Itoa(encoding.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", c.model)
	queryParams.Set("language", c.language)
	queryParams.Set("smart_format", "true")

	listenURL.RawQuery = queryParams.Encode()
	conn, _, err := websocket.DefaultDialer.Dial(listenURL.String(),
		http.Header{"Authorization": {"Token " + c.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

func readTranscript(conn *websocket.Conn, transcriptCh chan<- string, errCh chan<- error) {
	var segments []string
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				transcriptCh <- strings.TrimSpace(strings.Join(segments, " "))
				return
			}

			errCh <- fmt.Errorf("failed to read deepgram websocket message: %w", err)
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		var parsedMsg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &parsedMsg); err != nil {
			continue
		}

		if api.TypeResponse(parsedMsg.Type) != api.TypeMessageResponse {
			continue
		}

		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			continue
		}
		if !msgResp.IsFinal || len(msgResp.Channel.Alternatives) == 0 {
			continue
		}

		transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		if transcript != "" {
			segments = append(segments, transcript)
		}
	}
}
