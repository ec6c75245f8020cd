package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/voxloop/vox-core/core/audio"
	"github.com/voxloop/vox-core/core/speech"
)

// utterance is one in-flight Speak call. The speak endpoint confirms the end
// of synthesis with a Flushed message after all audio has been delivered,
// which is what drives the single end callback.
type utterance struct {
	ws   *websocket.Conn
	wsMu sync.Mutex

	options speech.Options

	paused  bool
	pending [][]byte
	mu      sync.Mutex

	endOnce sync.Once
	stopped bool
}

func newUtterance(options speech.Options) *utterance {
	return &utterance{options: options}
}

func (u *utterance) open(ctx context.Context, apiKey string, voice Voice, encodingInfo audio.EncodingInfo) error {
	if apiKey == "" {
		return fmt.Errorf("deepgram api key not found")
	}
	if encodingInfo.IsZero() {
		encodingInfo = audio.GetDefaultEncodingInfo()
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx,
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + apiKey}})
	if err != nil {
		return fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	u.ws = conn
	go u.processIncomingMessages()

	return nil
}

func (u *utterance) speak(text string) error {
	if err := u.sendWebsocketMessage(sendTextMsg(text)); err != nil {
		return fmt.Errorf("failed to send websocket text message: %w", err)
	}
	if err := u.sendWebsocketMessage(flushMsg); err != nil {
		return fmt.Errorf("failed to send websocket flush message: %w", err)
	}

	return nil
}

func (u *utterance) processIncomingMessages() {
	for {
		msgType, msg, err := u.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !u.isStopped() {
				log.Printf("Websocket read error: %v", err)
				u.options.ErrorCallback(fmt.Errorf("failed to read speak websocket message: %w", err))
			}
			u.finish()
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			u.deliverAudio(msg)
		case websocket.TextMessage:
			var parsedMsg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				u.flushPending()
				u.finish()
				_ = u.close()
				return
			case "Warning":
				var warning struct {
					Description string `json:"description"`
				}
				if err := json.Unmarshal(msg, &warning); err == nil {
					log.Printf("Deepgram speak warning: %s", warning.Description)
				}
			}
		}
	}
}

func (u *utterance) deliverAudio(frame []byte) {
	u.mu.Lock()
	if u.paused {
		u.pending = append(u.pending, frame)
		u.mu.Unlock()
		return
	}
	u.mu.Unlock()

	u.options.AudioCallback(frame)
}

func (u *utterance) flushPending() {
	u.mu.Lock()
	pending := u.pending
	u.pending = nil
	u.paused = false
	u.mu.Unlock()

	for _, frame := range pending {
		u.options.AudioCallback(frame)
	}
}

func (u *utterance) finish() {
	u.endOnce.Do(u.options.EndCallback)
}

func (u *utterance) Pause() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.stopped {
		return fmt.Errorf("utterance stopped")
	}
	u.paused = true
	return nil
}

func (u *utterance) Resume() error {
	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		return fmt.Errorf("utterance stopped")
	}
	u.mu.Unlock()

	u.flushPending()
	return nil
}

func (u *utterance) Stop() error {
	u.mu.Lock()
	if u.stopped {
		u.mu.Unlock()
		return nil
	}
	u.stopped = true
	u.pending = nil
	u.mu.Unlock()

	defer u.finish()

	if err := u.sendWebsocketMessage(clearMsg); err != nil {
		return u.close()
	}

	return u.close()
}

func (u *utterance) isStopped() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.stopped
}

func (u *utterance) close() error {
	if err := u.sendWebsocketMessage(closeMsg); err != nil {
		if aggressiveCloseErr := u.ws.Close(); aggressiveCloseErr != nil {
			return fmt.Errorf("failed to close websocket: %w", errors.Join(err, aggressiveCloseErr))
		}
	}
	return nil
}

type websocketMessage struct {
	Type string `json:"type"`
}

type websocketTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	sendTextMsg = func(text string) websocketTextMessage {
		return websocketTextMessage{Type: "Speak", Text: text}
	}
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func (u *utterance) sendWebsocketMessage(msg any) error {
	u.wsMu.Lock()
	defer u.wsMu.Unlock()

	if err := u.ws.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write speak websocket message: %w", err)
	}
	return nil
}
