// Package httpapi is the HTTP JSON client for a vox conversational backend
// exposing transcription and respond endpoints.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/voxloop/vox-core/core/backend"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

const (
	transcribePath = "/v1/transcribe"
	respondPath    = "/v1/respond"

	defaultTimeout = 60 * time.Second
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithAPIKey overrides the key read from the VOXLOOP_API_KEY environment
// variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

// WithHTTPClient overrides the default instrumented HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, request *http.Request) string {
					return fmt.Sprintf("%s %s", request.Method, request.URL.Path)
				}),
			),
		},
	}

	if apiKey, ok := os.LookupEnv("VOXLOOP_API_KEY"); ok {
		client.apiKey = apiKey
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Transcribe sends one finalized audio blob and returns its transcript. The
// returned text may be empty when the backend heard no usable speech; the
// caller decides what that means.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, span := tracer.Start(ctx, "transcribe audio")
	defer span.End()
	span.SetAttributes(attribute.Int("transcribe.audio_bytes", len(audio)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+transcribePath, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	c.authorize(req)

	bodyBytes, err := c.do(req)
	if err != nil {
		return "", err
	}

	var responseBody struct {
		Transcription string `json:"transcription"`
	}
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return "", fmt.Errorf("error unmarshalling response body: %w", err)
	}

	return responseBody.Transcription, nil
}

type respondRequestBody struct {
	Message      string         `json:"message"`
	History      []historyEntry `json:"history,omitempty"`
	Voice        string         `json:"voice,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respondResponseBody struct {
	Text string `json:"text"`
	// Audio is base64 encoded by encoding/json on the wire.
	Audio []byte `json:"audio,omitempty"`
}

// Respond requests the assistant reply for one piece of user text, carrying
// prior settled exchanges as context.
func (c *Client) Respond(ctx context.Context, text string, history []backend.Exchange, opts ...backend.RespondOption) (*backend.Reply, error) {
	options := backend.RespondOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, span := tracer.Start(ctx, "request response")
	defer span.End()
	span.SetAttributes(attribute.Int("respond.history_length", len(history)))

	reqBody := respondRequestBody{
		Message:      text,
		Voice:        options.Voice,
		Instructions: options.SystemPrompt,
	}
	for _, exchange := range history {
		reqBody.History = append(reqBody.History, historyEntry{
			Role:    string(exchange.Role),
			Content: exchange.Content,
		})
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+respondPath, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	bodyBytes, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var responseBody respondResponseBody
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		return nil, fmt.Errorf("error unmarshalling response body: %w", err)
	}

	return &backend.Reply{Text: responseBody.Text, Audio: responseBody.Audio}, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &backend.APIError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &backend.APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("error reading response body: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &backend.APIError{StatusCode: resp.StatusCode, Message: errorMessageFromBody(bodyBytes, resp.Status)}
	}

	return bodyBytes, nil
}

// errorMessageFromBody prefers the backend's own error body over the
// protocol-level status line.
func errorMessageFromBody(body []byte, status string) string {
	var withObject struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &withObject); err == nil && withObject.Error.Message != "" {
		return withObject.Error.Message
	}

	var withString struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &withString); err == nil && withString.Error != "" {
		return withString.Error
	}

	return fmt.Sprintf("non-OK HTTP status: %s", status)
}
