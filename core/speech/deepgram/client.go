// Package deepgram implements the speech Synthesizer contract against the
// Deepgram speak websocket.
package deepgram

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/voxloop/vox-core/core/audio"
	"github.com/voxloop/vox-core/core/speech"
)

type Voice string

const (
	VoiceAsteria Voice = "aura-2-asteria-en"
	VoiceThalia  Voice = "aura-2-thalia-en"
	VoiceOrion   Voice = "aura-2-orion-en"
	VoiceArcas   Voice = "aura-2-arcas-en"

	defaultVoice = VoiceAsteria
)

// AvailableVoices lists the voices this client accepts.
func AvailableVoices() []Voice {
	return []Voice{VoiceAsteria, VoiceThalia, VoiceOrion, VoiceArcas}
}

type Client struct {
	apiKey string
	voice  Voice
}

type ClientOption func(*Client)

// WithAPIKey overrides the key read from the DEEPGRAM_API_KEY environment
// variable.
func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func NewClient(voice Voice, opts ...ClientOption) (*Client, error) {
	if voice == "" {
		voice = defaultVoice
	}
	if !slices.Contains(AvailableVoices(), voice) {
		return nil, fmt.Errorf("invalid voice")
	}

	client := &Client{voice: voice}
	if apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY"); ok {
		client.apiKey = apiKey
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) SetVoice(voice Voice) error {
	if !slices.Contains(AvailableVoices(), voice) {
		return fmt.Errorf("invalid voice")
	}

	c.voice = voice
	return nil
}

// Speak renders one piece of text through the speak websocket. Audio frames
// and the single end signal are delivered through the option callbacks.
func (c *Client) Speak(ctx context.Context, text string, opts ...speech.Option) (speech.Controller, error) {
	options := speech.Options{
		AudioCallback: func([]byte) {},
		EndCallback:   func() {},
		ErrorCallback: func(error) {},
		EncodingInfo:  audio.GetDefaultEncodingInfo(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	voice := c.voice
	if options.Voice != "" {
		if !slices.Contains(AvailableVoices(), Voice(options.Voice)) {
			return nil, fmt.Errorf("invalid voice")
		}
		voice = Voice(options.Voice)
	}

	utt := newUtterance(options)
	if err := utt.open(ctx, c.apiKey, voice, options.EncodingInfo); err != nil {
		return nil, err
	}

	if err := utt.speak(text); err != nil {
		_ = utt.Stop()
		return nil, err
	}

	return utt, nil
}
