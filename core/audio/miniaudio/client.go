// Package miniaudio provides a capture device and an audio output backed by
// miniaudio (through malgo). A single Client serves both directions so the
// underlying context is shared and torn down once.
package miniaudio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/voxloop/vox-core/core/audio"
)

type Client struct {
	mu sync.Mutex

	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	capture  captureDevice
	playback playbackDevice
}

func NewClient() (*Client, error) {
	return &Client{}, nil
}

// Initialize acquires the audio context and both devices. Safe to call
// repeatedly; subsequent calls are no-ops while the context is live.
func (c *Client) Initialize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.audioContext != nil {
		return nil
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	if err := c.capture.init(audioCtx); err != nil {
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	if err := c.playback.init(audioCtx); err != nil {
		c.capture.uninit()
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	if err := c.playback.start(); err != nil {
		c.playback.uninit()
		c.capture.uninit()
		_ = audioCtx.Uninit()
		audioCtx.Free()
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	c.audioContext = audioCtx
	return nil
}

func (c *Client) Start(chunkInterval time.Duration, onChunk func(chunk []byte)) error {
	return c.capture.start(chunkInterval, onChunk)
}

func (c *Client) Stop() error {
	return c.capture.stop()
}

func (c *Client) State() audio.DeviceState {
	return c.capture.state()
}

// Cleanup releases both devices and the audio context. Idempotent.
func (c *Client) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.audioContext == nil {
		return
	}

	c.capture.uninit()
	c.playback.uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
	c.audioContext = nil
}

func (c *Client) SendAudio(audio []byte) error {
	return c.playback.sendAudio(audio)
}

func (c *Client) ClearBuffer() {
	c.playback.clearBuffer()
}

// AwaitDrain blocks until every frame queued so far has been handed to the
// output device.
func (c *Client) AwaitDrain() error {
	return c.playback.awaitDrain()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
