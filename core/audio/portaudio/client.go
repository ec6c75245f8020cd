// Package portaudio provides an alternative capture device backed by
// PortAudio, for platforms where the miniaudio backend is not available.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/voxloop/vox-core/core/audio"
)

const defaultBufferSize = 512

type Client struct {
	mu sync.Mutex

	bufferSize  int
	stream      *portaudio.Stream
	in          []int16
	initialized bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewClient() *Client {
	return &Client{bufferSize: defaultBufferSize}
}

func (c *Client) Initialize(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	c.in = make([]int16, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.DefaultSampleRate, c.bufferSize, c.in)
	if err != nil {
		_ = portaudio.Terminate()
		return fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
	}

	c.stream = stream
	c.initialized = true
	return nil
}

func (c *Client) Start(chunkInterval time.Duration, onChunk func(chunk []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return fmt.Errorf("stream not initialized")
	}
	if c.stopCh != nil {
		return nil
	}

	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start capture stream: %w", err)
	}

	chunkSize := int(chunkInterval.Seconds() * float64(c.encodingInfo().BytesPerSecond()))
	if chunkSize <= 0 {
		chunkSize = c.bufferSize * 2
	}

	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.readLoop(c.stopCh, c.doneCh, chunkSize, onChunk)

	return nil
}

// readLoop pulls frames off the blocking stream and rebatches them into
// chunks of roughly chunkInterval worth of audio.
func (c *Client) readLoop(stopCh <-chan struct{}, doneCh chan<- struct{}, chunkSize int, onChunk func(chunk []byte)) {
	defer close(doneCh)

	var pending bytes.Buffer
	for {
		select {
		case <-stopCh:
			if pending.Len() > 0 {
				onChunk(pending.Bytes())
			}
			return
		default:
		}

		if err := c.stream.Read(); err != nil {
			log.Printf("failed to read from capture stream: %v", err)
			continue
		}

		_ = binary.Write(&pending, binary.LittleEndian, c.in)
		if pending.Len() >= chunkSize {
			chunk := make([]byte, pending.Len())
			copy(chunk, pending.Bytes())
			pending.Reset()
			onChunk(chunk)
		}
	}
}

func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopCh == nil {
		return nil
	}

	close(c.stopCh)
	<-c.doneCh
	c.stopCh = nil
	c.doneCh = nil

	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture stream: %w", err)
	}
	return nil
}

func (c *Client) State() audio.DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return audio.DeviceInactive
	}
	if c.stopCh != nil {
		return audio.DeviceRecording
	}
	return audio.DeviceInactive
}

func (c *Client) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return
	}

	if c.stopCh != nil {
		close(c.stopCh)
		<-c.doneCh
		c.stopCh = nil
		c.doneCh = nil
		_ = c.stream.Stop()
	}

	_ = c.stream.Close()
	_ = portaudio.Terminate()
	c.stream = nil
	c.initialized = false
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return c.encodingInfo()
}

func (c *Client) encodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
