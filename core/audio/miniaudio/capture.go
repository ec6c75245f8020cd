package miniaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/voxloop/vox-core/core/audio"
)

// captureDevice wraps a malgo capture device and rebatches its callback
// frames into chunks of roughly chunkInterval worth of audio.
type captureDevice struct {
	mu sync.Mutex

	device *malgo.Device
	config malgo.DeviceConfig

	onChunk   func(chunk []byte)
	pending   []byte
	chunkSize int
}

func (c *captureDevice) init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Capture)
	c.config.SampleRate = sampleRate
	c.config.Capture.Format = format
	c.config.Capture.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PerformanceProfile = malgo.LowLatency
	c.config.PeriodSizeInFrames = 480
	c.config.Periods = 3

	var err error
	c.device, err = malgo.InitDevice(audioContext.Context, c.config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}
			c.accumulate(pInput[:n])
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return nil
}

func (c *captureDevice) start(chunkInterval time.Duration, onChunk func(chunk []byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	} else if c.device.IsStarted() {
		return nil
	}

	bytesPerSecond := audio.DefaultSampleRate * malgo.SampleSizeInBytes(malgo.FormatS16)
	c.chunkSize = int(chunkInterval.Seconds() * float64(bytesPerSecond))
	if c.chunkSize <= 0 {
		c.chunkSize = bytesPerSecond / 4
	}
	c.onChunk = onChunk
	c.pending = nil

	if err := c.device.Start(); err != nil {
		c.onChunk = nil
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	return nil
}

func (c *captureDevice) stop() error {
	c.mu.Lock()
	if c.device == nil {
		c.mu.Unlock()
		return fmt.Errorf("device not initialized")
	} else if !c.device.IsStarted() {
		c.mu.Unlock()
		return nil
	}

	onChunk := c.onChunk
	remainder := c.pending
	c.onChunk = nil
	c.pending = nil
	device := c.device
	c.mu.Unlock()

	// The device callback may still be running; it sees a nil onChunk and
	// drops the frame.
	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}

	if onChunk != nil && len(remainder) > 0 {
		onChunk(remainder)
	}
	return nil
}

func (c *captureDevice) state() audio.DeviceState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return audio.DeviceInactive
	}
	if c.device.IsStarted() && c.onChunk != nil {
		return audio.DeviceRecording
	}
	return audio.DeviceInactive
}

func (c *captureDevice) uninit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onChunk = nil
	c.pending = nil
}

func (c *captureDevice) accumulate(frame []byte) {
	c.mu.Lock()
	if c.onChunk == nil {
		c.mu.Unlock()
		return
	}

	c.pending = append(c.pending, frame...)
	if len(c.pending) < c.chunkSize {
		c.mu.Unlock()
		return
	}

	chunk := c.pending
	c.pending = nil
	onChunk := c.onChunk
	c.mu.Unlock()

	onChunk(chunk)
}
