package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/voxloop/vox-core/core/audio"
)

// playbackDevice feeds queued frames to a malgo playback device. Drain
// waiters are positions in the queue; once the device has consumed past a
// waiter's position its channel is closed.
type playbackDevice struct {
	mu sync.Mutex

	device *malgo.Device
	config malgo.DeviceConfig

	queued  []byte
	waiters []drainWaiter
}

type drainWaiter struct {
	position int
	done     chan struct{}
}

func (p *playbackDevice) init(audioContext *malgo.AllocatedContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sampleRate := uint32(audio.DefaultSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	p.config = malgo.DefaultDeviceConfig(malgo.Playback)
	p.config.SampleRate = sampleRate
	p.config.Playback.Format = format
	p.config.Playback.Channels = uint32(channels)
	p.config.Alsa.NoMMap = 1
	p.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	p.config.Periods = 4

	var err error
	p.device, err = malgo.InitDevice(
		audioContext.Context,
		p.config,
		malgo.DeviceCallbacks{Data: p.processAudio(bytesPerFrame)},
	)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

func (p *playbackDevice) start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := p.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

func (p *playbackDevice) sendAudio(frame []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return fmt.Errorf("device not initialized")
	} else if !p.device.IsStarted() {
		return fmt.Errorf("device not started")
	}

	p.queued = append(p.queued, frame...)
	return nil
}

func (p *playbackDevice) clearBuffer() {
	p.mu.Lock()
	waiters := p.waiters
	p.queued = nil
	p.waiters = nil
	p.mu.Unlock()

	// Dropped audio counts as drained; nothing will ever play it.
	for _, waiter := range waiters {
		close(waiter.done)
	}
}

func (p *playbackDevice) awaitDrain() error {
	p.mu.Lock()
	if len(p.queued) == 0 {
		p.mu.Unlock()
		return nil
	}

	waiter := drainWaiter{position: len(p.queued), done: make(chan struct{})}
	p.waiters = append(p.waiters, waiter)
	p.mu.Unlock()

	<-waiter.done
	return nil
}

func (p *playbackDevice) uninit() {
	p.mu.Lock()
	device := p.device
	p.device = nil
	waiters := p.waiters
	p.queued = nil
	p.waiters = nil
	p.mu.Unlock()

	if device != nil {
		device.Uninit()
	}
	for _, waiter := range waiters {
		close(waiter.done)
	}
}

func (p *playbackDevice) processAudio(bytesPerFrame int) malgo.DataProc {
	silence := audio.GetDefaultEncodingInfo().SilenceValue()
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		if need > len(pOutput) {
			need = len(pOutput)
		}

		p.mu.Lock()
		n := copy(pOutput[:need], p.queued)
		p.queued = p.queued[n:]

		var released []drainWaiter
		remaining := p.waiters[:0]
		for _, waiter := range p.waiters {
			waiter.position -= n
			if waiter.position <= 0 {
				released = append(released, waiter)
				continue
			}
			remaining = append(remaining, waiter)
		}
		p.waiters = remaining
		p.mu.Unlock()

		// A starved period must not replay whatever was in the output
		// buffer before; pad it with the encoding's silence value.
		for i := n; i < need; i++ {
			pOutput[i] = silence
		}

		for _, waiter := range released {
			close(waiter.done)
		}
	}
}
