package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voxloop/vox-core/core/audio"
)

const (
	defaultChunkInterval    = 250 * time.Millisecond
	defaultRecordingCeiling = 60 * time.Second
)

type captureCallbacks struct {
	onChunk     func(chunk []byte)
	onFinalized func(audio []byte, mimeType string)
	onError     func(err error)
}

// captureSession owns the lifecycle of one recording attempt: acquire the
// device, accumulate chunks, and finalize them into a single utterance blob.
// The completion callback fires exactly once per start, whether the stop was
// manual, duplicate, or forced by the internal ceiling.
type captureSession struct {
	mu sync.Mutex

	device      CaptureDevice
	initialized bool

	active    bool
	stopping  bool
	callbacks captureCallbacks
	chunks    bytes.Buffer
	completed oneShotGate

	// ceilingTimer is the session's own fail-safe against unbounded
	// capture when the caller never stops it.
	ceilingTimer *time.Timer
	maxDuration  time.Duration
}

func newCaptureSession(device CaptureDevice) *captureSession {
	return &captureSession{
		device:      device,
		maxDuration: defaultRecordingCeiling,
	}
}

func (s *captureSession) set(device CaptureDevice) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.device = device
	s.initialized = false
	s.mu.Unlock()
}

func (s *captureSession) setMaxDuration(maxDuration time.Duration) {
	if s == nil {
		return
	}

	s.mu.Lock()
	s.maxDuration = maxDuration
	s.mu.Unlock()
}

func (s *captureSession) isConfigured() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device != nil
}

func (s *captureSession) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// ensureInitialized acquires the device lazily, once. Returns
// audio.ErrDeviceUnavailable (wrapped) when acquisition fails.
func (s *captureSession) ensureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return fmt.Errorf("capture: %w", audio.ErrDeviceUnavailable)
	}
	if s.initialized {
		return nil
	}

	if err := s.device.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	s.initialized = true
	return nil
}

// start begins one recording attempt. It is a no-op when already active.
func (s *captureSession) start(chunkInterval time.Duration, callbacks captureCallbacks) error {
	s.mu.Lock()
	if s.device == nil || !s.initialized {
		s.mu.Unlock()
		return fmt.Errorf("capture: %w", audio.ErrDeviceUnavailable)
	}
	if s.active {
		s.mu.Unlock()
		return nil
	}

	if chunkInterval <= 0 {
		chunkInterval = defaultChunkInterval
	}

	s.active = true
	s.callbacks = callbacks
	s.chunks.Reset()
	s.completed.Reset()
	device := s.device
	maxDuration := s.maxDuration
	s.mu.Unlock()

	if err := device.Start(chunkInterval, s.onChunk); err != nil {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	if maxDuration > 0 {
		s.mu.Lock()
		s.ceilingTimer = time.AfterFunc(maxDuration, s.stopOnCeiling)
		s.mu.Unlock()
	}

	return nil
}

func (s *captureSession) onChunk(chunk []byte) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	s.chunks.Write(chunk)
	onChunk := s.callbacks.onChunk
	s.mu.Unlock()

	if onChunk != nil {
		onChunk(chunk)
	}
}

func (s *captureSession) stopOnCeiling() {
	if s.isActive() {
		s.stop()
	}
}

// stop finalizes the accumulated chunks into one blob and fires completion
// exactly once. Devices flush whatever remains of their internal buffer
// through onChunk while Stop runs, so the session keeps accepting chunks
// until the device has returned and only then snapshots the blob. A second
// call between start and completion is a safe no-op.
func (s *captureSession) stop() {
	s.mu.Lock()
	if !s.active || s.stopping {
		s.mu.Unlock()
		return
	}
	s.stopping = true

	if s.ceilingTimer != nil {
		s.ceilingTimer.Stop()
		s.ceilingTimer = nil
	}
	device := s.device
	s.mu.Unlock()

	stopErr := device.Stop()

	s.mu.Lock()
	s.active = false
	s.stopping = false
	callbacks := s.callbacks
	blob := make([]byte, s.chunks.Len())
	copy(blob, s.chunks.Bytes())
	s.chunks.Reset()
	completed := s.completed.Fire()
	s.mu.Unlock()

	if !completed {
		return
	}

	if stopErr != nil {
		if callbacks.onError != nil {
			callbacks.onError(fmt.Errorf("failed to stop capture device: %w", stopErr))
		}
		return
	}

	if callbacks.onFinalized != nil {
		callbacks.onFinalized(blob, s.encodingInfo().MIMEType())
	}
}

// cleanup releases the device unconditionally. Safe to call repeatedly and
// from a shutdown path without an active session.
func (s *captureSession) cleanup() {
	s.mu.Lock()
	device := s.device
	wasActive := s.active
	s.active = false
	s.initialized = false
	if s.ceilingTimer != nil {
		s.ceilingTimer.Stop()
		s.ceilingTimer = nil
	}
	s.mu.Unlock()

	if device == nil {
		return
	}

	if wasActive {
		_ = device.Stop()
	}
	device.Cleanup()
}

func (s *captureSession) encodingInfo() audio.EncodingInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return audio.GetDefaultEncodingInfo()
	}
	return s.device.EncodingInfo()
}
