package audio

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

const defaultPeakDecayInterval = 100 * time.Millisecond

// Meter tracks the loudness of a raw audio stream as a normalized level in
// [0, 1]. It is fed frames from a capture callback and sampled on demand at
// whatever cadence the consumer chooses.
//
// The level is the RMS energy of the most recent frame with a peak-hold that
// decays over time, so short gaps between frames do not read as hard silence.
type Meter struct {
	mu sync.Mutex

	encodingInfo EncodingInfo

	level       float64
	peak        float64
	lastWriteAt time.Time
}

func NewMeter(encodingInfo EncodingInfo) *Meter {
	if encodingInfo.IsZero() {
		encodingInfo = GetDefaultEncodingInfo()
	}

	return &Meter{encodingInfo: encodingInfo}
}

// Write feeds one raw frame into the meter. Only linear16 little-endian audio
// carries meaningful energy information; other formats read as zero level.
func (m *Meter) Write(frame []byte) {
	level := rmsLinear16(frame)

	m.mu.Lock()
	m.level = level
	if level > m.peak {
		m.peak = level
	}
	m.lastWriteAt = time.Now()
	m.mu.Unlock()
}

// Level returns the current normalized level. Stale meters (no frame written
// for longer than the decay interval) decay toward zero so a stopped capture
// stream reads as silence rather than holding its last loud value.
func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastWriteAt.IsZero() {
		return 0
	}

	staleFor := time.Since(m.lastWriteAt)
	if staleFor <= defaultPeakDecayInterval {
		return m.level
	}

	decaySteps := float64(staleFor / defaultPeakDecayInterval)
	decayed := m.level * math.Pow(0.5, decaySteps)
	if decayed < 1e-4 {
		return 0
	}
	return decayed
}

// Peak returns the highest level observed since the last Reset.
func (m *Meter) Peak() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}

func (m *Meter) Reset() {
	m.mu.Lock()
	m.level = 0
	m.peak = 0
	m.lastWriteAt = time.Time{}
	m.mu.Unlock()
}

func rmsLinear16(frame []byte) float64 {
	sampleCount := len(frame) / 2
	if sampleCount == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < sampleCount*2; i += 2 {
		sample := int16(binary.LittleEndian.Uint16(frame[i:]))
		normalized := float64(sample) / math.MaxInt16
		sum += normalized * normalized
	}

	return math.Min(1, math.Sqrt(sum/float64(sampleCount)))
}
