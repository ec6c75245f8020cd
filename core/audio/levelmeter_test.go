package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func linear16Frame(samples ...int16) []byte {
	frame := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(frame[i*2:], uint16(sample))
	}
	return frame
}

func TestMeterSilenceReadsZero(t *testing.T) {
	meter := NewMeter(GetDefaultEncodingInfo())

	meter.Write(linear16Frame(0, 0, 0, 0))
	if got := meter.Level(); got != 0 {
		t.Fatalf("silence must read zero, got %v", got)
	}
}

func TestMeterFullScaleReadsNearOne(t *testing.T) {
	meter := NewMeter(GetDefaultEncodingInfo())

	meter.Write(linear16Frame(math.MaxInt16, math.MaxInt16, math.MaxInt16, math.MaxInt16))
	if got := meter.Level(); got < 0.99 {
		t.Fatalf("full-scale signal must read near one, got %v", got)
	}
}

func TestMeterLevelIsMonotonicInEnergy(t *testing.T) {
	meter := NewMeter(GetDefaultEncodingInfo())

	meter.Write(linear16Frame(4000, -4000, 4000, -4000))
	quiet := meter.Level()

	meter.Write(linear16Frame(16000, -16000, 16000, -16000))
	loud := meter.Level()

	if loud <= quiet {
		t.Fatalf("louder frame must read higher, got quiet=%v loud=%v", quiet, loud)
	}
}

func TestMeterPeakHoldsUntilReset(t *testing.T) {
	meter := NewMeter(GetDefaultEncodingInfo())

	meter.Write(linear16Frame(16000, -16000))
	meter.Write(linear16Frame(100, -100))

	if peak := meter.Peak(); peak < 0.4 {
		t.Fatalf("peak must hold the loudest frame, got %v", peak)
	}

	meter.Reset()
	if peak := meter.Peak(); peak != 0 {
		t.Fatalf("reset must clear the peak, got %v", peak)
	}
	if level := meter.Level(); level != 0 {
		t.Fatalf("reset meter must read zero, got %v", level)
	}
}

func TestMeterEmptyFrameIsSafe(t *testing.T) {
	meter := NewMeter(GetDefaultEncodingInfo())

	meter.Write(nil)
	meter.Write([]byte{1}) // half a sample

	if got := meter.Level(); got != 0 {
		t.Fatalf("degenerate frames must read zero, got %v", got)
	}
}
