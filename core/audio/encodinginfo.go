package audio

import "fmt"

const (
	DefaultSampleRate = 16000
	DefaultFormat     = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: encodingFormat(DefaultFormat)}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// MIMEType describes the encoding as a declared MIME type usable on an
// utterance blob or an HTTP Content-Type header.
func (e EncodingInfo) MIMEType() string {
	switch e.Format {
	case EncodingALaw:
		return fmt.Sprintf("audio/PCMA;rate=%d", e.SampleRate)
	case EncodingMulaw:
		return fmt.Sprintf("audio/PCMU;rate=%d", e.SampleRate)
	case EncodingLinear16:
		return fmt.Sprintf("audio/L16;rate=%d", e.SampleRate)
	}

	return "application/octet-stream"
}

// BytesPerSecond is the raw throughput of a single-channel stream in this
// encoding. Returns 0 for unknown formats.
func (e EncodingInfo) BytesPerSecond() int {
	byteSize := e.Format.ByteSize()
	if byteSize <= 0 {
		return 0
	}

	return e.SampleRate * byteSize
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	case EncodingLinear16:
		return 0
	}

	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)
