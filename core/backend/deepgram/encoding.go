package deepgram

import (
	"fmt"
	"strconv"
	"strings"
)

type encodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

type encodingFormat string

func (e encodingFormat) Name() string { return string(e) }

const (
	encodingLinear16 encodingFormat = "linear16"
	encodingALaw     encodingFormat = "alaw"
	encodingMulaw    encodingFormat = "mulaw"
)

// encodingFromMIMEType maps the utterance blob's declared MIME type onto the
// narrow set of raw encodings the listen endpoint accepts.
func encodingFromMIMEType(mimeType string) (encodingInfo, error) {
	mediaType, params, found := strings.Cut(mimeType, ";")

	encoding := encodingInfo{SampleRate: 16000}
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "audio/l16", "audio/pcm":
		encoding.Format = encodingLinear16
	case "audio/pcma":
		encoding.Format = encodingALaw
		encoding.SampleRate = 8000
	case "audio/pcmu":
		encoding.Format = encodingMulaw
		encoding.SampleRate = 8000
	default:
		return encodingInfo{}, fmt.Errorf("unsupported media type %q", mediaType)
	}

	if found {
		for param := range strings.SplitSeq(params, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || !strings.EqualFold(key, "rate") {
				continue
			}

			rate, err := strconv.Atoi(value)
			if err != nil {
				return encodingInfo{}, fmt.Errorf("invalid sample rate %q", value)
			}
			encoding.SampleRate = rate
		}
	}

	switch encoding.SampleRate {
	case 8000, 16000, 24000, 32000, 48000:
	default:
		return encodingInfo{}, fmt.Errorf("unsupported sample rate %d", encoding.SampleRate)
	}

	if encoding.Format != encodingLinear16 && encoding.SampleRate != 8000 {
		return encodingInfo{}, fmt.Errorf("unsupported sample rate for %s encoding", encoding.Format.Name())
	}

	return encoding, nil
}
