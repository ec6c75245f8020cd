package deepgram

import "testing"

func TestEncodingFromMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string

		wantFormat encodingFormat
		wantRate   int
		wantErr    bool
	}{
		{name: "l16 with rate", mimeType: "audio/L16;rate=48000", wantFormat: encodingLinear16, wantRate: 48000},
		{name: "l16 default rate", mimeType: "audio/l16", wantFormat: encodingLinear16, wantRate: 16000},
		{name: "pcm alias", mimeType: "audio/pcm;rate=24000", wantFormat: encodingLinear16, wantRate: 24000},
		{name: "alaw", mimeType: "audio/PCMA", wantFormat: encodingALaw, wantRate: 8000},
		{name: "mulaw", mimeType: "audio/PCMU;rate=8000", wantFormat: encodingMulaw, wantRate: 8000},
		{name: "spaced params", mimeType: "audio/L16; rate=32000", wantFormat: encodingLinear16, wantRate: 32000},
		{name: "unknown media type", mimeType: "audio/ogg", wantErr: true},
		{name: "garbage rate", mimeType: "audio/L16;rate=fast", wantErr: true},
		{name: "unsupported rate", mimeType: "audio/L16;rate=44100", wantErr: true},
		{name: "mulaw above 8k", mimeType: "audio/PCMU;rate=16000", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := encodingFromMIMEType(test.mimeType)
			if test.wantErr {
				if err == nil {
					t.Fatalf("expected an error for %q", test.mimeType)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Format != test.wantFormat || got.SampleRate != test.wantRate {
				t.Fatalf("got %s/%d, want %s/%d", got.Format.Name(), got.SampleRate, test.wantFormat.Name(), test.wantRate)
			}
		})
	}
}
