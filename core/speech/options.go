package speech

import "github.com/voxloop/vox-core/core/audio"

type Options struct {
	AudioCallback func(audio []byte)
	EndCallback   func()
	ErrorCallback func(err error)

	Voice        string
	EncodingInfo audio.EncodingInfo
}

type Option func(*Options)

// WithAudioCallback registers a callback for synthesized audio frames. The
// frame slice is passed through as-is; receivers that retain it must copy.
func WithAudioCallback(callback func(audio []byte)) Option {
	return func(o *Options) {
		o.AudioCallback = callback
	}
}

// WithEndCallback registers a callback for the end of the utterance. It fires
// exactly once, after the last audio frame has been delivered.
func WithEndCallback(callback func()) Option {
	return func(o *Options) {
		o.EndCallback = callback
	}
}

func WithErrorCallback(callback func(err error)) Option {
	return func(o *Options) {
		o.ErrorCallback = callback
	}
}

func WithVoice(voice string) Option {
	return func(o *Options) {
		o.Voice = voice
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) Option {
	return func(o *Options) {
		o.EncodingInfo = encodingInfo
	}
}
