package texttospeech

import "github.com/voxloop/voxloop-core/core/audio"

// SynthesisOptions configures one synthesis stream. Backends should drive
// all callbacks from a single goroutine; callers must tolerate audio
// callbacks that overlap the terminal callback, since not every backend can
// guarantee that ordering.
type SynthesisOptions struct {
	// SpeechAudioCallback is called for each PCM chunk the backend produces,
	// in production order.
	SpeechAudioCallback func(audio []byte)
	// SpeechEndedCallback is called once all speech for the submitted text
	// has been produced.
	SpeechEndedCallback func()
	// ErrorCallback is called when the backend or transport fails before the
	// stream completed. Chunks already delivered stand.
	ErrorCallback func(err error)

	EncodingInfo audio.EncodingInfo
}

type SynthesisOption func(*SynthesisOptions)

func WithSpeechAudioCallback(callback func(audio []byte)) SynthesisOption {
	return func(o *SynthesisOptions) { o.SpeechAudioCallback = callback }
}

func WithSpeechEndedCallback(callback func()) SynthesisOption {
	return func(o *SynthesisOptions) { o.SpeechEndedCallback = callback }
}

func WithErrorCallback(callback func(err error)) SynthesisOption {
	return func(o *SynthesisOptions) { o.ErrorCallback = callback }
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) SynthesisOption {
	return func(o *SynthesisOptions) {
		if encodingInfo.IsZero() {
			return
		}

		o.EncodingInfo = encodingInfo
	}
}
