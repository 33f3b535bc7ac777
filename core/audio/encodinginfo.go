package audio

const (
	// CaptureSampleRate is the fixed microphone PCM contract (16-bit mono).
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the fixed synthesis PCM contract (16-bit mono).
	PlaybackSampleRate = 24000

	DefaultFormat = "linear16"
)

func CaptureEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: CaptureSampleRate, Encoding: EncodingLinear16}
}

func PlaybackEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: PlaybackSampleRate, Encoding: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Encoding   encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Encoding.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Encoding {
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
