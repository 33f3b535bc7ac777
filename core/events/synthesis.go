package events

// KindTTSChunk identifies a synthesized speech audio frame.
const KindTTSChunk Kind = "tts_chunk"

// TTSChunk carries one PCM frame synthesized from the agent's response.
// Format: 16-bit signed, mono, 24 kHz. Serialized as base64.
type TTSChunk struct {
	Base
	Audio []byte
}

// NewTTSChunk creates a synthesized audio event.
func NewTTSChunk(audio []byte) TTSChunk {
	return TTSChunk{Base: NewBase(KindTTSChunk), Audio: audio}
}
