package events

const (
	// KindSTTChunk identifies an interim transcript update.
	KindSTTChunk Kind = "stt_chunk"
	// KindSTTOutput identifies the finalized transcript for a turn.
	KindSTTOutput Kind = "stt_output"
)

// STTChunk carries interim transcript text. The text may be revised as more
// audio context becomes available and is never fed to the agent.
type STTChunk struct {
	Base
	Transcript string
}

// NewSTTChunk creates an interim transcription event.
func NewSTTChunk(transcript string) STTChunk {
	return STTChunk{Base: NewBase(KindSTTChunk), Transcript: transcript}
}

// STTOutput carries the final, complete transcript of the user's speech for
// one turn. This is the text the agent stage is invoked with.
type STTOutput struct {
	Base
	Transcript string
}

// NewSTTOutput creates a final transcription event.
func NewSTTOutput(transcript string) STTOutput {
	return STTOutput{Base: NewBase(KindSTTOutput), Transcript: transcript}
}
