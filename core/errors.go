package pipeline

import "fmt"

// TranscriptionError marks a capture/transcribe stage failure. The
// orchestrator treats it like an empty transcript: the turn is skipped and
// the run continues.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// AgentError marks a reasoning stage failure, including a tool result that
// does not answer a pending tool call.
type AgentError struct {
	Err error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent response failed: %v", e.Err)
}

func (e *AgentError) Unwrap() error { return e.Err }

// SynthesisError marks a synthesis/playback stage failure. Audio that reached
// the output device before the failure has already been played.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed: %v", e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
