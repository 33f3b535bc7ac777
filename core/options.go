package pipeline

import (
	"context"

	"github.com/voxloop/voxloop-core/core/audio"
	"github.com/voxloop/voxloop-core/core/events"
	"github.com/voxloop/voxloop-core/core/llms"
	"github.com/voxloop/voxloop-core/core/speechtotext"
	"github.com/voxloop/voxloop-core/core/texttospeech"
)

type OrchestratorOption func(*Orchestrator)

// SpeechToText is one transcription session at a time: Transcribe opens it,
// SendAudio feeds it, Close releases it.
type SpeechToText interface {
	Transcribe(ctx context.Context, opts ...speechtotext.TranscriptionOption) error
	SendAudio(audio []byte) error
	Close(ctx context.Context) error
}

func WithSpeechToText(client SpeechToText) OrchestratorOption {
	return func(o *Orchestrator) { o.speechToText = client }
}

type StreamingLLM interface {
	PromptWithStream(ctx context.Context, prompt string, opts ...llms.PromptOption) llms.Stream
}

func WithStreamingLLM(client StreamingLLM) OrchestratorOption {
	return func(o *Orchestrator) { o.llm = client }
}

type TextToSpeech interface {
	Synthesize(ctx context.Context, text string, opts ...texttospeech.SynthesisOption) error
}

func WithTextToSpeech(client TextToSpeech) OrchestratorOption {
	return func(o *Orchestrator) { o.textToSpeech = client }
}

// AudioInput owns the capture device exclusively between Start and Stop.
type AudioInput interface {
	EncodingInfo() audio.EncodingInfo
	Start(ctx context.Context, onAudio func(audio []byte)) error
	Stop() error
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput = client }
}

// AudioOutput owns the playback device exclusively between Open and Close.
// Write blocks until the device accepted the chunk.
type AudioOutput interface {
	EncodingInfo() audio.EncodingInfo
	Open(ctx context.Context) error
	Write(audio []byte) error
	Drain() error
	Close() error
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput = client }
}

// WithTools makes tools available to the agent on every turn.
// Repeating this option will sequentially add more tools.
func WithTools(tools ...llms.Tool) OrchestratorOption {
	return func(o *Orchestrator) { o.tools = append(o.tools, tools...) }
}

// WithSystemPrompt sets the instructions prepended to every agent prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) OrchestratorOption {
	return func(o *Orchestrator) { o.systemPrompt = prompt }
}

// WithMaxTurns bounds the number of turns Run processes. Zero means
// unbounded.
func WithMaxTurns(maxTurns int) OrchestratorOption {
	return func(o *Orchestrator) { o.maxTurns = maxTurns }
}

type RunOptions struct {
	onEvent                func(event events.Event)
	onTranscription        func(transcript string)
	onInterimTranscription func(transcript string)
	onResponse             func(response string)
	onResponseEnd          func()
	onAudio                func(audio []byte)
	onTurnRetired          func(turn Turn)
}

type RunOption func(*RunOptions)

// WithEventCallback registers a callback for every event the pipeline emits,
// in emission order.
func WithEventCallback(callback func(event events.Event)) RunOption {
	return func(o *RunOptions) {
		o.onEvent = callback
	}
}

// WithTranscriptionCallback registers a callback for final transcriptions
// produced by the configured speech-to-text client.
func WithTranscriptionCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onTranscription = callback
	}
}

// WithInterimTranscriptionCallback registers a callback for interim
// transcriptions produced by the configured speech-to-text client. Interim
// text may be revised and is never fed to the agent.
func WithInterimTranscriptionCallback(callback func(transcript string)) RunOption {
	return func(o *RunOptions) {
		o.onInterimTranscription = callback
	}
}

func WithResponseCallback(callback func(response string)) RunOption {
	return func(o *RunOptions) {
		o.onResponse = callback
	}
}

func WithResponseEndCallback(callback func()) RunOption {
	return func(o *RunOptions) {
		o.onResponseEnd = callback
	}
}

func WithAudioCallback(callback func(audio []byte)) RunOption {
	return func(o *RunOptions) {
		o.onAudio = callback
	}
}

// WithTurnRetiredCallback registers a callback invoked once per turn, after
// the turn retired and before the next turn's capture begins.
func WithTurnRetiredCallback(callback func(turn Turn)) RunOption {
	return func(o *RunOptions) {
		o.onTurnRetired = callback
	}
}
