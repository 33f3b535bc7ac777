package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/voxloop/voxloop-core/core/llms"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Orchestrator drives the capture → transcribe → reason → speak loop. Turns
// are strictly sequential: turn N+1's capture begins only after turn N
// retired, so the pipeline never listens while reasoning or speaking.
type Orchestrator struct {
	speechToText SpeechToText
	llm          StreamingLLM
	textToSpeech TextToSpeech
	audioInput   AudioInput
	audioOutput  AudioOutput

	tools        []llms.Tool
	systemPrompt string
	maxTurns     int

	mu    sync.Mutex
	turns []Turn
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes turns until ctx is cancelled or the configured turn limit is
// reached. Exactly one stage call is outstanding at any time. A transcription
// failure is treated like an empty transcript and skips the turn; an agent or
// synthesis failure retires the turn as failed. Either way the loop continues;
// only ctx cancellation stops it, cleanly, after the in-flight stage call
// returns.
//
// Contract: call Run at most once per orchestrator instance.
func (o *Orchestrator) Run(ctx context.Context, opts ...RunOption) error {
	options := RunOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	emit := newCallbackEventEmitter(options)
	stages := stages{
		transcriber: &transcriber{speechToText: o.speechToText, audioInput: o.audioInput, emit: emit},
		agent:       &agent{llm: o.llm, tools: o.tools, systemPrompt: o.systemPrompt, emit: emit},
		speaker:     &speaker{textToSpeech: o.textToSpeech, audioOutput: o.audioOutput, emit: emit},
	}

	history := []llms.Message{}
	for number := 1; o.maxTurns == 0 || number <= o.maxTurns; number++ {
		if ctx.Err() != nil {
			return nil
		}

		turn := Turn{ID: uuid.New(), Number: number}
		if cancelled := o.processTurn(ctx, &turn, stages, &history); cancelled {
			return nil
		}

		o.retire(turn, options)
	}
	return nil
}

type stages struct {
	transcriber *transcriber
	agent       *agent
	speaker     *speaker
}

// processTurn walks one turn through its stages and resolves its status. It
// reports true when the run is being cancelled and the turn should not
// retire.
func (o *Orchestrator) processTurn(ctx context.Context, turn *Turn, stages stages, history *[]llms.Message) bool {
	ctx, span := tracer.Start(ctx, "turn",
		trace.WithAttributes(attribute.Int("turn.number", turn.Number)))
	defer span.End()
	defer func() {
		span.SetAttributes(attribute.String("turn.status", string(turn.Status)))
	}()

	transcript, err := stages.transcriber.transcribeOnce(ctx)
	if err != nil {
		var transcriptionErr *TranscriptionError
		if ctx.Err() == nil && errors.As(err, &transcriptionErr) {
			logger.WarnContext(ctx, "Transcription failed, skipping turn", "error", err)
			span.RecordError(err)
			turn.Status = TurnStatusSkippedEmptyTranscript
			return false
		}
		return !failTurn(ctx, span, err, turn)
	}

	turn.Transcript = transcript
	if transcript == "" {
		turn.Status = TurnStatusSkippedEmptyTranscript
		return false
	}

	response, err := stages.agent.respond(ctx, transcript, *history)
	if err != nil {
		return !failTurn(ctx, span, err, turn)
	}

	turn.Response = response
	if response == "" {
		// The exchange still happened; keep the user's side as context for
		// later turns.
		*history = append(*history, llms.Message{Role: llms.MessageRoleUser, Content: transcript})
		turn.Status = TurnStatusSkippedEmptyResponse
		return false
	}

	*history = append(*history,
		llms.Message{Role: llms.MessageRoleUser, Content: transcript},
		llms.Message{Role: llms.MessageRoleAssistant, Content: response},
	)

	if err := stages.speaker.speak(ctx, response); err != nil {
		return !failTurn(ctx, span, err, turn)
	}

	turn.Status = TurnStatusCompleted
	return false
}

// failTurn downgrades a stage error to a failed turn. It reports false when
// the error comes from run cancellation rather than a stage failure.
func failTurn(ctx context.Context, span trace.Span, err error, turn *Turn) bool {
	if ctx.Err() != nil {
		return false
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	turn.Status = TurnStatusFailed
	return true
}

func (o *Orchestrator) retire(turn Turn, options RunOptions) {
	o.mu.Lock()
	o.turns = append(o.turns, turn)
	o.mu.Unlock()

	if options.onTurnRetired != nil {
		options.onTurnRetired(turn)
	}
}

// Turns returns a snapshot of retired turns, oldest first.
func (o *Orchestrator) Turns() []Turn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.turns)
}
