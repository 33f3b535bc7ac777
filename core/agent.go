package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxloop/voxloop-core/core/events"
	"github.com/voxloop/voxloop-core/core/llms"
	"go.opentelemetry.io/otel/codes"
)

// agent runs the reasoning stage against the configured streaming LLM.
type agent struct {
	llm          StreamingLLM
	tools        []llms.Tool
	systemPrompt string
	emit         eventEmitter
}

// respond streams the model's answer to transcript, with history as context.
// Content chunks accumulate in arrival order; tool activity on the stream is
// surfaced as tool call/result events. The accumulated text is returned once
// the stream completed; empty accumulation is not an error.
func (a *agent) respond(ctx context.Context, transcript string, history []llms.Message) (string, error) {
	ctx, span := tracer.Start(ctx, "generate response")
	defer span.End()

	stream := a.llm.PromptWithStream(ctx, transcript,
		llms.WithSystemPrompt(a.systemPrompt),
		llms.WithMessages(history...),
		llms.WithTools(a.tools...),
	)

	var response strings.Builder
	pendingToolCalls := map[string]bool{}
	for chunk, err := range stream.Chunks(ctx) {
		if err != nil {
			err = fmt.Errorf("failed to stream llm response: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", &AgentError{Err: err}
		}

		switch chunk := chunk.(type) {
		case llms.StreamContentChunk:
			response.WriteString(chunk.Content())
			a.emit(events.NewAgentChunk(chunk.Content()))

		case llms.StreamToolCallChunk:
			toolCall := chunk.ToolCall()
			pendingToolCalls[toolCall.ID] = true
			a.emit(events.NewToolCall(toolCall.ID, toolCall.Name, decodeToolArgs(toolCall.Arguments)))

		case llms.StreamToolResultChunk:
			toolResult := chunk.ToolResult()
			if !pendingToolCalls[toolResult.ID] {
				err := fmt.Errorf("tool result %q does not answer a pending tool call", toolResult.ID)
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return "", &AgentError{Err: err}
			}
			delete(pendingToolCalls, toolResult.ID)
			a.emit(events.NewToolResult(toolResult.ID, toolResult.Name, toolResult.Response))
		}
	}

	a.emit(events.NewAgentEnd())
	return strings.TrimSpace(response.String()), nil
}

func decodeToolArgs(arguments string) map[string]any {
	if arguments == "" {
		return nil
	}

	args := map[string]any{}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil
	}
	return args
}
