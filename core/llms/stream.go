package llms

import "context"

// Stream is the response stream of a single prompt. Chunks returns a Go
// iterator over the chunks the backend produces, in arrival order.
type Stream interface {
	Chunks(context.Context) func(func(StreamChunk, error) bool)
}

type StreamChunk interface {
	FinishReason() *string
}

type StreamContentChunk interface {
	StreamChunk
	Content() string
}

// StreamToolCallChunk is produced when the model requests a tool invocation.
type StreamToolCallChunk interface {
	StreamChunk
	ToolCall() ToolCall
}

// StreamToolResultChunk is produced once a requested tool has been executed,
// before follow-up content resumes. ToolResult carries the originating call
// with its Response filled in.
type StreamToolResultChunk interface {
	StreamChunk
	ToolResult() ToolCall
}

type StreamUsageChunk interface {
	StreamChunk
	Usage() Usage
}

// Usage represents token usage details of a completed prompt.
type Usage struct {
	// PromptTokens represents the number of input tokens.
	PromptTokens int
	// CompletionTokens represents the number of output tokens.
	CompletionTokens int
	// TotalTokens represents the total number of tokens used.
	TotalTokens int
}
