package events

const (
	// KindToolCall identifies a tool invocation observed on the agent stream.
	KindToolCall Kind = "tool_call"
	// KindToolResult identifies the result of a previously observed tool call.
	KindToolResult Kind = "tool_result"
)

// ToolCall records a tool invocation: its id, the tool name and the decoded
// argument mapping.
type ToolCall struct {
	Base
	ID   string
	Name string
	Args map[string]any
}

// NewToolCall creates a tool call event.
func NewToolCall(id, name string, args map[string]any) ToolCall {
	return ToolCall{Base: NewBase(KindToolCall), ID: id, Name: name, Args: args}
}

// ToolResult records a tool's output. ToolCallID references the ToolCall
// event it answers; a stream never emits a ToolResult without a preceding
// matching ToolCall.
type ToolResult struct {
	Base
	ToolCallID string
	Name       string
	Result     string
}

// NewToolResult creates a tool result event.
func NewToolResult(toolCallID, name, result string) ToolResult {
	return ToolResult{Base: NewBase(KindToolResult), ToolCallID: toolCallID, Name: name, Result: result}
}
