package llms

// Message is a single entry in the conversation history handed to a backend.
type Message struct {
	Role    MessageRole
	Content string

	// ToolCalls carries the calls requested by an assistant message.
	ToolCalls []ToolCall
	// ToolCallID ties a tool message to the call it answers.
	ToolCallID string
}

// MessageRole describes who a message is from.
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleTool      MessageRole = "tool"
)

// ToolCall is a single tool invocation requested by the model. Response is
// empty until the tool has been executed.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Response  string
}
