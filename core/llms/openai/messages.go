package openai

import (
	"github.com/invopop/jsonschema"
	"github.com/voxloop/voxloop-core/core/llms"
)

type chatMessage struct {
	Role    messageRole `json:"role"`
	Content string      `json:"content"`

	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type messageRole string

const (
	messageRoleSystem    messageRole = "system"
	messageRoleUser      messageRole = "user"
	messageRoleAssistant messageRole = "assistant"
	messageRoleTool      messageRole = "tool"
)

type chatToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function chatToolCallFunction `json:"function"`
}

type chatToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

func toChatMessages(instructions string, messages []llms.Message) []chatMessage {
	chatMessages := []chatMessage{}
	if instructions != "" {
		chatMessages = append(chatMessages, chatMessage{
			Role:    messageRoleSystem,
			Content: instructions,
		})
	}

	for _, message := range messages {
		msg := chatMessage{
			Role:       messageRole(message.Role),
			Content:    message.Content,
			ToolCallID: message.ToolCallID,
		}
		for _, toolCall := range message.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, chatToolCall{
				ID:   toolCall.ID,
				Type: "function",
				Function: chatToolCallFunction{
					Name:      toolCall.Name,
					Arguments: toolCall.Arguments,
				},
			})
		}
		chatMessages = append(chatMessages, msg)
	}
	return chatMessages
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

func toChatTools(tools []llms.Tool) []chatTool {
	chatTools := make([]chatTool, 0, len(tools))
	for _, tool := range tools {
		chatTools = append(chatTools, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return chatTools
}
