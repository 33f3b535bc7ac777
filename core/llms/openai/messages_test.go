package openai

import (
	"testing"

	"github.com/voxloop/voxloop-core/core/llms"
)

func TestToChatMessagesPrependsInstructions(t *testing.T) {
	messages := toChatMessages("Be brief.", []llms.Message{
		{Role: llms.MessageRoleUser, Content: "hello"},
	})

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != messageRoleSystem || messages[0].Content != "Be brief." {
		t.Fatalf("expected leading system message, got %+v", messages[0])
	}
	if messages[1].Role != messageRoleUser || messages[1].Content != "hello" {
		t.Fatalf("expected user message, got %+v", messages[1])
	}
}

func TestToChatMessagesOmitsEmptyInstructions(t *testing.T) {
	messages := toChatMessages("", []llms.Message{
		{Role: llms.MessageRoleUser, Content: "hello"},
	})

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Role != messageRoleUser {
		t.Fatalf("expected user message, got %+v", messages[0])
	}
}

func TestToChatMessagesCarriesToolExchange(t *testing.T) {
	messages := toChatMessages("", []llms.Message{
		{
			Role: llms.MessageRoleAssistant,
			ToolCalls: []llms.ToolCall{
				{ID: "call-1", Name: "get_weather", Arguments: `{"city":"Zagreb"}`},
			},
		},
		{Role: llms.MessageRoleTool, Content: "sunny", ToolCallID: "call-1"},
	})

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}

	assistant := messages[0]
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call on the assistant message, got %d", len(assistant.ToolCalls))
	}
	toolCall := assistant.ToolCalls[0]
	if toolCall.ID != "call-1" || toolCall.Type != "function" {
		t.Fatalf("expected function tool call call-1, got %+v", toolCall)
	}
	if toolCall.Function.Name != "get_weather" || toolCall.Function.Arguments != `{"city":"Zagreb"}` {
		t.Fatalf("expected tool call function to carry name and arguments, got %+v", toolCall.Function)
	}

	tool := messages[1]
	if tool.Role != messageRoleTool || tool.ToolCallID != "call-1" || tool.Content != "sunny" {
		t.Fatalf("expected tool message answering call-1, got %+v", tool)
	}
}

func TestToChatTools(t *testing.T) {
	tool := llms.NewTool("get_weather", "Returns the weather for a city.",
		func(struct{}) (string, error) { return "", nil })

	chatTools := toChatTools([]llms.Tool{tool})

	if len(chatTools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(chatTools))
	}
	if chatTools[0].Type != "function" {
		t.Fatalf("expected function tool, got %q", chatTools[0].Type)
	}
	if chatTools[0].Function.Name != "get_weather" {
		t.Fatalf("expected tool name to carry over, got %q", chatTools[0].Function.Name)
	}
	if chatTools[0].Function.Parameters == nil {
		t.Fatalf("expected tool parameters schema to carry over")
	}
}
