package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/voxloop/voxloop-core/core/llms"
	"github.com/voxloop/voxloop-core/internal/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	url = "https://api.openai.com/v1/chat/completions"

	chunkPrefix   = "data:"
	streamDoneMsg = "[DONE]"
)

// PromptWithStream prepares a streaming prompt. The returned stream issues
// the request lazily, on the first Chunks iteration.
func (c *Client) PromptWithStream(_ context.Context, prompt string, opts ...llms.PromptOption) llms.Stream {
	options := llms.PromptOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	messages := toChatMessages(options.Instructions, options.Messages)
	if prompt != "" {
		messages = append(messages, chatMessage{
			Role:    messageRoleUser,
			Content: prompt,
		})
	}

	return &Stream{
		client:   c,
		messages: messages,
		tools:    options.Tools,
	}
}

type Stream struct {
	client *Client

	messages []chatMessage
	tools    []llms.Tool
}

// Chunks iterates the model's response. When the model requests tools, the
// stream executes them and re-prompts with their results, yielding a tool
// call chunk before and a tool result chunk after each execution; content
// chunks of the follow-up response continue on the same iteration.
func (s *Stream) Chunks(ctx context.Context) func(func(llms.StreamChunk, error) bool) {
	return func(yield func(llms.StreamChunk, error) bool) {
		ctx, span := tracer.Start(ctx, "prompt openai")
		defer span.End()
		span.SetAttributes(attribute.String("llm.model", s.client.model))

		messages := append([]chatMessage(nil), s.messages...)
		for {
			round, err := s.promptRound(ctx, messages, yield)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				yield(nil, err)
				return
			}
			if round.stopped {
				return
			}

			if len(round.toolCalls) == 0 {
				if round.usage != nil {
					yield(StreamUsageChunk{usage: *round.usage}, nil)
				}
				return
			}

			assistantMsg := chatMessage{Role: messageRoleAssistant}
			for _, toolCall := range round.toolCalls {
				if !yield(StreamToolCallChunk{toolCall: toolCall}, nil) {
					return
				}
				assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, chatToolCall{
					ID:   toolCall.ID,
					Type: "function",
					Function: chatToolCallFunction{
						Name:      toolCall.Name,
						Arguments: toolCall.Arguments,
					},
				})
			}
			messages = append(messages, assistantMsg)

			for _, toolCall := range round.toolCalls {
				response, err := s.callTool(ctx, toolCall)
				if err != nil {
					err = fmt.Errorf("failed to call tool: %w", err)
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					yield(nil, err)
					return
				}
				toolCall.Response = response
				if !yield(StreamToolResultChunk{toolCall: toolCall}, nil) {
					return
				}

				messages = append(messages, chatMessage{
					Role:       messageRoleTool,
					Content:    response,
					ToolCallID: toolCall.ID,
				})
			}
		}
	}
}

type roundResult struct {
	toolCalls []llms.ToolCall
	usage     *llms.Usage

	// stopped is set when the consumer broke out of the iteration.
	stopped bool
}

func (s *Stream) promptRound(ctx context.Context, messages []chatMessage, yield func(llms.StreamChunk, error) bool) (roundResult, error) {
	var toolChoice *string
	var tools []chatTool
	if s.tools != nil {
		toolChoice = utils.Ptr("auto")
		tools = toChatTools(s.tools)
	}

	reqBody := requestBody{
		Model:         s.client.model,
		Messages:      messages,
		Stream:        true,
		StreamOptions: &streamOptionsBody{IncludeUsage: true},
		Tools:         tools,
		ToolChoice:    toolChoice,
	}

	requestBodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return roundResult{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return roundResult{}, fmt.Errorf("error creating HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.client.apiKey)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return roundResult{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return roundResult{}, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	result := roundResult{}
	builders := map[int]*toolCallBuilder{}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))

		if len(chunk) == 0 {
			continue
		}
		if chunk == streamDoneMsg {
			break
		}

		var responseBody streamResponseBody
		if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
			if !yield(nil, fmt.Errorf("error unmarshalling JSON: %w", err)) {
				result.stopped = true
				return result, nil
			}
			continue
		}

		if responseBody.Usage != nil {
			usage := llms.Usage{}
			if err := copier.Copy(&usage, responseBody.Usage); err != nil {
				logger.WarnContext(ctx, "Failed to copy usage", "error", err)
			} else {
				result.usage = &usage
			}
		}

		for _, choice := range responseBody.Choices {
			if choice.Delta.Content != "" {
				if !yield(StreamContentChunk{
					finishReason: choice.FinishReason,
					content:      choice.Delta.Content,
				}, nil) {
					result.stopped = true
					return result, nil
				}
			}

			for _, toolCall := range choice.Delta.ToolCalls {
				builder, ok := builders[toolCall.Index]
				if !ok {
					builder = &toolCallBuilder{}
					builders[toolCall.Index] = builder
				}
				if toolCall.ID != "" {
					builder.ID = toolCall.ID
				}
				builder.Name += toolCall.Function.Name
				builder.Arguments += toolCall.Function.Arguments
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return roundResult{}, fmt.Errorf("error reading streamed response: %w", err)
	}

	for _, index := range slices.Sorted(maps.Keys(builders)) {
		toolCall := llms.ToolCall{}
		if err := copier.Copy(&toolCall, builders[index]); err != nil {
			return roundResult{}, fmt.Errorf("error copying tool call: %w", err)
		}
		if toolCall.ID == "" {
			toolCall.ID = uuid.NewString()
		}
		result.toolCalls = append(result.toolCalls, toolCall)
	}

	return result, nil
}

func (s *Stream) callTool(ctx context.Context, toolCall llms.ToolCall) (string, error) {
	_, span := tracer.Start(ctx, "execute tool")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", toolCall.Name))

	for _, tool := range s.tools {
		if tool.Name != toolCall.Name {
			continue
		}

		response, err := tool.Execute(toolCall.Arguments)
		if err != nil {
			err = fmt.Errorf("failed to execute tool %q: %w", toolCall.Name, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		return response, nil
	}

	err := fmt.Errorf("tool not found: %s", toolCall.Name)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return "", err
}

type toolCallBuilder struct {
	ID        string
	Name      string
	Arguments string
}

type requestBody struct {
	Model         string             `json:"model"`
	Messages      []chatMessage      `json:"messages"`
	Stream        bool               `json:"stream"`
	StreamOptions *streamOptionsBody `json:"stream_options,omitempty"`
	Tools         []chatTool         `json:"tools,omitempty"`
	ToolChoice    *string            `json:"tool_choice,omitempty"`
}

type streamOptionsBody struct {
	IncludeUsage bool `json:"include_usage"`
}

type streamResponseBody struct {
	Choices []streamResponseChoice `json:"choices"`
	Usage   *chatUsage             `json:"usage"`
}

type streamResponseChoice struct {
	Delta struct {
		Role      string                   `json:"role"`
		Content   string                   `json:"content"`
		ToolCalls []streamResponseToolCall `json:"tool_calls"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type streamResponseToolCall struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type StreamContentChunk struct {
	finishReason *string
	content      string
}

func (s StreamContentChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamContentChunk) Content() string {
	return s.content
}

type StreamToolCallChunk struct {
	finishReason *string
	toolCall     llms.ToolCall
}

func (s StreamToolCallChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamToolCallChunk) ToolCall() llms.ToolCall {
	return s.toolCall
}

type StreamToolResultChunk struct {
	finishReason *string
	toolCall     llms.ToolCall
}

func (s StreamToolResultChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamToolResultChunk) ToolResult() llms.ToolCall {
	return s.toolCall
}

type StreamUsageChunk struct {
	finishReason *string
	usage        llms.Usage
}

func (s StreamUsageChunk) FinishReason() *string {
	return s.finishReason
}

func (s StreamUsageChunk) Usage() llms.Usage {
	return s.usage
}
