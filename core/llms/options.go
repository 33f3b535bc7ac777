package llms

type PromptOptions struct {
	Instructions string
	Messages     []Message
	Tools        []Tool
}

type PromptOption func(*PromptOptions)

// WithSystemPrompt sets the system prompt for the prompt.
// Repeating this option will overwrite the previous system prompt.
func WithSystemPrompt(prompt string) PromptOption {
	return func(opts *PromptOptions) {
		opts.Instructions = prompt
	}
}

// WithMessages adds conversation history to the prompt.
// Repeating this option will sequentially add more messages.
func WithMessages(messages ...Message) PromptOption {
	return func(opts *PromptOptions) {
		opts.Messages = append(opts.Messages, messages...)
	}
}

// WithTools makes tools available to the prompt.
// Repeating this option will sequentially add more tools.
func WithTools(tools ...Tool) PromptOption {
	return func(opts *PromptOptions) {
		opts.Tools = append(opts.Tools, tools...)
	}
}
