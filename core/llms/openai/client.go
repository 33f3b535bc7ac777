package openai

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultModel = "gpt-4o-mini"

// Client streams chat completions from the OpenAI API. It executes
// registered tools itself and resumes the prompt with their results, so a
// single stream covers the whole reasoning pass.
type Client struct {
	apiKey string
	model  string

	httpClient *http.Client
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		apiKey: apiKey,
		model:  defaultModel,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type ClientOption func(*Client)

// WithModel overrides the default model.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}
