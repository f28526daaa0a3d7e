// Package openai is the chat-completions client for the Azure OpenAI wire
// protocol. Three call shapes are used: single-shot completion, a raw-response
// variant that also surfaces the gateway correlation id header, and a
// streaming variant yielding one chunk per server-sent event.
package openai

import "encoding/json"

// ChatMessage is one message on the completions wire.
// Context carries the grounding/citations blob some deployments attach; it is
// passed through opaquely.
type ChatMessage struct {
	Role    string          `json:"role"`
	Content string          `json:"content"`
	Context json.RawMessage `json:"context,omitempty"`
}

// ModelArguments is the full parameter set for one completion call. It is
// built fresh per request and never mutated after dispatch.
// ExtraBody holds provider extensions (the data_sources payload) that are
// merged into the top level of the request body on the wire.
type ModelArguments struct {
	Messages    []ChatMessage  `json:"messages"`
	Temperature float32        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
	TopP        float32        `json:"top_p"`
	Stop        []string       `json:"stop,omitempty"`
	Stream      bool           `json:"stream"`
	Model       string         `json:"model"`
	User        string         `json:"user,omitempty"`
	ExtraBody   map[string]any `json:"-"`
}

// ChatCompletion is a single-shot completion object as returned by the provider.
type ChatCompletion struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionChunk is one element of a streaming completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

type ChunkChoice struct {
	Index        int    `json:"index"`
	Delta        Delta  `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

// Delta is the partial message carried by one streaming chunk.
type Delta struct {
	Role    string          `json:"role,omitempty"`
	Content string          `json:"content,omitempty"`
	Context json.RawMessage `json:"context,omitempty"`
}

// APIError is a provider rejection carrying the HTTP status the provider
// answered with, so callers can map it back onto their own response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string { return e.Message }
