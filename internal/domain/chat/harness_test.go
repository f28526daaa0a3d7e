package chat_test

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/domain/chat"
	"github.com/bps-ai-services/boatchat/internal/infra/config"
	"github.com/bps-ai-services/boatchat/internal/infra/openai"
	"github.com/bps-ai-services/boatchat/internal/infra/promptflow"
)

// testSettings returns a minimal runnable configuration. Tests mutate the
// returned value freely; each test gets its own copy.
func testSettings() *config.Settings {
	return &config.Settings{
		AzureOpenAI: config.OpenAISettings{
			Endpoint:      "https://example.openai.azure.com",
			Key:           "test-key",
			APIVersion:    "2024-02-15-preview",
			Model:         "gpt-4o",
			SystemMessage: "You are an AI assistant that helps people find information.",
			Temperature:   0,
			MaxTokens:     1000,
			TopP:          1,
		},
		Promptflow: config.PromptflowSettings{
			Endpoint:                 "https://flows.example.com/default",
			APIKey:                   "default-key",
			RequestFieldName:         "query",
			ResponseFieldName:        "reply",
			CitationsFieldName:       "documents",
			ResponseTimeout:          30,
			SuggestionEndpoint:       "https://flows.example.com/suggestion",
			SuggestionKey:            "suggestion-key",
			ValuePropositionEndpoint: "https://flows.example.com/value",
			ValuePropositionKey:      "value-key",
			WalkaroundEndpoint:       "https://flows.example.com/walkaround",
			WalkaroundKey:            "walkaround-key",
		},
	}
}

var errTimeout = errors.New("request timed out")

// fakeCompletionClient records the arguments of every call and replays a
// canned completion or chunk sequence. completeErr fails only the plain
// Complete path (the title call) while the raw/stream paths keep working.
type fakeCompletionClient struct {
	completion  *openai.ChatCompletion
	chunks      []openai.ChatCompletionChunk
	err         error
	completeErr error

	calls []openai.ModelArguments
}

func (f *fakeCompletionClient) Complete(_ context.Context, args openai.ModelArguments) (*openai.ChatCompletion, error) {
	f.calls = append(f.calls, args)
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	return f.completion, f.err
}

func (f *fakeCompletionClient) CompleteRaw(_ context.Context, args openai.ModelArguments) (*openai.ChatCompletion, string, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, "", f.err
	}
	return f.completion, "corr-123", nil
}

func (f *fakeCompletionClient) Stream(_ context.Context, args openai.ModelArguments) (<-chan openai.ChatCompletionChunk, string, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, "", f.err
	}
	out := make(chan openai.ChatCompletionChunk)
	go func() {
		defer close(out)
		for _, c := range f.chunks {
			out <- c
		}
	}()
	return out, "corr-123", nil
}

// fakeFlowClient records the resolved endpoint and replays a canned reply.
type fakeFlowClient struct {
	reply map[string]any
	err   error

	gotEndpoint string
	gotKey      string
	gotMessages []promptflow.TurnMessage
}

func (f *fakeFlowClient) Invoke(_ context.Context, endpoint, key string, messages []promptflow.TurnMessage) (map[string]any, error) {
	f.gotEndpoint = endpoint
	f.gotKey = key
	f.gotMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func assistantCompletion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		ID:      "cmpl-1",
		Object:  "chat.completion",
		Created: 1700000000,
		Model:   "gpt-4o",
		Choices: []openai.Choice{{
			Message: openai.ChatMessage{Role: chat.RoleAssistant, Content: content},
		}},
	}
}

func newTestDispatcher(cfg *config.Settings, completions *fakeCompletionClient, flow *fakeFlowClient) *chat.Dispatcher {
	log := zap.NewNop()
	builder := chat.NewArgumentBuilder(cfg, log)
	return chat.NewDispatcher(cfg, builder, completions, flow, log)
}

func streamChunks(parts ...string) []openai.ChatCompletionChunk {
	chunks := make([]openai.ChatCompletionChunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, openai.ChatCompletionChunk{
			ID:      "chunk-1",
			Object:  "chat.completion.chunk",
			Created: 1700000000,
			Model:   "gpt-4o",
			Choices: []openai.ChunkChoice{{Delta: openai.Delta{Content: p}}},
		})
	}
	return chunks
}

func userTurn(content string) chat.TurnRequest {
	return chat.TurnRequest{Messages: []chat.Message{
		{ID: "m1", Role: chat.RoleUser, Content: content},
	}}
}
