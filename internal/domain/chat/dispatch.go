package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/infra/config"
	"github.com/bps-ai-services/boatchat/internal/infra/openai"
	"github.com/bps-ai-services/boatchat/internal/infra/promptflow"
)

// CompletionClient is the completion-provider collaborator.
type CompletionClient interface {
	Complete(ctx context.Context, args openai.ModelArguments) (*openai.ChatCompletion, error)
	CompleteRaw(ctx context.Context, args openai.ModelArguments) (*openai.ChatCompletion, string, error)
	Stream(ctx context.Context, args openai.ModelArguments) (<-chan openai.ChatCompletionChunk, string, error)
}

// FlowClient is the flow-execution collaborator.
type FlowClient interface {
	Invoke(ctx context.Context, endpoint, key string, messages []promptflow.TurnMessage) (map[string]any, error)
}

// Dispatcher invokes exactly one backend per call: the completion provider
// directly, or a resolved flow-execution endpoint. Direct-mode failures
// propagate with the provider's status code; flow-execution failures are
// logged and yield a nil result the caller must treat as a dispatch failure.
type Dispatcher struct {
	cfg         *config.Settings
	builder     *ArgumentBuilder
	completions CompletionClient
	flow        FlowClient
	log         *zap.Logger
}

func NewDispatcher(cfg *config.Settings, builder *ArgumentBuilder, completions CompletionClient, flow FlowClient, log *zap.Logger) *Dispatcher {
	return &Dispatcher{cfg: cfg, builder: builder, completions: completions, flow: flow, log: log}
}

// SendChatRequest performs a direct single-shot completion, returning the
// provider object and the correlation id from the raw response headers.
func (d *Dispatcher) SendChatRequest(ctx context.Context, req TurnRequest, userJSON string) (*openai.ChatCompletion, string, error) {
	args, _ := d.builder.Build(req, userJSON)
	completion, correlationID, err := d.completions.CompleteRaw(ctx, args)
	if err != nil {
		d.log.Error("chat completion request failed", zap.Error(err))
		return nil, "", err
	}
	return completion, correlationID, nil
}

// StreamChatRequest starts a direct streaming completion. Streaming is only
// available in direct mode; flow execution is always single-shot.
func (d *Dispatcher) StreamChatRequest(ctx context.Context, req TurnRequest, userJSON string) (<-chan openai.ChatCompletionChunk, string, error) {
	args, _ := d.builder.Build(req, userJSON)
	chunks, correlationID, err := d.completions.Stream(ctx, args)
	if err != nil {
		d.log.Error("streaming completion request failed", zap.Error(err))
		return nil, "", err
	}
	return chunks, correlationID, nil
}

// SendIntentRequest performs the one-shot classification completion.
func (d *Dispatcher) SendIntentRequest(ctx context.Context, req TurnRequest, userJSON string) (*openai.ChatCompletion, string, error) {
	args, _ := d.builder.BuildForIntent(req, userJSON)
	// Classification is always single-shot regardless of the streaming flag.
	args.Stream = false
	completion, correlationID, err := d.completions.CompleteRaw(ctx, args)
	if err != nil {
		d.log.Error("intent classification request failed", zap.Error(err))
		return nil, "", err
	}
	return completion, correlationID, nil
}

// FlowRequest posts the turn to the resolved flow endpoint. When tagReply is
// set the parsed reply is tagged with the id of the turn's last message (v1/v2
// behavior; v3 leaves the reply untouched). Any failure is logged and yields
// nil.
func (d *Dispatcher) FlowRequest(ctx context.Context, req TurnRequest, endpoint Endpoint, tagReply bool) map[string]any {
	messages := make([]promptflow.TurnMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, promptflow.TurnMessage{Role: m.Role, Content: m.Content})
	}

	reply, err := d.flow.Invoke(ctx, endpoint.URL, endpoint.Key, messages)
	if err != nil {
		d.log.Error("flow-execution request failed",
			zap.String("endpoint", endpoint.URL), zap.Error(err))
		return nil
	}
	if tagReply && len(req.Messages) > 0 {
		reply["id"] = req.Messages[len(req.Messages)-1].ID
	}
	return reply
}
