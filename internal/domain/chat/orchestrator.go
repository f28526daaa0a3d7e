package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/history"
	"github.com/bps-ai-services/boatchat/internal/infra/config"
	"github.com/bps-ai-services/boatchat/internal/infra/openai"
)

// IntentMode selects how a generation routes a turn.
type IntentMode int

const (
	// IntentNone: single endpoint, no classification (v1).
	IntentNone IntentMode = iota
	// IntentModel: classify via a model call (v2).
	IntentModel
	// IntentClient: read the category from the request's prompt_type (v3).
	IntentClient
)

// Generation is the policy bundle distinguishing the three protocol
// generations. The three route families share one orchestrator parameterized
// by this value.
type Generation struct {
	Intent IntentMode

	// ConversationIDInFirstMessage: v3 clients put conversation_id (and the
	// conversation attributes) on messages[0] instead of the body top level.
	ConversationIDInFirstMessage bool

	// ThreadIDInResponse: v3 threads the conversation id through the response
	// top-level id field instead of history metadata.
	ThreadIDInResponse bool
}

var (
	GenerationV1 = Generation{Intent: IntentNone}
	GenerationV2 = Generation{Intent: IntentModel}
	GenerationV3 = Generation{
		Intent:                       IntentClient,
		ConversationIDInFirstMessage: true,
		ThreadIDInResponse:           true,
	}
)

// titlePrompt is the fixed instruction for the one-shot summarization call.
const titlePrompt = `Summarize the conversation so far into a 4-word or less title. Do not use any quotation marks or punctuation. Respond with a json object in the format {{"title": string}}. Do not include any other commentary or description.`

// titleMaxTokens caps the summarization reply.
const titleMaxTokens = 64

// Result is the outcome of one orchestration call: exactly one of Response
// (single-shot) or Stream (lazy finite chunk sequence) is set. A Stream must
// be drained by the consumer; abandoning it leaks the provider connection.
type Result struct {
	Response *NormalizedResponse
	Stream   <-chan NormalizedResponse
}

// Orchestrator sequences one inbound generate call: persist the incoming
// turn, classify/resolve/dispatch, normalize, and hand the result back.
type Orchestrator struct {
	cfg        *config.Settings
	dispatcher *Dispatcher
	store      *history.Factory // nil when chat history is not configured
	log        *zap.Logger
}

func NewOrchestrator(cfg *config.Settings, dispatcher *Dispatcher, store *history.Factory, log *zap.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, dispatcher: dispatcher, store: store, log: log}
}

// Converse runs the dispatch pipeline for a turn that is already bound (or
// does not need binding) to history. Streaming mode is a global configuration
// value, not per-request.
func (o *Orchestrator) Converse(ctx context.Context, gen Generation, req TurnRequest, userJSON string) (*Result, error) {
	if o.cfg.AzureOpenAI.Stream {
		return o.streamChat(ctx, req, userJSON)
	}

	resp, err := o.completeChat(ctx, gen, req, userJSON)
	if err != nil {
		return nil, err
	}
	if gen.ThreadIDInResponse {
		resp.ID = req.ID
	}
	return &Result{Response: resp}, nil
}

// streamChat starts a direct streaming completion and reshapes each provider
// chunk into the normalized envelope. The returned channel is closed when the
// provider sequence ends.
func (o *Orchestrator) streamChat(ctx context.Context, req TurnRequest, userJSON string) (*Result, error) {
	chunks, correlationID, err := o.dispatcher.StreamChatRequest(ctx, req, userJSON)
	if err != nil {
		return nil, err
	}

	metadata := req.HistoryMetadata
	if metadata == nil {
		metadata = HistoryMetadata{}
	}

	out := make(chan NormalizedResponse)
	go func() {
		defer close(out)
		for chunk := range chunks {
			select {
			case out <- FormatStreamResponse(chunk, metadata, correlationID):
			case <-ctx.Done():
				// Keep draining so the provider connection is released.
				for range chunks { //nolint:revive
				}
				return
			}
		}
	}()
	return &Result{Stream: out}, nil
}

// completeChat is the single-shot path, branching on backend mode and the
// generation's intent routing.
func (o *Orchestrator) completeChat(ctx context.Context, gen Generation, req TurnRequest, userJSON string) (*NormalizedResponse, error) {
	metadata := req.HistoryMetadata
	if metadata == nil {
		metadata = HistoryMetadata{}
	}

	if !o.cfg.UsePromptflow {
		completion, correlationID, err := o.dispatcher.SendChatRequest(ctx, req, userJSON)
		if err != nil {
			return nil, err
		}
		resp := FormatNonStreamingResponse(completion, metadata, correlationID)
		return &resp, nil
	}

	pf := o.cfg.Promptflow
	switch gen.Intent {
	case IntentModel:
		intent, err := o.dispatcher.ClassifyIntent(ctx, req, userJSON)
		if err != nil {
			return nil, err
		}
		if intent.Category == CategoryDefault {
			resp := FormatRefusalResponse(intent.Completion, metadata, intent.CorrelationID)
			return &resp, nil
		}
		reply := o.dispatcher.FlowRequest(ctx, req, ResolveEndpoint(intent.Category, pf), true)
		resp, err := FormatFlowResponse(reply, metadata, pf.ResponseFieldName, pf.CitationsFieldName)
		if err != nil {
			return nil, err
		}
		return &resp, nil

	case IntentClient:
		category := CategoryDefault
		if len(req.Messages) > 0 {
			category = CategoryFromPromptType(req.Messages[0].PromptType)
		}
		o.log.Debug("client-supplied intent", zap.String("prompt_type", category.String()))
		reply := o.dispatcher.FlowRequest(ctx, req, ResolveEndpoint(category, pf), false)
		resp, err := FormatFlowResponse(reply, metadata, pf.ResponseFieldName, pf.CitationsFieldName)
		if err != nil {
			return nil, err
		}
		return &resp, nil

	default: // IntentNone
		reply := o.dispatcher.FlowRequest(ctx, req, ResolveEndpoint(CategoryDefault, pf), true)
		resp, err := FormatFlowResponse(reply, metadata, pf.ResponseFieldName, pf.CitationsFieldName)
		if err != nil {
			return nil, err
		}
		return &resp, nil
	}
}

// Generate is the start-or-continue flow behind the history/generate routes:
// bind the turn to a conversation (creating one, with a generated title, when
// the request carries no conversation id), persist the incoming user message,
// release the store handle, then run the dispatch pipeline.
func (o *Orchestrator) Generate(ctx context.Context, gen Generation, req TurnRequest, userID, userJSON string) (*Result, error) {
	if o.store == nil {
		return nil, errors.New("chat history is not configured or not working")
	}
	client, err := o.store.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat history is not configured or not working: %w", err)
	}

	req2, err := o.bindConversation(ctx, client, gen, req, userID)
	// The handle is released before the outbound model round trip either way.
	if closeErr := client.Close(); closeErr != nil {
		o.log.Warn("closing history client", zap.Error(closeErr))
	}
	if err != nil {
		return nil, err
	}

	return o.Converse(ctx, gen, req2, userJSON)
}

// bindConversation persists the incoming user turn and attaches conversation
// identity to the request according to the generation policy.
func (o *Orchestrator) bindConversation(ctx context.Context, client *history.Client, gen Generation, req TurnRequest, userID string) (TurnRequest, error) {
	conversationID := req.ConversationID
	if gen.ConversationIDInFirstMessage {
		conversationID = ""
		if len(req.Messages) > 0 {
			conversationID = req.Messages[0].ConversationID
		}
	}

	metadata := HistoryMetadata{}
	if conversationID == "" {
		title := o.generateTitle(ctx, req.Messages)

		var attrs history.ConversationAttrs
		if gen.ConversationIDInFirstMessage && len(req.Messages) > 0 {
			first := req.Messages[0]
			attrs = history.ConversationAttrs{State: first.State, City: first.City, Tags: first.Tags}
		}
		conv, err := client.CreateConversation(ctx, userID, title, attrs)
		if err != nil {
			return req, err
		}
		conversationID = conv.ID
		metadata["title"] = title
		metadata["date"] = conv.CreatedAt
	}

	if len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != RoleUser {
		return req, errors.New("no user message found")
	}
	last := req.Messages[len(req.Messages)-1]
	if _, err := client.CreateMessage(ctx, uuid.NewString(), conversationID, userID, history.MessageInput{
		Role:    last.Role,
		Content: last.Content,
	}); err != nil {
		if errors.Is(err, history.ErrConversationNotFound) {
			return req, fmt.Errorf("conversation not found for the given conversation ID: %s.", conversationID)
		}
		return req, err
	}

	metadata["conversation_id"] = conversationID
	if gen.ThreadIDInResponse {
		req.ID = conversationID
	} else {
		req.HistoryMetadata = metadata
	}
	return req, nil
}

// Update persists an already-computed assistant message (and, when present,
// the tool message immediately preceding it). It never calls the model.
func (o *Orchestrator) Update(ctx context.Context, req TurnRequest, userID string) error {
	if o.store == nil {
		return errors.New("chat history is not configured or not working")
	}
	if req.ConversationID == "" {
		return errors.New("no conversation_id found")
	}
	if len(req.Messages) == 0 || req.Messages[len(req.Messages)-1].Role != RoleAssistant {
		return errors.New("no bot messages found")
	}

	client, err := o.store.Open(ctx)
	if err != nil {
		return fmt.Errorf("chat history is not configured or not working: %w", err)
	}
	defer client.Close() //nolint:errcheck

	messages := req.Messages
	if len(messages) > 1 && messages[len(messages)-2].Role == RoleTool {
		tool := messages[len(messages)-2]
		if _, err := client.CreateMessage(ctx, uuid.NewString(), req.ConversationID, userID, history.MessageInput{
			Role:    tool.Role,
			Content: tool.Content,
		}); err != nil {
			return err
		}
	}

	assistant := messages[len(messages)-1]
	id := assistant.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := client.CreateMessage(ctx, id, req.ConversationID, userID, history.MessageInput{
		Role:    assistant.Role,
		Content: assistant.Content,
	}); err != nil {
		return err
	}
	return nil
}

// generateTitle asks the model to summarize the conversation into a short
// title. Title generation never fails the outer request: on any error the
// content of the last conversation message is reused as the title.
func (o *Orchestrator) generateTitle(ctx context.Context, messages []Message) string {
	wire := make([]openai.ChatMessage, 0, len(messages)+1)
	for _, m := range messages {
		wire = append(wire, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	wire = append(wire, openai.ChatMessage{Role: RoleUser, Content: titlePrompt})

	fallback := ""
	if len(wire) >= 2 {
		fallback = wire[len(wire)-2].Content
	}

	completion, err := o.dispatcher.completions.Complete(ctx, openai.ModelArguments{
		Messages:    wire,
		Temperature: 1,
		TopP:        1,
		MaxTokens:   titleMaxTokens,
		Model:       o.cfg.AzureOpenAI.Model,
	})
	if err != nil || len(completion.Choices) == 0 {
		o.log.Debug("title generation failed, using fallback", zap.Error(err))
		return fallback
	}

	var parsed struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &parsed); err != nil || parsed.Title == "" {
		return fallback
	}
	return parsed.Title
}
