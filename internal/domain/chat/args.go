package chat

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/infra/config"
	"github.com/bps-ai-services/boatchat/internal/infra/openai"
)

// secretMask replaces secret-bearing values in the loggable argument copy.
const secretMask = "*****"

// secretParams are the field names masked wherever they appear in the known
// locations of a data-source payload.
var secretParams = []string{
	"key",
	"connection_string",
	"embedding_key",
	"encoded_api_key",
	"api_key",
}

// intentSystemPrompt instructs the classification call. The markers it names
// are the ones CategoryFromReply matches on.
const intentSystemPrompt = `You are an AI that classifies user questions based on their intent. When the user asks a question, respond only with one of the following options that best matches the intent of the question, and nothing else:

BOAT_SUGGESTION_PROMPT: Use this when the user is asking for recommendations or suggestions about boats.
Example: "What boat would you recommend for a family of four?"

VALUE_PROPOSITION_PROMPT: Use this when the user is asking about the benefits, features, or value of a particular boat or service.
Example 1: "What are the advantages of buying this model?"
Example 2: "What are the features of the tahoe?"

BOAT_WALKAROUND_PROMPT: Only use this when the user is EXPLICITLY asking for a detailed tour or description of a boat's features and layout.
Example: "Can you give me a walkthrough of the new yacht model?"

OTHER_PROMPT: Use this for any other type of question that does not fit into the above categories.
Example: "What is the weather like today?"

If the question fits multiple categories, default to OTHER_PROMPT

Do not provide any additional information, explanations, or responses beyond these options.`

// ArgumentBuilder turns a conversation turn into model-call parameters and a
// parallel redacted copy that is safe to log. The redacted copy is emitted at
// debug verbosity as a side effect; the unredacted arguments are never logged.
type ArgumentBuilder struct {
	cfg *config.Settings
	log *zap.Logger
}

func NewArgumentBuilder(cfg *config.Settings, log *zap.Logger) *ArgumentBuilder {
	return &ArgumentBuilder{cfg: cfg, log: log}
}

// Build produces the arguments for a full chat completion. Tool messages are
// history-only and never replayed to the model. When no data source is
// configured the configured system message primes the call; with a data
// source, grounding metadata substitutes for system priming. userJSON is the
// opaque content-safety blob, attached only when that integration is enabled.
func (b *ArgumentBuilder) Build(req TurnRequest, userJSON string) (openai.ModelArguments, openai.ModelArguments) {
	var messages []openai.ChatMessage
	if b.cfg.Datasource == nil {
		messages = append(messages, openai.ChatMessage{
			Role:    RoleSystem,
			Content: b.cfg.AzureOpenAI.SystemMessage,
		})
	}
	for _, m := range req.Messages {
		if m.Role == RoleTool {
			continue
		}
		messages = append(messages, openai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return b.assemble(messages, userJSON)
}

// BuildForIntent produces the arguments for the one-shot classification call:
// the fixed instructional prompt plus only the most recent user message. A
// turn with no user message gets a placeholder rather than failing.
func (b *ArgumentBuilder) BuildForIntent(req TurnRequest, userJSON string) (openai.ModelArguments, openai.ModelArguments) {
	var messages []openai.ChatMessage
	if b.cfg.Datasource == nil {
		messages = append(messages, openai.ChatMessage{
			Role:    RoleSystem,
			Content: intentSystemPrompt,
		})
	}
	if last := req.LastUserMessage(); last != nil {
		messages = append(messages, openai.ChatMessage{Role: last.Role, Content: last.Content})
	} else {
		messages = append(messages, openai.ChatMessage{Role: RoleUser, Content: "default prompt"})
	}
	return b.assemble(messages, userJSON)
}

func (b *ArgumentBuilder) assemble(messages []openai.ChatMessage, userJSON string) (openai.ModelArguments, openai.ModelArguments) {
	ai := b.cfg.AzureOpenAI
	args := openai.ModelArguments{
		Messages:    messages,
		Temperature: ai.Temperature,
		MaxTokens:   ai.MaxTokens,
		TopP:        ai.TopP,
		Stop:        ai.StopSequence,
		Stream:      ai.Stream,
		Model:       ai.Model,
	}
	if b.cfg.DefenderEnabled && userJSON != "" {
		args.User = userJSON
	}
	if b.cfg.Datasource != nil {
		args.ExtraBody = map[string]any{
			"data_sources": []any{b.cfg.Datasource.PayloadConfiguration()},
		}
	}

	redacted := RedactModelArguments(args)
	// ExtraBody is json:"-" on the wire type; re-attach it here so the debug
	// line shows the masked payload.
	loggable := struct {
		openai.ModelArguments
		ExtraBody map[string]any `json:"extra_body,omitempty"`
	}{redacted, redacted.ExtraBody}
	if raw, err := json.Marshal(loggable); err == nil {
		b.log.Debug("prepared model arguments", zap.ByteString("request_body", raw))
	}
	return args, redacted
}

// RedactModelArguments returns a structural clone of args with every secret
// field masked. Secrets are checked at three locations of the first data
// source: parameters, parameters.authentication, and
// parameters.embedding_dependency.authentication. Absent payloads or
// sub-objects are tolerated; the input is never modified.
func RedactModelArguments(args openai.ModelArguments) openai.ModelArguments {
	redacted := args
	if args.ExtraBody == nil {
		return redacted
	}
	redacted.ExtraBody = cloneExtraBody(args.ExtraBody)

	params := firstDataSourceParameters(redacted.ExtraBody)
	if params == nil {
		return redacted
	}
	maskSecrets(params)
	if auth, ok := params["authentication"].(map[string]any); ok {
		maskSecrets(auth)
	}
	if dep, ok := params["embedding_dependency"].(map[string]any); ok {
		if auth, ok := dep["authentication"].(map[string]any); ok {
			maskSecrets(auth)
		}
	}
	return redacted
}

func maskSecrets(m map[string]any) {
	for _, param := range secretParams {
		if _, ok := m[param]; ok {
			m[param] = secretMask
		}
	}
}

func firstDataSourceParameters(extra map[string]any) map[string]any {
	sources, ok := extra["data_sources"].([]any)
	if !ok || len(sources) == 0 {
		return nil
	}
	source, ok := sources[0].(map[string]any)
	if !ok {
		return nil
	}
	params, ok := source["parameters"].(map[string]any)
	if !ok {
		return nil
	}
	return params
}

// cloneExtraBody deep-copies the JSON-shaped extra payload so masking cannot
// leak back into the arguments that go on the wire.
func cloneExtraBody(extra map[string]any) map[string]any {
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneAny(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneAny(val)
		}
		return out
	default:
		return v
	}
}
