package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/infra/openai"
)

// IntentResult is the outcome of a model-backed classification: the category
// plus the provider metadata of the classification call itself, which the
// refusal envelope reuses.
type IntentResult struct {
	Category      PromptCategory
	Completion    *openai.ChatCompletion
	CorrelationID string
}

// ClassifyIntent runs the one-shot classification call and maps the reply to
// a category. Transport failures propagate; a malformed or unrecognized reply
// maps to CategoryDefault.
func (d *Dispatcher) ClassifyIntent(ctx context.Context, req TurnRequest, userJSON string) (IntentResult, error) {
	completion, correlationID, err := d.SendIntentRequest(ctx, req, userJSON)
	if err != nil {
		return IntentResult{}, err
	}

	category := classifyCompletion(completion)
	d.log.Debug("classified intent",
		zap.String("prompt_type", category.String()),
		zap.String("completion_id", completion.ID))

	return IntentResult{
		Category:      category,
		Completion:    completion,
		CorrelationID: correlationID,
	}, nil
}

// classifyCompletion extracts the assistant reply text and maps it. Anything
// structurally off (no choices, no assistant message) is CategoryDefault.
func classifyCompletion(completion *openai.ChatCompletion) PromptCategory {
	if completion == nil {
		return CategoryDefault
	}
	for _, choice := range completion.Choices {
		if choice.Message.Role != RoleAssistant {
			continue
		}
		if category := CategoryFromReply(choice.Message.Content); category != CategoryDefault {
			return category
		}
	}
	return CategoryDefault
}
