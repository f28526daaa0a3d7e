package chat

import (
	"encoding/json"
	"fmt"

	"github.com/bps-ai-services/boatchat/internal/infra/openai"
)

// refusalText is both title and subtitle of the DEFAULT-category refusal.
const refusalText = "Sorry, I cannot help with this request. Please try again."

// FormatNonStreamingResponse wraps a provider completion object together with
// history metadata and the captured correlation id. A context blob on the
// message becomes a tool message; assistant text follows it.
func FormatNonStreamingResponse(completion *openai.ChatCompletion, metadata HistoryMetadata, correlationID string) NormalizedResponse {
	resp := NormalizedResponse{
		ID:              completion.ID,
		Model:           completion.Model,
		Created:         completion.Created,
		Object:          completion.Object,
		Choices:         []NormalizedChoice{{Messages: []NormalizedMessage{}}},
		HistoryMetadata: metadata,
		CorrelationID:   correlationID,
	}
	if len(completion.Choices) == 0 {
		return resp
	}

	message := completion.Choices[0].Message
	if len(message.Context) > 0 {
		resp.Choices[0].Messages = append(resp.Choices[0].Messages, NormalizedMessage{
			Role:    RoleTool,
			Content: string(message.Context),
		})
	}
	if message.Content != "" {
		resp.Choices[0].Messages = append(resp.Choices[0].Messages, NormalizedMessage{
			Role:    RoleAssistant,
			Content: message.Content,
		})
	}
	return resp
}

// FormatStreamResponse wraps one streaming chunk. Each element of the lazy
// sequence carries the same envelope as a full response with a partial delta
// inside.
func FormatStreamResponse(chunk openai.ChatCompletionChunk, metadata HistoryMetadata, correlationID string) NormalizedResponse {
	resp := NormalizedResponse{
		ID:              chunk.ID,
		Model:           chunk.Model,
		Created:         chunk.Created,
		Object:          chunk.Object,
		Choices:         []NormalizedChoice{{Messages: []NormalizedMessage{}}},
		HistoryMetadata: metadata,
		CorrelationID:   correlationID,
	}
	if len(chunk.Choices) == 0 {
		return resp
	}

	delta := chunk.Choices[0].Delta
	if len(delta.Context) > 0 {
		resp.Choices[0].Messages = append(resp.Choices[0].Messages, NormalizedMessage{
			Role:    RoleTool,
			Content: string(delta.Context),
		})
		return resp
	}
	if delta.Content != "" {
		resp.Choices[0].Messages = append(resp.Choices[0].Messages, NormalizedMessage{
			Role:    RoleAssistant,
			Content: delta.Content,
		})
	}
	return resp
}

// FormatFlowResponse wraps a flow-execution reply, extracting the response
// text and citations by their configured field names. A nil reply (the
// dispatcher's failure signal) or an error field in the reply surfaces as an
// error for the orchestrator to propagate.
func FormatFlowResponse(reply map[string]any, metadata HistoryMetadata, responseField, citationsField string) (NormalizedResponse, error) {
	if reply == nil {
		return NormalizedResponse{}, fmt.Errorf("no response received from flow-execution endpoint")
	}
	if errVal, ok := reply["error"]; ok {
		return NormalizedResponse{}, fmt.Errorf("flow-execution endpoint returned an error: %v", errVal)
	}

	var messages []NormalizedMessage
	if answer, ok := reply[responseField]; ok {
		messages = append(messages, NormalizedMessage{
			Role:    RoleAssistant,
			Content: stringify(answer),
		})
	}
	if citations, ok := reply[citationsField]; ok {
		content, err := json.Marshal(map[string]any{"citations": citations})
		if err == nil {
			messages = append(messages, NormalizedMessage{
				Role:    RoleTool,
				Content: string(content),
			})
		}
	}

	id, _ := reply["id"].(string)
	return NormalizedResponse{
		ID:              id,
		Model:           "",
		Created:         "",
		Object:          "",
		Choices:         []NormalizedChoice{{Messages: messages}},
		HistoryMetadata: metadata,
	}, nil
}

// FormatRefusalResponse substitutes the fixed refusal payload for a real
// completion while preserving the intent call's id/model/created/object and
// correlation id, so the client still sees a provider-issued envelope.
func FormatRefusalResponse(intent *openai.ChatCompletion, metadata HistoryMetadata, correlationID string) NormalizedResponse {
	payload, _ := json.Marshal(map[string]string{
		"title":    refusalText,
		"subtitle": refusalText,
	})
	return NormalizedResponse{
		ID:      intent.ID,
		Model:   intent.Model,
		Created: intent.Created,
		Object:  intent.Object,
		Choices: []NormalizedChoice{{Messages: []NormalizedMessage{{
			Role:    RoleAssistant,
			Content: string(payload),
		}}}},
		HistoryMetadata: metadata,
		CorrelationID:   correlationID,
	}
}

// stringify renders a flow reply field as message content: strings pass
// through, anything structured is JSON-encoded.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
