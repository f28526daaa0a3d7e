package chat

import "strings"

// PromptCategory is the intent bucket a turn is routed by. The zero value is
// CategoryDefault so any failure to classify degrades to the fallback route.
type PromptCategory int

const (
	CategoryDefault PromptCategory = iota
	CategorySuggestion
	CategoryValueProposition
	CategoryWalkaround
)

// Marker strings the classification model is instructed to reply with.
const (
	markerSuggestion       = "BOAT_SUGGESTION_PROMPT"
	markerValueProposition = "VALUE_PROPOSITION_PROMPT"
	markerWalkaround       = "BOAT_WALKAROUND_PROMPT"
)

func (c PromptCategory) String() string {
	switch c {
	case CategorySuggestion:
		return markerSuggestion
	case CategoryValueProposition:
		return markerValueProposition
	case CategoryWalkaround:
		return markerWalkaround
	default:
		return "DEFAULT_PROMPT"
	}
}

// CategoryFromReply maps classification reply text to a category by substring
// containment. The check order is fixed (suggestion, value proposition,
// walkaround); an ambiguous reply resolves to the first match and anything
// else to CategoryDefault.
func CategoryFromReply(content string) PromptCategory {
	switch {
	case strings.Contains(content, markerSuggestion):
		return CategorySuggestion
	case strings.Contains(content, markerValueProposition):
		return CategoryValueProposition
	case strings.Contains(content, markerWalkaround):
		return CategoryWalkaround
	default:
		return CategoryDefault
	}
}

// CategoryFromPromptType maps the v3 numeric prompt_type field. 0 and unknown
// values are CategoryDefault.
func CategoryFromPromptType(promptType int) PromptCategory {
	switch promptType {
	case 1:
		return CategorySuggestion
	case 2:
		return CategoryValueProposition
	case 3:
		return CategoryWalkaround
	default:
		return CategoryDefault
	}
}
