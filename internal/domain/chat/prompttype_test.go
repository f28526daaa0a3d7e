package chat_test

import (
	"testing"

	"github.com/bps-ai-services/boatchat/internal/domain/chat"
)

func TestCategoryFromReply(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		reply string
		want  chat.PromptCategory
	}{
		{"exact suggestion", "BOAT_SUGGESTION_PROMPT", chat.CategorySuggestion},
		{"exact value proposition", "VALUE_PROPOSITION_PROMPT", chat.CategoryValueProposition},
		{"exact walkaround", "BOAT_WALKAROUND_PROMPT", chat.CategoryWalkaround},
		{"marker inside chatter", "I think this is a BOAT_WALKAROUND_PROMPT question.", chat.CategoryWalkaround},
		{"other prompt", "OTHER_PROMPT", chat.CategoryDefault},
		{"free text", "what a lovely day", chat.CategoryDefault},
		{"empty", "", chat.CategoryDefault},
		// Ambiguous replies resolve to the first checked marker.
		{"suggestion beats value", "BOAT_SUGGESTION_PROMPT VALUE_PROPOSITION_PROMPT", chat.CategorySuggestion},
		{"value beats walkaround", "BOAT_WALKAROUND_PROMPT VALUE_PROPOSITION_PROMPT", chat.CategoryValueProposition},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := chat.CategoryFromReply(tc.reply); got != tc.want {
				t.Errorf("CategoryFromReply(%q) = %v; want %v", tc.reply, got, tc.want)
			}
			// Classification is a pure function of the reply text.
			if again := chat.CategoryFromReply(tc.reply); again != tc.want {
				t.Errorf("CategoryFromReply(%q) second call = %v; want %v", tc.reply, again, tc.want)
			}
		})
	}
}

func TestCategoryFromPromptType(t *testing.T) {
	t.Parallel()

	cases := []struct {
		promptType int
		want       chat.PromptCategory
	}{
		{1, chat.CategorySuggestion},
		{2, chat.CategoryValueProposition},
		{3, chat.CategoryWalkaround},
		{0, chat.CategoryDefault},
		{4, chat.CategoryDefault},
		{-1, chat.CategoryDefault},
	}
	for _, tc := range cases {
		if got := chat.CategoryFromPromptType(tc.promptType); got != tc.want {
			t.Errorf("CategoryFromPromptType(%d) = %v; want %v", tc.promptType, got, tc.want)
		}
	}
}
