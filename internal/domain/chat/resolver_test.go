package chat_test

import (
	"testing"

	"github.com/bps-ai-services/boatchat/internal/domain/chat"
)

func TestResolveEndpoint(t *testing.T) {
	t.Parallel()

	pf := testSettings().Promptflow
	cases := []struct {
		name     string
		category chat.PromptCategory
		want     chat.Endpoint
	}{
		{"suggestion", chat.CategorySuggestion, chat.Endpoint{URL: pf.SuggestionEndpoint, Key: pf.SuggestionKey}},
		{"value proposition", chat.CategoryValueProposition, chat.Endpoint{URL: pf.ValuePropositionEndpoint, Key: pf.ValuePropositionKey}},
		{"walkaround", chat.CategoryWalkaround, chat.Endpoint{URL: pf.WalkaroundEndpoint, Key: pf.WalkaroundKey}},
		{"default", chat.CategoryDefault, chat.Endpoint{URL: pf.Endpoint, Key: pf.APIKey}},
		{"unknown value falls back", chat.PromptCategory(99), chat.Endpoint{URL: pf.Endpoint, Key: pf.APIKey}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := chat.ResolveEndpoint(tc.category, pf); got != tc.want {
				t.Errorf("ResolveEndpoint(%v) = %+v; want %+v", tc.category, got, tc.want)
			}
		})
	}
}
