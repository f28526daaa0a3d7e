package chat

import "github.com/bps-ai-services/boatchat/internal/infra/config"

// Endpoint is a resolved flow-execution target: URL plus bearer credential.
type Endpoint struct {
	URL string
	Key string
}

// ResolveEndpoint maps a prompt category to its dedicated endpoint/credential
// pair; CategoryDefault (and anything unrecognized) resolves to the fallback
// pair. Pure mapping, never fails.
func ResolveEndpoint(category PromptCategory, pf config.PromptflowSettings) Endpoint {
	switch category {
	case CategorySuggestion:
		return Endpoint{URL: pf.SuggestionEndpoint, Key: pf.SuggestionKey}
	case CategoryValueProposition:
		return Endpoint{URL: pf.ValuePropositionEndpoint, Key: pf.ValuePropositionKey}
	case CategoryWalkaround:
		return Endpoint{URL: pf.WalkaroundEndpoint, Key: pf.WalkaroundKey}
	default:
		return Endpoint{URL: pf.Endpoint, Key: pf.APIKey}
	}
}
