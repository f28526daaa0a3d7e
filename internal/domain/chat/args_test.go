package chat_test

import (
	"testing"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/domain/chat"
	"github.com/bps-ai-services/boatchat/internal/infra/config"
	"github.com/bps-ai-services/boatchat/internal/infra/openai"
)

func testDatasource() *config.DatasourceSettings {
	return &config.DatasourceSettings{
		Type: "azure_search",
		Parameters: map[string]any{
			"endpoint": "https://search.example.com",
			"key":      "search-secret",
			"authentication": map[string]any{
				"type":    "api_key",
				"api_key": "auth-secret",
			},
			"embedding_dependency": map[string]any{
				"type": "endpoint",
				"authentication": map[string]any{
					"encoded_api_key": "embed-secret",
				},
			},
		},
	}
}

func TestBuildDropsToolMessages(t *testing.T) {
	t.Parallel()

	builder := chat.NewArgumentBuilder(testSettings(), zap.NewNop())
	req := chat.TurnRequest{Messages: []chat.Message{
		{Role: chat.RoleUser, Content: "recommend a boat"},
		{Role: chat.RoleTool, Content: `{"citations":[]}`},
		{Role: chat.RoleAssistant, Content: "sure"},
		{Role: chat.RoleUser, Content: "a bigger one"},
	}}

	args, _ := builder.Build(req, "")
	for _, m := range args.Messages {
		if m.Role == chat.RoleTool {
			t.Fatalf("tool message leaked into model arguments: %+v", m)
		}
	}
	// 4 inbound minus 1 tool, plus the configured system message.
	if len(args.Messages) != 4 {
		t.Errorf("len(args.Messages) = %d; want 4", len(args.Messages))
	}
	if args.Messages[0].Role != chat.RoleSystem {
		t.Errorf("args.Messages[0].Role = %q; want system", args.Messages[0].Role)
	}
}

func TestBuildOmitsSystemMessageWithDatasource(t *testing.T) {
	t.Parallel()

	cfg := testSettings()
	cfg.Datasource = testDatasource()
	builder := chat.NewArgumentBuilder(cfg, zap.NewNop())

	args, _ := builder.Build(userTurn("recommend a boat"), "")
	if args.Messages[0].Role == chat.RoleSystem {
		t.Error("system message prepended although a data source is configured")
	}
	if args.ExtraBody == nil {
		t.Fatal("ExtraBody = nil; want data_sources payload")
	}
	sources, ok := args.ExtraBody["data_sources"].([]any)
	if !ok || len(sources) != 1 {
		t.Fatalf("ExtraBody[data_sources] = %#v; want one source", args.ExtraBody["data_sources"])
	}
}

func TestBuildUserBlobRequiresDefender(t *testing.T) {
	t.Parallel()

	cfg := testSettings()
	builder := chat.NewArgumentBuilder(cfg, zap.NewNop())
	args, _ := builder.Build(userTurn("hi"), `{"EndUserId":"u1"}`)
	if args.User != "" {
		t.Errorf("args.User = %q; want empty when the integration is disabled", args.User)
	}

	cfg.DefenderEnabled = true
	args, _ = builder.Build(userTurn("hi"), `{"EndUserId":"u1"}`)
	if args.User != `{"EndUserId":"u1"}` {
		t.Errorf("args.User = %q; want the blob passed through", args.User)
	}
}

func TestBuildForIntentUsesLastUserMessage(t *testing.T) {
	t.Parallel()

	builder := chat.NewArgumentBuilder(testSettings(), zap.NewNop())
	req := chat.TurnRequest{Messages: []chat.Message{
		{Role: chat.RoleUser, Content: "first question"},
		{Role: chat.RoleAssistant, Content: "an answer"},
		{Role: chat.RoleUser, Content: "latest question"},
		{Role: chat.RoleAssistant, Content: "trailing answer"},
	}}

	args, _ := builder.BuildForIntent(req, "")
	if len(args.Messages) != 2 {
		t.Fatalf("len(args.Messages) = %d; want system prompt + one user message", len(args.Messages))
	}
	if got := args.Messages[1].Content; got != "latest question" {
		t.Errorf("classification input = %q; want the most recent user message", got)
	}
}

func TestBuildForIntentPlaceholderWithoutUserMessage(t *testing.T) {
	t.Parallel()

	builder := chat.NewArgumentBuilder(testSettings(), zap.NewNop())
	req := chat.TurnRequest{Messages: []chat.Message{
		{Role: chat.RoleAssistant, Content: "an answer"},
	}}

	args, _ := builder.BuildForIntent(req, "")
	last := args.Messages[len(args.Messages)-1]
	if last.Role != chat.RoleUser || last.Content != "default prompt" {
		t.Errorf("got %+v; want a placeholder user message", last)
	}
}

func TestRedactModelArgumentsMasksAllLocations(t *testing.T) {
	t.Parallel()

	cfg := testSettings()
	cfg.Datasource = testDatasource()
	builder := chat.NewArgumentBuilder(cfg, zap.NewNop())
	args, redacted := builder.Build(userTurn("hi"), "")

	params := firstParameters(t, redacted)
	if params["key"] != "*****" {
		t.Errorf("parameters.key = %v; want masked", params["key"])
	}
	auth := params["authentication"].(map[string]any)
	if auth["api_key"] != "*****" {
		t.Errorf("authentication.api_key = %v; want masked", auth["api_key"])
	}
	dep := params["embedding_dependency"].(map[string]any)
	depAuth := dep["authentication"].(map[string]any)
	if depAuth["encoded_api_key"] != "*****" {
		t.Errorf("embedding_dependency.authentication.encoded_api_key = %v; want masked", depAuth["encoded_api_key"])
	}

	// Non-secret fields survive untouched.
	if params["endpoint"] != "https://search.example.com" {
		t.Errorf("parameters.endpoint = %v; want original value", params["endpoint"])
	}

	// The wire copy still carries the real secrets.
	origParams := firstParameters(t, args)
	if origParams["key"] != "search-secret" {
		t.Errorf("original parameters.key = %v; redaction mutated the input", origParams["key"])
	}
	origAuth := origParams["authentication"].(map[string]any)
	if origAuth["api_key"] != "auth-secret" {
		t.Errorf("original authentication.api_key = %v; redaction mutated the input", origAuth["api_key"])
	}
}

func TestRedactModelArgumentsToleratesMissingPieces(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		args openai.ModelArguments
	}{
		{name: "no extra body", args: openai.ModelArguments{}},
		{name: "empty extra body", args: openai.ModelArguments{ExtraBody: map[string]any{}}},
		{name: "no sources", args: openai.ModelArguments{ExtraBody: map[string]any{"data_sources": []any{}}}},
		{name: "no parameters", args: openai.ModelArguments{ExtraBody: map[string]any{
			"data_sources": []any{map[string]any{"type": "azure_search"}},
		}}},
		{name: "bare parameters", args: openai.ModelArguments{ExtraBody: map[string]any{
			"data_sources": []any{map[string]any{"parameters": map[string]any{"endpoint": "x"}}},
		}}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			chat.RedactModelArguments(tc.args) // must not panic
		})
	}
}

func firstParameters(t *testing.T, args openai.ModelArguments) map[string]any {
	t.Helper()
	sources, ok := args.ExtraBody["data_sources"].([]any)
	if !ok || len(sources) == 0 {
		t.Fatalf("no data sources in %#v", args.ExtraBody)
	}
	params, ok := sources[0].(map[string]any)["parameters"].(map[string]any)
	if !ok {
		t.Fatalf("no parameters in %#v", sources[0])
	}
	return params
}
