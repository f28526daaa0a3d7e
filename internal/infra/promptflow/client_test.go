package promptflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bps-ai-services/boatchat/internal/infra/promptflow"
)

func newTestClient() *promptflow.Client {
	return promptflow.New("query", "reply", 5*time.Second)
}

func TestConvertTurnPairsExchanges(t *testing.T) {
	t.Parallel()

	client := newTestClient()
	exchanges := client.ConvertTurn([]promptflow.TurnMessage{
		{Role: "user", Content: "any pontoon boats?"},
		{Role: "assistant", Content: "several, yes"},
		{Role: "tool", Content: `{"citations": []}`},
		{Role: "user", Content: "under 30 feet?"},
	})

	require.Len(t, exchanges, 2)
	assert.Equal(t, "any pontoon boats?", exchanges[0].Inputs["query"])
	assert.Equal(t, "several, yes", exchanges[0].Outputs["reply"])
	assert.Equal(t, "under 30 feet?", exchanges[1].Inputs["query"])
	assert.Equal(t, "", exchanges[1].Outputs["reply"])
}

func TestConvertTurnIgnoresLeadingAssistant(t *testing.T) {
	t.Parallel()

	client := newTestClient()
	exchanges := client.ConvertTurn([]promptflow.TurnMessage{
		{Role: "assistant", Content: "welcome aboard"},
		{Role: "user", Content: "hello"},
	})

	require.Len(t, exchanges, 1)
	assert.Equal(t, "hello", exchanges[0].Inputs["query"])
}

func TestInvoke(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer flow-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"reply": "try the walkaround", "citations": []}`)
	}))
	t.Cleanup(srv.Close)

	client := newTestClient()
	reply, err := client.Invoke(context.Background(), srv.URL, "flow-key", []promptflow.TurnMessage{
		{Role: "user", Content: "any pontoon boats?"},
		{Role: "assistant", Content: "several, yes"},
		{Role: "user", Content: "under 30 feet?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "try the walkaround", reply["reply"])

	// Only the final question rides in the request field; everything before
	// it goes out as chat_history.
	assert.Equal(t, "under 30 feet?", got["query"])
	history, ok := got["chat_history"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)
	first, ok := history[0].(map[string]any)
	require.True(t, ok)
	inputs, ok := first["inputs"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "any pontoon boats?", inputs["query"])
}

func TestInvokeWithoutUserMessage(t *testing.T) {
	t.Parallel()

	client := newTestClient()
	_, err := client.Invoke(context.Background(), "http://unused.example.com", "k", []promptflow.TurnMessage{
		{Role: "assistant", Content: "hi"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user message to submit")
}

func TestInvokeEndpointRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	client := newTestClient()
	_, err := client.Invoke(context.Background(), srv.URL, "k", []promptflow.TurnMessage{
		{Role: "user", Content: "hello"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}
