package history_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bps-ai-services/boatchat/internal/history"
	"github.com/bps-ai-services/boatchat/internal/infra/sqlite"
)

const userID = "user-1"

func openTestClient(t *testing.T) *history.Client {
	t.Helper()
	db, err := sqlite.NewDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqlite.MigrateUp(db))

	factory := history.NewFactory(db, true)
	client, err := factory.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openTestClient(t)

	conv, err := client.CreateConversation(ctx, userID, "boat shopping", history.ConversationAttrs{})
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)
	assert.Equal(t, "conversation", conv.Type)

	id := uuid.NewString()
	_, err = client.CreateMessage(ctx, id, conv.ID, userID, history.MessageInput{
		Role:    "user",
		Content: "recommend a boat",
	})
	require.NoError(t, err)

	msgs, err := client.GetMessages(ctx, userID, conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	last := msgs[len(msgs)-1]
	assert.Equal(t, id, last.ID)
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "recommend a boat", last.Content)
}

func TestCreateMessageUnknownConversation(t *testing.T) {
	t.Parallel()
	client := openTestClient(t)

	_, err := client.CreateMessage(context.Background(), uuid.NewString(), "missing", userID, history.MessageInput{
		Role: "user", Content: "x",
	})
	assert.ErrorIs(t, err, history.ErrConversationNotFound)
}

func TestGetConversationsPagination(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openTestClient(t)

	for i := 0; i < 4; i++ {
		_, err := client.CreateConversation(ctx, userID, "chat", history.ConversationAttrs{})
		require.NoError(t, err)
	}

	page, err := client.GetConversations(ctx, userID, 0, 3)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	rest, err := client.GetConversations(ctx, userID, 3, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	all, err := client.GetConversations(ctx, userID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	other, err := client.GetConversations(ctx, "someone-else", 0, 0)
	require.NoError(t, err)
	require.NotNil(t, other) // must serialize as [], not null
	assert.Empty(t, other)
}

func TestRenameViaUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openTestClient(t)

	conv, err := client.CreateConversation(ctx, userID, "old title", history.ConversationAttrs{})
	require.NoError(t, err)

	conv.Title = "new title"
	updated, err := client.UpsertConversation(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, "new title", updated.Title)

	stored, err := client.GetConversation(ctx, userID, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "new title", stored.Title)
}

func TestFeedbackUpdates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openTestClient(t)

	conv, err := client.CreateConversation(ctx, userID, "chat", history.ConversationAttrs{})
	require.NoError(t, err)
	msgID := uuid.NewString()
	_, err = client.CreateMessage(ctx, msgID, conv.ID, userID, history.MessageInput{Role: "assistant", Content: "hi"})
	require.NoError(t, err)

	ok, err := client.UpdateMessageFeedback(ctx, userID, msgID, "positive")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.UpdateMessageFeedback(ctx, userID, "missing", "positive")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = client.UpdateConversationFeedback(ctx, userID, conv.ID, "thumbs_up")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.UpdateConversationFeedbackWithMessage(ctx, userID, conv.ID, "thumbs_down", "answers were off")
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := client.GetConversation(ctx, userID, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Feedback)
	assert.Equal(t, "thumbs_down", *stored.Feedback)
	require.NotNil(t, stored.FeedbackMessage)
	assert.Equal(t, "answers were off", *stored.FeedbackMessage)
}

func TestDeleteConversationAndMessages(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := openTestClient(t)

	conv, err := client.CreateConversation(ctx, userID, "chat", history.ConversationAttrs{})
	require.NoError(t, err)
	_, err = client.CreateMessage(ctx, uuid.NewString(), conv.ID, userID, history.MessageInput{Role: "user", Content: "a"})
	require.NoError(t, err)
	_, err = client.CreateMessage(ctx, uuid.NewString(), conv.ID, userID, history.MessageInput{Role: "assistant", Content: "b"})
	require.NoError(t, err)

	n, err := client.DeleteMessages(ctx, conv.ID, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, client.DeleteConversation(ctx, userID, conv.ID))
	stored, err := client.GetConversation(ctx, userID, conv.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestEnsure(t *testing.T) {
	t.Parallel()
	client := openTestClient(t)

	ok, detail := client.Ensure(context.Background())
	assert.True(t, ok)
	assert.Empty(t, detail)
}
