package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-ai/lumina/internal/domain"
)

// setupTestStore opens a store in a temp dir with a deterministic clock
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}
	return s
}

func TestStore_GetOrCreateConversation_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateConversation(ctx, "sess-1")
	require.NoError(t, err)
	second, err := s.GetOrCreateConversation(ctx, "sess-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, "sess-1", second.SessionID)
}

func TestStore_FindConversation_Unknown(t *testing.T) {
	s := setupTestStore(t)

	conv, err := s.FindConversation(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestStore_Messages_HistoryOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	conv, err := s.GetOrCreateConversation(ctx, "sess-1")
	require.NoError(t, err)

	turns := []struct {
		sender  domain.Sender
		content string
	}{
		{domain.SenderUser, "first question"},
		{domain.SenderBot, "<p>first answer</p>"},
		{domain.SenderUser, "second question"},
		{domain.SenderBot, "<p>second answer</p>"},
	}
	for _, turn := range turns {
		_, err := s.AddMessage(ctx, conv.ID, turn.sender, turn.content)
		require.NoError(t, err)
	}

	messages, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, len(turns))
	for i, turn := range turns {
		assert.Equal(t, turn.sender, messages[i].Sender)
		assert.Equal(t, turn.content, messages[i].Content)
		if i > 0 {
			assert.True(t, messages[i].Timestamp.After(messages[i-1].Timestamp))
		}
	}
}

func TestStore_HistoryFollowsInsertionWhenClockGoesBack(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	conv, err := s.GetOrCreateConversation(ctx, "sess-1")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err = s.AddMessage(ctx, conv.ID, domain.SenderUser, "question")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(-time.Minute) }
	_, err = s.AddMessage(ctx, conv.ID, domain.SenderBot, "<p>answer</p>")
	require.NoError(t, err)

	messages, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.SenderUser, messages[0].Sender)
	assert.Equal(t, domain.SenderBot, messages[1].Sender)
	assert.True(t, messages[1].Timestamp.Before(messages[0].Timestamp), "timestamps are kept as recorded")
}

func TestStore_ListPDFs_UploadOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	conv, err := s.GetOrCreateConversation(ctx, "sess-1")
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err = s.AddPDF(ctx, conv.ID, "chat_sess-1", "a.pdf")
	require.NoError(t, err)
	s.now = func() time.Time { return base.Add(-time.Hour) }
	_, err = s.AddPDF(ctx, conv.ID, "chat_sess-1", "b.pdf")
	require.NoError(t, err)

	pdfs, err := s.ListPDFs(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, pdfs, 2)
	assert.Equal(t, "a.pdf", pdfs[0].Filename)
	assert.Equal(t, "b.pdf", pdfs[1].Filename)
}

func TestStore_ListMessages_EmptyIsNotNil(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	conv, err := s.GetOrCreateConversation(ctx, "quiet")
	require.NoError(t, err)

	messages, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.NotNil(t, messages)
	assert.Empty(t, messages)
}

func TestStore_ListConversations_NewestFirstWithPDFs(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	older, err := s.GetOrCreateConversation(ctx, "older")
	require.NoError(t, err)
	newer, err := s.GetOrCreateConversation(ctx, "newer")
	require.NoError(t, err)

	_, err = s.AddPDF(ctx, older.ID, domain.CollectionID("older"), "a.pdf")
	require.NoError(t, err)
	_, err = s.AddPDF(ctx, older.ID, domain.CollectionID("older"), "b.pdf")
	require.NoError(t, err)

	summaries, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, newer.ID, summaries[0].ID)
	assert.Empty(t, summaries[0].PDFs)
	assert.Equal(t, older.ID, summaries[1].ID)
	require.Len(t, summaries[1].PDFs, 2)
	assert.Equal(t, "a.pdf", summaries[1].PDFs[0].Filename)
	assert.Equal(t, "chat_older", summaries[1].PDFs[0].CollectionID)
	assert.Equal(t, "b.pdf", summaries[1].PDFs[1].Filename)

	pdfs, err := s.ListPDFs(ctx, older.ID)
	require.NoError(t, err)
	assert.Len(t, pdfs, 2)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	conv, err := s.GetOrCreateConversation(ctx, "sess-durable")
	require.NoError(t, err)
	_, err = s.AddMessage(ctx, conv.ID, domain.SenderUser, "hello")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	found, err := reopened.FindConversation(ctx, "sess-durable")
	require.NoError(t, err)
	require.NotNil(t, found)
	messages, err := reopened.ListMessages(ctx, found.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "hello", messages[0].Content)
}
