package message_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-voicechat/internal/domain"
	"github.com/iyunix/go-voicechat/internal/repository/message"
	"github.com/iyunix/go-voicechat/internal/testutil"
)

func TestCreateRejectsInvalidMessages(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := message.NewMessageRepository(db)
	c := testutil.SeedChat(t, db, 1, "chat")
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Message{Type: domain.MessageTypeText, Content: "x"})
	assert.Error(t, err, "chat is required")
	_, err = repo.Create(ctx, &domain.Message{ChatID: c.ID, Type: "video", Content: "x"})
	assert.Error(t, err)
	_, err = repo.Create(ctx, &domain.Message{ChatID: c.ID, Type: domain.MessageTypeAudio, Content: "x"})
	assert.Error(t, err, "audio needs a path")

	saved, err := repo.Create(ctx, domain.NewAssistantMessage(c.ID, "reply"))
	require.NoError(t, err)
	assert.True(t, saved.IsFromAssistant())
}

func TestPagination(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := message.NewMessageRepository(db)
	c := testutil.SeedChat(t, db, 1, "chat")
	for i := 1; i <= 7; i++ {
		testutil.SeedMessage(t, db, c.ID, 1, fmt.Sprintf("m%d", i))
	}
	ctx := context.Background()

	page, total, err := repo.FindByChatIDWithPagination(ctx, c.ID, 3, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	require.Len(t, page, 3)
	assert.Equal(t, "m7", page[0].Content)

	page, _, err = repo.FindByChatIDWithPagination(ctx, c.ID, 3, 6)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m1", page[0].Content)

	_, _, err = repo.FindByChatIDWithPagination(ctx, c.ID, 0, 0)
	assert.Error(t, err)
	_, _, err = repo.FindByChatIDWithPagination(ctx, c.ID, 101, 0)
	assert.Error(t, err)
}

func TestFindRecentBefore(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := message.NewMessageRepository(db)
	c := testutil.SeedChat(t, db, 1, "chat")
	other := testutil.SeedChat(t, db, 1, "other")

	var ids []uint
	for i := 1; i <= 6; i++ {
		ids = append(ids, testutil.SeedMessage(t, db, c.ID, 1, fmt.Sprintf("m%d", i)).ID)
	}
	testutil.SeedMessage(t, db, other.ID, 1, "elsewhere")
	ctx := context.Background()

	recent, err := repo.FindRecentBefore(ctx, c.ID, ids[4], 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"m4", "m3", "m2"}, []string{recent[0].Content, recent[1].Content, recent[2].Content})

	none, err := repo.FindRecentBefore(ctx, c.ID, ids[4], 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	first, err := repo.FindRecentBefore(ctx, c.ID, ids[0], 5)
	require.NoError(t, err)
	assert.Empty(t, first)
}

func TestMarkChatRead(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := message.NewMessageRepository(db)
	c := testutil.SeedChat(t, db, 1, "chat")
	testutil.SeedMessage(t, db, c.ID, 1, "a")
	testutil.SeedMessage(t, db, c.ID, 0, "b")
	ctx := context.Background()

	n, err := repo.MarkChatRead(ctx, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = repo.MarkChatRead(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := repo.CountByChatID(ctx, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
