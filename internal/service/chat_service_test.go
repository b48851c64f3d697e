package service

import (
	"context"
	"testing"
	"time"

	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatService_Create(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mia := env.createUser(t, "mia")
	leo := env.createUser(t, "leo")

	chat, err := env.chats.Create(ctx, CreateChatInput{
		Name:      " Climbing crew ",
		IsGroup:   true,
		MemberIDs: []uuid.UUID{mia.ID, leo.ID, mia.ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "Climbing crew", chat.Name)
	assert.True(t, chat.IsGroup)
	require.Len(t, chat.Members, 2)
	for _, m := range chat.Members {
		assert.NotNil(t, m.User)
	}
}

func TestChatService_SendMessage(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mia := env.createUser(t, "mia")
	leo := env.createUser(t, "leo")
	outsider := env.createUser(t, "outsider")
	chat, err := env.chats.Create(ctx, CreateChatInput{MemberIDs: []uuid.UUID{mia.ID, leo.ID}})
	require.NoError(t, err)

	message, err := env.chats.SendMessage(ctx, chat.ID, mia.ID, "see you at 6")
	require.NoError(t, err)
	assert.Equal(t, "see you at 6", message.Content)
	require.NotNil(t, message.User)
	assert.Equal(t, mia.Name, message.User.Name)
	assert.Equal(t, []string{hub.EventMessageCreated}, env.broadcaster.Types())

	_, err = env.chats.SendMessage(ctx, chat.ID, outsider.ID, "hi")
	assert.ErrorIs(t, err, ErrNotChatMember)

	_, err = env.chats.SendMessage(ctx, uuid.New(), mia.ID, "hi")
	assert.ErrorIs(t, err, ErrNotChatMember)
}

func TestChatService_GetOrdersMessages(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mia := env.createUser(t, "mia")
	chat, err := env.chats.Create(ctx, CreateChatInput{MemberIDs: []uuid.UUID{mia.ID}})
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := env.chats.SendMessage(ctx, chat.ID, mia.ID, content)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	detail, err := env.chats.Get(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, detail.Messages, 3)
	assert.Equal(t, "one", detail.Messages[0].Content)
	assert.Equal(t, "three", detail.Messages[2].Content)

	_, err = env.chats.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestChatService_ListForUserAndMarkRead(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mia := env.createUser(t, "mia")
	leo := env.createUser(t, "leo")
	chat, err := env.chats.Create(ctx, CreateChatInput{MemberIDs: []uuid.UUID{mia.ID, leo.ID}})
	require.NoError(t, err)

	first, err := env.chats.SendMessage(ctx, chat.ID, leo.ID, "first")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := env.chats.SendMessage(ctx, chat.ID, leo.ID, "second")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	own, err := env.chats.SendMessage(ctx, chat.ID, mia.ID, "mine")
	require.NoError(t, err)

	summaries, err := env.chats.ListForUser(ctx, mia.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(2), summaries[0].UnreadCount)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "mine", summaries[0].LastMessage.Content)

	updated, err := env.chats.MarkRead(ctx, chat.ID, mia.ID, []uuid.UUID{first.ID, second.ID, own.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	var stored models.Message
	require.NoError(t, env.db.First(&stored, "id = ?", own.ID).Error)
	assert.Nil(t, stored.ReadAt)

	summaries, err = env.chats.ListForUser(ctx, mia.ID)
	require.NoError(t, err)
	assert.Zero(t, summaries[0].UnreadCount)

	updated, err = env.chats.MarkRead(ctx, chat.ID, mia.ID, []uuid.UUID{first.ID})
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Equal(t, []string{
		hub.EventMessageCreated, hub.EventMessageCreated, hub.EventMessageCreated, hub.EventMessagesRead,
	}, env.broadcaster.Types())

	_, err = env.chats.MarkRead(ctx, chat.ID, uuid.New(), []uuid.UUID{first.ID})
	assert.ErrorIs(t, err, ErrNotChatMember)
}

func TestChatService_Members(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mia := env.createUser(t, "mia")
	leo := env.createUser(t, "leo")
	chat, err := env.chats.Create(ctx, CreateChatInput{MemberIDs: []uuid.UUID{mia.ID}})
	require.NoError(t, err)

	member, err := env.chats.AddMember(ctx, chat.ID, leo.ID)
	require.NoError(t, err)
	assert.Equal(t, leo.ID, member.UserID)
	require.NotNil(t, member.User)

	_, err = env.chats.AddMember(ctx, chat.ID, leo.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)
	_, err = env.chats.AddMember(ctx, uuid.New(), leo.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)

	ok, err := env.chats.IsMember(ctx, chat.ID, leo.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, env.chats.RemoveMember(ctx, chat.ID, leo.ID))
	assert.ErrorIs(t, env.chats.RemoveMember(ctx, chat.ID, leo.ID), ErrMemberNotFound)
	assert.ErrorIs(t, env.chats.RemoveMember(ctx, uuid.New(), leo.ID), ErrChatNotFound)

	ok, err = env.chats.IsMember(ctx, chat.ID, leo.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{hub.EventMemberAdded, hub.EventMemberRemoved}, env.broadcaster.Types())
}

func TestChatService_Delete(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	mia := env.createUser(t, "mia")
	chat, err := env.chats.Create(ctx, CreateChatInput{MemberIDs: []uuid.UUID{mia.ID}})
	require.NoError(t, err)
	_, err = env.chats.SendMessage(ctx, chat.ID, mia.ID, "hello")
	require.NoError(t, err)

	require.NoError(t, env.chats.Delete(ctx, chat.ID))

	assert.Zero(t, env.count(t, &models.Message{}, "chat_id = ?", chat.ID))
	assert.Zero(t, env.count(t, &models.ChatMember{}, "chat_id = ?", chat.ID))
	_, err = env.chats.Get(ctx, chat.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.ErrorIs(t, env.chats.Delete(ctx, chat.ID), ErrChatNotFound)
	assert.Contains(t, env.broadcaster.Types(), hub.EventChatDeleted)
}
