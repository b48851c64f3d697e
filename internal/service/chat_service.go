package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/metrics"
	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateChatInput struct {
	Name      string
	MemberIDs []uuid.UUID
	IsGroup   bool
}

// ChatSummary is a chat as listed for one user.
type ChatSummary struct {
	Chat        models.Chat
	LastMessage *models.Message
	UnreadCount int64
}

// MessageEvent is the realtime payload of a new message.
type MessageEvent struct {
	ID         uuid.UUID `json:"id"`
	ChatID     uuid.UUID `json:"chat_id"`
	UserID     uuid.UUID `json:"user_id"`
	UserName   string    `json:"user_name,omitempty"`
	UserAvatar string    `json:"user_avatar,omitempty"`
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sent_at"`
}

func newMessageEvent(m *models.Message) MessageEvent {
	event := MessageEvent{
		ID:      m.ID,
		ChatID:  m.ChatID,
		UserID:  m.UserID,
		Content: m.Content,
		SentAt:  m.SentAt,
	}
	if m.User != nil {
		event.UserName = m.User.Name
		event.UserAvatar = m.User.Avatar
	}
	return event
}

type ChatDetail struct {
	Chat     models.Chat
	Messages []models.Message
}

type ChatService interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]ChatSummary, error)
	Get(ctx context.Context, id uuid.UUID) (*ChatDetail, error)
	Create(ctx context.Context, input CreateChatInput) (*models.Chat, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SendMessage(ctx context.Context, chatID, userID uuid.UUID, content string) (*models.Message, error)
	// MarkRead stamps read_at on the listed messages not written by userID and
	// returns how many changed.
	MarkRead(ctx context.Context, chatID, userID uuid.UUID, messageIDs []uuid.UUID) (int64, error)

	AddMember(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatMember, error)
	RemoveMember(ctx context.Context, chatID, userID uuid.UUID) error
	IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
}

type chatService struct {
	store       repository.Store
	broadcaster hub.Broadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewChatService(store repository.Store, broadcaster hub.Broadcaster, m *metrics.Metrics, logger *zap.Logger) ChatService {
	return &chatService{
		store:       store,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
	}
}

func (s *chatService) ListForUser(ctx context.Context, userID uuid.UUID) ([]ChatSummary, error) {
	chats, err := s.store.Chats().ListByMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}

	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := ChatSummary{Chat: chat}

		last, err := s.store.Messages().Last(ctx, chat.ID)
		switch {
		case err == nil:
			summary.LastMessage = last
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("last message: %w", err)
		}

		if summary.UnreadCount, err = s.store.Messages().CountUnread(ctx, chat.ID, userID); err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *chatService) Get(ctx context.Context, id uuid.UUID) (*ChatDetail, error) {
	chat, err := s.store.Chats().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrChatNotFound)
	}
	messages, err := s.store.Messages().ListByChat(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &ChatDetail{Chat: *chat, Messages: messages}, nil
}

func (s *chatService) Create(ctx context.Context, input CreateChatInput) (*models.Chat, error) {
	chat := models.Chat{Name: strings.TrimSpace(input.Name), IsGroup: input.IsGroup}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Chats().Create(ctx, &chat); err != nil {
			return fmt.Errorf("create chat: %w", err)
		}
		seen := make(map[uuid.UUID]bool, len(input.MemberIDs))
		for _, userID := range input.MemberIDs {
			if seen[userID] {
				continue
			}
			seen[userID] = true
			if err := tx.Chats().AddMember(ctx, &models.ChatMember{ChatID: chat.ID, UserID: userID}); err != nil {
				return fmt.Errorf("add member %s: %w", userID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.store.Chats().FindByID(ctx, chat.ID)
	if err != nil {
		return nil, notFound(err, ErrChatNotFound)
	}
	return created, nil
}

func (s *chatService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Messages().DeleteByChat(ctx, id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if err := tx.Chats().DeleteMembers(ctx, id); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		rows, err := tx.Chats().Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
		if rows == 0 {
			return ErrChatNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.broadcast(id, hub.EventChatDeleted, map[string]string{"chat_id": id.String()})
	return nil
}

func (s *chatService) SendMessage(ctx context.Context, chatID, userID uuid.UUID, content string) (*models.Message, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return nil, err
	}

	message := models.Message{ChatID: chatID, UserID: userID, Content: content}
	if err := s.store.Messages().Create(ctx, &message); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	created, err := s.store.Messages().FindByID(ctx, message.ID)
	if err != nil {
		return nil, fmt.Errorf("reload message: %w", err)
	}

	s.metrics.IncrementMessageSent()
	s.broadcast(chatID, hub.EventMessageCreated, newMessageEvent(created))
	return created, nil
}

func (s *chatService) MarkRead(ctx context.Context, chatID, userID uuid.UUID, messageIDs []uuid.UUID) (int64, error) {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	updated, err := s.store.Messages().MarkRead(ctx, chatID, userID, messageIDs, now)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	if updated > 0 {
		s.broadcast(chatID, hub.EventMessagesRead, map[string]interface{}{
			"user_id":     userID,
			"message_ids": messageIDs,
			"read_at":     now,
		})
	}
	return updated, nil
}

func (s *chatService) AddMember(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatMember, error) {
	var member *models.ChatMember
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Chats().FindByID(ctx, chatID); err != nil {
			return notFound(err, ErrChatNotFound)
		}

		_, err := tx.Chats().FindMember(ctx, chatID, userID)
		switch {
		case err == nil:
			return ErrAlreadyMember
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("find member: %w", err)
		}

		if err := tx.Chats().AddMember(ctx, &models.ChatMember{ChatID: chatID, UserID: userID}); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyMember
			}
			return fmt.Errorf("add member: %w", err)
		}
		member, err = tx.Chats().FindMember(ctx, chatID, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.broadcast(chatID, hub.EventMemberAdded, map[string]string{"user_id": userID.String()})
	return member, nil
}

func (s *chatService) RemoveMember(ctx context.Context, chatID, userID uuid.UUID) error {
	if _, err := s.store.Chats().FindByID(ctx, chatID); err != nil {
		return notFound(err, ErrChatNotFound)
	}
	rows, err := s.store.Chats().RemoveMember(ctx, chatID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if rows == 0 {
		return ErrMemberNotFound
	}
	s.broadcast(chatID, hub.EventMemberRemoved, map[string]string{"user_id": userID.String()})
	return nil
}

func (s *chatService) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	_, err := s.store.Chats().FindMember(ctx, chatID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("find member: %w", err)
	}
}

func (s *chatService) requireMember(ctx context.Context, chatID, userID uuid.UUID) error {
	ok, err := s.IsMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotChatMember
	}
	return nil
}

func (s *chatService) broadcast(chatID uuid.UUID, eventType string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Broadcast(chatID, hub.Event{Type: eventType, Payload: payload})
}
