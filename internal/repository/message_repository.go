package repository

import (
	"context"
	"time"

	"socialvibe/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error)
	// ListByChat returns the chat's messages oldest first.
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)
	Last(ctx context.Context, chatID uuid.UUID) (*models.Message, error)
	CountUnread(ctx context.Context, chatID, readerID uuid.UUID) (int64, error)
	// MarkRead stamps the given unread messages of the chat that readerID did
	// not write. It returns the number of rows changed.
	MarkRead(ctx context.Context, chatID, readerID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error)
	DeleteByChat(ctx context.Context, chatID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

func (r *messageRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Preload("User").First(&message, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("chat_id = ?", chatID).
		Order("sent_at ASC").
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) Last(ctx context.Context, chatID uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("chat_id = ?", chatID).
		Order("sent_at DESC").
		First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *messageRepository) CountUnread(ctx context.Context, chatID, readerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND user_id <> ? AND read_at IS NULL", chatID, readerID).
		Count(&count).Error
	return count, err
}

func (r *messageRepository) MarkRead(ctx context.Context, chatID, readerID uuid.UUID, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND id IN ? AND user_id <> ? AND read_at IS NULL", chatID, ids, readerID).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}

func (r *messageRepository) DeleteByChat(ctx context.Context, chatID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.Message{}).Error
}

func (r *messageRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Message{}).Error
}
