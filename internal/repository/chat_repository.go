package repository

import (
	"context"

	"socialvibe/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository interface {
	// ListByMember returns the chats userID belongs to with members loaded.
	ListByMember(ctx context.Context, userID uuid.UUID) ([]models.Chat, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)
	Create(ctx context.Context, chat *models.Chat) error
	Delete(ctx context.Context, id uuid.UUID) (int64, error)

	FindMember(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatMember, error)
	AddMember(ctx context.Context, member *models.ChatMember) error
	RemoveMember(ctx context.Context, chatID, userID uuid.UUID) (int64, error)
	DeleteMembers(ctx context.Context, chatID uuid.UUID) error
	DeleteMembershipsOf(ctx context.Context, userID uuid.UUID) error
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC")
	}).Preload("Members.User")
}

func (r *chatRepository) ListByMember(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	chats := make([]models.Chat, 0)
	err := r.db.WithContext(ctx).
		Scopes(preloadMembers).
		Where("id IN (?)", r.db.Model(&models.ChatMember{}).Select("chat_id").Where("user_id = ?", userID)).
		Order("updated_at DESC").
		Find(&chats).Error
	return chats, err
}

func (r *chatRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.WithContext(ctx).Scopes(preloadMembers).First(&chat, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) Create(ctx context.Context, chat *models.Chat) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(chat).Error
}

func (r *chatRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Chat{})
	return result.RowsAffected, result.Error
}

func (r *chatRepository) FindMember(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatMember, error) {
	var member models.ChatMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *chatRepository) AddMember(ctx context.Context, member *models.ChatMember) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(member).Error
}

func (r *chatRepository) RemoveMember(ctx context.Context, chatID, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Delete(&models.ChatMember{})
	return result.RowsAffected, result.Error
}

func (r *chatRepository) DeleteMembers(ctx context.Context, chatID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.ChatMember{}).Error
}

func (r *chatRepository) DeleteMembershipsOf(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.ChatMember{}).Error
}
