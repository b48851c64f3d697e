package repository

import (
	"context"

	"socialvibe/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AvatarRepository interface {
	Create(ctx context.Context, avatar *models.UserAvatar) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserAvatar, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type avatarRepository struct {
	db *gorm.DB
}

func NewAvatarRepository(db *gorm.DB) AvatarRepository {
	return &avatarRepository{db: db}
}

func (r *avatarRepository) Create(ctx context.Context, avatar *models.UserAvatar) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(avatar).Error
}

func (r *avatarRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.UserAvatar, error) {
	avatars := make([]models.UserAvatar, 0)
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&avatars).Error
	return avatars, err
}

func (r *avatarRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserAvatar{}).Error
}
