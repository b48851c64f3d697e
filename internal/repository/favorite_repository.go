package repository

import (
	"context"

	"socialvibe/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FavoriteRepository interface {
	Find(ctx context.Context, activityID, userID uuid.UUID) (*models.Favorite, error)
	// ListActivities returns the activities a user saved, newest save first.
	ListActivities(ctx context.Context, userID uuid.UUID) ([]models.Activity, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, favorite *models.Favorite) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByActivity(ctx context.Context, activityID uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type favoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Find(ctx context.Context, activityID, userID uuid.UUID) (*models.Favorite, error) {
	var f models.Favorite
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *favoriteRepository) ListActivities(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	favorites := make([]models.Favorite, 0)
	err := r.db.WithContext(ctx).
		Preload("Activity").
		Preload("Activity.Host").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, err
	}

	activities := make([]models.Activity, 0, len(favorites))
	for _, f := range favorites {
		if f.Activity != nil {
			activities = append(activities, *f.Activity)
		}
	}
	return activities, nil
}

func (r *favoriteRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// Create is idempotent: saving an activity twice leaves one row.
func (r *favoriteRepository) Create(ctx context.Context, favorite *models.Favorite) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "activity_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Omit(clause.Associations).
		Create(favorite).Error
}

func (r *favoriteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Favorite{}).Error
}

func (r *favoriteRepository) DeleteByActivity(ctx context.Context, activityID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("activity_id = ?", activityID).Delete(&models.Favorite{}).Error
}

func (r *favoriteRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Favorite{}).Error
}
