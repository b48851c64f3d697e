package repository

import (
	"context"

	"socialvibe/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityFilter narrows List. An empty Tag matches every activity.
type ActivityFilter struct {
	Tag  string
	Page Page
}

type ActivityRepository interface {
	List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	// FindByIDForUpdate loads the row with SELECT ... FOR UPDATE. Call it
	// inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Activity, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	ListCreatedBy(ctx context.Context, hostID uuid.UUID) ([]models.Activity, error)
	ListIDsByHost(ctx context.Context, hostID uuid.UUID) ([]uuid.UUID, error)
	CountCreatedBy(ctx context.Context, hostID uuid.UUID) (int64, error)
	Create(ctx context.Context, activity *models.Activity) error
	// UpdateCounters writes participants, needed and status only if the stored
	// participant count still equals expected.
	UpdateCounters(ctx context.Context, activity *models.Activity, expected int) (bool, error)
	// Save writes every mutable column under the same compare-and-swap rule.
	Save(ctx context.Context, activity *models.Activity, expected int) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) List(ctx context.Context, filter ActivityFilter) ([]models.Activity, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Activity{})
	if filter.Tag != "" {
		query = query.Where("tag = ?", filter.Tag)
	}
	return Paginate[models.Activity](query, filter.Page, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Host").Order("created_at DESC").Order("id DESC")
	})
}

func (r *activityRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).Preload("Host").First(&activity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&activity, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Activity{}).Order("created_at").Pluck("id", &ids).Error
	return ids, err
}

func (r *activityRepository) ListCreatedBy(ctx context.Context, hostID uuid.UUID) ([]models.Activity, error) {
	activities := make([]models.Activity, 0)
	err := r.db.WithContext(ctx).
		Preload("Host").
		Where("host_id = ? AND is_user_created = ?", hostID, true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&activities).Error
	return activities, err
}

func (r *activityRepository) ListIDsByHost(ctx context.Context, hostID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.Activity{}).Where("host_id = ?", hostID).Pluck("id", &ids).Error
	return ids, err
}

func (r *activityRepository) CountCreatedBy(ctx context.Context, hostID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Activity{}).
		Where("host_id = ? AND is_user_created = ?", hostID, true).
		Count(&count).Error
	return count, err
}

func (r *activityRepository) Create(ctx context.Context, activity *models.Activity) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(activity).Error
}

func (r *activityRepository) UpdateCounters(ctx context.Context, activity *models.Activity, expected int) (bool, error) {
	return r.swap(ctx, activity.ID, expected, map[string]interface{}{
		"participants": activity.Participants,
		"needed":       activity.Needed,
		"status":       activity.Status,
	})
}

func (r *activityRepository) Save(ctx context.Context, activity *models.Activity, expected int) (bool, error) {
	return r.swap(ctx, activity.ID, expected, map[string]interface{}{
		"title":            activity.Title,
		"image":            activity.Image,
		"location":         activity.Location,
		"date":             activity.Date,
		"full_date":        activity.FullDate,
		"time":             activity.Time,
		"tag":              activity.Tag,
		"description":      activity.Description,
		"max_participants": activity.MaxParticipants,
		"participants":     activity.Participants,
		"needed":           activity.Needed,
		"status":           activity.Status,
	})
}

func (r *activityRepository) swap(ctx context.Context, id uuid.UUID, expected int, fields map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Activity{}).
		Where("id = ? AND participants = ?", id, expected).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Activity{})
	return result.RowsAffected, result.Error
}
