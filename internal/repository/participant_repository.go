package repository

import (
	"context"

	"socialvibe/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParticipantRepository interface {
	Find(ctx context.Context, activityID, userID uuid.UUID) (*models.ActivityParticipant, error)
	// OldestWaitlisted returns the first waiting participant with its user
	// loaded, or gorm.ErrRecordNotFound.
	OldestWaitlisted(ctx context.Context, activityID uuid.UUID) (*models.ActivityParticipant, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]models.ActivityParticipant, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ActivityParticipant, error)
	CountConfirmed(ctx context.Context, activityID uuid.UUID) (int64, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Create(ctx context.Context, participant *models.ActivityParticipant) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ParticipantStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByActivity(ctx context.Context, activityID uuid.UUID) error
}

type participantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

func (r *participantRepository) Find(ctx context.Context, activityID, userID uuid.UUID) (*models.ActivityParticipant, error) {
	var p models.ActivityParticipant
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepository) OldestWaitlisted(ctx context.Context, activityID uuid.UUID) (*models.ActivityParticipant, error) {
	var p models.ActivityParticipant
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("activity_id = ? AND status = ?", activityID, models.ParticipantWaitlist).
		Order("created_at ASC").Order("id ASC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]models.ActivityParticipant, error) {
	participants := make([]models.ActivityParticipant, 0)
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("activity_id = ?", activityID).
		Order("created_at ASC").
		Find(&participants).Error
	return participants, err
}

func (r *participantRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ActivityParticipant, error) {
	participants := make([]models.ActivityParticipant, 0)
	err := r.db.WithContext(ctx).
		Preload("Activity").
		Preload("Activity.Host").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&participants).Error
	return participants, err
}

func (r *participantRepository) CountConfirmed(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ActivityParticipant{}).
		Where("activity_id = ? AND status = ?", activityID, models.ParticipantConfirmed).
		Count(&count).Error
	return count, err
}

func (r *participantRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ActivityParticipant{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *participantRepository) Create(ctx context.Context, participant *models.ActivityParticipant) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(participant).Error
}

func (r *participantRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ParticipantStatus) error {
	return r.db.WithContext(ctx).Model(&models.ActivityParticipant{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *participantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ActivityParticipant{}).Error
}

func (r *participantRepository) DeleteByActivity(ctx context.Context, activityID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("activity_id = ?", activityID).Delete(&models.ActivityParticipant{}).Error
}
