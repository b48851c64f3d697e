package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ActivityStatus string

const (
	ActivityActive ActivityStatus = "active"
	ActivityFull   ActivityStatus = "full"
)

type ParticipantStatus string

const (
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantWaitlist  ParticipantStatus = "waitlist"
)

// Activity is a meetup users can join.
// Participants counts confirmed participant rows, host included. Needed and
// Status are derived from it and MaxParticipants.
type Activity struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title           string    `gorm:"size:255;not null"`
	Image           string
	Location        string `gorm:"size:255;not null"`
	Date            string `gorm:"size:64;not null"`
	FullDate        string `gorm:"size:64"`
	Time            string `gorm:"size:64"`
	Participants    int    `gorm:"not null"`
	Needed          int    `gorm:"not null"`
	MaxParticipants int    `gorm:"not null"`
	Tag             string `gorm:"size:64;index"`
	Description     string
	IsUserCreated   bool           `gorm:"not null"`
	HostID          uuid.UUID      `gorm:"type:uuid;not null;index"`
	Status          ActivityStatus `gorm:"size:20;not null;default:'active'"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Host *User `gorm:"foreignKey:HostID;constraint:OnDelete:CASCADE;"`
}

// Recompute derives Needed and Status from the participant count.
func (a *Activity) Recompute() {
	a.Needed = max(0, a.MaxParticipants-a.Participants)
	if a.IsFull() {
		a.Status = ActivityFull
	} else {
		a.Status = ActivityActive
	}
}

func (a *Activity) IsFull() bool {
	return a.Participants >= a.MaxParticipants
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	a.Recompute()
	return nil
}

func (a *Activity) AfterFind(tx *gorm.DB) error {
	a.Recompute()
	return nil
}

// ActivityParticipant links a user to an activity, either confirmed or waiting
// for a slot. Waitlist order is CreatedAt ascending.
type ActivityParticipant struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ActivityID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_participant_activity_user"`
	UserID     uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_participant_activity_user"`
	Status     ParticipantStatus `gorm:"size:20;not null;index"`
	CreatedAt  time.Time

	Activity *Activity `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE;"`
	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

func (p *ActivityParticipant) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// Favorite marks an activity as saved by a user.
type Favorite struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ActivityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorite_activity_user"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorite_activity_user"`
	CreatedAt  time.Time

	Activity *Activity `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE;"`
	User     *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

func (f *Favorite) BeforeCreate(tx *gorm.DB) error {
	assignID(&f.ID)
	return nil
}
