package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a member of the app.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	Avatar    string
	Bio       string
	Email     string `gorm:"size:255;uniqueIndex;not null"`
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// UserAvatar records an uploaded profile picture.
type UserAvatar struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Path        string    `gorm:"size:512;not null"`
	URL         string    `gorm:"size:1024;not null"`
	ContentType string    `gorm:"size:100"`
	Size        int64
	CreatedAt   time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

func (a *UserAvatar) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
