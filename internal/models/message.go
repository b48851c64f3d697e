package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a conversation between its members.
type Chat struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null"`
	IsGroup   bool      `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Members []ChatMember `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE;"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

type ChatMember struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_member_chat_user"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_member_chat_user"`
	JoinedAt time.Time `gorm:"autoCreateTime"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

func (m *ChatMember) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}

// Message represents a chat message. ReadAt is set once a member other than
// the author has read it.
type Message struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatID  uuid.UUID `gorm:"type:uuid;not null;index"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Content string    `gorm:"not null"`
	SentAt  time.Time `gorm:"autoCreateTime;index"`
	ReadAt  *time.Time

	Chat *Chat `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE;"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	assignID(&m.ID)
	return nil
}
