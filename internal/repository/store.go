package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories so a service can run several of them inside
// one transaction.
type Store interface {
	Activities() ActivityRepository
	Participants() ParticipantRepository
	Favorites() FavoriteRepository
	Users() UserRepository
	Chats() ChatRepository
	Messages() MessageRepository
	Avatars() AvatarRepository

	// WithTx runs fn in a transaction. Returning an error rolls it back.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Activities() ActivityRepository { return NewActivityRepository(s.db) }
func (s *gormStore) Participants() ParticipantRepository { return NewParticipantRepository(s.db) }
func (s *gormStore) Favorites() FavoriteRepository { return NewFavoriteRepository(s.db) }
func (s *gormStore) Users() UserRepository { return NewUserRepository(s.db) }
func (s *gormStore) Chats() ChatRepository { return NewChatRepository(s.db) }
func (s *gormStore) Messages() MessageRepository { return NewMessageRepository(s.db) }
func (s *gormStore) Avatars() AvatarRepository { return NewAvatarRepository(s.db) }

func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}
