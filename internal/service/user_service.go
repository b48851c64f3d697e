package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/repository"
	"socialvibe/backend/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CreateUserInput struct {
	Name     string
	Email    string
	Avatar   string
	Bio      string
	Location string
}

// UpdateUserInput is a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Avatar   *string
	Bio      *string
	Location *string
}

type UserStats struct {
	Created      int64
	Participated int64
	Favorites    int64
}

// AvatarUpload is an image received from a client.
type AvatarUpload struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

type UserService interface {
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, input CreateUserInput) (*models.User, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*models.User, error)
	// Delete removes the user after leaving every activity they joined, so
	// waitlists advance, and drops everything they own.
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, id uuid.UUID) (*UserStats, error)

	UploadAvatar(ctx context.Context, id uuid.UUID, upload AvatarUpload) (*models.UserAvatar, error)
	ListAvatars(ctx context.Context, id uuid.UUID) ([]models.UserAvatar, error)
}

type userService struct {
	store       repository.Store
	activities  ActivityService
	avatars     storage.AvatarStore
	broadcaster hub.Broadcaster
	logger      *zap.Logger
}

// NewUserService wires the user operations. avatars may be nil when no object
// storage is configured; uploads then fail with ErrAvatarStorageDisabled.
// broadcaster may be nil; otherwise a deleted user is dropped from the live
// streams of their chats.
func NewUserService(store repository.Store, activities ActivityService, avatars storage.AvatarStore, broadcaster hub.Broadcaster, logger *zap.Logger) UserService {
	return &userService{
		store:       store,
		activities:  activities,
		avatars:     avatars,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

func (s *userService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.Users().FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) Create(ctx context.Context, input CreateUserInput) (*models.User, error) {
	user := models.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    normalizeEmail(input.Email),
		Avatar:   input.Avatar,
		Bio:      input.Bio,
		Location: input.Location,
	}

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := ensureEmailFree(ctx, tx, user.Email, uuid.Nil); err != nil {
			return err
		}
		if err := tx.Users().Create(ctx, &user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userService) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput) (*models.User, error) {
	var user *models.User
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Users().FindByID(ctx, id); err != nil {
			return notFound(err, ErrUserNotFound)
		}

		fields := map[string]interface{}{}
		if input.Name != nil {
			fields["name"] = strings.TrimSpace(*input.Name)
		}
		if input.Email != nil {
			email := normalizeEmail(*input.Email)
			if err := ensureEmailFree(ctx, tx, email, id); err != nil {
				return err
			}
			fields["email"] = email
		}
		if input.Avatar != nil {
			fields["avatar"] = *input.Avatar
		}
		if input.Bio != nil {
			fields["bio"] = *input.Bio
		}
		if input.Location != nil {
			fields["location"] = *input.Location
		}

		if err := tx.Users().Update(ctx, id, fields); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("update user: %w", err)
		}

		var err error
		user, err = tx.Users().FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func ensureEmailFree(ctx context.Context, tx repository.Store, email string, owner uuid.UUID) error {
	existing, err := tx.Users().FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != owner:
		return ErrEmailTaken
	case err == nil, errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("check email: %w", err)
	}
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.Users().FindByID(ctx, id); err != nil {
		return notFound(err, ErrUserNotFound)
	}

	participations, err := s.store.Participants().ListByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("list participations: %w", err)
	}
	for _, p := range participations {
		// Hosted activities are deleted below; leaving them first would only
		// promote people into an activity that is about to vanish.
		if p.Activity != nil && p.Activity.HostID == id {
			continue
		}
		_, err := s.activities.Leave(ctx, p.ActivityID, id)
		if err != nil && !errors.Is(err, ErrNotParticipant) && !errors.Is(err, ErrActivityNotFound) {
			return fmt.Errorf("leave activity %s: %w", p.ActivityID, err)
		}
	}

	chats, err := s.store.Chats().ListByMember(ctx, id)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	var avatars []models.UserAvatar
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		hosted, err := tx.Activities().ListIDsByHost(ctx, id)
		if err != nil {
			return fmt.Errorf("list hosted activities: %w", err)
		}
		for _, activityID := range hosted {
			if err := deleteActivityCascade(ctx, tx, activityID); err != nil {
				return err
			}
		}

		if err := tx.Favorites().DeleteByUser(ctx, id); err != nil {
			return fmt.Errorf("delete favorites: %w", err)
		}
		if err := tx.Chats().DeleteMembershipsOf(ctx, id); err != nil {
			return fmt.Errorf("delete chat memberships: %w", err)
		}
		if err := tx.Messages().DeleteByUser(ctx, id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if avatars, err = tx.Avatars().ListByUser(ctx, id); err != nil {
			return fmt.Errorf("list avatars: %w", err)
		}
		if err := tx.Avatars().DeleteByUser(ctx, id); err != nil {
			return fmt.Errorf("delete avatars: %w", err)
		}

		rows, err := tx.Users().Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeAvatarObjects(avatars)
	if s.broadcaster != nil {
		for _, chat := range chats {
			s.broadcaster.Broadcast(chat.ID, hub.Event{
				Type:    hub.EventMemberRemoved,
				Payload: map[string]string{"user_id": id.String()},
			})
		}
	}
	return nil
}

func (s *userService) removeAvatarObjects(avatars []models.UserAvatar) {
	if s.avatars == nil || len(avatars) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		for _, a := range avatars {
			if err := s.avatars.Delete(ctx, a.Path); err != nil {
				s.logger.Warn("Failed to delete avatar object", zap.String("path", a.Path), zap.Error(err))
			}
		}
	}()
}

func (s *userService) Stats(ctx context.Context, id uuid.UUID) (*UserStats, error) {
	created, err := s.store.Activities().CountCreatedBy(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count created: %w", err)
	}
	participated, err := s.store.Participants().CountByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count participations: %w", err)
	}
	favorites, err := s.store.Favorites().CountByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}
	return &UserStats{Created: created, Participated: participated, Favorites: favorites}, nil
}

func (s *userService) UploadAvatar(ctx context.Context, id uuid.UUID, upload AvatarUpload) (*models.UserAvatar, error) {
	if s.avatars == nil {
		return nil, ErrAvatarStorageDisabled
	}
	if _, err := s.store.Users().FindByID(ctx, id); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}

	key, err := storage.AvatarKey(id, upload.ContentType, time.Now())
	if err != nil {
		return nil, ErrUnsupportedImage
	}
	url, err := s.avatars.Upload(ctx, key, upload.Body, upload.Size, upload.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	avatar := models.UserAvatar{
		UserID:      id,
		Path:        key,
		URL:         url,
		ContentType: upload.ContentType,
		Size:        upload.Size,
	}
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Avatars().Create(ctx, &avatar); err != nil {
			return fmt.Errorf("save avatar: %w", err)
		}
		return tx.Users().Update(ctx, id, map[string]interface{}{"avatar": url})
	})
	if err != nil {
		return nil, err
	}
	return &avatar, nil
}

func (s *userService) ListAvatars(ctx context.Context, id uuid.UUID) ([]models.UserAvatar, error) {
	avatars, err := s.store.Avatars().ListByUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list avatars: %w", err)
	}
	return avatars, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
