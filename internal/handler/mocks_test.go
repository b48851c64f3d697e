package handler

import (
	"context"

	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/repository"
	"socialvibe/backend/internal/service"

	"github.com/google/uuid"
)

// MockActivityService is a mock implementation of service.ActivityService
type MockActivityService struct {
	ListFunc               func(ctx context.Context, filter repository.ActivityFilter) ([]models.Activity, int64, error)
	GetFunc                func(ctx context.Context, id uuid.UUID) (*service.ActivityDetail, error)
	CreateFunc             func(ctx context.Context, input service.CreateActivityInput) (*models.Activity, error)
	UpdateFunc             func(ctx context.Context, id uuid.UUID, input service.UpdateActivityInput) (*models.Activity, error)
	DeleteFunc             func(ctx context.Context, id uuid.UUID) error
	JoinFunc               func(ctx context.Context, activityID, userID uuid.UUID) (*service.JoinResult, error)
	LeaveFunc              func(ctx context.Context, activityID, userID uuid.UUID) (*service.LeaveResult, error)
	ToggleFavoriteFunc     func(ctx context.Context, activityID, userID uuid.UUID) (bool, error)
	ListFavoritesFunc      func(ctx context.Context, userID uuid.UUID) ([]models.Activity, error)
	ListCreatedFunc        func(ctx context.Context, userID uuid.UUID) ([]models.Activity, error)
	ListParticipationsFunc func(ctx context.Context, userID uuid.UUID) ([]models.ActivityParticipant, error)
	ReconcileFunc          func(ctx context.Context) (int, error)
}

func (m *MockActivityService) List(ctx context.Context, filter repository.ActivityFilter) ([]models.Activity, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *MockActivityService) Get(ctx context.Context, id uuid.UUID) (*service.ActivityDetail, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, service.ErrActivityNotFound
}

func (m *MockActivityService) Create(ctx context.Context, input service.CreateActivityInput) (*models.Activity, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}
	return &models.Activity{ID: uuid.New(), Title: input.Title}, nil
}

func (m *MockActivityService) Update(ctx context.Context, id uuid.UUID, input service.UpdateActivityInput) (*models.Activity, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, input)
	}
	return &models.Activity{ID: id}, nil
}

func (m *MockActivityService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockActivityService) Join(ctx context.Context, activityID, userID uuid.UUID) (*service.JoinResult, error) {
	if m.JoinFunc != nil {
		return m.JoinFunc(ctx, activityID, userID)
	}
	return &service.JoinResult{}, nil
}

func (m *MockActivityService) Leave(ctx context.Context, activityID, userID uuid.UUID) (*service.LeaveResult, error) {
	if m.LeaveFunc != nil {
		return m.LeaveFunc(ctx, activityID, userID)
	}
	return &service.LeaveResult{}, nil
}

func (m *MockActivityService) ToggleFavorite(ctx context.Context, activityID, userID uuid.UUID) (bool, error) {
	if m.ToggleFavoriteFunc != nil {
		return m.ToggleFavoriteFunc(ctx, activityID, userID)
	}
	return true, nil
}

func (m *MockActivityService) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	if m.ListFavoritesFunc != nil {
		return m.ListFavoritesFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockActivityService) ListCreated(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	if m.ListCreatedFunc != nil {
		return m.ListCreatedFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockActivityService) ListParticipations(ctx context.Context, userID uuid.UUID) ([]models.ActivityParticipant, error) {
	if m.ListParticipationsFunc != nil {
		return m.ListParticipationsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockActivityService) Reconcile(ctx context.Context) (int, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx)
	}
	return 0, nil
}

// MockUserService is a mock implementation of service.UserService
type MockUserService struct {
	ListFunc         func(ctx context.Context) ([]models.User, error)
	GetFunc          func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc   func(ctx context.Context, email string) (*models.User, error)
	CreateFunc       func(ctx context.Context, input service.CreateUserInput) (*models.User, error)
	UpdateFunc       func(ctx context.Context, id uuid.UUID, input service.UpdateUserInput) (*models.User, error)
	DeleteFunc       func(ctx context.Context, id uuid.UUID) error
	StatsFunc        func(ctx context.Context, id uuid.UUID) (*service.UserStats, error)
	UploadAvatarFunc func(ctx context.Context, id uuid.UUID, upload service.AvatarUpload) (*models.UserAvatar, error)
	ListAvatarsFunc  func(ctx context.Context, id uuid.UUID) ([]models.UserAvatar, error)
}

func (m *MockUserService) List(ctx context.Context) ([]models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockUserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, service.ErrUserNotFound
}

func (m *MockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, service.ErrUserNotFound
}

func (m *MockUserService) Create(ctx context.Context, input service.CreateUserInput) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}
	return &models.User{ID: uuid.New(), Name: input.Name, Email: input.Email}, nil
}

func (m *MockUserService) Update(ctx context.Context, id uuid.UUID, input service.UpdateUserInput) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, input)
	}
	return &models.User{ID: id}, nil
}

func (m *MockUserService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserService) Stats(ctx context.Context, id uuid.UUID) (*service.UserStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, id)
	}
	return &service.UserStats{}, nil
}

func (m *MockUserService) UploadAvatar(ctx context.Context, id uuid.UUID, upload service.AvatarUpload) (*models.UserAvatar, error) {
	if m.UploadAvatarFunc != nil {
		return m.UploadAvatarFunc(ctx, id, upload)
	}
	return nil, service.ErrAvatarStorageDisabled
}

func (m *MockUserService) ListAvatars(ctx context.Context, id uuid.UUID) ([]models.UserAvatar, error) {
	if m.ListAvatarsFunc != nil {
		return m.ListAvatarsFunc(ctx, id)
	}
	return nil, nil
}

// MockChatService is a mock implementation of service.ChatService
type MockChatService struct {
	ListForUserFunc  func(ctx context.Context, userID uuid.UUID) ([]service.ChatSummary, error)
	GetFunc          func(ctx context.Context, id uuid.UUID) (*service.ChatDetail, error)
	CreateFunc       func(ctx context.Context, input service.CreateChatInput) (*models.Chat, error)
	DeleteFunc       func(ctx context.Context, id uuid.UUID) error
	SendMessageFunc  func(ctx context.Context, chatID, userID uuid.UUID, content string) (*models.Message, error)
	MarkReadFunc     func(ctx context.Context, chatID, userID uuid.UUID, messageIDs []uuid.UUID) (int64, error)
	AddMemberFunc    func(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatMember, error)
	RemoveMemberFunc func(ctx context.Context, chatID, userID uuid.UUID) error
	IsMemberFunc     func(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
}

func (m *MockChatService) ListForUser(ctx context.Context, userID uuid.UUID) ([]service.ChatSummary, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockChatService) Get(ctx context.Context, id uuid.UUID) (*service.ChatDetail, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, service.ErrChatNotFound
}

func (m *MockChatService) Create(ctx context.Context, input service.CreateChatInput) (*models.Chat, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}
	return &models.Chat{ID: uuid.New(), Name: input.Name}, nil
}

func (m *MockChatService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockChatService) SendMessage(ctx context.Context, chatID, userID uuid.UUID, content string) (*models.Message, error) {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, chatID, userID, content)
	}
	return &models.Message{ID: uuid.New(), ChatID: chatID, UserID: userID, Content: content}, nil
}

func (m *MockChatService) MarkRead(ctx context.Context, chatID, userID uuid.UUID, messageIDs []uuid.UUID) (int64, error) {
	if m.MarkReadFunc != nil {
		return m.MarkReadFunc(ctx, chatID, userID, messageIDs)
	}
	return int64(len(messageIDs)), nil
}

func (m *MockChatService) AddMember(ctx context.Context, chatID, userID uuid.UUID) (*models.ChatMember, error) {
	if m.AddMemberFunc != nil {
		return m.AddMemberFunc(ctx, chatID, userID)
	}
	return &models.ChatMember{ID: uuid.New(), ChatID: chatID, UserID: userID}, nil
}

func (m *MockChatService) RemoveMember(ctx context.Context, chatID, userID uuid.UUID) error {
	if m.RemoveMemberFunc != nil {
		return m.RemoveMemberFunc(ctx, chatID, userID)
	}
	return nil
}

func (m *MockChatService) IsMember(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	if m.IsMemberFunc != nil {
		return m.IsMemberFunc(ctx, chatID, userID)
	}
	return false, nil
}
