package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"socialvibe/backend/internal/hub"
	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/repository"
	"socialvibe/backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db          *gorm.DB
	store       repository.Store
	activities  ActivityService
	users       UserService
	chats       ChatService
	mailer      *recordingMailer
	broadcaster *recordingBroadcaster
	avatars     *memoryAvatarStore
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	store := repository.NewStore(db)
	return newTestEnvWithStore(t, db, store)
}

func newTestEnvWithStore(t testing.TB, db *gorm.DB, store repository.Store) *testEnv {
	t.Helper()
	env := &testEnv{
		db:          db,
		store:       store,
		mailer:      &recordingMailer{},
		broadcaster: &recordingBroadcaster{},
		avatars:     &memoryAvatarStore{objects: map[string][]byte{}},
	}
	logger := zap.NewNop()
	env.activities = NewActivityService(store, nil, env.mailer, nil, logger)
	env.users = NewUserService(store, env.activities, env.avatars, env.broadcaster, logger)
	env.chats = NewChatService(store, env.broadcaster, nil, logger)
	return env
}

func (e *testEnv) createUser(t testing.TB, name string) *models.User {
	t.Helper()
	user, err := e.users.Create(context.Background(), CreateUserInput{
		Name:  name,
		Email: fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createActivity(t testing.TB, host *models.User, max int) *models.Activity {
	t.Helper()
	activity, err := e.activities.Create(context.Background(), CreateActivityInput{
		Title:           "Sunset run",
		Location:        "Riverside",
		Date:            "Sat",
		Tag:             "sport",
		MaxParticipants: max,
		HostID:          host.ID.String(),
	})
	require.NoError(t, err)
	return activity
}

func (e *testEnv) loadActivity(t testing.TB, id uuid.UUID) *models.Activity {
	t.Helper()
	activity, err := e.store.Activities().FindByID(context.Background(), id)
	require.NoError(t, err)
	return activity
}

func (e *testEnv) participantStatus(t testing.TB, activityID, userID uuid.UUID) models.ParticipantStatus {
	t.Helper()
	p, err := e.store.Participants().Find(context.Background(), activityID, userID)
	require.NoError(t, err)
	return p.Status
}

func (e *testEnv) count(t testing.TB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) SendPromotion(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *recordingMailer) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []hub.Event
}

func (b *recordingBroadcaster) Broadcast(_ uuid.UUID, event hub.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) Types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.Type)
	}
	return types
}

type memoryAvatarStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memoryAvatarStore) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (s *memoryAvatarStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memoryAvatarStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// flakyStore makes the next n counter swaps lose, as if another request had
// changed the row in between.
type flakyStore struct {
	repository.Store
	failures *int32
}

func (s flakyStore) Activities() repository.ActivityRepository {
	return flakyActivities{ActivityRepository: s.Store.Activities(), failures: s.failures}
}

func (s flakyStore) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(flakyStore{Store: tx, failures: s.failures})
	})
}

type flakyActivities struct {
	repository.ActivityRepository
	failures *int32
}

func (r flakyActivities) UpdateCounters(ctx context.Context, a *models.Activity, expected int) (bool, error) {
	if atomic.AddInt32(r.failures, -1) >= 0 {
		return false, nil
	}
	return r.ActivityRepository.UpdateCounters(ctx, a, expected)
}
