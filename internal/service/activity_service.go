package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialvibe/backend/internal/events"
	"socialvibe/backend/internal/metrics"
	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/notify"
	"socialvibe/backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// maxCounterRetries bounds how often a join or leave is replayed after
	// losing a compare-and-swap on the participant counter.
	maxCounterRetries = 3

	defaultMaxParticipants = 4
	sideEffectTimeout      = 10 * time.Second
)

// CreateActivityInput carries the fields of a new activity. HostID may be
// empty or malformed, in which case a fallback host is chosen.
type CreateActivityInput struct {
	Title           string
	Image           string
	Location        string
	Date            string
	FullDate        string
	Time            string
	MaxParticipants int
	Tag             string
	Description     string
	HostID          string
}

// UpdateActivityInput is a partial update; nil fields are left untouched.
type UpdateActivityInput struct {
	Title           *string
	Image           *string
	Location        *string
	Date            *string
	FullDate        *string
	Time            *string
	MaxParticipants *int
	Tag             *string
	Description     *string
}

type ActivityDetail struct {
	Activity     models.Activity
	Participants []models.ActivityParticipant
}

type JoinResult struct {
	Participant models.ActivityParticipant
	Activity    models.Activity
	Waitlisted  bool
}

type LeaveResult struct {
	Activity models.Activity
	// Promoted is the waitlisted participant that took the freed slot, if any.
	Promoted *models.ActivityParticipant
}

type ActivityService interface {
	List(ctx context.Context, filter repository.ActivityFilter) ([]models.Activity, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*ActivityDetail, error)
	Create(ctx context.Context, input CreateActivityInput) (*models.Activity, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateActivityInput) (*models.Activity, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Join(ctx context.Context, activityID, userID uuid.UUID) (*JoinResult, error)
	Leave(ctx context.Context, activityID, userID uuid.UUID) (*LeaveResult, error)
	ToggleFavorite(ctx context.Context, activityID, userID uuid.UUID) (bool, error)

	ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Activity, error)
	ListCreated(ctx context.Context, userID uuid.UUID) ([]models.Activity, error)
	ListParticipations(ctx context.Context, userID uuid.UUID) ([]models.ActivityParticipant, error)

	// Reconcile recounts every activity from its participant rows, fills free
	// slots from the waitlist and returns how many activities changed.
	Reconcile(ctx context.Context) (int, error)
}

type activityService struct {
	store     repository.Store
	publisher events.Publisher
	mailer    notify.Mailer
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewActivityService(
	store repository.Store,
	publisher events.Publisher,
	mailer notify.Mailer,
	m *metrics.Metrics,
	logger *zap.Logger,
) ActivityService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if mailer == nil {
		mailer = notify.NopMailer{}
	}
	return &activityService{
		store:     store,
		publisher: publisher,
		mailer:    mailer,
		metrics:   m,
		logger:    logger,
	}
}

func (s *activityService) List(ctx context.Context, filter repository.ActivityFilter) ([]models.Activity, int64, error) {
	activities, total, err := s.store.Activities().List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list activities: %w", err)
	}
	return activities, total, nil
}

func (s *activityService) Get(ctx context.Context, id uuid.UUID) (*ActivityDetail, error) {
	activity, err := s.store.Activities().FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrActivityNotFound)
	}
	participants, err := s.store.Participants().ListByActivity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return &ActivityDetail{Activity: *activity, Participants: participants}, nil
}

func (s *activityService) Create(ctx context.Context, input CreateActivityInput) (*models.Activity, error) {
	if input.MaxParticipants == 0 {
		input.MaxParticipants = defaultMaxParticipants
	}
	if input.MaxParticipants < 1 {
		return nil, ErrInvalidCapacity
	}

	var activity models.Activity
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		host, err := s.resolveHost(ctx, tx, input.HostID)
		if err != nil {
			return err
		}

		activity = models.Activity{
			Title:           input.Title,
			Image:           input.Image,
			Location:        input.Location,
			Date:            input.Date,
			FullDate:        input.FullDate,
			Time:            input.Time,
			MaxParticipants: input.MaxParticipants,
			Participants:    1,
			Tag:             input.Tag,
			Description:     input.Description,
			IsUserCreated:   true,
			HostID:          host.ID,
		}
		if err := tx.Activities().Create(ctx, &activity); err != nil {
			return fmt.Errorf("create activity: %w", err)
		}

		hostParticipant := models.ActivityParticipant{
			ActivityID: activity.ID,
			UserID:     host.ID,
			Status:     models.ParticipantConfirmed,
		}
		if err := tx.Participants().Create(ctx, &hostParticipant); err != nil {
			return fmt.Errorf("add host as participant: %w", err)
		}
		activity.Host = host
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(events.ActivityCreated, &activity, activity.HostID)
	return &activity, nil
}

// resolveHost picks the host of a new activity: the given user if the id is a
// valid UUID of an existing user, else the oldest user, else a freshly created
// default user.
func (s *activityService) resolveHost(ctx context.Context, tx repository.Store, rawID string) (*models.User, error) {
	if id, err := uuid.Parse(rawID); err == nil {
		user, err := tx.Users().FindByID(ctx, id)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("find host: %w", err)
		}
	}

	user, err := tx.Users().First(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find default host: %w", err)
	}

	user = &models.User{
		Name:     "Default user",
		Avatar:   "https://example.com/avatar.jpg",
		Bio:      "Default user",
		Email:    "default@example.com",
		Location: "Default location",
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create default host: %w", err)
	}
	s.logger.Info("Created default host user", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *activityService) Update(ctx context.Context, id uuid.UUID, input UpdateActivityInput) (*models.Activity, error) {
	if input.MaxParticipants != nil && *input.MaxParticipants < 1 {
		return nil, ErrInvalidCapacity
	}

	var (
		updated  models.Activity
		promoted []models.ActivityParticipant
	)
	err := s.withCounterRetry(ctx, func(tx repository.Store) error {
		activity, err := tx.Activities().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrActivityNotFound)
		}
		expected := activity.Participants
		input.apply(activity)

		promoted, err = s.fillFreeSlots(ctx, tx, activity)
		if err != nil {
			return err
		}
		activity.Recompute()

		ok, err := tx.Activities().Save(ctx, activity, expected)
		if err != nil {
			return fmt.Errorf("update activity: %w", err)
		}
		if !ok {
			return errStaleCounter
		}
		updated = *activity
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range promoted {
		s.afterPromotion(&updated, &promoted[i])
	}
	return s.reload(ctx, updated)
}

func (in UpdateActivityInput) apply(a *models.Activity) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&a.Title, in.Title)
	setString(&a.Image, in.Image)
	setString(&a.Location, in.Location)
	setString(&a.Date, in.Date)
	setString(&a.FullDate, in.FullDate)
	setString(&a.Time, in.Time)
	setString(&a.Tag, in.Tag)
	setString(&a.Description, in.Description)
	if in.MaxParticipants != nil {
		a.MaxParticipants = *in.MaxParticipants
	}
}

func (s *activityService) Delete(ctx context.Context, id uuid.UUID) error {
	var deleted models.Activity
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		activity, err := tx.Activities().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrActivityNotFound)
		}
		deleted = *activity
		return deleteActivityCascade(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.publish(events.ActivityDeleted, &deleted, uuid.Nil)
	return nil
}

// deleteActivityCascade removes an activity and every row that references it.
func deleteActivityCascade(ctx context.Context, tx repository.Store, id uuid.UUID) error {
	if err := tx.Participants().DeleteByActivity(ctx, id); err != nil {
		return fmt.Errorf("delete participants: %w", err)
	}
	if err := tx.Favorites().DeleteByActivity(ctx, id); err != nil {
		return fmt.Errorf("delete favorites: %w", err)
	}
	rows, err := tx.Activities().Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (s *activityService) Join(ctx context.Context, activityID, userID uuid.UUID) (*JoinResult, error) {
	var result JoinResult
	err := s.withCounterRetry(ctx, func(tx repository.Store) error {
		activity, err := tx.Activities().FindByIDForUpdate(ctx, activityID)
		if err != nil {
			return notFound(err, ErrActivityNotFound)
		}
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			return notFound(err, ErrUserNotFound)
		}

		_, err = tx.Participants().Find(ctx, activityID, userID)
		switch {
		case err == nil:
			return ErrAlreadyJoined
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("find participant: %w", err)
		}

		participant := models.ActivityParticipant{
			ActivityID: activityID,
			UserID:     userID,
			Status:     models.ParticipantConfirmed,
		}
		waitlisted := activity.IsFull()
		if waitlisted {
			participant.Status = models.ParticipantWaitlist
		}
		if err := tx.Participants().Create(ctx, &participant); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyJoined
			}
			return fmt.Errorf("add participant: %w", err)
		}

		if !waitlisted {
			expected := activity.Participants
			activity.Participants++
			activity.Recompute()
			ok, err := tx.Activities().UpdateCounters(ctx, activity, expected)
			if err != nil {
				return fmt.Errorf("update counters: %w", err)
			}
			if !ok {
				return errStaleCounter
			}
		}

		result = JoinResult{Participant: participant, Activity: *activity, Waitlisted: waitlisted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementJoin(result.Waitlisted)
	eventType := events.ActivityJoined
	if result.Waitlisted {
		eventType = events.ActivityWaitlisted
	}
	s.publish(eventType, &result.Activity, userID)
	return &result, nil
}

func (s *activityService) Leave(ctx context.Context, activityID, userID uuid.UUID) (*LeaveResult, error) {
	var result LeaveResult
	err := s.withCounterRetry(ctx, func(tx repository.Store) error {
		result = LeaveResult{}

		activity, err := tx.Activities().FindByIDForUpdate(ctx, activityID)
		if err != nil {
			return notFound(err, ErrActivityNotFound)
		}
		participant, err := tx.Participants().Find(ctx, activityID, userID)
		if err != nil {
			return notFound(err, ErrNotParticipant)
		}
		if err := tx.Participants().Delete(ctx, participant.ID); err != nil {
			return fmt.Errorf("remove participant: %w", err)
		}

		if participant.Status == models.ParticipantWaitlist {
			result.Activity = *activity
			return nil
		}

		expected := activity.Participants
		activity.Participants = max(0, activity.Participants-1)
		if activity.Participants < activity.MaxParticipants {
			next, err := promoteNext(ctx, tx, activity)
			if err != nil {
				return err
			}
			result.Promoted = next
		}
		activity.Recompute()

		ok, err := tx.Activities().UpdateCounters(ctx, activity, expected)
		if err != nil {
			return fmt.Errorf("update counters: %w", err)
		}
		if !ok {
			return errStaleCounter
		}
		result.Activity = *activity
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementLeave()
	s.publish(events.ActivityLeft, &result.Activity, userID)
	if result.Promoted != nil {
		s.afterPromotion(&result.Activity, result.Promoted)
	}
	return &result, nil
}

// promoteNext confirms the oldest waitlisted participant and counts it in.
// It returns nil when nobody is waiting.
func promoteNext(ctx context.Context, tx repository.Store, activity *models.Activity) (*models.ActivityParticipant, error) {
	next, err := tx.Participants().OldestWaitlisted(ctx, activity.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find waitlist: %w", err)
	}
	if err := tx.Participants().UpdateStatus(ctx, next.ID, models.ParticipantConfirmed); err != nil {
		return nil, fmt.Errorf("promote participant: %w", err)
	}
	next.Status = models.ParticipantConfirmed
	activity.Participants++
	return next, nil
}

// fillFreeSlots promotes waitlisted participants until the activity is full or
// the waitlist is empty.
func (s *activityService) fillFreeSlots(ctx context.Context, tx repository.Store, activity *models.Activity) ([]models.ActivityParticipant, error) {
	var promoted []models.ActivityParticipant
	for activity.Participants < activity.MaxParticipants {
		next, err := promoteNext(ctx, tx, activity)
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		promoted = append(promoted, *next)
	}
	return promoted, nil
}

func (s *activityService) ToggleFavorite(ctx context.Context, activityID, userID uuid.UUID) (bool, error) {
	var favorited bool
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Activities().FindByID(ctx, activityID); err != nil {
			return notFound(err, ErrActivityNotFound)
		}
		if _, err := tx.Users().FindByID(ctx, userID); err != nil {
			return notFound(err, ErrUserNotFound)
		}

		existing, err := tx.Favorites().Find(ctx, activityID, userID)
		switch {
		case err == nil:
			favorited = false
			return tx.Favorites().Delete(ctx, existing.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("find favorite: %w", err)
		}

		favorited = true
		return tx.Favorites().Create(ctx, &models.Favorite{ActivityID: activityID, UserID: userID})
	})
	if err != nil {
		return false, err
	}
	s.metrics.IncrementFavoriteToggle(favorited)
	return favorited, nil
}

func (s *activityService) ListFavorites(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	activities, err := s.store.Favorites().ListActivities(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return activities, nil
}

func (s *activityService) ListCreated(ctx context.Context, userID uuid.UUID) ([]models.Activity, error) {
	activities, err := s.store.Activities().ListCreatedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list created activities: %w", err)
	}
	return activities, nil
}

func (s *activityService) ListParticipations(ctx context.Context, userID uuid.UUID) ([]models.ActivityParticipant, error) {
	participations, err := s.store.Participants().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list participations: %w", err)
	}
	return participations, nil
}

func (s *activityService) Reconcile(ctx context.Context) (int, error) {
	ids, err := s.store.Activities().ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list activity ids: %w", err)
	}

	fixed := 0
	for _, id := range ids {
		changed, err := s.reconcileOne(ctx, id)
		if errors.Is(err, ErrActivityNotFound) {
			continue
		}
		if err != nil {
			return fixed, fmt.Errorf("reconcile %s: %w", id, err)
		}
		if changed {
			fixed++
		}
	}
	s.metrics.AddReconcileFixes(fixed)
	return fixed, nil
}

func (s *activityService) reconcileOne(ctx context.Context, id uuid.UUID) (bool, error) {
	var (
		changed  bool
		snapshot models.Activity
		promoted []models.ActivityParticipant
	)
	err := s.withCounterRetry(ctx, func(tx repository.Store) error {
		activity, err := tx.Activities().FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrActivityNotFound)
		}
		before := *activity

		confirmed, err := tx.Participants().CountConfirmed(ctx, id)
		if err != nil {
			return fmt.Errorf("count confirmed: %w", err)
		}
		activity.Participants = int(confirmed)
		promoted, err = s.fillFreeSlots(ctx, tx, activity)
		if err != nil {
			return err
		}
		activity.Recompute()

		changed = activity.Participants != before.Participants || len(promoted) > 0
		if !changed {
			return nil
		}
		ok, err := tx.Activities().UpdateCounters(ctx, activity, before.Participants)
		if err != nil {
			return fmt.Errorf("update counters: %w", err)
		}
		if !ok {
			return errStaleCounter
		}
		snapshot = *activity
		s.logger.Info("Reconciled activity counters",
			zap.String("activity_id", id.String()),
			zap.Int("stored", before.Participants),
			zap.Int("actual", activity.Participants),
			zap.Int("promoted", len(promoted)),
		)
		return nil
	})
	if err != nil {
		return false, err
	}
	for i := range promoted {
		s.afterPromotion(&snapshot, &promoted[i])
	}
	return changed, nil
}

// withCounterRetry runs fn in a transaction and replays it when the
// participant counter changed underneath it.
func (s *activityService) withCounterRetry(ctx context.Context, fn func(tx repository.Store) error) error {
	for attempt := 1; ; attempt++ {
		err := s.store.WithTx(ctx, fn)
		if !errors.Is(err, errStaleCounter) {
			return err
		}
		if attempt >= maxCounterRetries {
			s.logger.Warn("Giving up after concurrent counter updates", zap.Int("attempts", attempt))
			return ErrConcurrentUpdate
		}
	}
}

func (s *activityService) reload(ctx context.Context, activity models.Activity) (*models.Activity, error) {
	fresh, err := s.store.Activities().FindByID(ctx, activity.ID)
	if err != nil {
		return nil, notFound(err, ErrActivityNotFound)
	}
	return fresh, nil
}

// afterPromotion runs the post-commit side effects of a waitlist promotion.
func (s *activityService) afterPromotion(activity *models.Activity, p *models.ActivityParticipant) {
	s.metrics.AddPromotions(1)
	s.publish(events.ActivityPromoted, activity, p.UserID)

	if p.User == nil || p.User.Email == "" {
		return
	}
	userID, to, name, title := p.UserID, p.User.Email, p.User.Name, activity.Title
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.mailer.SendPromotion(ctx, to, name, title); err != nil {
			s.logger.Warn("Failed to send promotion email",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}()
}

// publish emits an activity event without holding up the request.
func (s *activityService) publish(eventType events.Type, activity *models.Activity, userID uuid.UUID) {
	event := events.Event{
		Type:            eventType,
		ActivityID:      activity.ID,
		UserID:          userID,
		Participants:    activity.Participants,
		MaxParticipants: activity.MaxParticipants,
		OccurredAt:      time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish activity event",
				zap.String("type", string(event.Type)),
				zap.String("activity_id", event.ActivityID.String()),
				zap.Error(err),
			)
		}
	}()
}

// notFound converts gorm.ErrRecordNotFound into the domain error and wraps
// anything else.
func notFound(err error, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return fmt.Errorf("lookup: %w", err)
}
