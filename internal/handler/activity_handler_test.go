package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/repository"
	"socialvibe/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newActivityRouter(m *MockActivityService, middleware ...gin.HandlerFunc) *gin.Engine {
	h := NewActivityHandler(m, zap.NewNop())
	r := gin.New()
	r.Use(middleware...)
	r.GET("/activities", h.ListActivities)
	r.GET("/activities/:id", h.GetActivity)
	r.POST("/activities", h.CreateActivity)
	r.PUT("/activities/:id", h.UpdateActivity)
	r.DELETE("/activities/:id", h.DeleteActivity)
	r.POST("/activities/:id/join", h.JoinActivity)
	r.POST("/activities/:id/leave", h.LeaveActivity)
	r.POST("/activities/:id/favorite", h.ToggleFavorite)
	r.GET("/activities/user/favorites/:user_id", h.GetUserFavorites)
	r.GET("/activities/user/created/:user_id", h.GetUserCreated)
	r.GET("/activities/user/participated/:user_id", h.GetUserParticipations)
	return r
}

func validActivityBody() map[string]interface{} {
	return map[string]interface{}{
		"title":            "Sunset run",
		"location":         "Riverside park",
		"date":             "Sat",
		"tag":              "sport",
		"max_participants": 6,
	}
}

func TestActivityHandler_CreateActivity(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedFields map[string]string
	}{
		{
			name:           "created",
			body:           validActivityBody(),
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing required fields",
			body:           map[string]interface{}{"description": "no title"},
			expectedStatus: http.StatusBadRequest,
			expectedFields: map[string]string{
				"title":    "Title is required",
				"location": "Location is required",
				"date":     "Date is required",
				"tag":      "Tag is required",
			},
		},
		{
			name: "non numeric capacity",
			body: func() map[string]interface{} {
				b := validActivityBody()
				b["max_participants"] = "many"
				return b
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedFields: map[string]string{"max_participants": "max_participants must be a number"},
		},
		{
			name: "negative capacity",
			body: func() map[string]interface{} {
				b := validActivityBody()
				b["max_participants"] = -1
				return b
			}(),
			expectedStatus: http.StatusBadRequest,
			expectedFields: map[string]string{"max_participants": "max_participants must be at least 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.CreateActivityInput
			mock := &MockActivityService{
				CreateFunc: func(ctx context.Context, input service.CreateActivityInput) (*models.Activity, error) {
					got = input
					return &models.Activity{ID: uuid.New(), Title: input.Title, MaxParticipants: input.MaxParticipants, Participants: 1}, nil
				},
			}

			w := performRequest(newActivityRouter(mock), http.MethodPost, "/activities", tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			if tt.expectedStatus == http.StatusCreated {
				resp := decode[ActivityResponse](t, w)
				assert.Equal(t, "Sunset run", resp.Title)
				assert.Equal(t, 6, got.MaxParticipants)
				return
			}

			resp := decode[ValidationErrorResponse](t, w)
			fields := make(map[string]string)
			for _, fe := range resp.Errors {
				fields[fe.Field] = fe.Message
			}
			assert.Equal(t, tt.expectedFields, fields)
		})
	}
}

func TestActivityHandler_CreateActivity_MalformedJSON(t *testing.T) {
	w := performRequest(newActivityRouter(&MockActivityService{}), http.MethodPost, "/activities", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode[ErrorResponse](t, w).Error)
}

func TestActivityHandler_ListActivities(t *testing.T) {
	var got repository.ActivityFilter
	mock := &MockActivityService{
		ListFunc: func(ctx context.Context, filter repository.ActivityFilter) ([]models.Activity, int64, error) {
			got = filter
			return []models.Activity{{ID: uuid.New(), Title: "a"}, {ID: uuid.New(), Title: "b"}}, 45, nil
		},
	}
	r := newActivityRouter(mock)

	t.Run("paged", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/activities?tag=sport&page=2&limit=20", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "sport", got.Tag)
		assert.Equal(t, repository.Page{Page: 2, Limit: 20}, got.Page)
		assert.Equal(t, "45", w.Header().Get("X-Total-Count"))
		assert.Equal(t, "3", w.Header().Get("X-Total-Pages"))
		assert.Len(t, decode[[]ActivityResponse](t, w), 2)
	})

	t.Run("unpaged", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/activities", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, repository.Page{}, got.Page)
		assert.Equal(t, "45", w.Header().Get("X-Total-Count"))
		assert.Empty(t, w.Header().Get("X-Total-Pages"))
	})

	t.Run("limit capped", func(t *testing.T) {
		performRequest(r, http.MethodGet, "/activities?limit=1000", nil)
		assert.Equal(t, repository.Page{Page: 1, Limit: maxPageSize}, got.Page)
	})

	t.Run("page capped", func(t *testing.T) {
		performRequest(r, http.MethodGet, "/activities?page=9223372036854775807&limit=100", nil)
		assert.Equal(t, repository.Page{Page: maxPage, Limit: 100}, got.Page)
	})
}

func TestActivityHandler_GetActivity(t *testing.T) {
	id := uuid.New()
	host := models.User{ID: uuid.New(), Name: "Host"}
	mock := &MockActivityService{
		GetFunc: func(ctx context.Context, got uuid.UUID) (*service.ActivityDetail, error) {
			if got != id {
				return nil, service.ErrActivityNotFound
			}
			return &service.ActivityDetail{
				Activity: models.Activity{ID: id, Participants: 1, MaxParticipants: 2, Host: &host},
				Participants: []models.ActivityParticipant{
					{ID: uuid.New(), ActivityID: id, UserID: host.ID, Status: models.ParticipantConfirmed, User: &host},
				},
			}, nil
		},
	}
	r := newActivityRouter(mock)

	w := performRequest(r, http.MethodGet, "/activities/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[ActivityDetailResponse](t, w)
	assert.Equal(t, 1, resp.Participants)
	require.Len(t, resp.ParticipantList, 1)
	assert.Equal(t, "confirmed", resp.ParticipantList[0].Status)
	require.NotNil(t, resp.Host)
	assert.Equal(t, "Host", resp.Host.Name)

	w = performRequest(r, http.MethodGet, "/activities/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Activity not found", decode[ErrorResponse](t, w).Error)

	w = performRequest(r, http.MethodGet, "/activities/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivityHandler_JoinActivity(t *testing.T) {
	activityID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name            string
		body            interface{}
		middleware      []gin.HandlerFunc
		joinErr         error
		waitlisted      bool
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "confirmed",
			body:            map[string]string{"user_id": userID.String()},
			expectedStatus:  http.StatusOK,
			expectedMessage: "Joined activity successfully",
		},
		{
			name:            "waitlisted",
			body:            map[string]string{"user_id": userID.String()},
			waitlisted:      true,
			expectedStatus:  http.StatusOK,
			expectedMessage: "Added to waitlist",
		},
		{
			name:            "user from token",
			middleware:      []gin.HandlerFunc{withUser(userID)},
			expectedStatus:  http.StatusOK,
			expectedMessage: "Joined activity successfully",
		},
		{
			name:           "no user",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed user id",
			body:           map[string]string{"user_id": "nope"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "already joined",
			body:           map[string]string{"user_id": userID.String()},
			joinErr:        service.ErrAlreadyJoined,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unknown activity",
			body:           map[string]string{"user_id": userID.String()},
			joinErr:        service.ErrActivityNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "lost the counter race",
			body:           map[string]string{"user_id": userID.String()},
			joinErr:        service.ErrConcurrentUpdate,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "unexpected failure",
			body:           map[string]string{"user_id": userID.String()},
			joinErr:        errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockActivityService{
				JoinFunc: func(ctx context.Context, gotActivity, gotUser uuid.UUID) (*service.JoinResult, error) {
					assert.Equal(t, activityID, gotActivity)
					assert.Equal(t, userID, gotUser)
					if tt.joinErr != nil {
						return nil, tt.joinErr
					}
					status := models.ParticipantConfirmed
					if tt.waitlisted {
						status = models.ParticipantWaitlist
					}
					return &service.JoinResult{
						Participant: models.ActivityParticipant{ID: uuid.New(), ActivityID: gotActivity, UserID: gotUser, Status: status},
						Activity:    models.Activity{ID: gotActivity, Participants: 2, MaxParticipants: 2},
						Waitlisted:  tt.waitlisted,
					}, nil
				},
			}

			w := performRequest(newActivityRouter(mock, tt.middleware...), http.MethodPost, "/activities/"+activityID.String()+"/join", tt.body)
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			switch {
			case tt.expectedMessage != "":
				resp := decode[JoinResponse](t, w)
				assert.Equal(t, tt.expectedMessage, resp.Message)
				assert.Equal(t, tt.waitlisted, resp.Waitlisted)
				assert.Equal(t, userID, resp.UserID)
			case tt.joinErr != nil && tt.expectedStatus == http.StatusInternalServerError:
				assert.Equal(t, "Internal server error", decode[ErrorResponse](t, w).Error)
			case tt.joinErr != nil:
				assert.Equal(t, tt.joinErr.Error(), decode[ErrorResponse](t, w).Error)
			}
		})
	}
}

func TestActivityHandler_LeaveActivity(t *testing.T) {
	activityID := uuid.New()
	promotedID := uuid.New()
	mock := &MockActivityService{
		LeaveFunc: func(ctx context.Context, gotActivity, userID uuid.UUID) (*service.LeaveResult, error) {
			return &service.LeaveResult{
				Activity: models.Activity{ID: gotActivity, Participants: 2, MaxParticipants: 2},
				Promoted: &models.ActivityParticipant{UserID: promotedID, Status: models.ParticipantConfirmed},
			}, nil
		},
	}

	w := performRequest(newActivityRouter(mock), http.MethodPost, "/activities/"+activityID.String()+"/leave",
		map[string]string{"user_id": uuid.NewString()})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LeaveResponse](t, w)
	assert.Equal(t, "Left activity successfully", resp.Message)
	require.NotNil(t, resp.Promoted)
	assert.Equal(t, promotedID, resp.Promoted.UserID)

	mock.LeaveFunc = func(ctx context.Context, activityID, userID uuid.UUID) (*service.LeaveResult, error) {
		return nil, service.ErrNotParticipant
	}
	w = performRequest(newActivityRouter(mock), http.MethodPost, "/activities/"+activityID.String()+"/leave",
		map[string]string{"user_id": uuid.NewString()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.ErrNotParticipant.Error(), decode[ErrorResponse](t, w).Error)
}

func TestActivityHandler_ToggleFavorite(t *testing.T) {
	favorited := false
	mock := &MockActivityService{
		ToggleFavoriteFunc: func(ctx context.Context, activityID, userID uuid.UUID) (bool, error) {
			favorited = !favorited
			return favorited, nil
		},
	}
	r := newActivityRouter(mock)
	path := "/activities/" + uuid.NewString() + "/favorite"
	body := map[string]string{"user_id": uuid.NewString()}

	w := performRequest(r, http.MethodPost, path, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, FavoriteResponse{Favorited: true, Message: "Added to favorites"}, decode[FavoriteResponse](t, w))

	w = performRequest(r, http.MethodPost, path, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, FavoriteResponse{Favorited: false, Message: "Removed from favorites"}, decode[FavoriteResponse](t, w))
}

func TestActivityHandler_UpdateActivity(t *testing.T) {
	var got service.UpdateActivityInput
	mock := &MockActivityService{
		UpdateFunc: func(ctx context.Context, id uuid.UUID, input service.UpdateActivityInput) (*models.Activity, error) {
			got = input
			if input.MaxParticipants != nil && *input.MaxParticipants == 2 {
				return nil, service.ErrInvalidCapacity
			}
			return &models.Activity{ID: id, Title: "renamed"}, nil
		},
	}
	r := newActivityRouter(mock)
	path := "/activities/" + uuid.NewString()

	w := performRequest(r, http.MethodPut, path, map[string]interface{}{"title": "renamed"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Title)
	assert.Equal(t, "renamed", *got.Title)
	assert.Nil(t, got.MaxParticipants)

	w = performRequest(r, http.MethodPut, path, map[string]interface{}{"max_participants": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPut, path, map[string]interface{}{"max_participants": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, service.ErrInvalidCapacity.Error(), decode[ErrorResponse](t, w).Error)
}

func TestActivityHandler_DeleteActivity(t *testing.T) {
	mock := &MockActivityService{}
	w := performRequest(newActivityRouter(mock), http.MethodDelete, "/activities/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Activity deleted successfully", decode[MessageResponse](t, w).Message)

	mock.DeleteFunc = func(ctx context.Context, id uuid.UUID) error { return service.ErrActivityNotFound }
	w = performRequest(newActivityRouter(mock), http.MethodDelete, "/activities/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivityHandler_GetUserParticipations(t *testing.T) {
	userID := uuid.New()
	mock := &MockActivityService{
		ListParticipationsFunc: func(ctx context.Context, id uuid.UUID) ([]models.ActivityParticipant, error) {
			return []models.ActivityParticipant{
				{ActivityID: uuid.New(), UserID: id, Status: models.ParticipantWaitlist, Activity: &models.Activity{Title: "climb"}},
			}, nil
		},
	}

	w := performRequest(newActivityRouter(mock), http.MethodGet, "/activities/user/participated/"+userID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[[]ParticipationResponse](t, w)
	require.Len(t, resp, 1)
	assert.Equal(t, "waitlist", resp[0].Status)
	require.NotNil(t, resp[0].Activity)
	assert.Equal(t, "climb", resp[0].Activity.Title)
}

func TestActivityHandler_UserListsWithMalformedID(t *testing.T) {
	called := false
	mock := &MockActivityService{
		ListFavoritesFunc: func(ctx context.Context, id uuid.UUID) ([]models.Activity, error) {
			called = true
			return nil, nil
		},
		ListCreatedFunc: func(ctx context.Context, id uuid.UUID) ([]models.Activity, error) {
			called = true
			return nil, nil
		},
		ListParticipationsFunc: func(ctx context.Context, id uuid.UUID) ([]models.ActivityParticipant, error) {
			called = true
			return nil, nil
		},
	}
	r := newActivityRouter(mock)

	for _, path := range []string{
		"/activities/user/favorites/not-a-uuid",
		"/activities/user/created/not-a-uuid",
		"/activities/user/participated/not-a-uuid",
	} {
		t.Run(path, func(t *testing.T) {
			w := performRequest(r, http.MethodGet, path, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, "[]", w.Body.String())
		})
	}
	assert.False(t, called)
}
