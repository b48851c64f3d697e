package handler

import (
	"net/http"
	"time"

	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/repository"
	"socialvibe/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// region --- DTOs ---

// CreateActivityRequest defines the body of a new activity.
type CreateActivityRequest struct {
	Title           string `json:"title" binding:"required" example:"Sunset run"`
	Image           string `json:"image" example:"https://example.com/run.jpg"`
	Location        string `json:"location" binding:"required" example:"Riverside park"`
	Date            string `json:"date" binding:"required" example:"Sat"`
	FullDate        string `json:"full_date" example:"2024-06-01"`
	Time            string `json:"time" example:"18:30"`
	MaxParticipants int    `json:"max_participants" binding:"omitempty,min=1" example:"6"`
	Tag             string `json:"tag" binding:"required" example:"sport"`
	Description     string `json:"description" example:"Easy 5k along the river"`
	HostID          string `json:"host_id" example:"6f1c9b8e-3a52-4c1e-9d0a-8a4b2f7c1e11"`
}

// UpdateActivityRequest defines a partial update. participants, needed,
// status and host_id are not writable.
type UpdateActivityRequest struct {
	Title           *string `json:"title"`
	Image           *string `json:"image"`
	Location        *string `json:"location"`
	Date            *string `json:"date"`
	FullDate        *string `json:"full_date"`
	Time            *string `json:"time"`
	MaxParticipants *int    `json:"max_participants" binding:"omitempty,min=1"`
	Tag             *string `json:"tag"`
	Description     *string `json:"description"`
}

// UserIDRequest carries the user a join, leave or favorite acts for.
type UserIDRequest struct {
	UserID string `json:"user_id" example:"6f1c9b8e-3a52-4c1e-9d0a-8a4b2f7c1e11"`
}

// ActivityResponse is an activity with its host summary.
type ActivityResponse struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Image           string       `json:"image"`
	Location        string       `json:"location"`
	Date            string       `json:"date"`
	FullDate        string       `json:"full_date"`
	Time            string       `json:"time"`
	Participants    int          `json:"participants"`
	Needed          int          `json:"needed"`
	MaxParticipants int          `json:"max_participants"`
	Tag             string       `json:"tag"`
	Description     string       `json:"description"`
	IsUserCreated   bool         `json:"is_user_created"`
	HostID          uuid.UUID    `json:"host_id"`
	Status          string       `json:"status" example:"active"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	Host            *UserSummary `json:"host,omitempty"`
}

// ParticipantResponse is one roster entry of an activity.
type ParticipantResponse struct {
	ID         uuid.UUID    `json:"id"`
	ActivityID uuid.UUID    `json:"activity_id"`
	UserID     uuid.UUID    `json:"user_id"`
	Status     string       `json:"status" example:"confirmed"`
	CreatedAt  time.Time    `json:"created_at"`
	User       *UserSummary `json:"user,omitempty"`
}

// ActivityDetailResponse is an activity with its roster.
type ActivityDetailResponse struct {
	ActivityResponse
	ParticipantList []ParticipantResponse `json:"participant_list"`
}

// JoinResponse is the participant created by a join.
type JoinResponse struct {
	ParticipantResponse
	Waitlisted bool             `json:"waitlisted"`
	Message    string           `json:"message" example:"Added to waitlist"`
	Activity   ActivityResponse `json:"activity"`
}

// LeaveResponse reports a leave and the waitlisted user promoted by it.
type LeaveResponse struct {
	Message  string               `json:"message" example:"Left activity successfully"`
	Activity ActivityResponse     `json:"activity"`
	Promoted *ParticipantResponse `json:"promoted,omitempty"`
}

type FavoriteResponse struct {
	Favorited bool   `json:"favorited"`
	Message   string `json:"message" example:"Added to favorites"`
}

// ParticipationResponse is an activity seen from one participant.
type ParticipationResponse struct {
	ActivityID uuid.UUID         `json:"activity_id"`
	Status     string            `json:"status" example:"waitlist"`
	Activity   *ActivityResponse `json:"activity,omitempty"`
}

func newActivityResponse(a models.Activity) ActivityResponse {
	resp := ActivityResponse{
		ID:              a.ID,
		Title:           a.Title,
		Image:           a.Image,
		Location:        a.Location,
		Date:            a.Date,
		FullDate:        a.FullDate,
		Time:            a.Time,
		Participants:    a.Participants,
		Needed:          a.Needed,
		MaxParticipants: a.MaxParticipants,
		Tag:             a.Tag,
		Description:     a.Description,
		IsUserCreated:   a.IsUserCreated,
		HostID:          a.HostID,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
	if a.Host != nil {
		host := newUserSummary(*a.Host)
		resp.Host = &host
	}
	return resp
}

func newActivityResponses(activities []models.Activity) []ActivityResponse {
	response := make([]ActivityResponse, 0, len(activities))
	for _, a := range activities {
		response = append(response, newActivityResponse(a))
	}
	return response
}

func newParticipantResponse(p models.ActivityParticipant) ParticipantResponse {
	resp := ParticipantResponse{
		ID:         p.ID,
		ActivityID: p.ActivityID,
		UserID:     p.UserID,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
	}
	if p.User != nil {
		user := newUserSummary(*p.User)
		resp.User = &user
	}
	return resp
}

func (in UpdateActivityRequest) toInput() service.UpdateActivityInput {
	return service.UpdateActivityInput{
		Title:           in.Title,
		Image:           in.Image,
		Location:        in.Location,
		Date:            in.Date,
		FullDate:        in.FullDate,
		Time:            in.Time,
		MaxParticipants: in.MaxParticipants,
		Tag:             in.Tag,
		Description:     in.Description,
	}
}

// endregion

type ActivityHandler struct {
	activities service.ActivityService
	logger     *zap.Logger
}

func NewActivityHandler(activities service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger}
}

// ListActivities godoc
// @Summary      List activities
// @Description  Lists activities newest first with their host. Without page and limit the whole list is returned.
// @Tags         activities
// @Produce      json
// @Param        tag   query     string  false  "Filter by tag"
// @Param        page  query     int     false  "Page number"
// @Param        limit query     int     false  "Items per page (max 100)"
// @Success      200   {array}   ActivityResponse
// @Header       200   {integer} X-Total-Count "Total number of matching activities"
// @Failure      500   {object}  ErrorResponse
// @Router       /api/activities [get]
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	page := pageFromQuery(c)
	activities, total, err := h.activities.List(c.Request.Context(), repository.ActivityFilter{
		Tag:  c.Query("tag"),
		Page: page,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	setPaginationHeaders(c, total, page)
	c.JSON(http.StatusOK, newActivityResponses(activities))
}

// GetActivity godoc
// @Summary      Get an activity
// @Description  Returns an activity with its host and participant roster.
// @Tags         activities
// @Produce      json
// @Param        id   path      string  true  "Activity ID"
// @Success      200  {object}  ActivityDetailResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/activities/{id} [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrActivityNotFound)
	if !ok {
		return
	}

	detail, err := h.activities.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := ActivityDetailResponse{
		ActivityResponse: newActivityResponse(detail.Activity),
		ParticipantList:  make([]ParticipantResponse, 0, len(detail.Participants)),
	}
	for _, p := range detail.Participants {
		resp.ParticipantList = append(resp.ParticipantList, newParticipantResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

// CreateActivity godoc
// @Summary      Create an activity
// @Description  Creates an activity. The host is enrolled as its first confirmed participant.
// @Tags         activities
// @Accept       json
// @Produce      json
// @Param        input body CreateActivityRequest true "Activity"
// @Success      201  {object}  ActivityResponse
// @Failure      400  {object}  ValidationErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req CreateActivityRequest
	if !bindJSON(c, &req, false) {
		return
	}

	activity, err := h.activities.Create(c.Request.Context(), service.CreateActivityInput{
		Title:           req.Title,
		Image:           req.Image,
		Location:        req.Location,
		Date:            req.Date,
		FullDate:        req.FullDate,
		Time:            req.Time,
		MaxParticipants: req.MaxParticipants,
		Tag:             req.Tag,
		Description:     req.Description,
		HostID:          req.HostID,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, newActivityResponse(*activity))
}

// UpdateActivity godoc
// @Summary      Update an activity
// @Description  Updates descriptive fields. Raising max_participants promotes waitlisted users.
// @Tags         activities
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "Activity ID"
// @Param        input body      UpdateActivityRequest  true  "Fields to change"
// @Success      200   {object}  ActivityResponse
// @Failure      400   {object}  ValidationErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /api/activities/{id} [put]
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrActivityNotFound)
	if !ok {
		return
	}
	var req UpdateActivityRequest
	if !bindJSON(c, &req, false) {
		return
	}

	activity, err := h.activities.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newActivityResponse(*activity))
}

// DeleteActivity godoc
// @Summary      Delete an activity
// @Description  Deletes an activity with its participants and favorites.
// @Tags         activities
// @Produce      json
// @Param        id   path      string  true  "Activity ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/activities/{id} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrActivityNotFound)
	if !ok {
		return
	}

	if err := h.activities.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "Activity deleted successfully"})
}

// JoinActivity godoc
// @Summary      Join an activity
// @Description  Confirms the user while slots are free, otherwise adds them to the waitlist.
// @Tags         activities
// @Accept       json
// @Produce      json
// @Param        id    path      string         true   "Activity ID"
// @Param        input body      UserIDRequest  false  "Joining user (defaults to the bearer token's user)"
// @Success      200   {object}  JoinResponse
// @Failure      400   {object}  ErrorResponse "Already joined"
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse "Concurrent update, retry"
// @Router       /api/activities/{id}/join [post]
func (h *ActivityHandler) JoinActivity(c *gin.Context) {
	activityID, userID, ok := h.bindMembership(c)
	if !ok {
		return
	}

	result, err := h.activities.Join(c.Request.Context(), activityID, userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	message := "Joined activity successfully"
	if result.Waitlisted {
		message = "Added to waitlist"
	}
	c.JSON(http.StatusOK, JoinResponse{
		ParticipantResponse: newParticipantResponse(result.Participant),
		Waitlisted:          result.Waitlisted,
		Message:             message,
		Activity:            newActivityResponse(result.Activity),
	})
}

// LeaveActivity godoc
// @Summary      Leave an activity
// @Description  Removes the user. A freed slot goes to the oldest waitlisted user.
// @Tags         activities
// @Accept       json
// @Produce      json
// @Param        id    path      string         true   "Activity ID"
// @Param        input body      UserIDRequest  false  "Leaving user (defaults to the bearer token's user)"
// @Success      200   {object}  LeaveResponse
// @Failure      400   {object}  ErrorResponse "Not a participant"
// @Failure      404   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse "Concurrent update, retry"
// @Router       /api/activities/{id}/leave [post]
func (h *ActivityHandler) LeaveActivity(c *gin.Context) {
	activityID, userID, ok := h.bindMembership(c)
	if !ok {
		return
	}

	result, err := h.activities.Leave(c.Request.Context(), activityID, userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := LeaveResponse{
		Message:  "Left activity successfully",
		Activity: newActivityResponse(result.Activity),
	}
	if result.Promoted != nil {
		promoted := newParticipantResponse(*result.Promoted)
		resp.Promoted = &promoted
	}
	c.JSON(http.StatusOK, resp)
}

// ToggleFavorite godoc
// @Summary      Toggle a favorite
// @Description  Saves the activity for the user, or removes it if already saved.
// @Tags         activities
// @Accept       json
// @Produce      json
// @Param        id    path      string         true   "Activity ID"
// @Param        input body      UserIDRequest  false  "User (defaults to the bearer token's user)"
// @Success      200   {object}  FavoriteResponse
// @Failure      400   {object}  ValidationErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/activities/{id}/favorite [post]
func (h *ActivityHandler) ToggleFavorite(c *gin.Context) {
	activityID, userID, ok := h.bindMembership(c)
	if !ok {
		return
	}

	favorited, err := h.activities.ToggleFavorite(c.Request.Context(), activityID, userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	message := "Removed from favorites"
	if favorited {
		message = "Added to favorites"
	}
	c.JSON(http.StatusOK, FavoriteResponse{Favorited: favorited, Message: message})
}

func (h *ActivityHandler) bindMembership(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	activityID, ok := pathID(c, "id", service.ErrActivityNotFound)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	var req UserIDRequest
	if !bindJSON(c, &req, true) {
		return uuid.Nil, uuid.Nil, false
	}
	userID, ok := actingUser(c, req.UserID)
	return activityID, userID, ok
}

// GetUserFavorites godoc
// @Summary      List a user's favorites
// @Tags         activities
// @Produce      json
// @Param        user_id path      string  true  "User ID"
// @Success      200     {array}   ActivityResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /api/activities/user/favorites/{user_id} [get]
func (h *ActivityHandler) GetUserFavorites(c *gin.Context) {
	userID, ok := listOwnerID(c)
	if !ok {
		return
	}

	activities, err := h.activities.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newActivityResponses(activities))
}

// GetUserCreated godoc
// @Summary      List activities a user created
// @Tags         activities
// @Produce      json
// @Param        user_id path      string  true  "User ID"
// @Success      200     {array}   ActivityResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /api/activities/user/created/{user_id} [get]
func (h *ActivityHandler) GetUserCreated(c *gin.Context) {
	userID, ok := listOwnerID(c)
	if !ok {
		return
	}

	activities, err := h.activities.ListCreated(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newActivityResponses(activities))
}

// GetUserParticipations godoc
// @Summary      List activities a user takes part in
// @Description  Includes waitlisted entries; status tells them apart.
// @Tags         activities
// @Produce      json
// @Param        user_id path      string  true  "User ID"
// @Success      200     {array}   ParticipationResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /api/activities/user/participated/{user_id} [get]
func (h *ActivityHandler) GetUserParticipations(c *gin.Context) {
	userID, ok := listOwnerID(c)
	if !ok {
		return
	}

	participations, err := h.activities.ListParticipations(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response := make([]ParticipationResponse, 0, len(participations))
	for _, p := range participations {
		item := ParticipationResponse{ActivityID: p.ActivityID, Status: string(p.Status)}
		if p.Activity != nil {
			activity := newActivityResponse(*p.Activity)
			item.Activity = &activity
		}
		response = append(response, item)
	}
	c.JSON(http.StatusOK, response)
}
