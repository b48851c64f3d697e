package handler

import (
	"net/http"
	"time"

	"socialvibe/backend/internal/models"
	"socialvibe/backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxAvatarSize bounds avatar uploads.
const maxAvatarSize = 5 << 20

// region --- DTOs ---

// CreateUserRequest defines the structure for user creation.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required" example:"Mia"`
	Email    string `json:"email" binding:"required,email" example:"mia@example.com"`
	Avatar   string `json:"avatar" example:"https://example.com/mia.jpg"`
	Bio      string `json:"bio" example:"Weekend climber"`
	Location string `json:"location" example:"Oslo"`
}

// UpdateUserRequest defines a partial profile update.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
}

// UserResponse defines the structure for a user's profile.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name" example:"Mia"`
	Avatar    string    `json:"avatar"`
	Bio       string    `json:"bio"`
	Email     string    `json:"email" example:"mia@example.com"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary is the public part of a user embedded in other resources.
type UserSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name" example:"Mia"`
	Avatar string    `json:"avatar"`
}

type UserStatsResponse struct {
	Created      int64 `json:"created"`
	Participated int64 `json:"participated"`
	Favorites    int64 `json:"favorites"`
}

type AvatarResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Path        string    `json:"path"`
	URL         string    `json:"url"`
	ContentType string    `json:"content_type" example:"image/png"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserResponse(u models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		Email:     u.Email,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func newUserSummary(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

func newAvatarResponse(a models.UserAvatar) AvatarResponse {
	return AvatarResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		Path:        a.Path,
		URL:         a.URL,
		ContentType: a.ContentType,
		Size:        a.Size,
		CreatedAt:   a.CreatedAt,
	}
}

// endregion

type UserHandler struct {
	users  service.UserService
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// ListUsers godoc
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array}   UserResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, newUserResponse(u))
	}
	c.JSON(http.StatusOK, response)
}

// GetUser godoc
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  UserResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrUserNotFound)
	if !ok {
		return
	}

	user, err := h.users.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// GetUserByEmail godoc
// @Summary      Find a user by e-mail
// @Tags         users
// @Produce      json
// @Param        email path      string  true  "E-mail address"
// @Success      200   {object}  UserResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/users/email/{email} [get]
func (h *UserHandler) GetUserByEmail(c *gin.Context) {
	user, err := h.users.GetByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// GetUserStats godoc
// @Summary      Activity statistics of a user
// @Description  Counts activities the user created, takes part in and saved.
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  UserStatsResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/users/{id}/stats [get]
func (h *UserHandler) GetUserStats(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrUserNotFound)
	if !ok {
		return
	}

	stats, err := h.users.Stats(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UserStatsResponse{
		Created:      stats.Created,
		Participated: stats.Participated,
		Favorites:    stats.Favorites,
	})
}

// CreateUser godoc
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        input body CreateUserRequest true "User"
// @Success      201  {object}  UserResponse
// @Failure      400  {object}  ValidationErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !bindJSON(c, &req, false) {
		return
	}

	user, err := h.users.Create(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
		Location: req.Location,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newUserResponse(*user))
}

// UpdateUser godoc
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User ID"
// @Param        input body      UpdateUserRequest  true  "Fields to change"
// @Success      200   {object}  UserResponse
// @Failure      400   {object}  ValidationErrorResponse
// @Failure      404   {object}  ErrorResponse
// @Router       /api/users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrUserNotFound)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req, false) {
		return
	}

	user, err := h.users.Update(c.Request.Context(), id, service.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Avatar:   req.Avatar,
		Bio:      req.Bio,
		Location: req.Location,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(*user))
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  The user leaves every activity first, so waitlists advance. Hosted activities are deleted.
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrUserNotFound)
	if !ok {
		return
	}

	if err := h.users.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}

// UploadAvatar godoc
// @Summary      Upload an avatar
// @Description  Stores the image and makes it the user's avatar.
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Param        file formData  file    true  "Image (jpeg, png, gif or webp, up to 5 MB)"
// @Success      201  {object}  AvatarResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      503  {object}  ErrorResponse "Storage not configured"
// @Router       /api/users/{id}/avatar [post]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrUserNotFound)
	if !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "File is required"})
		return
	}
	if header.Size > maxAvatarSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "File is too large"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "File could not be read"})
		return
	}
	defer file.Close()

	avatar, err := h.users.UploadAvatar(c.Request.Context(), id, service.AvatarUpload{
		Body:        file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newAvatarResponse(*avatar))
}

// ListAvatars godoc
// @Summary      List a user's uploaded avatars
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User ID"
// @Success      200  {array}   AvatarResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/users/{id}/avatars [get]
func (h *UserHandler) ListAvatars(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrUserNotFound)
	if !ok {
		return
	}

	avatars, err := h.users.ListAvatars(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response := make([]AvatarResponse, 0, len(avatars))
	for _, a := range avatars {
		response = append(response, newAvatarResponse(a))
	}
	c.JSON(http.StatusOK, response)
}
