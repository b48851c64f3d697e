package handler

import (
	"errors"
	"net/http"

	"socialvibe/backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// MessageResponse is returned by operations that only report success.
type MessageResponse struct {
	Message string `json:"message" example:"Activity deleted successfully"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrActivityNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrChatNotFound, http.StatusNotFound},
	{service.ErrMemberNotFound, http.StatusNotFound},
	{service.ErrAlreadyJoined, http.StatusBadRequest},
	{service.ErrNotParticipant, http.StatusBadRequest},
	{service.ErrEmailTaken, http.StatusBadRequest},
	{service.ErrAlreadyMember, http.StatusBadRequest},
	{service.ErrInvalidCapacity, http.StatusBadRequest},
	{service.ErrUnsupportedImage, http.StatusBadRequest},
	{service.ErrNotChatMember, http.StatusForbidden},
	{service.ErrConcurrentUpdate, http.StatusConflict},
	{service.ErrAvatarStorageDisabled, http.StatusServiceUnavailable},
}

// handleServiceError maps service layer errors to HTTP responses. Anything
// unknown is logged and reported as a 500 without details.
func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			c.JSON(e.status, ErrorResponse{Error: e.err.Error()})
			return
		}
	}

	logger.Error("Request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
