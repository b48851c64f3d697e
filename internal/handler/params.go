package handler

import (
	"net/http"

	"socialvibe/backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// pathID parses a UUID path parameter. A malformed id cannot match any row,
// so it is answered with the resource's not-found error.
func pathID(c *gin.Context, name string, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound.Error()})
		return uuid.Nil, false
	}
	return id, true
}

// listOwnerID parses the user a listing belongs to. A malformed id owns
// nothing, so the request is answered with an empty list.
func listOwnerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusOK, []struct{}{})
		return uuid.Nil, false
	}
	return id, true
}

// actingUser resolves the user a request acts for: the user_id from the body,
// or the authenticated user when the body has none.
func actingUser(c *gin.Context, raw string) (uuid.UUID, bool) {
	if raw == "" {
		if id, ok := auth.UserIDFromContext(c); ok {
			return id, true
		}
		fieldError(c, "user_id", "required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		fieldError(c, "user_id", "uuid")
		return uuid.Nil, false
	}
	return id, true
}
