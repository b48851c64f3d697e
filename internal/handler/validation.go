package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError is one failed field of a request body.
type FieldError struct {
	Field   string `json:"field" example:"title"`
	Message string `json:"message" example:"Title is required"`
}

// ValidationErrorResponse is returned with 400 when a body fails validation.
type ValidationErrorResponse struct {
	Errors []FieldError `json:"errors"`
}

// fieldMessages holds the client-facing message per "<json field>.<tag>".
var fieldMessages = map[string]string{
	"title.required":        "Title is required",
	"location.required":     "Location is required",
	"date.required":         "Date is required",
	"tag.required":          "Tag is required",
	"max_participants.min":  "max_participants must be at least 1",
	"max_participants.type": "max_participants must be a number",
	"name.required":         "Name is required",
	"email.required":        "Valid email is required",
	"email.email":           "Valid email is required",
	"content.required":      "Message content is required",
	"user_id.required":      "User ID is required",
	"user_id.uuid":          "User ID must be a valid UUID",
	"member_ids.required":   "Member IDs must be an array",
	"member_ids.type":       "Member IDs must be an array",
	"message_ids.required":  "Message IDs must be an array",
	"message_ids.type":      "Message IDs must be an array",
}

var registerOnce sync.Once

// RegisterValidation makes validator errors report JSON field names.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func fieldMessage(field, tag string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}
	return field + " is invalid"
}

// bindJSON decodes and validates the body into obj. On failure it writes the
// 400 response and returns false. An empty body is accepted when optional.
func bindJSON(c *gin.Context, obj interface{}, optional bool) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	if optional && errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
		if err == nil {
			return true
		}
	}
	abortValidation(c, err)
	return false
}

func abortValidation(c *gin.Context, err error) {
	var (
		verrs   validator.ValidationErrors
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &verrs):
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{Field: fe.Field(), Message: fieldMessage(fe.Field(), fe.Tag())})
		}
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: out})
	case errors.As(err, &typeErr):
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: []FieldError{
			{Field: typeErr.Field, Message: fieldMessage(typeErr.Field, "type")},
		}})
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}
}

func fieldError(c *gin.Context, field, tag string) {
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{Errors: []FieldError{
		{Field: field, Message: fieldMessage(field, tag)},
	}})
}
