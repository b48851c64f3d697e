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

// region --- DTOs ---

type CreateChatRequest struct {
	Name      string      `json:"name" binding:"required" example:"Sunday climbers"`
	MemberIDs []uuid.UUID `json:"member_ids" binding:"required"`
	IsGroup   bool        `json:"is_group"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required" example:"See you at 6"`
	UserID  string `json:"user_id" example:"6f1c9b8e-3a52-4c1e-9d0a-8a4b2f7c1e11"`
}

type MarkReadRequest struct {
	UserID     string      `json:"user_id"`
	MessageIDs []uuid.UUID `json:"message_ids" binding:"required"`
}

type ChatResponse struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	IsGroup   bool          `json:"is_group"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Members   []UserSummary `json:"members"`
}

// ChatSummaryResponse is a chat in a user's chat list.
type ChatSummaryResponse struct {
	ChatResponse
	LastMessage *ChatMessageResponse `json:"last_message"`
	UnreadCount int64                `json:"unread_count"`
}

type ChatDetailResponse struct {
	ChatResponse
	Messages []ChatMessageResponse `json:"messages"`
}

type ChatMessageResponse struct {
	ID      uuid.UUID    `json:"id"`
	ChatID  uuid.UUID    `json:"chat_id"`
	UserID  uuid.UUID    `json:"user_id"`
	Content string       `json:"content"`
	SentAt  time.Time    `json:"sent_at"`
	ReadAt  *time.Time   `json:"read_at"`
	User    *UserSummary `json:"user,omitempty"`
}

type MemberResponse struct {
	ID       uuid.UUID    `json:"id"`
	ChatID   uuid.UUID    `json:"chat_id"`
	UserID   uuid.UUID    `json:"user_id"`
	JoinedAt time.Time    `json:"joined_at"`
	User     *UserSummary `json:"user,omitempty"`
}

type MarkReadResponse struct {
	Message string `json:"message" example:"Messages marked as read"`
	Updated int64  `json:"updated"`
}

func newChatResponse(chat models.Chat) ChatResponse {
	resp := ChatResponse{
		ID:        chat.ID,
		Name:      chat.Name,
		IsGroup:   chat.IsGroup,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.UpdatedAt,
		Members:   make([]UserSummary, 0, len(chat.Members)),
	}
	for _, m := range chat.Members {
		if m.User != nil {
			resp.Members = append(resp.Members, newUserSummary(*m.User))
		}
	}
	return resp
}

func newChatMessageResponse(m models.Message) ChatMessageResponse {
	resp := ChatMessageResponse{
		ID:      m.ID,
		ChatID:  m.ChatID,
		UserID:  m.UserID,
		Content: m.Content,
		SentAt:  m.SentAt,
		ReadAt:  m.ReadAt,
	}
	if m.User != nil {
		user := newUserSummary(*m.User)
		resp.User = &user
	}
	return resp
}

func newMemberResponse(m models.ChatMember) MemberResponse {
	resp := MemberResponse{
		ID:       m.ID,
		ChatID:   m.ChatID,
		UserID:   m.UserID,
		JoinedAt: m.JoinedAt,
	}
	if m.User != nil {
		user := newUserSummary(*m.User)
		resp.User = &user
	}
	return resp
}

// endregion

type ChatHandler struct {
	chats  service.ChatService
	logger *zap.Logger
}

func NewChatHandler(chats service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

// GetUserChats godoc
// @Summary      List a user's chats
// @Description  Chats the user is a member of, with the last message and the number of unread messages.
// @Tags         chats
// @Produce      json
// @Param        user_id path      string  true  "User ID"
// @Success      200     {array}   ChatSummaryResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /api/chats/user/{user_id} [get]
func (h *ChatHandler) GetUserChats(c *gin.Context) {
	userID, ok := listOwnerID(c)
	if !ok {
		return
	}

	summaries, err := h.chats.ListForUser(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	response := make([]ChatSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		item := ChatSummaryResponse{ChatResponse: newChatResponse(s.Chat), UnreadCount: s.UnreadCount}
		if s.LastMessage != nil {
			last := newChatMessageResponse(*s.LastMessage)
			item.LastMessage = &last
		}
		response = append(response, item)
	}
	c.JSON(http.StatusOK, response)
}

// GetChat godoc
// @Summary      Get a chat
// @Description  Returns the chat with its members and messages, oldest first.
// @Tags         chats
// @Produce      json
// @Param        id   path      string  true  "Chat ID"
// @Success      200  {object}  ChatDetailResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/chats/{id} [get]
func (h *ChatHandler) GetChat(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrChatNotFound)
	if !ok {
		return
	}

	detail, err := h.chats.Get(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := ChatDetailResponse{
		ChatResponse: newChatResponse(detail.Chat),
		Messages:     make([]ChatMessageResponse, 0, len(detail.Messages)),
	}
	for _, m := range detail.Messages {
		resp.Messages = append(resp.Messages, newChatMessageResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

// CreateChat godoc
// @Summary      Create a chat
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        input body CreateChatRequest true "Chat"
// @Success      201  {object}  ChatResponse
// @Failure      400  {object}  ValidationErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/chats [post]
func (h *ChatHandler) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if !bindJSON(c, &req, false) {
		return
	}

	chat, err := h.chats.Create(c.Request.Context(), service.CreateChatInput{
		Name:      req.Name,
		MemberIDs: req.MemberIDs,
		IsGroup:   req.IsGroup,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newChatResponse(*chat))
}

// SendMessage godoc
// @Summary      Send a message
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "Chat ID"
// @Param        input body      SendMessageRequest  true  "Message"
// @Success      201   {object}  ChatMessageResponse
// @Failure      400   {object}  ValidationErrorResponse
// @Failure      403   {object}  ErrorResponse "Not a member"
// @Router       /api/chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	chatID, ok := pathID(c, "id", service.ErrChatNotFound)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !bindJSON(c, &req, false) {
		return
	}
	userID, ok := actingUser(c, req.UserID)
	if !ok {
		return
	}

	message, err := h.chats.SendMessage(c.Request.Context(), chatID, userID, req.Content)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newChatMessageResponse(*message))
}

// MarkMessagesRead godoc
// @Summary      Mark messages as read
// @Description  Stamps read_at on the given messages of other members.
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Chat ID"
// @Param        input body      MarkReadRequest  true  "Messages"
// @Success      200   {object}  MarkReadResponse
// @Failure      400   {object}  ValidationErrorResponse
// @Failure      403   {object}  ErrorResponse "Not a member"
// @Router       /api/chats/{id}/messages/read [put]
func (h *ChatHandler) MarkMessagesRead(c *gin.Context) {
	chatID, ok := pathID(c, "id", service.ErrChatNotFound)
	if !ok {
		return
	}
	var req MarkReadRequest
	if !bindJSON(c, &req, false) {
		return
	}
	userID, ok := actingUser(c, req.UserID)
	if !ok {
		return
	}

	updated, err := h.chats.MarkRead(c.Request.Context(), chatID, userID, req.MessageIDs)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MarkReadResponse{Message: "Messages marked as read", Updated: updated})
}

// AddMember godoc
// @Summary      Add a chat member
// @Tags         chats
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Chat ID"
// @Param        input body      UserIDRequest  true  "User to add"
// @Success      201   {object}  MemberResponse
// @Failure      400   {object}  ErrorResponse "Already a member"
// @Failure      404   {object}  ErrorResponse
// @Router       /api/chats/{id}/members [post]
func (h *ChatHandler) AddMember(c *gin.Context) {
	chatID, ok := pathID(c, "id", service.ErrChatNotFound)
	if !ok {
		return
	}
	var req UserIDRequest
	if !bindJSON(c, &req, false) {
		return
	}
	userID, ok := actingUser(c, req.UserID)
	if !ok {
		return
	}

	member, err := h.chats.AddMember(c.Request.Context(), chatID, userID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newMemberResponse(*member))
}

// RemoveMember godoc
// @Summary      Remove a chat member
// @Tags         chats
// @Produce      json
// @Param        id      path      string  true  "Chat ID"
// @Param        user_id path      string  true  "User ID"
// @Success      200     {object}  MessageResponse
// @Failure      404     {object}  ErrorResponse
// @Router       /api/chats/{id}/members/{user_id} [delete]
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	chatID, ok := pathID(c, "id", service.ErrChatNotFound)
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id", service.ErrMemberNotFound)
	if !ok {
		return
	}

	if err := h.chats.RemoveMember(c.Request.Context(), chatID, userID); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Member removed successfully"})
}

// DeleteChat godoc
// @Summary      Delete a chat
// @Description  Deletes the chat with its members and messages.
// @Tags         chats
// @Produce      json
// @Param        id   path      string  true  "Chat ID"
// @Success      200  {object}  MessageResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/chats/{id} [delete]
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	id, ok := pathID(c, "id", service.ErrChatNotFound)
	if !ok {
		return
	}

	if err := h.chats.Delete(c.Request.Context(), id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Chat deleted successfully"})
}
