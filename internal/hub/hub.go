package hub

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventMessageCreated = "message.created"
	EventMessagesRead   = "messages.read"
	EventMemberAdded    = "member.added"
	EventMemberRemoved  = "member.removed"
	EventChatDeleted    = "chat.deleted"
)

// Broadcaster delivers chat events to every connected member of a chat.
type Broadcaster interface {
	Broadcast(chatID uuid.UUID, event Event)
}

// Client represents a single websocket connection to a chat.
// The connection's writer drains it; the hub closes it on Unsubscribe or when
// the connection's user loses access to the chat.
type Client chan []byte

// Hub manages all chats with live connections and their clients, each tagged
// with the user it belongs to.
type Hub struct {
	chats map[uuid.UUID]map[Client]uuid.UUID
	mu    sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		chats: make(map[uuid.UUID]map[Client]uuid.UUID),
	}
}

// Subscribe adds a new client of userID to a specific chat.
func (h *Hub) Subscribe(chatID, userID uuid.UUID, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.chats[chatID]; !ok {
		h.chats[chatID] = make(map[Client]uuid.UUID)
	}
	h.chats[chatID][client] = userID
}

// Unsubscribe removes a client from a chat and closes its channel. Calling it
// twice for the same client, or after a kick, is a no-op.
func (h *Hub) Unsubscribe(chatID uuid.UUID, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.chats[chatID]; ok {
		if _, ok := clients[client]; ok {
			h.drop(chatID, clients, client)
		}
	}
}

// Kick disconnects every client userID has open on the chat and returns how
// many were closed.
func (h *Hub) Kick(chatID, userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.chats[chatID]
	kicked := 0
	for client, owner := range clients {
		if owner == userID {
			h.drop(chatID, clients, client)
			kicked++
		}
	}
	return kicked
}

// Close disconnects every client of the chat.
func (h *Hub) Close(chatID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.chats[chatID]
	for client := range clients {
		close(client)
	}
	delete(h.chats, chatID)
	return len(clients)
}

// drop must be called with mu held.
func (h *Hub) drop(chatID uuid.UUID, clients map[Client]uuid.UUID, client Client) {
	delete(clients, client)
	close(client)
	if len(clients) == 0 {
		delete(h.chats, chatID)
	}
}

// Broadcast sends an event to all clients in a specific chat.
func (h *Hub) Broadcast(chatID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.Deliver(chatID, data)
}

// Deliver fans an already encoded event out to the chat's clients. Membership
// events then revoke access: member.removed disconnects that user and
// chat.deleted disconnects everyone, after they have been sent the event.
func (h *Hub) Deliver(chatID uuid.UUID, data []byte) {
	h.fanOut(chatID, data)

	var head accessChange
	if err := json.Unmarshal(data, &head); err != nil {
		return
	}
	switch head.Type {
	case EventMemberRemoved:
		if userID, err := uuid.Parse(head.Payload.UserID); err == nil {
			h.Kick(chatID, userID)
		}
	case EventChatDeleted:
		h.Close(chatID)
	}
}

type accessChange struct {
	Type    string `json:"type"`
	Payload struct {
		UserID string `json:"user_id"`
	} `json:"payload"`
}

func (h *Hub) fanOut(chatID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.chats[chatID] {
		// A full buffer means a slow or dead client; drop rather than block.
		select {
		case client <- data:
		default:
		}
	}
}

// ClientCount returns the number of live clients in a chat.
func (h *Hub) ClientCount(chatID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chats[chatID])
}
