package hub

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "chat:"

// RedisRelay publishes chat events through Redis so that clients connected to
// any instance receive them. Run must be started to deliver incoming events
// to the local hub.
type RedisRelay struct {
	client *redis.Client
	local  *Hub
	logger *zap.Logger
}

func NewRedisRelay(client *redis.Client, local *Hub, logger *zap.Logger) *RedisRelay {
	return &RedisRelay{client: client, local: local, logger: logger}
}

// Broadcast publishes to chat:{id}. If Redis is unreachable the event is still
// delivered to this instance's clients.
func (r *RedisRelay) Broadcast(chatID uuid.UUID, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Failed to encode chat event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, channelName(chatID), data).Err(); err != nil {
		r.logger.Warn("Failed to publish chat event, delivering locally",
			zap.String("chat_id", chatID.String()),
			zap.Error(err),
		)
		r.local.Deliver(chatID, data)
	}
}

// Run forwards every chat:* message to the local hub until ctx is done.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	r.logger.Info("Chat relay subscribed", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			chatID, ok := parseChannel(msg.Channel)
			if !ok {
				r.logger.Warn("Ignoring message on unexpected channel", zap.String("channel", msg.Channel))
				continue
			}
			r.local.Deliver(chatID, []byte(msg.Payload))
		}
	}
}

func channelName(chatID uuid.UUID) string {
	return channelPrefix + chatID.String()
}

func parseChannel(channel string) (uuid.UUID, bool) {
	raw, found := strings.CutPrefix(channel, channelPrefix)
	if !found {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
