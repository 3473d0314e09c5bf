// Package notifications provides real-time event delivery to websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"

	"lokal/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	broadcastChannel  = "spots:broadcast"
	userChannelPrefix = "spots:user:"
)

// Event is the envelope every realtime message travels in.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Realtime event types pushed to clients.
const (
	EventPinCreated       = "pin_created"
	EventPinHeartsUpdated = "pin_hearts_updated"
	EventPinHearted       = "pin_hearted"
	EventReviewCreated    = "review_created"
)

// Notifier publishes events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event payload to a single user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends an event payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// BroadcastEvent marshals a typed event and broadcasts it to everyone.
func (n *Notifier) BroadcastEvent(ctx context.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	middleware.WebSocketEvents.WithLabelValues(eventType).Inc()
	return n.PublishBroadcast(ctx, string(data))
}

// NotifyUserEvent marshals a typed event and sends it to one user.
func (n *Notifier) NotifyUserEvent(ctx context.Context, userID uint, eventType string, payload interface{}) error {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	middleware.WebSocketEvents.WithLabelValues(eventType).Inc()
	return n.PublishUser(ctx, userID, string(data))
}

// StartPatternSubscriber subscribes to the user pattern and broadcast channel
// and calls onMessage for each incoming message.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}
