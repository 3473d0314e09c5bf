// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"lokal/internal/geocode"
	"lokal/internal/middleware"
	"lokal/internal/models"
	"lokal/internal/notifications"
	"lokal/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// wsMessage is the envelope for client -> server websocket messages.
type wsMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
	Query string `json:"query,omitempty"`
}

// wsTopics tracks the live store subscriptions of one websocket connection.
type wsTopics struct {
	mu   sync.Mutex
	subs map[string]*store.Subscription
}

func newWSTopics() *wsTopics {
	return &wsTopics{subs: make(map[string]*store.Subscription)}
}

// add installs sub under topic, replacing (and tearing down) any previous
// subscription for the same topic.
func (t *wsTopics) add(topic string, sub *store.Subscription) {
	t.mu.Lock()
	prev := t.subs[topic]
	t.subs[topic] = sub
	t.mu.Unlock()
	if prev != nil {
		prev.Unsubscribe()
	}
}

func (t *wsTopics) remove(topic string) {
	t.mu.Lock()
	sub := t.subs[topic]
	delete(t.subs, topic)
	t.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (t *wsTopics) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (t *wsTopics) has(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.subs[topic]
	return ok
}

func (t *wsTopics) clear() {
	t.mu.Lock()
	subs := t.subs
	t.subs = make(map[string]*store.Subscription)
	t.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

const maxTopicsPerConn = 64

// WebsocketHandler returns the websocket handler for /api/ws.
// Clients subscribe to realtime topics and receive a snapshot immediately and
// again on every change:
//
//	pins         -> the full pin collection
//	pin:{id}     -> one pin (null payload when deleted)
//	hearts:{id}  -> a pin's heart counter
//	liked:{id}   -> whether the caller hearts the pin
//	reviews:{id} -> a pin's reviews, newest first
//
// "search" messages geocode free text, debounced so only the last query of a
// burst reaches the upstream service.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, ok := conn.Locals("userID").(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		// The handshake ticket served its purpose once the upgrade completed.
		s.consumeWSTicket(context.Background(), conn.Locals("wsTicket"))

		user, err := s.userRepo.GetByID(context.Background(), uid)
		if err != nil {
			log.Printf("websocket: failed to load user %d: %v", uid, err)
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			log.Printf("websocket: failed to register user %d: %v", uid, err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		topics := newWSTopics()
		debouncer := geocode.NewDebouncer(geocode.DefaultDebounce)

		client.OnClose = func(*notifications.Client) {
			debouncer.Stop()
			topics.clear()
		}

		client.IncomingHandler = func(c *notifications.Client, message []byte) {
			var msg wsMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				sendWSError(c, "invalid message")
				return
			}

			switch msg.Type {
			case "subscribe":
				s.subscribeTopic(c, topics, user.UID(), msg.Topic)
			case "unsubscribe":
				topics.remove(msg.Topic)
			case "search":
				s.debouncedSearch(c, debouncer, msg.Query)
			default:
				sendWSError(c, "unknown message type")
			}
		}

		// Start pumps
		go client.WritePump()
		client.ReadPump()
	})
}

// subscribeTopic attaches a store subscription for the requested topic and
// streams snapshots to the client.
func (s *Server) subscribeTopic(c *notifications.Client, topics *wsTopics, userUID, topic string) {
	if topics.has(topic) {
		return
	}
	if topics.count() >= maxTopicsPerConn {
		sendWSError(c, "too many subscriptions")
		return
	}

	send := func(payload interface{}) {
		sendWSSnapshot(c, topic, payload)
	}

	var (
		sub *store.Subscription
		err error
	)
	switch {
	case topic == "pins":
		sub, err = s.pinRepo.Watch(func(pins []models.Pin) { send(pins) })
	case strings.HasPrefix(topic, "pin:"):
		sub, err = s.pinRepo.WatchPin(topicID(topic), func(pin *models.Pin) { send(pin) })
	case strings.HasPrefix(topic, "hearts:"):
		sub, err = s.heartRepo.WatchCount(topicID(topic), func(count int64) { send(count) })
	case strings.HasPrefix(topic, "liked:"):
		sub, err = s.heartRepo.WatchLiked(userUID, topicID(topic), func(liked bool) { send(liked) })
	case strings.HasPrefix(topic, "reviews:"):
		sub, err = s.reviewRepo.Watch(topicID(topic), func(reviews []models.Review) { send(reviews) })
	default:
		sendWSError(c, "unknown topic")
		return
	}
	if err != nil {
		log.Printf("websocket: subscribe %q failed: %v", topic, err)
		sendWSError(c, "subscription failed")
		return
	}
	topics.add(topic, sub)
}

// debouncedSearch geocodes query after the debounce window; earlier pending
// queries are superseded.
func (s *Server) debouncedSearch(c *notifications.Client, debouncer *geocode.Debouncer, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}
	debouncer.Call(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		results, err := s.geocoder.Search(ctx, query)
		if err != nil {
			sendWSError(c, "search failed")
			return
		}
		out, err := json.Marshal(fiber.Map{
			"type":    "search_results",
			"query":   query,
			"payload": results,
		})
		if err != nil {
			return
		}
		c.TrySend(out)
	})
}

func topicID(topic string) string {
	if i := strings.IndexByte(topic, ':'); i >= 0 {
		return topic[i+1:]
	}
	return ""
}

func sendWSSnapshot(c *notifications.Client, topic string, payload interface{}) {
	out, err := json.Marshal(fiber.Map{
		"type":    "snapshot",
		"topic":   topic,
		"payload": payload,
	})
	if err != nil {
		log.Printf("websocket: marshal snapshot for %q failed: %v", topic, err)
		return
	}
	c.TrySend(out)
}

func sendWSError(c *notifications.Client, message string) {
	out, err := json.Marshal(fiber.Map{
		"type":    "error",
		"payload": fiber.Map{"message": message},
	})
	if err != nil {
		return
	}
	c.TrySend(out)
}
