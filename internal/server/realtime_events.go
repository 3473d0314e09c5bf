package server

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// publishUserEvent fans a typed event out to one user's connections, locally
// and through Redis so other server instances deliver it too.
func (s *Server) publishUserEvent(c *fiber.Ctx, userID uint, eventType string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyUserEvent(c.Context(), userID, eventType, payload); err != nil {
		log.Printf("failed to publish %s event to user %d: %v", eventType, userID, err)
	}
}

// publishBroadcastEvent fans a typed event out to every connected client.
func (s *Server) publishBroadcastEvent(c *fiber.Ctx, eventType string, payload interface{}) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BroadcastEvent(c.Context(), eventType, payload); err != nil {
		log.Printf("failed to publish %s broadcast event: %v", eventType, err)
	}
}
