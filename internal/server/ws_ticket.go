package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lokal/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	wsTicketTTL = 30 * time.Second
	// Consumed tickets stay valid in-process for the duration of the
	// websocket handshake, which re-runs route middleware on upgrade.
	consumedTicketGrace = 10 * time.Second
)

type consumedTicketEntry struct {
	userID    uint
	consumeAt time.Time
}

// IssueWSTicket handles POST /api/ws/ticket
// Issues a short-lived single-use ticket the browser passes as a query
// parameter when opening the websocket, since headers cannot be set there.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fmt.Errorf("websockets unavailable without redis")))
	}
	userID := c.Locals("userID").(uint)

	ticket := uuid.New().String()
	key := fmt.Sprintf("ws_ticket:%s", ticket)
	if err := s.redis.Set(c.Context(), key,
		strconv.FormatUint(uint64(userID), 10), wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// redeemWSTicket atomically consumes a ticket from Redis (GETDEL) and, for
// websocket paths, caches it in-process so the upgrade's second middleware
// pass still authenticates.
func (s *Server) redeemWSTicket(ctx context.Context, ticket string, isWSPath bool) (uint, bool) {
	// Second pass of a websocket handshake hits the in-process cache.
	s.consumedTicketsMu.Lock()
	if entry, ok := s.consumedTickets[ticket]; ok {
		s.consumedTicketsMu.Unlock()
		if time.Since(entry.consumeAt) <= consumedTicketGrace {
			return entry.userID, true
		}
		return 0, false
	}
	s.consumedTicketsMu.Unlock()

	key := fmt.Sprintf("ws_ticket:%s", ticket)
	userIDStr, err := s.redis.GetDel(ctx, key).Result()
	if err != nil {
		return 0, false
	}
	userID, err := strconv.ParseUint(userIDStr, 10, 32)
	if err != nil {
		return 0, false
	}

	if isWSPath {
		s.consumedTicketsMu.Lock()
		s.consumedTickets[ticket] = consumedTicketEntry{
			userID:    uint(userID),
			consumeAt: time.Now(),
		}
		s.consumedTicketsMu.Unlock()
	}
	return uint(userID), true
}

// consumeWSTicket drops a ticket from the in-process cache once the websocket
// connection is established.
func (s *Server) consumeWSTicket(_ context.Context, ticketVal interface{}) {
	ticket, ok := ticketVal.(string)
	if !ok || ticket == "" {
		return
	}
	s.consumedTicketsMu.Lock()
	delete(s.consumedTickets, ticket)
	s.consumedTicketsMu.Unlock()
}
