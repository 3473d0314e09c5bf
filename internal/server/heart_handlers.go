package server

import (
	"strconv"

	"lokal/internal/models"
	"lokal/internal/notifications"

	"github.com/gofiber/fiber/v2"
)

// HeartPin handles POST /api/pins/:id/heart
// Idempotent: hearting an already-hearted pin returns the current state.
func (s *Server) HeartPin(c *fiber.Ctx) error {
	return s.setHeart(c, true)
}

// UnheartPin handles DELETE /api/pins/:id/heart
// Idempotent: removing a heart that is not set returns the current state.
func (s *Server) UnheartPin(c *fiber.Ctx) error {
	return s.setHeart(c, false)
}

func (s *Server) setHeart(c *fiber.Ctx, want bool) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	pinID, err := s.parsePinID(c)
	if err != nil {
		return nil
	}

	state, err := s.heartService.HeartState(c.Context(), user.UID(), pinID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if state.Liked == want {
		return c.JSON(state)
	}

	result, err := s.heartService.ToggleHeart(c.Context(), user, pinID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	if !result.OwnPin {
		s.publishBroadcastEvent(c, notifications.EventPinHeartsUpdated, fiber.Map{
			"pin_id": result.PinID,
			"count":  result.Count,
		})
		if result.Liked {
			s.notifyPinAuthor(c, result.PinID, user)
		}
	}

	return c.JSON(result)
}

// GetHeartState handles GET /api/pins/:id/heart
func (s *Server) GetHeartState(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	pinID, err := s.parsePinID(c)
	if err != nil {
		return nil
	}

	state, err := s.heartService.HeartState(c.Context(), user.UID(), pinID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(state)
}

// GetHearts handles GET /api/pins/:id/hearts (public counter)
func (s *Server) GetHearts(c *fiber.Ctx) error {
	pinID, err := s.parsePinID(c)
	if err != nil {
		return nil
	}

	count, err := s.heartRepo.Count(c.Context(), pinID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(fiber.Map{"pin_id": pinID, "count": count})
}

// GetMyLikedPins handles GET /api/users/me/likes
func (s *Server) GetMyLikedPins(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	pins, err := s.heartService.LikedPins(c.Context(), user.UID())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(pins)
}

// notifyPinAuthor sends a pin_hearted event to the pin's author.
func (s *Server) notifyPinAuthor(c *fiber.Ctx, pinID string, likedBy *models.User) {
	pin, err := s.pinService.GetPin(c.Context(), pinID)
	if err != nil {
		return
	}
	authorID, err := strconv.ParseUint(pin.Author.UID, 10, 32)
	if err != nil {
		return
	}
	s.publishUserEvent(c, uint(authorID), notifications.EventPinHearted, fiber.Map{
		"pin_id":    pin.ID,
		"pin_title": pin.Title,
		"by":        likedBy.Snapshot(),
	})
}
