package server

import (
	"lokal/internal/models"
	"lokal/internal/notifications"
	"lokal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReview handles POST /api/pins/:id/reviews
// @Summary Review a pin
// @Description Leave a rating (1-5, half steps) and optional comment on a pin
// @Tags reviews
// @Accept json
// @Produce json
// @Param request body object{rating=number,description=string} true "Review"
// @Success 201 {object} models.Review
// @Failure 400 {object} models.ErrorResponse
// @Router /pins/{id}/reviews [post]
func (s *Server) CreateReview(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}
	pinID, err := s.parsePinID(c)
	if err != nil {
		return nil
	}

	var req struct {
		Rating      float64 `json:"rating"`
		Description string  `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	review, err := s.reviewService.AddReview(c.Context(), service.AddReviewInput{
		User:        user,
		PinID:       pinID,
		Rating:      req.Rating,
		Description: req.Description,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	s.publishBroadcastEvent(c, notifications.EventReviewCreated, fiber.Map{
		"pin_id": pinID,
		"review": review,
	})

	return c.Status(fiber.StatusCreated).JSON(review)
}

// GetReviews handles GET /api/pins/:id/reviews
// Returns the pin's reviews newest-first plus its rating aggregate.
func (s *Server) GetReviews(c *fiber.Ctx) error {
	pinID, err := s.parsePinID(c)
	if err != nil {
		return nil
	}

	reviews, err := s.reviewService.ListReviews(c.Context(), pinID)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(reviews)
}
