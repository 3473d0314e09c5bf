package server

import (
	"lokal/internal/models"
	"lokal/internal/notifications"
	"lokal/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreatePin handles POST /api/pins
// @Summary Create a pin
// @Description Drop a new spot recommendation on the map
// @Tags pins
// @Accept json
// @Produce json
// @Param request body object{title=string,description=string,category=string,lat=number,lng=number,images=[]string} true "Pin"
// @Success 201 {object} models.Pin
// @Failure 400 {object} models.ErrorResponse
// @Router /pins [post]
func (s *Server) CreatePin(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return nil
	}

	var req struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Category    string   `json:"category"`
		Lat         float64  `json:"lat"`
		Lng         float64  `json:"lng"`
		Images      []string `json:"images"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	pin, err := s.pinService.CreatePin(c.Context(), service.CreatePinInput{
		Author:      user,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Lat:         req.Lat,
		Lng:         req.Lng,
		Images:      req.Images,
	})
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	s.publishBroadcastEvent(c, notifications.EventPinCreated, pin)

	return c.Status(fiber.StatusCreated).JSON(pin)
}

// GetPins handles GET /api/pins
// Optional ?category= filters to a single category.
func (s *Server) GetPins(c *fiber.Ctx) error {
	category := c.Query("category")

	var (
		pins []models.Pin
		err  error
	)
	if category != "" {
		pins, err = s.pinService.ListPinsByCategory(c.Context(), category)
	} else {
		pins, err = s.pinService.ListPins(c.Context())
	}
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(pins)
}

// GetPin handles GET /api/pins/:id
func (s *Server) GetPin(c *fiber.Ctx) error {
	id, err := s.parsePinID(c)
	if err != nil {
		return nil
	}

	pin, err := s.pinService.GetPin(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(pin)
}

// GetUserPins handles GET /api/users/:id/pins
func (s *Server) GetUserPins(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	pins, err := s.pinService.ListPinsByAuthor(c.Context(), user.UID())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(pins)
}

// GetUserStats handles GET /api/users/:id/stats
func (s *Server) GetUserStats(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUserByID(c.Context(), id)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	stats, err := s.statsService.AuthorStats(c.Context(), user.UID())
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(stats)
}
