package server

import (
	"strconv"
	"strings"

	"lokal/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GeoSearch handles GET /api/geo/search?q=...
// Forward-geocodes a free-text query through Nominatim.
func (s *Server) GeoSearch(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))

	results, err := s.geocoder.Search(c.Context(), query)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}

	return c.JSON(results)
}

// GeoReverse handles GET /api/geo/reverse?lat=...&lng=...
// Reverse-geocodes a coordinate into a display name.
func (s *Server) GeoReverse(c *fiber.Ctx) error {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("lat and lng query parameters are required"))
	}

	result, err := s.geocoder.Reverse(c.Context(), lat, lng)
	if err != nil {
		return models.RespondWithError(c, mapServiceError(err), err)
	}
	if result == nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Location", c.Query("lat")+","+c.Query("lng")))
	}

	return c.JSON(result)
}
