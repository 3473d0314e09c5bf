package server

import "github.com/gofiber/fiber/v2"

// GetFeatureFlags handles GET /api/feature-flags
// Returns the configured flag list plus each flag evaluated for the caller, so
// the map client can gate UI behind partial rollouts.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(uint)

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
