package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetAnalytics handles GET /api/analytics
// @Summary Engagement analytics
// @Description Totals, top posts and a zero-filled engagement series
// @Tags analytics
// @Produce json
// @Param dimension query string false "day, week (default) or month"
// @Param days query int false "Last N days (1-365, default 365)"
// @Param from query string false "Range start, RFC 3339 or YYYY-MM-DD"
// @Param to query string false "Range end, RFC 3339 or YYYY-MM-DD"
// @Success 200 {object} models.AnalyticsSnapshot
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /analytics [get]
func (s *Server) GetAnalytics(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	q, err := parseAnalyticsQuery(c)
	if err != nil {
		return respondError(c, err)
	}

	snapshot, err := s.analyticsService.GetAnalytics(c.UserContext(), userID, q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snapshot)
}

// GetFeatureFlags handles GET /api/feature-flags and reports the flags as
// evaluated for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}
	return c.JSON(fiber.Map{"flags": s.featureFlags.Snapshot(userID)})
}
