package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"threadpulse/internal/analytics"
	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// currentUserID returns the authenticated subject. On failure it writes a 401
// and returns errResponseWritten.
func currentUserID(c *fiber.Ctx) (string, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return "", errResponseWritten
	}
	return userID, nil
}

// respondError renders err with the status its code maps to.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// parseAnalyticsQuery reads dimension, days, from and to. Bounds are checked
// later by service.NormalizeQuery.
func parseAnalyticsQuery(c *fiber.Ctx) (service.AnalyticsQuery, error) {
	q := service.AnalyticsQuery{
		Dimension: models.Dimension(strings.ToLower(strings.TrimSpace(c.Query("dimension")))),
	}

	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			return q, models.NewValidationError("days must be an integer")
		}
		if days == 0 {
			return q, models.NewValidationError("days must be between 1 and 365")
		}
		q.Period.Days = days
	}

	from, err := parseTimeParam(c.Query("from"), false)
	if err != nil {
		return q, models.NewValidationError("from must be RFC 3339 or YYYY-MM-DD")
	}
	to, err := parseTimeParam(c.Query("to"), true)
	if err != nil {
		return q, models.NewValidationError("to must be RFC 3339 or YYYY-MM-DD")
	}
	q.Period.From, q.Period.To = from, to
	return q, nil
}

// parseTimeParam accepts RFC 3339 or a bare date. A bare "to" date covers the
// whole day.
func parseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(analytics.DateLayout, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
