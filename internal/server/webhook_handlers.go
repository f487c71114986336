package server

import (
	"crypto/subtle"
	"log/slog"

	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/service"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// VerifyDeauthorizeWebhook answers the subscription handshake Threads sends
// before delivering webhook events.
func (s *Server) VerifyDeauthorizeWebhook(c *fiber.Ctx) error {
	expected := s.config.ThreadsWebhookVerifyToken
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")

	if expected == "" || mode != "subscribe" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	return c.Status(fiber.StatusOK).SendString(c.Query("hub.challenge"))
}

// DeauthorizeWebhook handles POST /webhooks/threads/deauthorize
// @Summary Threads deauthorize callback
// @Description Clears stored credentials for users who removed the app
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body service.DeauthorizePayload true "Webhook payload"
// @Success 200 {object} object{success=bool,affected=int}
// @Failure 400 {object} models.ErrorResponse
// @Router /webhooks/threads/deauthorize [post]
func (s *Server) DeauthorizeWebhook(c *fiber.Ctx) error {
	var payload service.DeauthorizePayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid webhook payload"))
	}

	affected, err := s.accountService.HandleDeauthorize(c.UserContext(), payload)
	if err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "deauthorize webhook failed",
			slog.String("error", err.Error()),
		)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"success": true, "affected": affected})
}
