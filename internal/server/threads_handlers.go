package server

import (
	"strings"

	"threadpulse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ConnectAccount handles POST /api/threads/connect
// @Summary Connect a Threads account
// @Description Verify an access token against the Threads API and store it
// @Tags threads
// @Accept json
// @Produce json
// @Param request body object{access_token=string} true "Access token"
// @Success 200 {object} object{success=bool,message=string,profile=threads.Profile}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /threads/connect [post]
func (s *Server) ConnectAccount(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	var req struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	profile, err := s.accountService.Connect(c.UserContext(), userID, req.AccessToken)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Threads account connected successfully",
		"profile": profile,
	})
}

// DisconnectAccount handles POST /api/threads/disconnect
func (s *Server) DisconnectAccount(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	if err := s.accountService.Disconnect(c.UserContext(), userID); err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Threads account disconnected",
	})
}

// ConnectionStatus handles GET /api/threads/status
// @Summary Threads connection status
// @Tags threads
// @Produce json
// @Success 200 {object} models.ConnectionStatus
// @Security BearerAuth
// @Router /threads/status [get]
func (s *Server) ConnectionStatus(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	status, err := s.accountService.Status(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// ThreadsProfile handles GET /api/threads/profile
func (s *Server) ThreadsProfile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	profile, err := s.accountService.RefreshProfile(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// RecentPosts handles GET /api/threads/posts?limit=&cursor=
// @Summary Fetch recent Threads posts
// @Description Fetch one page from Threads and store it locally
// @Tags threads
// @Produce json
// @Param limit query int false "Page size (1-100, default 25)"
// @Param cursor query string false "Opaque cursor from a previous page"
// @Success 200 {object} service.RecentPostsPage
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /threads/posts [get]
func (s *Server) RecentPosts(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit = c.QueryInt("limit", -1)
		if limit == 0 {
			limit = -1
		}
	}

	page, err := s.syncService.GetRecentPosts(c.UserContext(), userID, limit, c.Query("cursor"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// SyncAll handles POST /api/threads/sync
// @Summary Sync all posts
// @Description Pull the account's posts from Threads into local storage
// @Tags threads
// @Produce json
// @Success 200 {object} object{success=bool,message=string,synced_count=int}
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /threads/sync [post]
func (s *Server) SyncAll(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	result, err := s.syncService.SyncAll(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      result.Message,
		"synced_count": result.SyncedCount,
	})
}

// RefreshInsights handles POST /api/threads/insights/refresh
func (s *Server) RefreshInsights(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return nil
	}

	result, err := s.insightsService.Refresh(c.UserContext(), userID, s.insightsConfig.ManualPolicy())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":            true,
		"message":            result.Message,
		"updated_count":      result.UpdatedCount,
		"permanently_failed": result.PermanentlyFailed,
		"transient_failures": result.TransientFailures,
	})
}
