package service

import (
	"context"
	"errors"
	"log/slog"

	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/notifications"
	"threadpulse/internal/threads"
)

const (
	msgNotConnected = "Threads account not connected. Please connect your Threads account first."
	msgInvalidToken = "Invalid Threads access token. Please try connecting your account again."
)

func errNotConnected() error {
	return models.NewUnauthorizedError(msgNotConnected)
}

// upstreamError maps a Threads client failure onto the error taxonomy.
func upstreamError(err error, action string) error {
	var appErr *models.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case threads.IsUnauthorized(err):
		return models.NewUnauthorizedError(msgInvalidToken)
	default:
		return models.NewUpstreamError("Failed to "+action, err)
	}
}

// threadsUserRef is the path segment addressing the user on the Threads API.
func threadsUserRef(user *models.User) string {
	if user.ThreadsUserID != nil && *user.ThreadsUserID != "" {
		return *user.ThreadsUserID
	}
	return "me"
}

// publish emits an event; failures are logged and never surface to callers.
func publish(ctx context.Context, events notifications.Publisher, userID, eventType string, data map[string]any) {
	if events == nil {
		return
	}
	if err := events.PublishUser(ctx, userID, eventType, data); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}
