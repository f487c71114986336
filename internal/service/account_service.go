package service

import (
	"context"
	"log/slog"
	"strings"

	"threadpulse/internal/cache"
	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/notifications"
	"threadpulse/internal/repository"
	"threadpulse/internal/threads"
	"threadpulse/internal/validation"
)

// DeauthorizePayload is the body Threads posts when a user removes the app.
type DeauthorizePayload struct {
	Object string             `json:"object"`
	Entry  []DeauthorizeEntry `json:"entry"`
}

// DeauthorizeEntry is one entry of a deauthorize webhook.
type DeauthorizeEntry struct {
	ID      string              `json:"id"`
	Time    int64               `json:"time"`
	Changes []DeauthorizeChange `json:"changes"`
}

// DeauthorizeChange names the changed field and the affected Threads user.
type DeauthorizeChange struct {
	Field string `json:"field"`
	Value struct {
		UserID string `json:"user_id"`
	} `json:"value"`
}

// AccountService manages the link between a dashboard user and a Threads
// account.
type AccountService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	api    threads.API
	creds  *CredentialResolver
	store  *cache.Store
	events notifications.Publisher
}

func NewAccountService(
	users repository.UserRepository,
	posts repository.PostRepository,
	api threads.API,
	creds *CredentialResolver,
	store *cache.Store,
	events notifications.Publisher,
) *AccountService {
	return &AccountService{
		users:  users,
		posts:  posts,
		api:    api,
		creds:  creds,
		store:  store,
		events: events,
	}
}

// Connect verifies accessToken against the Threads API and stores it with
// the profile it belongs to.
func (s *AccountService) Connect(ctx context.Context, userID, accessToken string) (*threads.Profile, error) {
	accessToken = strings.TrimSpace(accessToken)
	if err := validation.ValidateAccessToken(accessToken); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if _, err := s.users.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}

	profile, err := s.api.GetProfile(ctx, accessToken, "me")
	if err != nil {
		return nil, upstreamError(err, "connect Threads account")
	}

	if err := s.users.ConnectThreads(ctx, userID, accessToken, profileFields(profile)); err != nil {
		return nil, err
	}
	s.store.Invalidate(ctx, cache.ConnectionStatusKey(userID))
	publish(ctx, s.events, userID, notifications.EventAccountConnected, map[string]any{"username": profile.Username})

	middleware.Logger.InfoContext(ctx, "threads account connected", slog.String("threads_user_id", profile.ID))
	return profile, nil
}

// Disconnect forgets the stored token and external user ID.
func (s *AccountService) Disconnect(ctx context.Context, userID string) error {
	if _, err := s.users.EnsureUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.DisconnectThreads(ctx, userID); err != nil {
		return err
	}
	s.store.Invalidate(ctx, cache.ConnectionStatusKey(userID))
	publish(ctx, s.events, userID, notifications.EventAccountRemoved, nil)
	return nil
}

// Status reports whether a credential resolves for the user. It is cached
// and invalidated whenever the connection changes.
func (s *AccountService) Status(ctx context.Context, userID string) (*models.ConnectionStatus, error) {
	var status models.ConnectionStatus
	err := s.store.Aside(ctx, cache.ConnectionStatusKey(userID), &status, cache.ConnectionStatusTTL, func() error {
		user, err := s.users.EnsureUser(ctx, userID)
		if err != nil {
			return err
		}
		_, connected := s.creds.Resolve(user)
		status = models.ConnectionStatus{Connected: connected}
		if user.ThreadsUsername != nil {
			status.Username = *user.ThreadsUsername
		}
		if user.ThreadsAvatarURL != nil {
			status.AvatarURL = *user.ThreadsAvatarURL
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// RefreshProfile fetches the Threads profile and caches its fields locally.
func (s *AccountService) RefreshProfile(ctx context.Context, userID string) (*threads.Profile, error) {
	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, ok := s.creds.Resolve(user)
	if !ok {
		return nil, errNotConnected()
	}

	profile, err := s.api.GetProfile(ctx, token, threadsUserRef(user))
	if err != nil {
		return nil, upstreamError(err, "fetch Threads profile")
	}
	if err := s.users.UpdateThreadsProfile(ctx, userID, linkedProfileFields(user, profile)); err != nil {
		return nil, err
	}
	s.store.Invalidate(ctx, cache.ConnectionStatusKey(userID))
	return profile, nil
}

// HandleDeauthorize clears the credentials of every user named by a
// deauthorize webhook and returns how many users were affected.
func (s *AccountService) HandleDeauthorize(ctx context.Context, payload DeauthorizePayload) (int, error) {
	if payload.Object != "threads" {
		return 0, nil
	}

	affected := 0
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			threadsUserID := strings.TrimSpace(change.Value.UserID)
			if change.Field != "deauthorize" || threadsUserID == "" {
				continue
			}
			ids, err := s.users.DisconnectByThreadsUserID(ctx, threadsUserID)
			if err != nil {
				return affected, err
			}
			for _, id := range ids {
				s.store.Invalidate(ctx, cache.ConnectionStatusKey(id))
				publish(ctx, s.events, id, notifications.EventAccountRemoved, map[string]any{"reason": "deauthorized"})
			}
			affected += len(ids)
			middleware.Logger.InfoContext(ctx, "threads user deauthorized",
				slog.String("threads_user_id", threadsUserID),
				slog.Int("users", len(ids)),
			)
		}
	}
	return affected, nil
}

// Profile returns the dashboard profile with the number of stored posts.
func (s *AccountService) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.posts.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{User: user, PostCount: count}, nil
}
