package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"threadpulse/internal/cache"
	"threadpulse/internal/models"
	"threadpulse/internal/notifications"
	"threadpulse/internal/threads"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_Connect_Validation(t *testing.T) {
	t.Parallel()

	api := noopAPI()
	api.getProfileFn = func(_ context.Context, _, _ string) (*threads.Profile, error) {
		t.Fatal("invalid tokens never reach the API")
		return nil, nil
	}
	svc := NewAccountService(userRepoWith(&models.User{ID: "u1"}), noopPostRepo(), api, prodCreds(), cache.NewStore(nil), nil)

	for _, token := range []string{"", "   ", "abc def", strings.Repeat("x", 5000)} {
		_, err := svc.Connect(context.Background(), "u1", token)
		assertValidationError(t, err)
	}
}

func TestAccountService_Connect(t *testing.T) {
	t.Parallel()

	api := noopAPI()
	api.getProfileFn = func(_ context.Context, token, userRef string) (*threads.Profile, error) {
		assert.Equal(t, "good-token", token)
		assert.Equal(t, "me", userRef)
		return &threads.Profile{ID: "t_42", Username: "alice", ProfilePictureURL: "https://cdn/a.jpg"}, nil
	}

	var (
		storedToken   string
		storedProfile models.ThreadsProfile
	)
	users := userRepoWith(&models.User{ID: "u1"})
	users.connectFn = func(_ context.Context, id, token string, p models.ThreadsProfile) error {
		assert.Equal(t, "u1", id)
		storedToken, storedProfile = token, p
		return nil
	}

	mr, store := newRedisStore(t)
	require.NoError(t, mr.Set(cache.ConnectionStatusKey("u1"), `{"connected":false}`))
	events := &recordingPublisher{}
	svc := NewAccountService(users, noopPostRepo(), api, prodCreds(), store, events)

	profile, err := svc.Connect(context.Background(), "u1", "  good-token ")
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "good-token", storedToken)
	assert.Equal(t, models.ThreadsProfile{ThreadsUserID: "t_42", Username: "alice", AvatarURL: "https://cdn/a.jpg"}, storedProfile)
	assert.False(t, mr.Exists(cache.ConnectionStatusKey("u1")), "status cache is invalidated")
	assert.Equal(t, []string{notifications.EventAccountConnected}, events.types())
}

func TestAccountService_Connect_UpstreamErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "oauth code", err: &threads.APIError{StatusCode: 400, Code: 190, Message: "Invalid OAuth access token"}, wantCode: models.CodeUnauthorized},
		{name: "http 401", err: &threads.APIError{StatusCode: 401, Message: "unauthorized"}, wantCode: models.CodeUnauthorized},
		{name: "rate limited", err: &threads.APIError{StatusCode: 429, Message: "slow down"}, wantCode: models.CodeUpstream},
		{name: "transport", err: errors.New("connection refused"), wantCode: models.CodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			api := noopAPI()
			api.getProfileFn = func(_ context.Context, _, _ string) (*threads.Profile, error) { return nil, tt.err }
			users := userRepoWith(&models.User{ID: "u1"})
			users.connectFn = func(_ context.Context, _, _ string, _ models.ThreadsProfile) error {
				t.Fatal("a rejected token is not stored")
				return nil
			}
			svc := NewAccountService(users, noopPostRepo(), api, prodCreds(), cache.NewStore(nil), nil)

			_, err := svc.Connect(context.Background(), "u1", "token")
			assertCode(t, err, tt.wantCode)
		})
	}
}

func TestAccountService_Connect_AccountTaken(t *testing.T) {
	t.Parallel()

	users := userRepoWith(&models.User{ID: "u2"})
	users.connectFn = func(_ context.Context, _, _ string, _ models.ThreadsProfile) error {
		return models.NewConflictError("This Threads account is already connected to another user")
	}
	svc := NewAccountService(users, noopPostRepo(), noopAPI(), prodCreds(), cache.NewStore(nil), nil)

	_, err := svc.Connect(context.Background(), "u2", "token")
	assertCode(t, err, models.CodeConflict)
}

func TestAccountService_Status(t *testing.T) {
	t.Parallel()

	mr, store := newRedisStore(t)
	lookups := 0
	user := connectedUser("u1")
	user.ThreadsUsername = strPtr("alice")
	users := userRepoWith(user)
	users.ensureFn = func(_ context.Context, _ string) (*models.User, error) {
		lookups++
		return user, nil
	}
	svc := NewAccountService(users, noopPostRepo(), noopAPI(), prodCreds(), store, nil)
	ctx := context.Background()

	status, err := svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "alice", status.Username)

	_, err = svc.Status(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, lookups, "second read is served from cache")
	assert.True(t, mr.Exists(cache.ConnectionStatusKey("u1")))

	require.NoError(t, svc.Disconnect(ctx, "u1"))
	assert.False(t, mr.Exists(cache.ConnectionStatusKey("u1")))
}

func TestAccountService_Status_DevFallback(t *testing.T) {
	t.Parallel()

	user := &models.User{ID: "u1"}
	for _, tc := range []struct {
		creds *CredentialResolver
		want  bool
	}{
		{creds: devCreds("dev-token"), want: true},
		{creds: devCreds(""), want: false},
		{creds: prodCreds(), want: false},
	} {
		svc := NewAccountService(userRepoWith(user), noopPostRepo(), noopAPI(), tc.creds, cache.NewStore(nil), nil)
		status, err := svc.Status(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, tc.want, status.Connected)
	}
}

func TestAccountService_RefreshProfile(t *testing.T) {
	t.Parallel()

	t.Run("not connected", func(t *testing.T) {
		svc := NewAccountService(userRepoWith(&models.User{ID: "u1"}), noopPostRepo(), noopAPI(), prodCreds(), cache.NewStore(nil), nil)
		_, err := svc.RefreshProfile(context.Background(), "u1")
		assertUnauthorizedError(t, err)
	})

	t.Run("stores profile", func(t *testing.T) {
		api := noopAPI()
		api.getProfileFn = func(_ context.Context, _, userRef string) (*threads.Profile, error) {
			assert.Equal(t, "t_u1", userRef)
			return &threads.Profile{ID: "t_u1", Username: "renamed"}, nil
		}
		var got models.ThreadsProfile
		users := userRepoWith(connectedUser("u1"))
		users.updateProfileFn = func(_ context.Context, _ string, p models.ThreadsProfile) error {
			got = p
			return nil
		}
		svc := NewAccountService(users, noopPostRepo(), api, prodCreds(), cache.NewStore(nil), nil)

		_, err := svc.RefreshProfile(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Username)
	})
}

func TestAccountService_HandleDeauthorize(t *testing.T) {
	t.Parallel()

	var seen []string
	users := userRepoWith(nil)
	users.disconnectByThreadFn = func(_ context.Context, threadsUserID string) ([]string, error) {
		seen = append(seen, threadsUserID)
		if threadsUserID == "t_1" {
			return []string{"u1"}, nil
		}
		return nil, nil
	}
	mr, store := newRedisStore(t)
	require.NoError(t, mr.Set(cache.ConnectionStatusKey("u1"), `{"connected":true}`))
	events := &recordingPublisher{}
	svc := NewAccountService(users, noopPostRepo(), noopAPI(), prodCreds(), store, events)

	payload := DeauthorizePayload{
		Object: "threads",
		Entry: []DeauthorizeEntry{{
			ID: "app",
			Changes: []DeauthorizeChange{
				{Field: "deauthorize"},
				{Field: "mentions"},
				{Field: "deauthorize"},
			},
		}},
	}
	payload.Entry[0].Changes[0].Value.UserID = "t_1"
	payload.Entry[0].Changes[1].Value.UserID = "t_9"
	payload.Entry[0].Changes[2].Value.UserID = "t_unknown"

	affected, err := svc.HandleDeauthorize(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)
	assert.Equal(t, []string{"t_1", "t_unknown"}, seen)
	assert.False(t, mr.Exists(cache.ConnectionStatusKey("u1")))
	assert.Equal(t, []string{notifications.EventAccountRemoved}, events.types())

	affected, err = svc.HandleDeauthorize(context.Background(), DeauthorizePayload{Object: "instagram", Entry: payload.Entry})
	require.NoError(t, err)
	assert.Zero(t, affected)
}

func TestAccountService_Profile(t *testing.T) {
	t.Parallel()

	posts := noopPostRepo()
	posts.countByUserFn = func(_ context.Context, _ string) (int64, error) { return 12, nil }
	svc := NewAccountService(userRepoWith(&models.User{ID: "u1"}), posts, noopAPI(), prodCreds(), cache.NewStore(nil), nil)

	profile, err := svc.Profile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.User.ID)
	assert.EqualValues(t, 12, profile.PostCount)
}

func TestCredentialResolver(t *testing.T) {
	t.Parallel()

	stored := connectedUser("u1")
	bare := &models.User{ID: "u2"}

	token, ok := prodCreds().Resolve(stored)
	assert.True(t, ok)
	assert.Equal(t, "user-token", token)

	token, ok = devCreds("dev-token").Resolve(stored)
	assert.True(t, ok)
	assert.Equal(t, "user-token", token, "a stored token wins over the fallback")

	_, ok = prodCreds().Resolve(bare)
	assert.False(t, ok, "fallback is never honoured in production")

	_, ok = NewCredentialResolver(CredentialConfig{Env: "", DevFallbackToken: "dev-token"}).Resolve(bare)
	assert.False(t, ok, "an unset environment is not development")

	token, ok = NewCredentialResolver(CredentialConfig{Env: " Development ", DevFallbackToken: "dev-token"}).Resolve(bare)
	assert.True(t, ok)
	assert.Equal(t, "dev-token", token)

	_, ok = devCreds("").Resolve(bare)
	assert.False(t, ok)
}
