package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"threadpulse/internal/cache"
	"threadpulse/internal/models"
	"threadpulse/internal/repository"
	"threadpulse/internal/threads"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	upsertFn         func(context.Context, *models.Post) error
	listByUserFn     func(context.Context, string) ([]models.Post, error)
	listInRangeFn    func(context.Context, string, time.Time, time.Time) ([]models.Post, error)
	listCandidatesFn func(context.Context, string, repository.RefreshCriteria) ([]models.Post, error)
	updateMetricsFn  func(context.Context, string, models.MetricsUpdate) error
	markFailedFn     func(context.Context, string) error
	countByUserFn    func(context.Context, string) (int64, error)
	getByIDFn        func(context.Context, string, string) (*models.Post, error)
	createFn         func(context.Context, *models.Post) error
	deleteFn         func(context.Context, string, string) error
}

func (s *postRepoStub) UpsertByThreadsID(ctx context.Context, post *models.Post) error {
	return s.upsertFn(ctx, post)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	return s.listByUserFn(ctx, userID)
}
func (s *postRepoStub) ListByUserInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Post, error) {
	return s.listInRangeFn(ctx, userID, from, to)
}
func (s *postRepoStub) ListRefreshCandidates(ctx context.Context, userID string, criteria repository.RefreshCriteria) ([]models.Post, error) {
	return s.listCandidatesFn(ctx, userID, criteria)
}
func (s *postRepoStub) UpdateMetrics(ctx context.Context, postID string, update models.MetricsUpdate) error {
	return s.updateMetricsFn(ctx, postID, update)
}
func (s *postRepoStub) MarkInsightsFailed(ctx context.Context, postID string) error {
	return s.markFailedFn(ctx, postID)
}
func (s *postRepoStub) CountByUser(ctx context.Context, userID string) (int64, error) {
	return s.countByUserFn(ctx, userID)
}
func (s *postRepoStub) GetByID(ctx context.Context, userID, postID string) (*models.Post, error) {
	return s.getByIDFn(ctx, userID, postID)
}
func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, userID, postID string) error {
	return s.deleteFn(ctx, userID, postID)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		upsertFn:         func(_ context.Context, _ *models.Post) error { return nil },
		listByUserFn:     func(_ context.Context, _ string) ([]models.Post, error) { return nil, nil },
		listInRangeFn:    func(_ context.Context, _ string, _, _ time.Time) ([]models.Post, error) { return nil, nil },
		listCandidatesFn: func(_ context.Context, _ string, _ repository.RefreshCriteria) ([]models.Post, error) { return nil, nil },
		updateMetricsFn:  func(_ context.Context, _ string, _ models.MetricsUpdate) error { return nil },
		markFailedFn:     func(_ context.Context, _ string) error { return nil },
		countByUserFn:    func(_ context.Context, _ string) (int64, error) { return 0, nil },
		getByIDFn:        func(_ context.Context, _, _ string) (*models.Post, error) { return &models.Post{}, nil },
		createFn:         func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:         func(_ context.Context, _, _ string) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	ensureFn             func(context.Context, string) (*models.User, error)
	getByIDFn            func(context.Context, string) (*models.User, error)
	updateProfileFn      func(context.Context, string, models.ThreadsProfile) error
	connectFn            func(context.Context, string, string, models.ThreadsProfile) error
	disconnectFn         func(context.Context, string) error
	disconnectByThreadFn func(context.Context, string) ([]string, error)
}

func (s *userRepoStub) EnsureUser(ctx context.Context, id string) (*models.User, error) {
	return s.ensureFn(ctx, id)
}
func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) UpdateThreadsProfile(ctx context.Context, id string, profile models.ThreadsProfile) error {
	return s.updateProfileFn(ctx, id, profile)
}
func (s *userRepoStub) ConnectThreads(ctx context.Context, id, accessToken string, profile models.ThreadsProfile) error {
	return s.connectFn(ctx, id, accessToken, profile)
}
func (s *userRepoStub) DisconnectThreads(ctx context.Context, id string) error {
	return s.disconnectFn(ctx, id)
}
func (s *userRepoStub) DisconnectByThreadsUserID(ctx context.Context, threadsUserID string) ([]string, error) {
	return s.disconnectByThreadFn(ctx, threadsUserID)
}

// userRepoWith returns a stub whose EnsureUser and GetByID return user.
func userRepoWith(user *models.User) *userRepoStub {
	get := func(_ context.Context, _ string) (*models.User, error) { return user, nil }
	return &userRepoStub{
		ensureFn:             get,
		getByIDFn:            get,
		updateProfileFn:      func(_ context.Context, _ string, _ models.ThreadsProfile) error { return nil },
		connectFn:            func(_ context.Context, _, _ string, _ models.ThreadsProfile) error { return nil },
		disconnectFn:         func(_ context.Context, _ string) error { return nil },
		disconnectByThreadFn: func(_ context.Context, _ string) ([]string, error) { return nil, nil },
	}
}

func connectedUser(id string) *models.User {
	token := "user-token"
	threadsID := "t_" + id
	return &models.User{ID: id, ThreadsAccessToken: &token, ThreadsUserID: &threadsID}
}

// apiStub is a stub for threads.API.
type apiStub struct {
	getProfileFn  func(context.Context, string, string) (*threads.Profile, error)
	getPostsFn    func(context.Context, string, string, int, string) (*threads.PostsPage, error)
	getInsightsFn func(context.Context, string, string, []string) (threads.Insights, error)
}

func (s *apiStub) GetProfile(ctx context.Context, accessToken, userID string) (*threads.Profile, error) {
	return s.getProfileFn(ctx, accessToken, userID)
}
func (s *apiStub) GetPosts(ctx context.Context, accessToken, userID string, limit int, after string) (*threads.PostsPage, error) {
	return s.getPostsFn(ctx, accessToken, userID, limit, after)
}
func (s *apiStub) GetPostInsights(ctx context.Context, accessToken, postID string, metrics []string) (threads.Insights, error) {
	return s.getInsightsFn(ctx, accessToken, postID, metrics)
}

func noopAPI() *apiStub {
	return &apiStub{
		getProfileFn: func(_ context.Context, _, _ string) (*threads.Profile, error) {
			return &threads.Profile{ID: "t_1", Username: "alice"}, nil
		},
		getPostsFn: func(_ context.Context, _, _ string, _ int, _ string) (*threads.PostsPage, error) {
			return &threads.PostsPage{}, nil
		},
		getInsightsFn: func(_ context.Context, _, _ string, _ []string) (threads.Insights, error) {
			return threads.Insights{}, nil
		},
	}
}

// recordingPublisher captures published event types.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishUser(_ context.Context, _ string, eventType string, _ map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func newRedisStore(t *testing.T) (*miniredis.Miniredis, *cache.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, cache.NewStore(rdb)
}

func prodCreds() *CredentialResolver {
	return NewCredentialResolver(CredentialConfig{Env: "production", DevFallbackToken: "dev-token"})
}

func devCreds(fallback string) *CredentialResolver {
	return NewCredentialResolver(CredentialConfig{Env: "development", DevFallbackToken: fallback})
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(s string) *string { return &s }

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}
