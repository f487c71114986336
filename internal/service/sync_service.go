package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"threadpulse/internal/cache"
	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/notifications"
	"threadpulse/internal/observability"
	"threadpulse/internal/repository"
	"threadpulse/internal/threads"
)

const (
	DefaultSyncPageSize    = 25
	DefaultSyncMaxPosts    = 100
	DefaultRecentPostLimit = 25
	MaxRecentPostLimit     = 100
)

// SyncConfig bounds a full sync.
type SyncConfig struct {
	PageSize int
	MaxPosts int
}

// SyncResult is returned by SyncAll.
type SyncResult struct {
	SyncedCount int    `json:"synced_count"`
	Message     string `json:"message"`
}

// RecentPostsPage is one page of upstream posts in local shape.
type RecentPostsPage struct {
	Posts      []models.Post `json:"threads"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

// SyncService pulls a user's posts from Threads into the store.
type SyncService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	api    threads.API
	creds  *CredentialResolver
	store  *cache.Store
	events notifications.Publisher
	cfg    SyncConfig
	now    func() time.Time
}

func NewSyncService(
	users repository.UserRepository,
	posts repository.PostRepository,
	api threads.API,
	creds *CredentialResolver,
	store *cache.Store,
	events notifications.Publisher,
	cfg SyncConfig,
) *SyncService {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultSyncPageSize
	}
	if cfg.MaxPosts <= 0 {
		cfg.MaxPosts = DefaultSyncMaxPosts
	}
	return &SyncService{
		users:  users,
		posts:  posts,
		api:    api,
		creds:  creds,
		store:  store,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SyncAll refreshes the cached profile and upserts the user's posts page by
// page until the API runs out of pages or MaxPosts is reached. Rows written
// before a failure are kept.
func (s *SyncService) SyncAll(ctx context.Context, userID string) (*SyncResult, error) {
	ctx, span := observability.GetTraceLayer().TraceAPIToServiceCall(ctx, "SyncService", "SyncAll")
	defer span.End()

	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, ok := s.creds.Resolve(user)
	if !ok {
		return nil, errNotConnected()
	}

	lock, err := s.store.Acquire(ctx, cache.SyncLockKey(userID), cache.SyncLockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, models.NewConflictError("A sync is already running for this account")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer lock.Release(context.WithoutCancel(ctx))

	publish(ctx, s.events, userID, notifications.EventSyncStarted, nil)

	synced, err := s.syncPages(ctx, user, token)
	if err != nil {
		observability.SyncRuns.WithLabelValues("failed").Inc()
		observability.RecordErrorInContext(ctx, err)
		publish(ctx, s.events, userID, notifications.EventSyncFailed, map[string]any{"synced_count": synced})
		middleware.Logger.WarnContext(ctx, "threads sync failed",
			slog.Int("synced", synced),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	s.store.Invalidate(ctx, cache.ConnectionStatusKey(userID))
	observability.SyncRuns.WithLabelValues("success").Inc()
	observability.SyncedPosts.Add(float64(synced))
	publish(ctx, s.events, userID, notifications.EventSyncCompleted, map[string]any{"synced_count": synced})
	middleware.Logger.InfoContext(ctx, "threads sync completed", slog.Int("synced", synced))

	return &SyncResult{
		SyncedCount: synced,
		Message:     syncMessage(synced),
	}, nil
}

func (s *SyncService) syncPages(ctx context.Context, user *models.User, token string) (int, error) {
	profile, err := s.api.GetProfile(ctx, token, threadsUserRef(user))
	if err != nil {
		return 0, upstreamError(err, "fetch Threads profile")
	}
	if err := s.users.UpdateThreadsProfile(ctx, user.ID, linkedProfileFields(user, profile)); err != nil {
		return 0, err
	}

	ref := profile.ID
	if ref == "" {
		ref = "me"
	}

	synced := 0
	cursor := ""
	for {
		page, err := s.api.GetPosts(ctx, token, ref, s.cfg.PageSize, cursor)
		if err != nil {
			return synced, upstreamError(err, "fetch Threads posts")
		}
		if _, err := s.savePage(ctx, user.ID, page.Data); err != nil {
			return synced, err
		}
		synced += len(page.Data)

		next := page.NextCursor()
		if !page.HasMore() || next == "" || len(page.Data) == 0 || synced >= s.cfg.MaxPosts {
			return synced, nil
		}
		cursor = next
	}
}

// savePage upserts every post of a page concurrently and waits for all of
// them. The first failure, in page order, is returned.
func (s *SyncService) savePage(ctx context.Context, userID string, items []threads.Post) ([]models.Post, error) {
	now := s.now().UTC()
	local := make([]models.Post, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i := range items {
		local[i] = ToLocalPost(userID, &items[i], now)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.posts.UpsertByThreadsID(ctx, &local[i])
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return local, nil
}

// GetRecentPosts fetches one page of the user's posts from Threads, stores
// it and returns it. Limit 0 selects the default.
func (s *SyncService) GetRecentPosts(ctx context.Context, userID string, limit int, cursor string) (*RecentPostsPage, error) {
	if limit == 0 {
		limit = DefaultRecentPostLimit
	}
	if limit < 1 || limit > MaxRecentPostLimit {
		return nil, models.NewValidationError("limit must be between 1 and 100")
	}

	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, ok := s.creds.Resolve(user)
	if !ok {
		if s.creds.Development() {
			return &RecentPostsPage{Posts: []models.Post{}}, nil
		}
		return nil, errNotConnected()
	}

	page, err := s.api.GetPosts(ctx, token, threadsUserRef(user), limit, cursor)
	if err != nil {
		return nil, upstreamError(err, "fetch Threads posts")
	}
	posts, err := s.savePage(ctx, userID, page.Data)
	if err != nil {
		return nil, err
	}

	out := &RecentPostsPage{Posts: posts, HasMore: page.HasMore()}
	if out.HasMore {
		out.NextCursor = page.NextCursor()
	}
	return out, nil
}

// ToLocalPost maps an upstream post onto the stored shape. Media types other
// than IMAGE and VIDEO become TEXT, missing counters become 0 and a missing
// or unparsable timestamp becomes now.
func ToLocalPost(userID string, p *threads.Post, now time.Time) models.Post {
	threadsID := p.ID
	published, ok := p.PublishedAt()
	if !ok {
		published = now
	}
	mediaURLs := p.MediaURLs()
	if mediaURLs == nil {
		mediaURLs = []string{}
	}
	return models.Post{
		UserID:        userID,
		ThreadsPostID: &threadsID,
		Content:       p.Text,
		PostType:      mapMediaType(p.MediaType),
		MediaURLs:     mediaURLs,
		Permalink:     p.Permalink,
		Status:        models.PostStatusPublished,
		PublishedAt:   &published,
		Likes:         deref(p.LikeCount),
		Replies:       deref(p.ReplyCount),
		Reposts:       deref(p.RepostCount),
		Quotes:        deref(p.QuoteCount),
	}
}

func mapMediaType(mediaType string) models.PostType {
	switch mediaType {
	case threads.MediaTypeImage:
		return models.PostTypeImage
	case threads.MediaTypeVideo:
		return models.PostTypeVideo
	default:
		return models.PostTypeText
	}
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func profileFields(p *threads.Profile) models.ThreadsProfile {
	return models.ThreadsProfile{
		ThreadsUserID: p.ID,
		Username:      p.Username,
		AvatarURL:     p.ProfilePictureURL,
	}
}

// linkedProfileFields is profileFields for a profile fetched on the user's
// behalf. With the development fallback token the external account is shared
// by every dev user, so its id is not linked to any of them.
func linkedProfileFields(user *models.User, p *threads.Profile) models.ThreadsProfile {
	fields := profileFields(p)
	if !user.HasThreadsToken() {
		fields.ThreadsUserID = ""
	}
	return fields
}

func syncMessage(n int) string {
	return fmt.Sprintf("Successfully synced %d threads", n)
}
