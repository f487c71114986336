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

// RefreshPolicy selects which posts get their insights refetched and how
// fast.
type RefreshPolicy struct {
	// Name labels metrics and logs.
	Name       string
	Limit      int
	BatchSize  int
	BatchDelay time.Duration
	// StaleAfter keeps only posts not refreshed for this long; 0 keeps all.
	StaleAfter time.Duration
	// MaxAge keeps only posts published within this window; 0 keeps all.
	MaxAge time.Duration
}

// InsightsConfig holds the tunables both refresh policies are built from.
type InsightsConfig struct {
	ManualLimit        int
	BatchSize          int
	BatchDelay         time.Duration
	OpportunisticLimit int
	StaleAfter         time.Duration
	MaxAge             time.Duration
}

const manualMaxAge = 365 * 24 * time.Hour

// ManualPolicy is used for an explicit refresh: up to 50 posts of the last
// year in batches of 10, 500ms apart by default.
func (c InsightsConfig) ManualPolicy() RefreshPolicy {
	return RefreshPolicy{
		Name:       "manual",
		Limit:      orDefault(c.ManualLimit, 50),
		BatchSize:  orDefault(c.BatchSize, 10),
		BatchDelay: c.BatchDelay,
		MaxAge:     manualMaxAge,
	}
}

// OpportunisticPolicy runs before an analytics read: a handful of posts not
// refreshed for a day, in one batch.
func (c InsightsConfig) OpportunisticPolicy() RefreshPolicy {
	limit := orDefault(c.OpportunisticLimit, 5)
	stale := c.StaleAfter
	if stale <= 0 {
		stale = 24 * time.Hour
	}
	maxAge := c.MaxAge
	if maxAge <= 0 {
		maxAge = 30 * 24 * time.Hour
	}
	return RefreshPolicy{
		Name:       "opportunistic",
		Limit:      limit,
		BatchSize:  limit,
		StaleAfter: stale,
		MaxAge:     maxAge,
	}
}

// RefreshResult summarizes one refresh.
type RefreshResult struct {
	UpdatedCount      int    `json:"updated_count"`
	PermanentlyFailed int    `json:"permanently_failed"`
	TransientFailures int    `json:"transient_failures"`
	Message           string `json:"message"`
}

type fetchOutcome int

const (
	outcomeUpdated fetchOutcome = iota
	outcomePermanent
	outcomeTransient
)

// InsightsService refetches per-post metrics from Threads.
type InsightsService struct {
	users  repository.UserRepository
	posts  repository.PostRepository
	api    threads.API
	creds  *CredentialResolver
	store  *cache.Store
	events notifications.Publisher
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewInsightsService(
	users repository.UserRepository,
	posts repository.PostRepository,
	api threads.API,
	creds *CredentialResolver,
	store *cache.Store,
	events notifications.Publisher,
) *InsightsService {
	return &InsightsService{
		users:  users,
		posts:  posts,
		api:    api,
		creds:  creds,
		store:  store,
		events: events,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Refresh fetches insights for the posts policy selects. Each batch is fetched
// concurrently and fully settles before the next one starts. Permanent
// failures latch the post; transient ones are dropped.
func (s *InsightsService) Refresh(ctx context.Context, userID string, policy RefreshPolicy) (*RefreshResult, error) {
	ctx, span := observability.GetTraceLayer().TraceAPIToServiceCall(ctx, "InsightsService", "Refresh."+policy.Name)
	defer span.End()

	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	token, ok := s.creds.Resolve(user)
	if !ok {
		return nil, errNotConnected()
	}

	lock, err := s.store.Acquire(ctx, cache.InsightsLockKey(userID), cache.InsightsLockTTL)
	if errors.Is(err, cache.ErrLockHeld) {
		return nil, models.NewConflictError("An insights refresh is already running for this account")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer lock.Release(context.WithoutCancel(ctx))

	candidates, err := s.posts.ListRefreshCandidates(ctx, userID, s.criteria(policy))
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{}
	batchSize := policy.BatchSize
	if batchSize <= 0 {
		batchSize = len(candidates)
	}
	for start := 0; start < len(candidates); start += batchSize {
		end := min(start+batchSize, len(candidates))
		for _, outcome := range s.refreshBatch(ctx, token, policy.Name, candidates[start:end]) {
			switch outcome {
			case outcomeUpdated:
				result.UpdatedCount++
			case outcomePermanent:
				result.PermanentlyFailed++
			default:
				result.TransientFailures++
			}
		}

		if end < len(candidates) && policy.BatchDelay > 0 {
			if err := s.sleep(ctx, policy.BatchDelay); err != nil {
				return nil, err
			}
		}
	}

	result.Message = refreshMessage(result.UpdatedCount)
	middleware.Logger.InfoContext(ctx, "insights refresh finished",
		slog.String("policy", policy.Name),
		slog.Int("candidates", len(candidates)),
		slog.Int("updated", result.UpdatedCount),
		slog.Int("permanent_failures", result.PermanentlyFailed),
		slog.Int("transient_failures", result.TransientFailures),
	)
	if result.UpdatedCount > 0 {
		publish(ctx, s.events, userID, notifications.EventInsightsRefreshed, map[string]any{
			"policy":        policy.Name,
			"updated_count": result.UpdatedCount,
		})
	}
	return result, nil
}

func (s *InsightsService) criteria(policy RefreshPolicy) repository.RefreshCriteria {
	now := s.now().UTC()
	criteria := repository.RefreshCriteria{Limit: policy.Limit}
	if policy.StaleAfter > 0 {
		staleBefore := now.Add(-policy.StaleAfter)
		criteria.StaleBefore = &staleBefore
	}
	if policy.MaxAge > 0 {
		publishedAfter := now.Add(-policy.MaxAge)
		criteria.PublishedAfter = &publishedAfter
	}
	return criteria
}

// refreshBatch fetches every post of the batch concurrently and returns one
// outcome per post once all of them have settled.
func (s *InsightsService) refreshBatch(ctx context.Context, token, policyName string, batch []models.Post) []fetchOutcome {
	outcomes := make([]fetchOutcome, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = s.refreshPost(ctx, token, &batch[i])
			observability.InsightsFetches.WithLabelValues(policyName, outcomeLabel(outcomes[i])).Inc()
		}(i)
	}
	wg.Wait()

	return outcomes
}

func (s *InsightsService) refreshPost(ctx context.Context, token string, post *models.Post) fetchOutcome {
	if post.ThreadsPostID == nil || *post.ThreadsPostID == "" {
		return outcomeTransient
	}

	insights, err := s.api.GetPostInsights(ctx, token, *post.ThreadsPostID, threads.DefaultInsightMetrics)
	if err != nil {
		if threads.IsPermanentInsightsError(err) {
			if markErr := s.posts.MarkInsightsFailed(ctx, post.ID); markErr != nil {
				middleware.Logger.WarnContext(ctx, "failed to latch insights failure",
					slog.String("post_id", post.ID),
					slog.String("error", markErr.Error()),
				)
				return outcomeTransient
			}
			return outcomePermanent
		}
		middleware.Logger.DebugContext(ctx, "transient insights failure",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		return outcomeTransient
	}

	err = s.posts.UpdateMetrics(ctx, post.ID, models.MetricsUpdate{
		Views:   insights.Get("views"),
		Likes:   insights.Get("likes"),
		Replies: insights.Get("replies"),
		Reposts: insights.Get("reposts"),
		Quotes:  insights.Get("quotes"),
		At:      s.now().UTC(),
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to store insights",
			slog.String("post_id", post.ID),
			slog.String("error", err.Error()),
		)
		return outcomeTransient
	}
	return outcomeUpdated
}

func outcomeLabel(o fetchOutcome) string {
	switch o {
	case outcomeUpdated:
		return "updated"
	case outcomePermanent:
		return "permanent_failure"
	default:
		return "transient_failure"
	}
}

func refreshMessage(n int) string {
	return fmt.Sprintf("Successfully updated insights for %d posts", n)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
