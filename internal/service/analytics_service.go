package service

import (
	"context"
	"log/slog"
	"time"

	"threadpulse/internal/analytics"
	"threadpulse/internal/featureflags"
	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/observability"
	"threadpulse/internal/repository"
)

const (
	DefaultAnalyticsDays = 365
	MaxAnalyticsDays     = 365
	// MaxExplicitRangeDays bounds an explicit from/to range (three years).
	MaxExplicitRangeDays = 1096
)

// AnalyticsQuery selects the shape of an analytics snapshot.
type AnalyticsQuery struct {
	Dimension models.Dimension
	Period    models.Period
}

// refresher is the part of InsightsService the aggregator needs.
type refresher interface {
	Refresh(ctx context.Context, userID string, policy RefreshPolicy) (*RefreshResult, error)
}

// AnalyticsService builds the dashboard snapshot from stored posts.
type AnalyticsService struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	insights refresher
	creds    *CredentialResolver
	flags    *featureflags.Manager
	policy   RefreshPolicy
	now      func() time.Time
}

func NewAnalyticsService(
	users repository.UserRepository,
	posts repository.PostRepository,
	insights refresher,
	creds *CredentialResolver,
	flags *featureflags.Manager,
	policy RefreshPolicy,
) *AnalyticsService {
	return &AnalyticsService{
		users:    users,
		posts:    posts,
		insights: insights,
		creds:    creds,
		flags:    flags,
		policy:   policy,
		now:      time.Now,
	}
}

// NormalizeQuery applies defaults and validates q.
func NormalizeQuery(q AnalyticsQuery) (AnalyticsQuery, error) {
	if q.Dimension == "" {
		q.Dimension = models.DimensionWeek
	}
	if !q.Dimension.Valid() {
		return q, models.NewValidationError("dimension must be one of day, week, month")
	}

	p := q.Period
	switch {
	case p.From != nil || p.To != nil:
		if p.From == nil || p.To == nil {
			return q, models.NewValidationError("from and to must be given together")
		}
		if p.From.After(*p.To) {
			return q, models.NewValidationError("from must not be after to")
		}
		if p.To.Sub(*p.From) > MaxExplicitRangeDays*24*time.Hour {
			return q, models.NewValidationError("range must not exceed 1096 days")
		}
		// An explicit range takes precedence over days.
		q.Period.Days = 0
	case p.Days == 0:
		q.Period.Days = DefaultAnalyticsDays
	case p.Days < 1 || p.Days > MaxAnalyticsDays:
		return q, models.NewValidationError("days must be between 1 and 365")
	}
	return q, nil
}

// GetAnalytics validates the query, opportunistically refreshes a few stale
// posts, then aggregates every stored post of the user. Only the engagement
// series is limited to the requested period.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, userID string, q AnalyticsQuery) (*models.AnalyticsSnapshot, error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.GetTraceLayer().TraceAPIToServiceCall(ctx, "AnalyticsService", "GetAnalytics")
	defer span.End()

	user, err := s.users.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.refreshOpportunistically(ctx, user)

	posts, err := s.posts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	from, to := analytics.ResolveRange(q.Period, s.now())
	ranged, err := s.posts.ListByUserInRange(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	return &models.AnalyticsSnapshot{
		Overview:         analytics.Summarize(posts),
		TopPosts:         analytics.TopPosts(posts, analytics.DefaultTopPosts),
		EngagementSeries: analytics.BuildSeries(ranged, from, to, q.Dimension),
		Dimension:        q.Dimension,
		From:             from,
		To:               to,
	}, nil
}

// refreshOpportunistically never fails the read; errors are only logged.
func (s *AnalyticsService) refreshOpportunistically(ctx context.Context, user *models.User) {
	if s.insights == nil || !s.flags.Enabled(featureflags.OpportunisticInsights, user.ID) {
		return
	}
	if _, ok := s.creds.Resolve(user); !ok {
		return
	}
	if _, err := s.insights.Refresh(ctx, user.ID, s.policy); err != nil {
		middleware.Logger.WarnContext(ctx, "opportunistic insights refresh failed",
			slog.String("error", err.Error()),
		)
	}
}
