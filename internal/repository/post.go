package repository

import (
	"context"
	"errors"
	"time"

	"threadpulse/internal/models"
	"threadpulse/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// upsertColumns are overwritten when a synced post already exists. Ownership,
// views and the insights latch are left alone.
var upsertColumns = []string{
	"content", "post_type", "media_urls", "permalink", "published_at",
	"likes", "replies", "reposts", "quotes", "updated_at",
}

// RefreshCriteria selects posts whose insights should be fetched again.
type RefreshCriteria struct {
	Limit int
	// StaleBefore keeps posts never refreshed or last refreshed before it.
	StaleBefore *time.Time
	// PublishedAfter keeps posts published at or after it.
	PublishedAfter *time.Time
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	UpsertByThreadsID(ctx context.Context, post *models.Post) error
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
	ListByUserInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Post, error)
	ListRefreshCandidates(ctx context.Context, userID string, criteria RefreshCriteria) ([]models.Post, error)
	UpdateMetrics(ctx context.Context, postID string, update models.MetricsUpdate) error
	MarkInsightsFailed(ctx context.Context, postID string) error
	CountByUser(ctx context.Context, userID string) (int64, error)
	GetByID(ctx context.Context, userID, postID string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, userID, postID string) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// UpsertByThreadsID inserts the post or updates the row with the same
// threads_post_id in one statement.
func (r *postRepository) UpsertByThreadsID(ctx context.Context, post *models.Post) error {
	if post.ThreadsPostID == nil || *post.ThreadsPostID == "" {
		return models.NewValidationError("threads post id is required for upsert")
	}
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "UpsertByThreadsID", "posts")
	defer span.End()
	defer observability.TrackQuery("upsert", "posts")()

	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "threads_post_id"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			},
			clause.Returning{},
		).
		Create(post).Error
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return models.NewInternalError(err)
	}
	return nil
}

// ListByUser returns every post of the user, newest first. Drafts sort by
// creation time.
func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	defer observability.TrackQuery("list", "posts")()

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("COALESCE(published_at, created_at) DESC").
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListByUserInRange returns posts published within [from, to], oldest first.
func (r *postRepository) ListByUserInRange(ctx context.Context, userID string, from, to time.Time) ([]models.Post, error) {
	defer observability.TrackQuery("list_range", "posts")()

	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND published_at >= ? AND published_at <= ?", userID, from.UTC(), to.UTC()).
		Order("published_at ASC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListRefreshCandidates returns synced, non-latched posts matching criteria,
// most recently published first.
func (r *postRepository) ListRefreshCandidates(ctx context.Context, userID string, criteria RefreshCriteria) ([]models.Post, error) {
	ctx, span := observability.GetTraceLayer().TraceRepositoryMethod(ctx, "ListRefreshCandidates", "posts")
	defer span.End()
	defer observability.TrackQuery("refresh_candidates", "posts")()

	if criteria.Limit <= 0 {
		return []models.Post{}, nil
	}

	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("threads_post_id IS NOT NULL AND threads_post_id <> ''").
		Where("insights_permanently_failed = ?", false)
	if criteria.StaleBefore != nil {
		q = q.Where("(last_metrics_update IS NULL OR last_metrics_update < ?)", criteria.StaleBefore.UTC())
	}
	if criteria.PublishedAfter != nil {
		q = q.Where("published_at >= ?", criteria.PublishedAfter.UTC())
	}

	var posts []models.Post
	if err := q.Order("published_at DESC").Order("id ASC").Limit(criteria.Limit).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// UpdateMetrics writes the five counters and the refresh timestamp in one UPDATE.
func (r *postRepository) UpdateMetrics(ctx context.Context, postID string, update models.MetricsUpdate) error {
	defer observability.TrackQuery("update_metrics", "posts")()

	at := update.At
	if at.IsZero() {
		at = time.Now()
	}
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Updates(map[string]any{
			"views":               update.Views,
			"likes":               update.Likes,
			"replies":             update.Replies,
			"reposts":             update.Reposts,
			"quotes":              update.Quotes,
			"last_metrics_update": at.UTC(),
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

// MarkInsightsFailed latches the post out of future refreshes.
func (r *postRepository) MarkInsightsFailed(ctx context.Context, postID string) error {
	defer observability.TrackQuery("mark_failed", "posts")()

	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Update("insights_permanently_failed", true)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}

func (r *postRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) GetByID(ctx context.Context, userID, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", postID, userID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Post already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Delete(ctx context.Context, userID, postID string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", postID, userID).Delete(&models.Post{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}
