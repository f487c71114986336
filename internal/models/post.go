// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostType is the kind of media a post carries.
type PostType string

const (
	PostTypeText     PostType = "TEXT"
	PostTypeImage    PostType = "IMAGE"
	PostTypeVideo    PostType = "VIDEO"
	PostTypeCarousel PostType = "CAROUSEL"
	PostTypePoll     PostType = "POLL"
)

// Valid reports whether t is one of the known post types.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeText, PostTypeImage, PostTypeVideo, PostTypeCarousel, PostTypePoll:
		return true
	}
	return false
}

// PostStatus tracks whether a post exists on Threads or only locally.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "DRAFT"
	PostStatusPublished PostStatus = "PUBLISHED"
)

// Post is a locally persisted copy of a Threads post (or a local draft).
type Post struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	UserID string `gorm:"size:191;not null;index" json:"user_id"`
	// ThreadsPostID is null for drafts and unique once synced.
	ThreadsPostID *string    `gorm:"size:64;uniqueIndex" json:"threads_post_id,omitempty"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	PostType      PostType   `gorm:"size:16;not null;default:'TEXT'" json:"post_type"`
	MediaURLs     []string   `gorm:"serializer:json;type:text" json:"media_urls"`
	Permalink     string     `gorm:"type:text" json:"permalink,omitempty"`
	Status        PostStatus `gorm:"size:16;not null;default:'PUBLISHED'" json:"status"`
	PublishedAt   *time.Time `gorm:"index" json:"published_at,omitempty"`

	Likes   int64 `gorm:"not null;default:0" json:"likes"`
	Replies int64 `gorm:"not null;default:0" json:"replies"`
	Reposts int64 `gorm:"not null;default:0" json:"reposts"`
	Quotes  int64 `gorm:"not null;default:0" json:"quotes"`
	Views   int64 `gorm:"not null;default:0" json:"views"`

	LastMetricsUpdate *time.Time `json:"last_metrics_update,omitempty"`
	// InsightsPermanentlyFailed latches once the insights endpoint reports the
	// post as inaccessible for good. It is never reset.
	InsightsPermanentlyFailed bool `gorm:"not null;default:false" json:"insights_permanently_failed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not. Timestamps are stored
// in UTC so range queries compare consistently on every driver.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PublishedAt != nil {
		utc := p.PublishedAt.UTC()
		p.PublishedAt = &utc
	}
	return nil
}

// Engagement is likes + replies + reposts + quotes.
func (p *Post) Engagement() int64 {
	return p.Likes + p.Replies + p.Reposts + p.Quotes
}

// MetricsUpdate is the set of counters written by an insights refresh.
type MetricsUpdate struct {
	Views   int64
	Likes   int64
	Replies int64
	Reposts int64
	Quotes  int64
	At      time.Time
}
