package models

import "time"

// Dimension is the bucket granularity of an engagement series.
type Dimension string

const (
	DimensionDay   Dimension = "day"
	DimensionWeek  Dimension = "week"
	DimensionMonth Dimension = "month"
)

// Valid reports whether d is a supported dimension.
func (d Dimension) Valid() bool {
	return d == DimensionDay || d == DimensionWeek || d == DimensionMonth
}

// Period selects the time range of an engagement series: either the last Days
// calendar days, or an explicit From/To range.
type Period struct {
	Days int        `json:"days,omitempty"`
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// Overview aggregates counters across all of a user's posts.
type Overview struct {
	TotalPosts        int   `json:"total_posts"`
	TotalLikes        int64 `json:"total_likes"`
	TotalReplies      int64 `json:"total_replies"`
	TotalReposts      int64 `json:"total_reposts"`
	TotalQuotes       int64 `json:"total_quotes"`
	TotalViews        int64 `json:"total_views"`
	TotalShares       int64 `json:"total_shares"`
	TotalEngagement   int64 `json:"total_engagement"`
	AverageEngagement int64 `json:"average_engagement"`
}

// TopPost is a ranked entry of the top posts list.
type TopPost struct {
	ID          string     `json:"id"`
	Content     string     `json:"content"`
	PostType    PostType   `json:"post_type"`
	Permalink   string     `json:"permalink,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Likes       int64      `json:"likes"`
	Replies     int64      `json:"replies"`
	Reposts     int64      `json:"reposts"`
	Quotes      int64      `json:"quotes"`
	Views       int64      `json:"views"`
	Engagement  int64      `json:"engagement"`
}

// EngagementPoint is one bucket of the engagement series.
type EngagementPoint struct {
	Date    string `json:"date"`
	Likes   int64  `json:"likes"`
	Replies int64  `json:"replies"`
	Reposts int64  `json:"reposts"`
	Quotes  int64  `json:"quotes"`
	Posts   int    `json:"posts"`
}

// AnalyticsSnapshot is the response of an analytics query.
type AnalyticsSnapshot struct {
	Overview         Overview          `json:"overview"`
	TopPosts         []TopPost         `json:"top_posts"`
	EngagementSeries []EngagementPoint `json:"engagement_series"`
	Dimension        Dimension         `json:"dimension"`
	From             time.Time         `json:"from"`
	To               time.Time         `json:"to"`
}
