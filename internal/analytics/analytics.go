// Package analytics turns stored posts into dashboard aggregates. Everything
// here is pure and works in UTC.
package analytics

import (
	"math"
	"sort"
	"time"

	"threadpulse/internal/models"
)

const (
	// DateLayout is the bucket key format.
	DateLayout = "2006-01-02"
	// DefaultTopPosts is the size of the top posts list.
	DefaultTopPosts = 5
)

// Summarize totals counters across posts. AverageEngagement is
// TotalEngagement / TotalPosts rounded half away from zero, and 0 with no posts.
func Summarize(posts []models.Post) models.Overview {
	var o models.Overview
	o.TotalPosts = len(posts)
	for i := range posts {
		p := &posts[i]
		o.TotalLikes += p.Likes
		o.TotalReplies += p.Replies
		o.TotalReposts += p.Reposts
		o.TotalQuotes += p.Quotes
		o.TotalViews += p.Views
	}
	o.TotalEngagement = o.TotalLikes + o.TotalReplies + o.TotalReposts + o.TotalQuotes
	if o.TotalPosts > 0 {
		o.AverageEngagement = int64(math.Round(float64(o.TotalEngagement) / float64(o.TotalPosts)))
	}
	return o
}

// TopPosts returns the n posts with the highest engagement. Ties go to the
// more recently published post, then to the smaller ID.
func TopPosts(posts []models.Post, n int) []models.TopPost {
	ranked := make([]*models.Post, len(posts))
	for i := range posts {
		ranked[i] = &posts[i]
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if ea, eb := a.Engagement(), b.Engagement(); ea != eb {
			return ea > eb
		}
		switch {
		case a.PublishedAt != nil && b.PublishedAt != nil:
			if !a.PublishedAt.Equal(*b.PublishedAt) {
				return a.PublishedAt.After(*b.PublishedAt)
			}
		case a.PublishedAt != nil:
			return true
		case b.PublishedAt != nil:
			return false
		}
		return a.ID < b.ID
	})

	if n < 0 {
		n = 0
	}
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	out := make([]models.TopPost, 0, len(ranked))
	for _, p := range ranked {
		out = append(out, models.TopPost{
			ID:          p.ID,
			Content:     p.Content,
			PostType:    p.PostType,
			Permalink:   p.Permalink,
			PublishedAt: p.PublishedAt,
			Likes:       p.Likes,
			Replies:     p.Replies,
			Reposts:     p.Reposts,
			Quotes:      p.Quotes,
			Views:       p.Views,
			Engagement:  p.Engagement(),
		})
	}
	return out
}

// ResolveRange turns a period into a concrete [from, to] range. Days N covers
// N calendar days ending today: from is midnight of today-(N-1), to is now.
// An explicit range is used as given.
func ResolveRange(period models.Period, now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	if period.From != nil && period.To != nil {
		return period.From.UTC(), period.To.UTC()
	}
	days := period.Days
	if days < 1 {
		days = 1
	}
	from := startOfDay(now).AddDate(0, 0, -(days - 1))
	return from, now
}

// BucketStart returns the start of the bucket containing t: the UTC day, the
// Monday of its ISO week, or the first of its month.
func BucketStart(t time.Time, dim models.Dimension) time.Time {
	day := startOfDay(t.UTC())
	switch dim {
	case models.DimensionWeek:
		// Sunday belongs to the week that started the previous Monday.
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case models.DimensionMonth:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

// nextBucket advances a bucket start by one bucket.
func nextBucket(start time.Time, dim models.Dimension) time.Time {
	switch dim {
	case models.DimensionWeek:
		return start.AddDate(0, 0, 7)
	case models.DimensionMonth:
		return time.Date(start.Year(), start.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// BuildSeries buckets the engagement of posts published within [from, to] and
// returns one entry per bucket from the bucket of from through the bucket of
// to, ascending, with empty buckets zero-filled.
func BuildSeries(posts []models.Post, from, to time.Time, dim models.Dimension) []models.EngagementPoint {
	from, to = from.UTC(), to.UTC()
	if to.Before(from) {
		return []models.EngagementPoint{}
	}

	buckets := make(map[string]*models.EngagementPoint)
	for i := range posts {
		p := &posts[i]
		if p.PublishedAt == nil {
			continue
		}
		at := p.PublishedAt.UTC()
		if at.Before(from) || at.After(to) {
			continue
		}
		key := BucketStart(at, dim).Format(DateLayout)
		point, ok := buckets[key]
		if !ok {
			point = &models.EngagementPoint{Date: key}
			buckets[key] = point
		}
		point.Likes += p.Likes
		point.Replies += p.Replies
		point.Reposts += p.Reposts
		point.Quotes += p.Quotes
		point.Posts++
	}

	series := []models.EngagementPoint{}
	for cursor := BucketStart(from, dim); !cursor.After(to); cursor = nextBucket(cursor, dim) {
		key := cursor.Format(DateLayout)
		if point, ok := buckets[key]; ok {
			series = append(series, *point)
			continue
		}
		series = append(series, models.EngagementPoint{Date: key})
	}
	return series
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
