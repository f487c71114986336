package threads

import (
	"strings"
	"time"
)

// Media types reported by the Threads API.
const (
	MediaTypeText          = "TEXT_POST"
	MediaTypeImage         = "IMAGE"
	MediaTypeVideo         = "VIDEO"
	MediaTypeCarouselAlbum = "CAROUSEL_ALBUM"
)

// DefaultInsightMetrics are the per-post metrics the dashboard tracks.
var DefaultInsightMetrics = []string{"views", "likes", "replies", "reposts", "quotes"}

// Profile is the subset of the Threads user object the dashboard reads.
type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username,omitempty"`
	ProfilePictureURL string `json:"threads_profile_picture_url,omitempty"`
	Biography         string `json:"threads_biography,omitempty"`
}

// Post is a Threads media object as returned by /{user}/threads.
type Post struct {
	ID          string `json:"id"`
	Text        string `json:"text,omitempty"`
	MediaType   string `json:"media_type,omitempty"`
	MediaURL    string `json:"media_url,omitempty"`
	Permalink   string `json:"permalink,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Username    string `json:"username,omitempty"`
	LikeCount   *int64 `json:"like_count,omitempty"`
	ReplyCount  *int64 `json:"reply_count,omitempty"`
	RepostCount *int64 `json:"repost_count,omitempty"`
	QuoteCount  *int64 `json:"quote_count,omitempty"`
	Children    *struct {
		Data []Post `json:"data"`
	} `json:"children,omitempty"`
}

// timestampLayouts covers "2024-05-01T10:00:00+0000" as sent by the Graph API
// and plain RFC 3339.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
}

// PublishedAt parses Timestamp. ok is false when it is missing or malformed.
func (p *Post) PublishedAt() (time.Time, bool) {
	ts := strings.TrimSpace(p.Timestamp)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// MediaURLs returns the post's media URL plus any carousel children's.
func (p *Post) MediaURLs() []string {
	var urls []string
	if p.MediaURL != "" {
		urls = append(urls, p.MediaURL)
	}
	if p.Children != nil {
		for _, child := range p.Children.Data {
			if child.MediaURL != "" {
				urls = append(urls, child.MediaURL)
			}
		}
	}
	return urls
}

// Cursors are the opaque page markers.
type Cursors struct {
	Before string `json:"before,omitempty"`
	After  string `json:"after,omitempty"`
}

// Paging is the Graph API pagination block.
type Paging struct {
	Cursors  *Cursors `json:"cursors,omitempty"`
	Next     string   `json:"next,omitempty"`
	Previous string   `json:"previous,omitempty"`
}

// PostsPage is one page of a user's posts.
type PostsPage struct {
	Data   []Post  `json:"data"`
	Paging *Paging `json:"paging,omitempty"`
}

// NextCursor returns the "after" cursor, or "" if none was sent.
func (p *PostsPage) NextCursor() string {
	if p == nil || p.Paging == nil || p.Paging.Cursors == nil {
		return ""
	}
	return p.Paging.Cursors.After
}

// HasMore reports whether the API advertised a next page.
func (p *PostsPage) HasMore() bool {
	return p != nil && p.Paging != nil && p.Paging.Next != ""
}

type insightValue struct {
	Value int64 `json:"value"`
}

type insightMetric struct {
	Name   string         `json:"name"`
	Period string         `json:"period,omitempty"`
	Values []insightValue `json:"values"`
	// Some metrics (e.g. views on newer API versions) report a total instead of values.
	TotalValue *insightValue `json:"total_value,omitempty"`
}

type insightsResponse struct {
	Data []insightMetric `json:"data"`
}

// Insights maps metric name to its value. Absent metrics read as 0.
type Insights map[string]int64

// Get returns the metric value or 0.
func (i Insights) Get(name string) int64 {
	return i[name]
}

func (r *insightsResponse) flatten() Insights {
	out := make(Insights, len(r.Data))
	for _, m := range r.Data {
		switch {
		case len(m.Values) > 0:
			out[m.Name] = m.Values[0].Value
		case m.TotalValue != nil:
			out[m.Name] = m.TotalValue.Value
		default:
			out[m.Name] = 0
		}
	}
	return out
}

// apiErrorBody is the Graph API error envelope.
type apiErrorBody struct {
	Error *struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}
