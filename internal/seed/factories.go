// Package seed provides helpers to create demo data for the dashboard. These
// helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"threadpulse/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds synced posts with plausible engagement.
type Factory struct {
	faker   *gofakeit.Faker
	rng     *rand.Rand
	maxDays int
	now     time.Time
}

// NewFactory returns a Factory. A zero seed picks one from the clock.
func NewFactory(seed int64, maxDays int, now time.Time) *Factory {
	if seed == 0 {
		seed = now.UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		faker:   gofakeit.New(seed),
		rng:     rand.New(rand.NewSource(seed)),
		maxDays: maxDays,
		now:     now.UTC(),
	}
}

// postTypeWeights skews toward text the way real accounts do.
var postTypeWeights = []struct {
	t      models.PostType
	weight int
}{
	{models.PostTypeText, 6},
	{models.PostTypeImage, 3},
	{models.PostTypeVideo, 1},
}

// BuildPost returns an unsaved published post for userID.
func (f *Factory) BuildPost(userID string) *models.Post {
	threadsID := fmt.Sprintf("seed_%d", f.faker.Number(100000000, 999999999))

	published := f.now.
		Add(-time.Duration(f.rng.Intn(f.maxDays)) * 24 * time.Hour).
		Add(-time.Duration(f.rng.Intn(24*60)) * time.Minute)
	refreshed := published.Add(time.Duration(f.rng.Intn(48)+1) * time.Hour)
	if refreshed.After(f.now) {
		refreshed = f.now
	}

	post := &models.Post{
		UserID:            userID,
		ThreadsPostID:     &threadsID,
		Content:           f.faker.Paragraph(1, f.faker.Number(1, 3), 12, " "),
		PostType:          f.pickType(),
		Permalink:         fmt.Sprintf("https://www.threads.net/@demo/post/%s", threadsID),
		Status:            models.PostStatusPublished,
		PublishedAt:       &published,
		LastMetricsUpdate: &refreshed,
	}

	switch post.PostType {
	case models.PostTypeImage:
		post.MediaURLs = []string{fmt.Sprintf("https://picsum.photos/seed/%s/1080/1080", f.faker.UUID())}
	case models.PostTypeVideo:
		post.MediaURLs = []string{fmt.Sprintf("https://cdn.example.com/video/%s.mp4", f.faker.UUID())}
	}

	// Views drive the rest so ratios stay believable.
	views := int64(f.faker.Number(50, 20000))
	post.Views = views
	post.Likes = views * int64(f.faker.Number(1, 80)) / 1000
	post.Replies = post.Likes * int64(f.faker.Number(0, 30)) / 100
	post.Reposts = post.Likes * int64(f.faker.Number(0, 15)) / 100
	post.Quotes = post.Reposts * int64(f.faker.Number(0, 40)) / 100
	return post
}

// BuildProfile returns a fake connected-account profile.
func (f *Factory) BuildProfile() models.ThreadsProfile {
	return models.ThreadsProfile{
		ThreadsUserID: fmt.Sprintf("seed_user_%d", f.faker.Number(1000000, 9999999)),
		Username:      f.faker.Username(),
		AvatarURL:     fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
}

func (f *Factory) pickType() models.PostType {
	total := 0
	for _, w := range postTypeWeights {
		total += w.weight
	}
	n := f.rng.Intn(total)
	for _, w := range postTypeWeights {
		if n < w.weight {
			return w.t
		}
		n -= w.weight
	}
	return models.PostTypeText
}
