package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"threadpulse/internal/middleware"
	"threadpulse/internal/models"
	"threadpulse/internal/repository"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	UserID   string
	NumPosts int
	MaxDays  int
	Clean    bool
	// Seed makes the generated data reproducible. Zero uses the clock.
	Seed int64
}

// Result summarizes a seeding run.
type Result struct {
	UserID  string
	Deleted int64
	Created int
}

// Seeder writes demo posts through the repositories.
type Seeder struct {
	db    *gorm.DB
	users repository.UserRepository
	posts repository.PostRepository
	now   func() time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:    db,
		users: repository.NewUserRepository(db),
		posts: repository.NewPostRepository(db),
		now:   time.Now,
	}
}

// Run ensures the user exists, optionally removes their posts and inserts
// NumPosts synced posts spread over the last MaxDays days.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		return nil, errors.New("seed: user id is required")
	}
	if opts.NumPosts < 0 {
		return nil, fmt.Errorf("seed: invalid post count %d", opts.NumPosts)
	}

	if _, err := s.users.EnsureUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}

	res := &Result{UserID: userID}
	if opts.Clean {
		tx := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Post{})
		if tx.Error != nil {
			return nil, fmt.Errorf("clean posts: %w", tx.Error)
		}
		res.Deleted = tx.RowsAffected
	}

	f := NewFactory(opts.Seed, opts.MaxDays, s.now())

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ThreadsUsername == nil {
		profile := f.BuildProfile()
		// Leave the external id unset so a real connect is not blocked.
		profile.ThreadsUserID = ""
		if err := s.users.UpdateThreadsProfile(ctx, userID, profile); err != nil {
			return nil, fmt.Errorf("set profile: %w", err)
		}
	}

	for i := 0; i < opts.NumPosts; i++ {
		if err := s.posts.UpsertByThreadsID(ctx, f.BuildPost(userID)); err != nil {
			return res, fmt.Errorf("insert post %d: %w", i+1, err)
		}
		res.Created++
	}

	middleware.Logger.Info("seed complete",
		slog.String("user_id", userID),
		slog.Int64("deleted", res.Deleted),
		slog.Int("created", res.Created),
	)
	return res, nil
}
