package seed

import (
	"context"
	"testing"
	"time"

	"threadpulse/internal/database"
	"threadpulse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func TestFactory_BuildPost(t *testing.T) {
	now := time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)
	f := NewFactory(42, 30, now)

	for i := 0; i < 50; i++ {
		p := f.BuildPost("user-1")

		require.NotNil(t, p.ThreadsPostID)
		require.NotNil(t, p.PublishedAt)
		assert.Equal(t, "user-1", p.UserID)
		assert.Equal(t, models.PostStatusPublished, p.Status)
		assert.True(t, p.PostType.Valid())
		assert.False(t, p.PublishedAt.After(now))
		assert.True(t, now.Sub(*p.PublishedAt) <= 31*24*time.Hour, "published %v", p.PublishedAt)
		assert.False(t, p.LastMetricsUpdate.After(now))
		assert.LessOrEqual(t, p.Likes, p.Views)
		assert.LessOrEqual(t, p.Quotes, p.Reposts)

		if p.PostType == models.PostTypeText {
			assert.Empty(t, p.MediaURLs)
		} else {
			assert.Len(t, p.MediaURLs, 1)
		}
	}
}

func TestFactory_SameSeedSameData(t *testing.T) {
	now := time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)
	a := NewFactory(7, 10, now).BuildPost("u")
	b := NewFactory(7, 10, now).BuildPost("u")

	assert.Equal(t, *a.ThreadsPostID, *b.ThreadsPostID)
	assert.Equal(t, a.Content, b.Content)
	assert.Equal(t, a.Views, b.Views)
}

func TestSeeder_Run(t *testing.T) {
	db := newTestDB(t)
	s := NewSeeder(db)
	ctx := context.Background()

	res, err := s.Run(ctx, Options{UserID: "demo", NumPosts: 12, MaxDays: 14, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Created)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Where("user_id = ?", "demo").Count(&count).Error)
	assert.Equal(t, int64(12), count)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", "demo").Error)
	require.NotNil(t, user.ThreadsUsername)
	assert.Nil(t, user.ThreadsUserID)
	assert.False(t, user.HasThreadsToken())

	res, err = s.Run(ctx, Options{UserID: "demo", NumPosts: 3, Clean: true, Seed: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.Deleted)
	require.NoError(t, db.Model(&models.Post{}).Where("user_id = ?", "demo").Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestSeeder_RunValidation(t *testing.T) {
	s := NewSeeder(newTestDB(t))

	_, err := s.Run(context.Background(), Options{UserID: "  "})
	assert.Error(t, err)

	_, err = s.Run(context.Background(), Options{UserID: "u", NumPosts: -1})
	assert.Error(t, err)
}
