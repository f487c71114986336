// Package bootstrap wires the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"threadpulse/internal/cache"
	"threadpulse/internal/config"
	"threadpulse/internal/database"
	"threadpulse/internal/models"
	"threadpulse/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// demoPostCount is how many posts a fresh development user receives.
const demoPostCount = 60

// InitRuntime connects to DB and Redis and, in development, seeds demo data
// for DEV_SEED_USER_ID.
func InitRuntime(cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := ensureDevSeed(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to seed development data: %w", err)
	}

	return db, r, nil
}

// ensureDevSeed only seeds when the configured user has no posts, so restarts
// keep whatever a previous run or a real sync stored.
func ensureDevSeed(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil || !cfg.IsDevelopment() || cfg.DevSeedUserID == "" {
		return nil
	}

	var count int64
	if err := db.WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ?", cfg.DevSeedUserID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	res, err := seed.NewSeeder(db).Run(ctx, seed.Options{
		UserID:   cfg.DevSeedUserID,
		NumPosts: demoPostCount,
		MaxDays:  120,
	})
	if err != nil {
		return err
	}
	log.Printf("development demo data seeded for %s (%d posts)", res.UserID, res.Created)
	return nil
}
