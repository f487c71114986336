// Command seed fills the database with demo Threads posts for one user.
package main

import (
	"context"
	"flag"
	"log"

	"threadpulse/internal/config"
	"threadpulse/internal/database"
	"threadpulse/internal/seed"
)

func main() {
	userID := flag.String("user", "dev-user", "Dashboard user id (auth subject) to seed")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	maxDays := flag.Int("days", 180, "Spread posts over the last N days")
	shouldClean := flag.Bool("clean", true, "Delete the user's posts before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed (0 = time based)")
	flag.Parse()

	log.Printf("Seeding %d posts over %d days for %q (clean=%v)", *numPosts, *maxDays, *userID, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.NewSeeder(db).Run(context.Background(), seed.Options{
		UserID:   *userID,
		NumPosts: *numPosts,
		MaxDays:  *maxDays,
		Clean:    *shouldClean,
		Seed:     *randSeed,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: removed %d, created %d posts for %s", res.Deleted, res.Created, res.UserID)
}
