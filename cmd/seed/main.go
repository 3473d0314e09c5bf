// Command seed populates the database and realtime store with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"lokal/internal/cache"
	"lokal/internal/config"
	"lokal/internal/database"
	"lokal/internal/seed"
	"lokal/internal/store"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPins := flag.Int("pins", 60, "Number of pins to create")
	shouldClean := flag.Bool("clean", true, "Clean database and store before seeding")
	presetPath := flag.String("preset", "", "Seed curated spots from a YAML preset file ('default' uses the built-in list)")
	randSeed := flag.Int64("seed", 0, "Random seed (0 randomizes)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()
	if rdb == nil {
		log.Fatal("Seeding requires Redis; check REDIS_URL")
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, store.New(rdb), seed.Options{
		NumUsers: *numUsers,
		NumPins:  *numPins,
		RandSeed: *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.Run(ctx); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	if *presetPath != "" {
		preset, err := loadPreset(*presetPath)
		if err != nil {
			log.Fatalf("Preset load failed: %v", err)
		}
		users, err := s.SeedUsers(ctx, 1)
		if err != nil {
			log.Fatalf("Preset author creation failed: %v", err)
		}
		if _, err := s.ApplyPreset(ctx, preset, &users[0]); err != nil {
			log.Fatalf("Preset seeding failed: %v", err)
		}
		log.Printf("applied preset %q (%d spots)", preset.Name, len(preset.Spots))
	}

	log.Println("Done. All demo users share the password: password123")
}

func loadPreset(path string) (*seed.Preset, error) {
	if path == "default" {
		return seed.DefaultPreset()
	}
	return seed.LoadPreset(path)
}
