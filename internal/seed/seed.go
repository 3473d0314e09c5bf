package seed

import (
	"context"
	"fmt"
	"log"

	"lokal/internal/models"
	"lokal/internal/repository"
	"lokal/internal/store"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers   int
	NumPins    int
	MaxReviews int // per pin
	MaxHearts  int // per pin
	// RandSeed fixes the generator for reproducible runs; 0 randomizes.
	RandSeed int64
}

// Seeder writes demo data: accounts through Gorm, pins, hearts, and reviews
// through the realtime store.
type Seeder struct {
	db      *gorm.DB
	store   *store.Store
	hearts  repository.HeartRepository
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder over the database and realtime store.
func NewSeeder(db *gorm.DB, st *store.Store, opts Options) *Seeder {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 20
	}
	if opts.NumPins <= 0 {
		opts.NumPins = 60
	}
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = 4
	}
	if opts.MaxHearts <= 0 {
		opts.MaxHearts = 8
	}
	return &Seeder{
		db:      db,
		store:   st,
		hearts:  repository.NewHeartRepository(st),
		factory: NewFactory(opts.RandSeed),
		opts:    opts,
	}
}

// ClearAll wipes seeded users and the whole realtime tree.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Unscoped().Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("clear users: %w", err)
	}

	pins, err := s.store.Children(ctx, repository.PinsPath)
	if err != nil {
		return err
	}
	for id := range pins {
		if err := s.store.Delete(ctx, repository.PinPath(id)); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, repository.ReviewsForPinPath(id)); err != nil {
			return err
		}
	}
	users, err := s.store.Children(ctx, repository.UserHeartsPath)
	if err != nil {
		return err
	}
	for uid := range users {
		if err := s.store.Delete(ctx, repository.UserHeartsPath+"/"+uid); err != nil {
			return err
		}
	}
	return nil
}

// Run seeds users, pins, hearts, and reviews according to Options.
func (s *Seeder) Run(ctx context.Context) error {
	users, err := s.SeedUsers(ctx, s.opts.NumUsers)
	if err != nil {
		return err
	}
	pinIDs, err := s.SeedPins(ctx, users, s.opts.NumPins)
	if err != nil {
		return err
	}
	return s.SeedEngagement(ctx, users, pinIDs)
}

// SeedUsers creates n accounts, all sharing the demo password.
func (s *Seeder) SeedUsers(ctx context.Context, n int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		u := s.factory.BuildUser(i + 1)
		u.Password = string(hashed)
		if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
			return nil, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		users = append(users, *u)
	}
	log.Printf("seeded %d users (password: %s)", len(users), password)
	return users, nil
}

// SeedPins drops n pins authored by random users. Records are written
// directly so the factory's spread-out timestamps survive.
func (s *Seeder) SeedPins(ctx context.Context, users []models.User, n int) ([]string, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("seed pins: no users")
	}
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		rec := s.factory.BuildPinRecord(&author)
		id, err := s.store.Push(ctx, repository.PinsPath, rec)
		if err != nil {
			return nil, fmt.Errorf("seed pin %q: %w", rec.Title, err)
		}
		if err := s.store.Set(ctx, repository.HeartsPath(id), 0); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	log.Printf("seeded %d pins", len(ids))
	return ids, nil
}

// SeedEngagement scatters hearts and reviews across the seeded pins.
func (s *Seeder) SeedEngagement(ctx context.Context, users []models.User, pinIDs []string) error {
	var hearts, reviews int
	for _, pinID := range pinIDs {
		for _, u := range pickUsers(s.factory.rng.Intn(s.opts.MaxHearts+1), users, s.factory) {
			liked, _, err := s.hearts.Toggle(ctx, u.UID(), pinID)
			if err != nil {
				return fmt.Errorf("seed heart on %s: %w", pinID, err)
			}
			if liked {
				hearts++
			}
		}
		for _, u := range pickUsers(s.factory.rng.Intn(s.opts.MaxReviews+1), users, s.factory) {
			rec := s.factory.BuildReviewRecord(&u)
			if _, err := s.store.Push(ctx, repository.ReviewsForPinPath(pinID), rec); err != nil {
				return fmt.Errorf("seed review on %s: %w", pinID, err)
			}
			reviews++
		}
	}
	log.Printf("seeded %d hearts, %d reviews", hearts, reviews)
	return nil
}

// pickUsers selects up to n distinct users.
func pickUsers(n int, users []models.User, f *Factory) []models.User {
	if n > len(users) {
		n = len(users)
	}
	perm := f.rng.Perm(len(users))
	out := make([]models.User, 0, n)
	for _, idx := range perm[:n] {
		out = append(out, users[idx])
	}
	return out
}
