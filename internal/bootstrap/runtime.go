// Package bootstrap establishes the runtime dependencies (database, Redis,
// realtime store) and development-only fixtures before the server starts.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lokal/internal/cache"
	"lokal/internal/config"
	"lokal/internal/database"
	"lokal/internal/models"
	"lokal/internal/repository"
	"lokal/internal/seed"
	"lokal/internal/store"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDefaultSpots writes the built-in curated spots when the map is
	// empty. Development convenience only.
	SeedDefaultSpots bool
}

// InitRuntime connects to the database and Redis and runs the configured
// development fixtures. The Redis client is never nil: the realtime store
// cannot operate without it.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()
	if r == nil {
		return nil, nil, fmt.Errorf("redis connection failed: realtime store requires redis")
	}

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedDefaultSpots {
		if err := seedDefaultSpots(db, store.New(r)); err != nil {
			return nil, nil, fmt.Errorf("failed to seed default spots: %w", err)
		}
	}

	return db, r, nil
}

// ensureDevRootAdmin guarantees user ID 1 exists as an admin in development
// when DEV_BOOTSTRAP_ROOT is set.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "lokal_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@lokal.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.First(&root, 1).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				ID:       1,
				Username: username,
				Email:    email,
				Password: string(hashedPassword),
				IsAdmin:  true,
			}
			if err := tx.Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		default:
			updates := map[string]any{"is_admin": true}
			if cfg.DevRootForceCredentials {
				updates["username"] = username
				updates["email"] = email
				updates["password"] = string(hashedPassword)
			}
			if err := tx.Model(&models.User{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
				return err
			}
		}

		// Ensure users ID sequence is not behind explicit ID insertion.
		// This is PostgreSQL-specific.
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec(`
				SELECT setval(
					pg_get_serial_sequence('users', 'id'),
					GREATEST((SELECT COALESCE(MAX(id), 1) FROM users), 1),
					true
				)
			`).Error; err != nil {
				return fmt.Errorf("failed to reset users sequence: %w", err)
			}
		}

		return nil
	}); err != nil {
		return err
	}

	log.Printf("development root admin bootstrap ensured for user ID 1 (%s)", email)
	return nil
}

// seedDefaultSpots applies the built-in preset once, when the pins tree is
// empty. The author is the root admin when present, otherwise any user.
func seedDefaultSpots(db *gorm.DB, st *store.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	existing, err := st.Children(ctx, repository.PinsPath)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	var author models.User
	if err := db.WithContext(ctx).First(&author, 1).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.WithContext(ctx).Order("id").First(&author).Error; err != nil {
				// No accounts yet; nothing to attribute the spots to.
				return nil
			}
		} else {
			return err
		}
	}

	preset, err := seed.DefaultPreset()
	if err != nil {
		return err
	}
	seeder := seed.NewSeeder(db, st, seed.Options{})
	ids, err := seeder.ApplyPreset(ctx, preset, &author)
	if err != nil {
		return err
	}
	log.Printf("seeded %d default spots from preset %q", len(ids), preset.Name)
	return nil
}
