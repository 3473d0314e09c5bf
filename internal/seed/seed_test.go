package seed

import (
	"context"
	"testing"

	"lokal/internal/models"
	"lokal/internal/repository"
	"lokal/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestSeeder(t *testing.T, opts Options) *Seeder {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewSeeder(db, store.New(rdb), opts)
}

func TestFactoryBuildUser(t *testing.T) {
	f := NewFactory(42)

	seen := map[string]bool{}
	for i := 1; i <= 10; i++ {
		u := f.BuildUser(i)
		assert.NotEmpty(t, u.Username)
		assert.NotEmpty(t, u.Email)
		assert.NotEmpty(t, u.DisplayName)
		assert.False(t, seen[u.Username], "usernames must not repeat")
		seen[u.Username] = true
	}
}

func TestFactoryBuildPinRecord(t *testing.T) {
	f := NewFactory(42)
	author := &models.User{ID: 7, Username: "juan"}

	for i := 0; i < 25; i++ {
		rec := f.BuildPinRecord(author)
		assert.NotEmpty(t, rec.Title)
		assert.True(t, models.ValidCategory(rec.Category), rec.Category)
		assert.GreaterOrEqual(t, rec.Lat, -90.0)
		assert.LessOrEqual(t, rec.Lat, 90.0)
		assert.GreaterOrEqual(t, rec.Lng, -180.0)
		assert.LessOrEqual(t, rec.Lng, 180.0)
		assert.Equal(t, "7", rec.Author.UID)
		assert.NotNil(t, rec.Images)
		assert.Greater(t, rec.CreatedAt, int64(0))
	}
}

func TestFactoryBuildReviewRecord(t *testing.T) {
	f := NewFactory(42)
	user := &models.User{ID: 3, Username: "maria"}

	for i := 0; i < 25; i++ {
		rec := f.BuildReviewRecord(user)
		assert.True(t, models.ValidRating(rec.Rating), rec.Rating)
		assert.Equal(t, "3", rec.UserID)
		assert.NotEmpty(t, rec.Description)
	}
}

func TestSeederRun(t *testing.T) {
	s := newTestSeeder(t, Options{NumUsers: 4, NumPins: 6, MaxReviews: 2, MaxHearts: 3, RandSeed: 42})
	ctx := context.Background()

	require.NoError(t, s.Run(ctx))

	var userCount int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(4), userCount)

	pinRepo := repository.NewPinRepository(s.store)
	pins, err := pinRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, 6)

	// Heart counters must agree with the per-user markers.
	for _, p := range pins {
		count, err := s.hearts.Count(ctx, p.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(0))
		assert.Equal(t, count, p.Hearts)
	}
}

func TestSeederClearAll(t *testing.T) {
	s := newTestSeeder(t, Options{NumUsers: 2, NumPins: 3, RandSeed: 42})
	ctx := context.Background()

	require.NoError(t, s.Run(ctx))
	require.NoError(t, s.ClearAll(ctx))

	var userCount int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&userCount).Error)
	assert.Equal(t, int64(0), userCount)

	pins, err := s.store.Children(ctx, repository.PinsPath)
	require.NoError(t, err)
	assert.Empty(t, pins)
}

func TestDefaultPreset(t *testing.T) {
	p, err := DefaultPreset()
	require.NoError(t, err)
	assert.NotEmpty(t, p.Name)
	assert.NotEmpty(t, p.Spots)
}

func TestParsePresetRejectsBadInput(t *testing.T) {
	_, err := ParsePreset([]byte("name: empty\nspots: []\n"))
	assert.Error(t, err)

	_, err = ParsePreset([]byte(`
name: bad-category
spots:
  - title: Somewhere
    category: Mall
    lat: 14.0
    lng: 121.0
`))
	assert.Error(t, err)

	_, err = ParsePreset([]byte(`
name: bad-coords
spots:
  - title: Somewhere
    category: Food Trip
    lat: 140.0
    lng: 121.0
`))
	assert.Error(t, err)
}

func TestApplyPreset(t *testing.T) {
	s := newTestSeeder(t, Options{RandSeed: 42})
	ctx := context.Background()

	author := &models.User{ID: 1, Username: "admin"}
	p, err := DefaultPreset()
	require.NoError(t, err)

	ids, err := s.ApplyPreset(ctx, p, author)
	require.NoError(t, err)
	assert.Len(t, ids, len(p.Spots))

	pinRepo := repository.NewPinRepository(s.store)
	pins, err := pinRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, len(p.Spots))
	for _, pin := range pins {
		assert.Equal(t, "1", pin.Author.UID)
		assert.Equal(t, int64(0), pin.Hearts)
	}
}
