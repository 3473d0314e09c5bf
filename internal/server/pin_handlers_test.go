package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"lokal/internal/models"
	"lokal/internal/repository"
	"lokal/internal/service"
	"lokal/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// newSpotAPIServer wires the pin, heart, and review handlers over a real
// realtime store backed by miniredis. The caller identity comes from the
// X-User-ID header (default user 1).
func newSpotAPIServer(t *testing.T) (*fiber.App, *MockUserRepository) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	st := store.New(rdb)
	pinRepo := repository.NewPinRepository(st)
	heartRepo := repository.NewHeartRepository(st)
	reviewRepo := repository.NewReviewRepository(st)
	userRepo := new(MockUserRepository)

	s := &Server{
		store:         st,
		userRepo:      userRepo,
		pinRepo:       pinRepo,
		heartRepo:     heartRepo,
		reviewRepo:    reviewRepo,
		pinService:    service.NewPinService(pinRepo),
		heartService:  service.NewHeartService(pinRepo, heartRepo),
		reviewService: service.NewReviewService(pinRepo, reviewRepo),
		statsService:  service.NewStatsService(pinRepo),
		userService:   service.NewUserService(userRepo),
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		uid := uint(1)
		if raw := c.Get("X-User-ID"); raw != "" {
			parsed, parseErr := strconv.ParseUint(raw, 10, 32)
			require.NoError(t, parseErr)
			uid = uint(parsed)
		}
		c.Locals("userID", uid)
		return c.Next()
	})
	app.Post("/api/pins", s.CreatePin)
	app.Get("/api/pins", s.GetPins)
	app.Get("/api/pins/:id", s.GetPin)
	app.Post("/api/pins/:id/heart", s.HeartPin)
	app.Delete("/api/pins/:id/heart", s.UnheartPin)
	app.Get("/api/pins/:id/heart", s.GetHeartState)
	app.Get("/api/pins/:id/hearts", s.GetHearts)
	app.Get("/api/users/me/likes", s.GetMyLikedPins)
	app.Post("/api/pins/:id/reviews", s.CreateReview)
	app.Get("/api/pins/:id/reviews", s.GetReviews)
	app.Get("/api/users/:id/stats", s.GetUserStats)

	return app, userRepo
}

func allowUser(repo *MockUserRepository, id uint, username string) {
	repo.On("GetByID", mock.Anything, id).Return(&models.User{
		ID:          id,
		Username:    username,
		DisplayName: username,
	}, nil)
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, userID uint) *http.Response {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("X-User-ID", fmt.Sprintf("%d", userID))
	}
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func createTestPin(t *testing.T, app *fiber.App, userID uint, title, category string) *models.Pin {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/pins", fiber.Map{
		"title":       title,
		"description": "worth the trip",
		"category":    category,
		"lat":         14.5995,
		"lng":         120.9842,
		"images":      []string{"/media/abc/master.jpg"},
	}, userID)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pin models.Pin
	decodeBody(t, resp, &pin)
	return &pin
}

func TestCreatePinAndFetch(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")

	pin := createTestPin(t, app, 1, "Lomi King", models.CategoryFoodTrip)
	assert.NotEmpty(t, pin.ID)
	assert.Equal(t, "1", pin.Author.UID)
	assert.Equal(t, "juan", pin.Author.Name)
	assert.Greater(t, pin.CreatedAt, int64(0))
	assert.Equal(t, int64(0), pin.Hearts)

	resp := doJSON(t, app, http.MethodGet, "/api/pins/"+pin.ID, nil, 0)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched models.Pin
	decodeBody(t, resp, &fetched)
	assert.Equal(t, pin.ID, fetched.ID)
	assert.Equal(t, "Lomi King", fetched.Title)
}

func TestGetPinsCategoryFilter(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")

	createTestPin(t, app, 1, "Lomi King", models.CategoryFoodTrip)
	createTestPin(t, app, 1, "Sunset Deck", models.CategoryTambayan)

	resp := doJSON(t, app, http.MethodGet, "/api/pins", nil, 0)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var all []models.Pin
	decodeBody(t, resp, &all)
	assert.Len(t, all, 2)

	resp = doJSON(t, app, http.MethodGet, "/api/pins?category=Food+Trip", nil, 0)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var filtered []models.Pin
	decodeBody(t, resp, &filtered)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Lomi King", filtered[0].Title)
}

func TestCreatePinValidation(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")

	tests := []struct {
		name string
		body fiber.Map
	}{
		{
			name: "Missing Title",
			body: fiber.Map{"description": "d", "category": models.CategoryFoodTrip, "lat": 14.0, "lng": 121.0},
		},
		{
			name: "Missing Description",
			body: fiber.Map{"title": "X", "category": models.CategoryFoodTrip, "lat": 14.0, "lng": 121.0},
		},
		{
			name: "Blank Description",
			body: fiber.Map{"title": "X", "description": "   ", "category": models.CategoryFoodTrip, "lat": 14.0, "lng": 121.0},
		},
		{
			name: "Unknown Category",
			body: fiber.Map{"title": "X", "description": "d", "category": "Mall", "lat": 14.0, "lng": 121.0},
		},
		{
			name: "Latitude Out Of Range",
			body: fiber.Map{"title": "X", "description": "d", "category": models.CategoryFoodTrip, "lat": 91.0, "lng": 121.0},
		},
		{
			name: "Longitude Out Of Range",
			body: fiber.Map{"title": "X", "description": "d", "category": models.CategoryFoodTrip, "lat": 14.0, "lng": 181.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, app, http.MethodPost, "/api/pins", tt.body, 1)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetPinNotFound(t *testing.T) {
	app, _ := newSpotAPIServer(t)

	resp := doJSON(t, app, http.MethodGet, "/api/pins/missing-id", nil, 0)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetUserStats(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")

	createTestPin(t, app, 1, "Lomi King", models.CategoryFoodTrip)
	createTestPin(t, app, 1, "Sunset Deck", models.CategoryTambayan)

	resp := doJSON(t, app, http.MethodGet, "/api/users/1/stats", nil, 0)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var stats service.AuthorStats
	decodeBody(t, resp, &stats)
	assert.Equal(t, "1", stats.UID)
	assert.Equal(t, 2, stats.Pins)
	assert.Equal(t, int64(0), stats.Hearts)
}
