package server

import (
	"net/http"
	"testing"

	"lokal/internal/models"
	"lokal/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartPin_SelfHeartIsNoop(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")

	pin := createTestPin(t, app, 1, "Lomi King", models.CategoryFoodTrip)

	resp := doJSON(t, app, http.MethodPost, "/api/pins/"+pin.ID+"/heart", nil, 1)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var result service.ToggleResult
	decodeBody(t, resp, &result)
	assert.True(t, result.OwnPin)
	assert.False(t, result.Liked)
	assert.Equal(t, int64(0), result.Count)
}

func TestHeartPin_ToggleAndIdempotency(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")
	allowUser(userRepo, 2, "maria")

	pin := createTestPin(t, app, 1, "Lomi King", models.CategoryFoodTrip)

	// First heart increments the counter.
	resp := doJSON(t, app, http.MethodPost, "/api/pins/"+pin.ID+"/heart", nil, 2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result service.ToggleResult
	decodeBody(t, resp, &result)
	assert.True(t, result.Liked)
	assert.Equal(t, int64(1), result.Count)

	// Hearting again returns the same state without double counting.
	resp = doJSON(t, app, http.MethodPost, "/api/pins/"+pin.ID+"/heart", nil, 2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &result)
	assert.True(t, result.Liked)
	assert.Equal(t, int64(1), result.Count)

	resp = doJSON(t, app, http.MethodGet, "/api/pins/"+pin.ID+"/heart", nil, 2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &result)
	assert.True(t, result.Liked)

	// Unheart drops the counter back to zero.
	resp = doJSON(t, app, http.MethodDelete, "/api/pins/"+pin.ID+"/heart", nil, 2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &result)
	assert.False(t, result.Liked)
	assert.Equal(t, int64(0), result.Count)

	// A second unheart stays at zero.
	resp = doJSON(t, app, http.MethodDelete, "/api/pins/"+pin.ID+"/heart", nil, 2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &result)
	assert.False(t, result.Liked)
	assert.Equal(t, int64(0), result.Count)
}

func TestGetHearts_PublicCounter(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")
	allowUser(userRepo, 2, "maria")

	pin := createTestPin(t, app, 1, "Lomi King", models.CategoryFoodTrip)

	resp := doJSON(t, app, http.MethodPost, "/api/pins/"+pin.ID+"/heart", nil, 2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/pins/"+pin.ID+"/hearts", nil, 0)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var counter struct {
		PinID string `json:"pin_id"`
		Count int64  `json:"count"`
	}
	decodeBody(t, resp, &counter)
	assert.Equal(t, pin.ID, counter.PinID)
	assert.Equal(t, int64(1), counter.Count)
}

func TestGetMyLikedPins(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")
	allowUser(userRepo, 2, "maria")

	first := createTestPin(t, app, 1, "Lomi King", models.CategoryFoodTrip)
	createTestPin(t, app, 1, "Sunset Deck", models.CategoryTambayan)

	resp := doJSON(t, app, http.MethodPost, "/api/pins/"+first.ID+"/heart", nil, 2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet, "/api/users/me/likes", nil, 2)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var liked []models.Pin
	decodeBody(t, resp, &liked)
	require.Len(t, liked, 1)
	assert.Equal(t, first.ID, liked[0].ID)
	assert.Equal(t, int64(1), liked[0].Hearts)
}

func TestHeartPin_UnknownPin(t *testing.T) {
	app, userRepo := newSpotAPIServer(t)
	allowUser(userRepo, 1, "juan")

	resp := doJSON(t, app, http.MethodPost, "/api/pins/no-such-pin/heart", nil, 1)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
