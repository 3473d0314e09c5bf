// Package geocode looks up places through a Nominatim-compatible endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lokal/internal/cache"
	"lokal/internal/config"
	"lokal/internal/middleware"
	"lokal/internal/models"

	"golang.org/x/time/rate"
)

const (
	requestTimeout = 10 * time.Second
	maxResults     = 8
)

// Result is one resolved place.
type Result struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// wirePlace is Nominatim's response shape. Coordinates come over the wire as
// strings.
type wirePlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Client queries a Nominatim endpoint. Requests are rate limited to one per
// second, the published fair-use ceiling for the public instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	baseURL := "https://nominatim.openstreetmap.org"
	userAgent := "lokal/1.0"
	if cfg != nil {
		if cfg.NominatimURL != "" {
			baseURL = cfg.NominatimURL
		}
		if cfg.GeocodeAgent != "" {
			userAgent = cfg.GeocodeAgent
		}
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Search resolves a free-form query to candidate places. Results are cached;
// place data moves slowly.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}

	var results []Result
	err := cache.Aside(ctx, cache.GeocodeSearchKey(query), &results, cache.GeocodeTTL, func() error {
		params := url.Values{}
		params.Set("q", query)
		params.Set("format", "json")
		params.Set("limit", strconv.Itoa(maxResults))

		places, err := c.fetch(ctx, "/search", params, "search")
		if err != nil {
			return err
		}
		results = places
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Reverse resolves coordinates to the nearest place, or nil when the point
// maps to nothing.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, models.NewValidationError("Coordinates out of range")
	}

	var result *Result
	err := cache.Aside(ctx, cache.GeocodeReverseKey(lat, lng), &result, cache.GeocodeTTL, func() error {
		params := url.Values{}
		params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
		params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
		params.Set("format", "json")

		req, err := c.newRequest(ctx, "/reverse", params)
		if err != nil {
			return err
		}
		body, err := c.do(req, "reverse")
		if err != nil {
			return err
		}

		var place wirePlace
		if err := json.Unmarshal(body, &place); err != nil {
			return models.NewInternalError(fmt.Errorf("decode reverse geocode response: %w", err))
		}
		if place.DisplayName == "" {
			result = nil
			return nil
		}
		r := toResult(place)
		result = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values, kind string) ([]Result, error) {
	req, err := c.newRequest(ctx, path, params)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, kind)
	if err != nil {
		return nil, err
	}

	var places []wirePlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, models.NewInternalError(fmt.Errorf("decode geocode response: %w", err))
	}

	results := make([]Result, 0, len(places))
	for _, p := range places {
		results = append(results, toResult(p))
	}
	return results, nil
}

func (c *Client) newRequest(ctx context.Context, path string, params url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) do(req *http.Request, kind string) ([]byte, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, models.NewInternalError(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		middleware.GeocodeLookups.WithLabelValues(kind, "error").Inc()
		return nil, models.NewInternalError(fmt.Errorf("geocode request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		middleware.GeocodeLookups.WithLabelValues(kind, "error").Inc()
		return nil, models.NewInternalError(fmt.Errorf("geocode endpoint returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		middleware.GeocodeLookups.WithLabelValues(kind, "error").Inc()
		return nil, models.NewInternalError(err)
	}

	middleware.GeocodeLookups.WithLabelValues(kind, "ok").Inc()
	return body, nil
}

func toResult(p wirePlace) Result {
	lat, _ := strconv.ParseFloat(p.Lat, 64)
	lng, _ := strconv.ParseFloat(p.Lon, 64)
	return Result{DisplayName: p.DisplayName, Lat: lat, Lng: lng}
}
