package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const (
	UserKeyPrefix        = "user:%d"
	GeocodeSearchPrefix  = "geocode:search:%s"
	GeocodeReversePrefix = "geocode:reverse:%.5f,%.5f"
	AuthorStatsKeyPrefix = "stats:author:%s"
)

const (
	UserTTL        = 5 * time.Minute
	GeocodeTTL     = 24 * time.Hour
	AuthorStatsTTL = 1 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func GeocodeSearchKey(query string) string {
	return fmt.Sprintf(GeocodeSearchPrefix, query)
}

func GeocodeReverseKey(lat, lng float64) string {
	return fmt.Sprintf(GeocodeReversePrefix, lat, lng)
}

func AuthorStatsKey(uid string) string {
	return fmt.Sprintf(AuthorStatsKeyPrefix, uid)
}

// Aside implements the cache-aside pattern: return the cached value at key if
// present, otherwise run load, cache its result, and leave it in dest. Cache
// failures degrade to calling load directly.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, load func() error) error {
	if client != nil {
		raw, err := client.Get(ctx, key).Bytes()
		if err == nil {
			if jsonErr := json.Unmarshal(raw, dest); jsonErr == nil {
				return nil
			}
			// Corrupt entry, fall through and rebuild it.
			client.Del(ctx, key)
		}
	}

	if err := load(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}
	return nil
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateAuthorStats(ctx context.Context, uid string) {
	Invalidate(ctx, AuthorStatsKey(uid))
}
