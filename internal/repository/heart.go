package repository

import (
	"context"
	"fmt"

	"lokal/internal/store"
)

// UserHeartPath returns the store path of the per-user like marker.
func UserHeartPath(userUID, pinID string) string {
	return UserHeartsPath + "/" + userUID + "/" + pinID
}

// HeartRepository tracks likes as two co-updated facts: an aggregate counter
// on the pin and a presence marker per (user, pin) pair.
type HeartRepository interface {
	Count(ctx context.Context, pinID string) (int64, error)
	Liked(ctx context.Context, userUID, pinID string) (bool, error)
	LikedPinIDs(ctx context.Context, userUID string) ([]string, error)
	Toggle(ctx context.Context, userUID, pinID string) (liked bool, count int64, err error)
	WatchCount(pinID string, fn func(int64)) (*store.Subscription, error)
	WatchLiked(userUID, pinID string, fn func(bool)) (*store.Subscription, error)
}

type heartRepository struct {
	store *store.Store
}

// NewHeartRepository creates a heart repository over the realtime store.
func NewHeartRepository(s *store.Store) HeartRepository {
	return &heartRepository{store: s}
}

func (r *heartRepository) Count(ctx context.Context, pinID string) (int64, error) {
	raw, err := r.store.Get(ctx, HeartsPath(pinID))
	if err != nil {
		return 0, err
	}
	return decodeHearts(raw), nil
}

func (r *heartRepository) Liked(ctx context.Context, userUID, pinID string) (bool, error) {
	raw, err := r.store.Get(ctx, UserHeartPath(userUID, pinID))
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

func (r *heartRepository) LikedPinIDs(ctx context.Context, userUID string) ([]string, error) {
	children, err := r.store.Children(ctx, UserHeartsPath+"/"+userUID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(children))
	for id := range children {
		ids = append(ids, id)
	}
	return ids, nil
}

// Toggle flips the (user, pin) like state. The counter moves through an
// atomic single-path transaction, floored at zero; the marker write follows
// as a second, separate operation. A crash between the two can desynchronize
// marker and counter, a known limitation of the two-fact layout.
func (r *heartRepository) Toggle(ctx context.Context, userUID, pinID string) (bool, int64, error) {
	liked, err := r.Liked(ctx, userUID, pinID)
	if err != nil {
		return false, 0, err
	}

	markerPath := UserHeartPath(userUID, pinID)
	if liked {
		count, err := r.store.Transact(ctx, HeartsPath(pinID), func(current int64) int64 {
			if current <= 0 {
				return 0
			}
			return current - 1
		})
		if err != nil {
			return true, 0, fmt.Errorf("unheart pin %s: %w", pinID, err)
		}
		if err := r.store.Delete(ctx, markerPath); err != nil {
			return true, count, fmt.Errorf("remove heart marker: %w", err)
		}
		return false, count, nil
	}

	count, err := r.store.Transact(ctx, HeartsPath(pinID), func(current int64) int64 {
		return current + 1
	})
	if err != nil {
		return false, 0, fmt.Errorf("heart pin %s: %w", pinID, err)
	}
	if err := r.store.Set(ctx, markerPath, true); err != nil {
		return false, count, fmt.Errorf("set heart marker: %w", err)
	}
	return true, count, nil
}

// WatchCount streams the pin's live heart counter.
func (r *heartRepository) WatchCount(pinID string, fn func(int64)) (*store.Subscription, error) {
	return r.store.Subscribe(HeartsPath(pinID), func(snap store.Snapshot) {
		fn(decodeHearts(snap.Value))
	})
}

// WatchLiked streams presence of the per-user marker.
func (r *heartRepository) WatchLiked(userUID, pinID string, fn func(bool)) (*store.Subscription, error) {
	return r.store.Subscribe(UserHeartPath(userUID, pinID), func(snap store.Snapshot) {
		fn(snap.Value != nil)
	})
}
