package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"lokal/internal/models"
	"lokal/internal/store"
)

// ReviewsForPinPath returns the store path holding a pin's reviews.
func ReviewsForPinPath(pinID string) string { return ReviewsPath + "/" + pinID }

// ReviewRepository persists reviews under the pin they belong to.
type ReviewRepository interface {
	Add(ctx context.Context, pinID string, rec *models.ReviewRecord) (string, error)
	ListByPin(ctx context.Context, pinID string) ([]models.Review, error)
	Watch(pinID string, fn func([]models.Review)) (*store.Subscription, error)
}

type reviewRepository struct {
	store *store.Store
}

// NewReviewRepository creates a review repository over the realtime store.
func NewReviewRepository(s *store.Store) ReviewRepository {
	return &reviewRepository{store: s}
}

// Add stamps the record with the store's clock and appends it under the pin.
func (r *reviewRepository) Add(ctx context.Context, pinID string, rec *models.ReviewRecord) (string, error) {
	now, err := r.store.ServerTime(ctx)
	if err != nil {
		return "", fmt.Errorf("read server time: %w", err)
	}
	rec.CreatedAt = now.UnixMilli()

	id, err := r.store.Push(ctx, ReviewsForPinPath(pinID), rec)
	if err != nil {
		return "", fmt.Errorf("add review for pin %s: %w", pinID, err)
	}
	return id, nil
}

// ListByPin returns the pin's reviews, newest first.
func (r *reviewRepository) ListByPin(ctx context.Context, pinID string) ([]models.Review, error) {
	children, err := r.store.Children(ctx, ReviewsForPinPath(pinID))
	if err != nil {
		return nil, err
	}
	return materializeReviews(children), nil
}

func (r *reviewRepository) Watch(pinID string, fn func([]models.Review)) (*store.Subscription, error) {
	return r.store.Subscribe(ReviewsForPinPath(pinID), func(snap store.Snapshot) {
		fn(materializeReviews(snap.Children))
	})
}

func materializeReviews(children map[string]json.RawMessage) []models.Review {
	reviews := make([]models.Review, 0, len(children))
	for id, raw := range children {
		var rec models.ReviewRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		reviews = append(reviews, models.Review{
			ID:          id,
			UserID:      rec.UserID,
			UserName:    rec.UserName,
			UserPhoto:   rec.UserPhoto,
			Rating:      rec.Rating,
			Description: rec.Description,
			CreatedAt:   rec.CreatedAt,
		})
	}
	sort.Slice(reviews, func(i, j int) bool {
		if reviews[i].CreatedAt != reviews[j].CreatedAt {
			return reviews[i].CreatedAt > reviews[j].CreatedAt
		}
		return reviews[i].ID < reviews[j].ID
	})
	return reviews
}
