package service

import (
	"context"

	"lokal/internal/cache"
	"lokal/internal/models"
	"lokal/internal/repository"
)

// RatingAggregate summarizes a pin's reviews.
type RatingAggregate struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// AggregateRatings computes the mean rating over reviews. An empty list
// yields a zero aggregate, not NaN.
func AggregateRatings(reviews []models.Review) RatingAggregate {
	if len(reviews) == 0 {
		return RatingAggregate{}
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return RatingAggregate{
		Average: sum / float64(len(reviews)),
		Count:   len(reviews),
	}
}

// GroupByCategory buckets pins by their category, preserving input order
// within each bucket. Every known category gets a bucket even when empty.
func GroupByCategory(pins []models.Pin) map[string][]models.Pin {
	grouped := make(map[string][]models.Pin, len(models.Categories))
	for _, c := range models.Categories {
		grouped[c] = []models.Pin{}
	}
	for _, p := range pins {
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	return grouped
}

// Categories returns the distinct categories present in pins, in first-seen
// order, for building filter chips without hardcoding the full set.
func Categories(pins []models.Pin) []string {
	seen := make(map[string]bool, len(models.Categories))
	out := make([]string, 0, len(models.Categories))
	for _, p := range pins {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// AuthorStats are the profile totals for a single author.
type AuthorStats struct {
	UID    string `json:"uid"`
	Pins   int    `json:"pins"`
	Hearts int64  `json:"hearts"`
}

// StatsService computes per-author profile totals.
type StatsService struct {
	pinRepo repository.PinRepository
}

func NewStatsService(pinRepo repository.PinRepository) *StatsService {
	return &StatsService{pinRepo: pinRepo}
}

// AuthorStats sums an author's pin count and received hearts. Results are
// cached briefly; totals tolerate short staleness.
func (s *StatsService) AuthorStats(ctx context.Context, authorUID string) (*AuthorStats, error) {
	if authorUID == "" {
		return nil, models.NewValidationError("Author id is required")
	}

	var stats AuthorStats
	err := cache.Aside(ctx, cache.AuthorStatsKey(authorUID), &stats, cache.AuthorStatsTTL, func() error {
		pins, err := s.pinRepo.ListByAuthor(ctx, authorUID)
		if err != nil {
			return err
		}
		stats = AuthorStats{UID: authorUID, Pins: len(pins)}
		for _, p := range pins {
			stats.Hearts += p.Hearts
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
