package service

import (
	"context"
	"strings"

	"lokal/internal/models"
	"lokal/internal/repository"
)

const maxReviewLen = 2000

// ReviewService owns review submission rules and per-pin rating aggregates.
type ReviewService struct {
	pinRepo    repository.PinRepository
	reviewRepo repository.ReviewRepository
}

type AddReviewInput struct {
	User        *models.User
	PinID       string
	Rating      float64
	Description string
}

// PinReviews bundles a pin's review list with its rating aggregate.
type PinReviews struct {
	Reviews []models.Review `json:"reviews"`
	Rating  RatingAggregate `json:"rating"`
}

func NewReviewService(pinRepo repository.PinRepository, reviewRepo repository.ReviewRepository) *ReviewService {
	return &ReviewService{pinRepo: pinRepo, reviewRepo: reviewRepo}
}

func (s *ReviewService) AddReview(ctx context.Context, in AddReviewInput) (*models.Review, error) {
	if in.User == nil {
		return nil, models.NewUnauthorizedError("Login required")
	}

	pin, err := s.pinRepo.GetByID(ctx, in.PinID)
	if err != nil {
		return nil, err
	}
	if pin == nil {
		return nil, models.NewNotFoundError("Pin", in.PinID)
	}

	if !models.ValidRating(in.Rating) {
		return nil, models.NewValidationError("Rating must be between 1 and 5 in half-star steps")
	}

	description := strings.TrimSpace(in.Description)
	if len(description) > maxReviewLen {
		return nil, models.NewValidationError("Review too long (max 2000 characters)")
	}

	snap := in.User.Snapshot()
	rec := &models.ReviewRecord{
		UserID:      snap.UID,
		UserName:    snap.Name,
		UserPhoto:   snap.Photo,
		Rating:      in.Rating,
		Description: description,
	}

	id, err := s.reviewRepo.Add(ctx, in.PinID, rec)
	if err != nil {
		return nil, err
	}

	return &models.Review{
		ID:          id,
		UserID:      rec.UserID,
		UserName:    rec.UserName,
		UserPhoto:   rec.UserPhoto,
		Rating:      rec.Rating,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// ListReviews returns a pin's reviews, newest first, with the rating
// aggregate computed over all of them.
func (s *ReviewService) ListReviews(ctx context.Context, pinID string) (*PinReviews, error) {
	pin, err := s.pinRepo.GetByID(ctx, pinID)
	if err != nil {
		return nil, err
	}
	if pin == nil {
		return nil, models.NewNotFoundError("Pin", pinID)
	}

	reviews, err := s.reviewRepo.ListByPin(ctx, pinID)
	if err != nil {
		return nil, err
	}
	return &PinReviews{
		Reviews: reviews,
		Rating:  AggregateRatings(reviews),
	}, nil
}
