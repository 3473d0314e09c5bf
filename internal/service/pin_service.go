package service

import (
	"context"
	"strings"

	"lokal/internal/models"
	"lokal/internal/repository"
)

const (
	maxPinTitleLen       = 120
	maxPinDescriptionLen = 2000
)

// PinService owns pin creation and lookup rules.
type PinService struct {
	pinRepo repository.PinRepository
}

type CreatePinInput struct {
	Author      *models.User
	Title       string
	Description string
	Category    string
	Lat         float64
	Lng         float64
	Images      []string
}

func NewPinService(pinRepo repository.PinRepository) *PinService {
	return &PinService{pinRepo: pinRepo}
}

func (s *PinService) CreatePin(ctx context.Context, in CreatePinInput) (*models.Pin, error) {
	if in.Author == nil {
		return nil, models.NewUnauthorizedError("Login required")
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > maxPinTitleLen {
		return nil, models.NewValidationError("Title too long (max 120 characters)")
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		return nil, models.NewValidationError("Description is required")
	}
	if len(description) > maxPinDescriptionLen {
		return nil, models.NewValidationError("Description too long (max 2000 characters)")
	}

	if !models.ValidCategory(in.Category) {
		return nil, models.NewValidationError("Invalid category")
	}

	if in.Lat < -90 || in.Lat > 90 {
		return nil, models.NewValidationError("Latitude must be between -90 and 90")
	}
	if in.Lng < -180 || in.Lng > 180 {
		return nil, models.NewValidationError("Longitude must be between -180 and 180")
	}

	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) > models.MaxPinImages {
		return nil, models.NewValidationError("A pin can carry at most 10 images")
	}

	rec := &models.PinRecord{
		Title:       title,
		Description: description,
		Category:    in.Category,
		Lat:         in.Lat,
		Lng:         in.Lng,
		Images:      images,
		Author:      in.Author.Snapshot(),
	}

	id, err := s.pinRepo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return s.GetPin(ctx, id)
}

func (s *PinService) GetPin(ctx context.Context, id string) (*models.Pin, error) {
	pin, err := s.pinRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pin == nil {
		return nil, models.NewNotFoundError("Pin", id)
	}
	return pin, nil
}

func (s *PinService) ListPins(ctx context.Context) ([]models.Pin, error) {
	return s.pinRepo.List(ctx)
}

// ListPinsByCategory filters the live pin set down to one category.
func (s *PinService) ListPinsByCategory(ctx context.Context, category string) ([]models.Pin, error) {
	if !models.ValidCategory(category) {
		return nil, models.NewValidationError("Invalid category")
	}
	all, err := s.pinRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Pin, 0, len(all))
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PinService) ListPinsByAuthor(ctx context.Context, authorUID string) ([]models.Pin, error) {
	if authorUID == "" {
		return nil, models.NewValidationError("Author id is required")
	}
	return s.pinRepo.ListByAuthor(ctx, authorUID)
}
