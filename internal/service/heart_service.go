package service

import (
	"context"

	"lokal/internal/models"
	"lokal/internal/repository"
)

// HeartService owns the like/unlike rules on top of the heart repository.
type HeartService struct {
	pinRepo   repository.PinRepository
	heartRepo repository.HeartRepository
}

// ToggleResult describes a pin's heart state after a toggle attempt.
type ToggleResult struct {
	PinID string `json:"pin_id"`
	Liked bool   `json:"liked"`
	Count int64  `json:"count"`
	// OwnPin is set when the caller authored the pin and the toggle was
	// skipped. Counts are returned unchanged in that case.
	OwnPin bool `json:"own_pin,omitempty"`
}

func NewHeartService(pinRepo repository.PinRepository, heartRepo repository.HeartRepository) *HeartService {
	return &HeartService{pinRepo: pinRepo, heartRepo: heartRepo}
}

// ToggleHeart flips the user's like on a pin. Hearting your own pin is a
// no-op that reports current state rather than an error.
func (s *HeartService) ToggleHeart(ctx context.Context, user *models.User, pinID string) (*ToggleResult, error) {
	if user == nil {
		return nil, models.NewUnauthorizedError("Login required")
	}

	pin, err := s.pinRepo.GetByID(ctx, pinID)
	if err != nil {
		return nil, err
	}
	if pin == nil {
		return nil, models.NewNotFoundError("Pin", pinID)
	}

	uid := user.UID()
	if pin.Author.UID == uid {
		liked, err := s.heartRepo.Liked(ctx, uid, pinID)
		if err != nil {
			return nil, err
		}
		return &ToggleResult{PinID: pinID, Liked: liked, Count: pin.Hearts, OwnPin: true}, nil
	}

	liked, count, err := s.heartRepo.Toggle(ctx, uid, pinID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{PinID: pinID, Liked: liked, Count: count}, nil
}

// HeartState reports whether the user liked the pin and the pin's live count.
func (s *HeartService) HeartState(ctx context.Context, userUID, pinID string) (*ToggleResult, error) {
	count, err := s.heartRepo.Count(ctx, pinID)
	if err != nil {
		return nil, err
	}
	liked := false
	if userUID != "" {
		liked, err = s.heartRepo.Liked(ctx, userUID, pinID)
		if err != nil {
			return nil, err
		}
	}
	return &ToggleResult{PinID: pinID, Liked: liked, Count: count}, nil
}

// LikedPins lists the pins a user has hearted.
func (s *HeartService) LikedPins(ctx context.Context, userUID string) ([]models.Pin, error) {
	if userUID == "" {
		return nil, models.NewValidationError("User id is required")
	}
	ids, err := s.heartRepo.LikedPinIDs(ctx, userUID)
	if err != nil {
		return nil, err
	}

	pins := make([]models.Pin, 0, len(ids))
	for _, id := range ids {
		pin, err := s.pinRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if pin == nil {
			// Pin deleted after the like; skip the dangling marker.
			continue
		}
		pins = append(pins, *pin)
	}
	return pins, nil
}
