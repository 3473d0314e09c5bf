package repository

import (
	"context"
	"errors"

	"lokal/internal/models"

	"gorm.io/gorm"
)

// ImageRepository defines storage operations for uploaded image metadata.
type ImageRepository interface {
	Create(ctx context.Context, image *models.Image) error
	GetByID(ctx context.Context, id uint) (*models.Image, error)
	GetByHash(ctx context.Context, hash string) (*models.Image, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Image, error)
	Delete(ctx context.Context, id uint) error
}

type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository returns a repository implementation for image metadata.
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

func (r *imageRepository) Create(ctx context.Context, image *models.Image) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *imageRepository) GetByID(ctx context.Context, id uint) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Image", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &image, nil
}

// GetByHash returns the existing record for already-uploaded bytes, or nil
// when the hash is unknown. Used to dedupe repeat uploads.
func (r *imageRepository) GetByHash(ctx context.Context, hash string) (*models.Image, error) {
	var image models.Image
	if err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&image).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &image, nil
}

func (r *imageRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Image, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	var images []models.Image
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&images).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func (r *imageRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Image{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
