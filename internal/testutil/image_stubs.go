// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sort"
	"time"

	"lokal/internal/models"
)

// ImageRepoStub is an in-memory image repository implementation for tests.
type ImageRepoStub struct {
	items  map[string]*models.Image
	nextID uint
}

// NewImageRepoStub creates an in-memory image repository stub for tests.
func NewImageRepoStub() *ImageRepoStub {
	return &ImageRepoStub{items: make(map[string]*models.Image), nextID: 1}
}

// Create stores image metadata in-memory.
func (s *ImageRepoStub) Create(_ context.Context, img *models.Image) error {
	if img.ID == 0 {
		img.ID = s.nextID
		s.nextID++
	}
	img.CreatedAt = time.Now().UTC()
	s.items[img.Hash] = img
	return nil
}

// GetByID fetches an image by numeric ID.
func (s *ImageRepoStub) GetByID(_ context.Context, id uint) (*models.Image, error) {
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, models.NewNotFoundError("Image", id)
}

// GetByHash fetches an image by content hash. Unknown hashes return nil so
// callers can distinguish "new upload" from a lookup failure.
func (s *ImageRepoStub) GetByHash(_ context.Context, hash string) (*models.Image, error) {
	item, ok := s.items[hash]
	if !ok {
		return nil, nil
	}
	return item, nil
}

// ListByUser returns the uploader's images ordered by ID.
func (s *ImageRepoStub) ListByUser(_ context.Context, userID uint, limit, offset int) ([]models.Image, error) {
	var out []models.Image
	for _, item := range s.items {
		if item.UserID == userID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes an image record.
func (s *ImageRepoStub) Delete(_ context.Context, id uint) error {
	for hash, item := range s.items {
		if item.ID == id {
			delete(s.items, hash)
			return nil
		}
	}
	return models.NewNotFoundError("Image", id)
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
