// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"lokal/internal/models"
	"lokal/internal/store"
)

// snapshotReadTimeout bounds the follow-up reads a watch callback performs
// while materializing a snapshot.
const snapshotReadTimeout = 10 * time.Second

// Realtime store paths. The heart counter is a child of the pin node so that
// counter transactions stay single-path.
const (
	PinsPath       = "pins"
	ReviewsPath    = "reviews"
	UserHeartsPath = "userHearts"
)

// PinPath returns the store path of a single pin record.
func PinPath(pinID string) string { return PinsPath + "/" + pinID }

// HeartsPath returns the store path of a pin's heart counter.
func HeartsPath(pinID string) string { return PinPath(pinID) + "/hearts" }

// PinRepository defines the interface for pin data operations.
type PinRepository interface {
	Create(ctx context.Context, record *models.PinRecord) (string, error)
	GetByID(ctx context.Context, id string) (*models.Pin, error)
	List(ctx context.Context) ([]models.Pin, error)
	ListByAuthor(ctx context.Context, authorUID string) ([]models.Pin, error)
	Watch(fn func([]models.Pin)) (*store.Subscription, error)
	WatchPin(id string, fn func(*models.Pin)) (*store.Subscription, error)
}

type pinRepository struct {
	store *store.Store
}

// NewPinRepository creates a new pin repository over the realtime store.
func NewPinRepository(s *store.Store) PinRepository {
	return &pinRepository{store: s}
}

// Create stamps the record with the server clock and appends it under pins/.
// Validation happens in the service layer; the repository persists as-is.
func (r *pinRepository) Create(ctx context.Context, record *models.PinRecord) (string, error) {
	now, err := r.store.ServerTime(ctx)
	if err != nil {
		return "", err
	}
	record.CreatedAt = now.UnixMilli()
	if record.Images == nil {
		record.Images = []string{}
	}

	id, err := r.store.Push(ctx, PinsPath, record)
	if err != nil {
		return "", fmt.Errorf("create pin: %w", err)
	}
	// New pins start with an explicit zero counter so watchers of the counter
	// path see a value immediately.
	if err := r.store.Set(ctx, HeartsPath(id), 0); err != nil {
		return "", fmt.Errorf("init pin hearts: %w", err)
	}
	return id, nil
}

func (r *pinRepository) GetByID(ctx context.Context, id string) (*models.Pin, error) {
	raw, err := r.store.Get(ctx, PinPath(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, models.NewNotFoundError("Pin", id)
	}
	pin, err := decodePin(id, raw)
	if err != nil {
		return nil, err
	}

	hearts, err := r.store.Get(ctx, HeartsPath(id))
	if err != nil {
		return nil, err
	}
	pin.Hearts = decodeHearts(hearts)
	return pin, nil
}

func (r *pinRepository) List(ctx context.Context) ([]models.Pin, error) {
	children, err := r.store.Children(ctx, PinsPath)
	if err != nil {
		return nil, err
	}
	return r.materialize(ctx, children), nil
}

func (r *pinRepository) ListByAuthor(ctx context.Context, authorUID string) ([]models.Pin, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Pin, 0, len(all))
	for _, p := range all {
		if p.Author.UID == authorUID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Watch delivers the full pin collection on every change anywhere under
// pins/, including heart counter transactions. There is no incremental
// diffing; the list is re-materialized per notification.
func (r *pinRepository) Watch(fn func([]models.Pin)) (*store.Subscription, error) {
	return r.store.Subscribe(PinsPath, func(snap store.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotReadTimeout)
		defer cancel()
		fn(r.materialize(ctx, snap.Children))
	})
}

// WatchPin delivers a single pin on every change to its record or heart
// counter. A deleted pin is delivered as nil.
func (r *pinRepository) WatchPin(id string, fn func(*models.Pin)) (*store.Subscription, error) {
	return r.store.Subscribe(PinPath(id), func(snap store.Snapshot) {
		if snap.Value == nil {
			fn(nil)
			return
		}
		pin, err := decodePin(id, snap.Value)
		if err != nil {
			slog.Warn("skipping malformed pin record", "pin_id", id, "error", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), snapshotReadTimeout)
		defer cancel()
		hearts, err := r.store.Get(ctx, HeartsPath(id))
		if err != nil {
			slog.Warn("reading pin hearts failed", "pin_id", id, "error", err)
		}
		pin.Hearts = decodeHearts(hearts)
		fn(pin)
	})
}

// materialize pairs each child key with its stored fields and merges heart
// counters, applying the defaulting rules for records written before a field
// existed (missing images -> empty list, missing hearts -> 0).
func (r *pinRepository) materialize(ctx context.Context, children map[string]json.RawMessage) []models.Pin {
	pins := make([]models.Pin, 0, len(children))
	for id, raw := range children {
		pin, err := decodePin(id, raw)
		if err != nil {
			slog.Warn("skipping malformed pin record", "pin_id", id, "error", err)
			continue
		}
		hearts, err := r.store.Get(ctx, HeartsPath(id))
		if err != nil {
			slog.Warn("reading pin hearts failed", "pin_id", id, "error", err)
		}
		pin.Hearts = decodeHearts(hearts)
		pins = append(pins, *pin)
	}

	// The store guarantees no ordering; sort newest first for consumers.
	sort.Slice(pins, func(i, j int) bool {
		if pins[i].CreatedAt != pins[j].CreatedAt {
			return pins[i].CreatedAt > pins[j].CreatedAt
		}
		return pins[i].ID < pins[j].ID
	})
	return pins
}

func decodePin(id string, raw json.RawMessage) (*models.Pin, error) {
	var rec models.PinRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode pin %s: %w", id, err)
	}
	images := rec.Images
	if images == nil {
		images = []string{}
	}
	return &models.Pin{
		ID:          id,
		Title:       rec.Title,
		Description: rec.Description,
		Category:    rec.Category,
		Lat:         rec.Lat,
		Lng:         rec.Lng,
		Images:      images,
		Author:      rec.Author,
		CreatedAt:   rec.CreatedAt,
	}, nil
}

func decodeHearts(raw json.RawMessage) int64 {
	if raw == nil {
		return 0
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
