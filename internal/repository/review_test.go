package repository

import (
	"context"
	"testing"

	"lokal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewRepository_AddAndList(t *testing.T) {
	s := newTestStore(t)
	repo := NewReviewRepository(s)
	ctx := context.Background()

	rec := &models.ReviewRecord{
		UserID:      "2",
		UserName:    "maria",
		Rating:      4.5,
		Description: "Sulit na sulit",
	}
	id, err := repo.Add(ctx, "pin1", rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Positive(t, rec.CreatedAt, "timestamp should be server-assigned")

	reviews, err := repo.ListByPin(ctx, "pin1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, id, reviews[0].ID)
	assert.Equal(t, "maria", reviews[0].UserName)
	assert.Equal(t, 4.5, reviews[0].Rating)

	// Reviews are scoped to their pin.
	other, err := repo.ListByPin(ctx, "pin2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestReviewRepository_List_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	repo := NewReviewRepository(s)
	ctx := context.Background()

	// Seed out of chronological order.
	for id, ts := range map[string]int64{"r1": 100, "r2": 300, "r3": 200} {
		require.NoError(t, s.Set(ctx, ReviewsForPinPath("pin1")+"/"+id, &models.ReviewRecord{
			UserID:    "2",
			Rating:    3,
			CreatedAt: ts,
		}))
	}

	reviews, err := repo.ListByPin(ctx, "pin1")
	require.NoError(t, err)
	require.Len(t, reviews, 3)

	var order []int64
	for _, r := range reviews {
		order = append(order, r.CreatedAt)
	}
	assert.Equal(t, []int64{300, 200, 100}, order)
}
