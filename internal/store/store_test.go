package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb), mr
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{"pins", true},
		{"pins/abc", true},
		{"userHearts/7/abc", true},
		{"", false},
		{"/pins", false},
		{"pins/", false},
		{"pins//abc", false},
	}
	for _, tt := range tests {
		err := validatePath(tt.path)
		if tt.valid {
			assert.NoError(t, err, tt.path)
		} else {
			assert.Error(t, err, tt.path)
		}
	}
}

func TestSplitParent(t *testing.T) {
	parent, id := splitParent("pins/abc")
	assert.Equal(t, "pins", parent)
	assert.Equal(t, "abc", id)

	parent, id = splitParent("pins")
	assert.Equal(t, "", parent)
	assert.Equal(t, "pins", id)

	parent, id = splitParent("reviews/pin1/r1")
	assert.Equal(t, "reviews/pin1", parent)
	assert.Equal(t, "r1", id)
}

func TestPathsRelated(t *testing.T) {
	tests := []struct {
		subscribed string
		changed    string
		related    bool
	}{
		{"pins", "pins", true},
		{"pins", "pins/abc", true},
		{"pins/abc", "pins", true},
		{"pins/abc", "pins/abc/hearts", true},
		{"pins", "reviews/abc", false},
		{"pins/abc", "pins/abd", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.related, pathsRelated(tt.subscribed, tt.changed),
			"subscribed=%s changed=%s", tt.subscribed, tt.changed)
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	type doc struct {
		Title string `json:"title"`
	}
	require.NoError(t, s.Set(ctx, "pins/abc", doc{Title: "Lomi King"}))

	raw, err := s.Get(ctx, "pins/abc")
	require.NoError(t, err)
	var got doc
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Lomi King", got.Title)
}

func TestGetAbsentReturnsNil(t *testing.T) {
	s, _ := newTestStore(t)

	raw, err := s.Get(context.Background(), "pins/nope")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestGetRejectsBadPath(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "")
	assert.Error(t, err)
	_, err = s.Get(context.Background(), "a//b")
	assert.Error(t, err)
}

func TestChildrenTracksSetAndDelete(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "pins/a", map[string]string{"title": "A"}))
	require.NoError(t, s.Set(ctx, "pins/b", map[string]string{"title": "B"}))

	children, err := s.Children(ctx, "pins")
	require.NoError(t, err)
	assert.Len(t, children, 2)
	assert.Contains(t, children, "a")
	assert.Contains(t, children, "b")

	require.NoError(t, s.Delete(ctx, "pins/a"))
	children, err = s.Children(ctx, "pins")
	require.NoError(t, err)
	assert.Len(t, children, 1)
	assert.NotContains(t, children, "a")
}

func TestChildrenOfAbsentPathIsEmpty(t *testing.T) {
	s, _ := newTestStore(t)

	children, err := s.Children(context.Background(), "pins")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestPushAllocatesUniqueIDs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Push(ctx, "reviews/pin1", map[string]string{"desc": "one"})
	require.NoError(t, err)
	second, err := s.Push(ctx, "reviews/pin1", map[string]string{"desc": "two"})
	require.NoError(t, err)
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)

	children, err := s.Children(ctx, "reviews/pin1")
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestDeleteRemovesSubtreeAndParentIndex(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "pins/a", map[string]string{"title": "A"}))
	require.NoError(t, s.Set(ctx, "pins/a/hearts", 3))

	require.NoError(t, s.Delete(ctx, "pins/a"))

	raw, err := s.Get(ctx, "pins/a")
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = s.Get(ctx, "pins/a/hearts")
	require.NoError(t, err)
	assert.Nil(t, raw)

	children, err := s.Children(ctx, "pins")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	s, _ := newTestStore(t)
	assert.NoError(t, s.Delete(context.Background(), "pins/missing"))
}

func TestTransactCounter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Absent node reads as zero.
	count, err := s.Transact(ctx, "pins/a/hearts", func(current int64) int64 {
		assert.Equal(t, int64(0), current)
		return current + 1
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = s.Transact(ctx, "pins/a/hearts", func(current int64) int64 {
		return current + 1
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Decrements floor at whatever fn returns.
	count, err = s.Transact(ctx, "pins/a/hearts", func(current int64) int64 {
		next := current - 5
		if next < 0 {
			next = 0
		}
		return next
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestTransactRegistersChildInParentIndex(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Transact(ctx, "pins/a/hearts", func(current int64) int64 { return 1 })
	require.NoError(t, err)

	children, err := s.Children(ctx, "pins/a")
	require.NoError(t, err)
	assert.Contains(t, children, "hearts")
}

func TestServerTime(t *testing.T) {
	s, _ := newTestStore(t)

	now, err := s.ServerTime(context.Background())
	require.NoError(t, err)
	assert.False(t, now.IsZero())
}

func TestStartIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))
	s.Stop()
}
