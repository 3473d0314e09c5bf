package store

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	deliveryTimeout = 2 * time.Second
	pollInterval    = 10 * time.Millisecond
)

// snapshotRecorder collects deliveries so tests can wait for specific states.
type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *snapshotRecorder) record(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *snapshotRecorder) latest() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return Snapshot{}, false
	}
	return r.snaps[len(r.snaps)-1], true
}

func (r *snapshotRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "pins/a", map[string]string{"title": "A"}))

	rec := &snapshotRecorder{}
	sub, err := s.Subscribe("pins", rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	assert.Eventually(t, func() bool {
		snap, ok := rec.latest()
		return ok && len(snap.Children) == 1
	}, deliveryTimeout, pollInterval)

	snap, _ := rec.latest()
	assert.Equal(t, "pins", snap.Path)
	assert.Nil(t, snap.Value)
	assert.Contains(t, snap.Children, "a")
}

func TestSubscribeDeliversOnChange(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	rec := &snapshotRecorder{}
	sub, err := s.Subscribe("pins", rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	// Wait out the initial delivery first.
	require.Eventually(t, func() bool { return rec.count() >= 1 }, deliveryTimeout, pollInterval)

	require.NoError(t, s.Set(ctx, "pins/b", map[string]string{"title": "B"}))

	assert.Eventually(t, func() bool {
		snap, ok := rec.latest()
		if !ok {
			return false
		}
		_, present := snap.Children["b"]
		return present
	}, deliveryTimeout, pollInterval)
}

func TestSubscribeSeesChildCounterChange(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	require.NoError(t, s.Set(ctx, "pins/a/hearts", 0))

	rec := &snapshotRecorder{}
	sub, err := s.Subscribe("pins/a/hearts", rec.record)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.Eventually(t, func() bool { return rec.count() >= 1 }, deliveryTimeout, pollInterval)

	_, err = s.Transact(ctx, "pins/a/hearts", func(current int64) int64 { return current + 1 })
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		snap, ok := rec.latest()
		if !ok || snap.Value == nil {
			return false
		}
		var n int64
		if jsonErr := json.Unmarshal(snap.Value, &n); jsonErr != nil {
			return false
		}
		return n == 1
	}, deliveryTimeout, pollInterval)
}

func TestSubscribeRejectsBadPath(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Subscribe("", func(Snapshot) {})
	assert.Error(t, err)
	_, err = s.Subscribe("a//b", func(Snapshot) {})
	assert.Error(t, err)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	sub, err := s.Subscribe("pins", func(Snapshot) {})
	require.NoError(t, err)

	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	rec := &snapshotRecorder{}
	sub, err := s.Subscribe("pins", rec.record)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.count() >= 1 }, deliveryTimeout, pollInterval)
	sub.Unsubscribe()
	delivered := rec.count()

	require.NoError(t, s.Set(ctx, "pins/late", map[string]string{"title": "late"}))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, delivered, rec.count())
}

func TestResubscribeGetsLargerID(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.Subscribe("pins", func(Snapshot) {})
	require.NoError(t, err)
	first.Unsubscribe()

	second, err := s.Subscribe("pins", func(Snapshot) {})
	require.NoError(t, err)
	defer second.Unsubscribe()

	assert.Greater(t, second.ID(), first.ID())
	assert.Equal(t, "pins", second.Path())
}

func TestStopTearsDownSubscriptions(t *testing.T) {
	s, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))

	sub, err := s.Subscribe("pins", func(Snapshot) {})
	require.NoError(t, err)

	s.Stop()

	// Unsubscribe after Stop stays safe.
	sub.Unsubscribe()
}
