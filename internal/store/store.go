// Package store implements a hierarchical, path-addressed realtime store on
// top of Redis. Values are JSON documents keyed by slash-separated paths
// (pins/abc, userHearts/7/abc); every successful write publishes the changed
// path on a pub/sub channel so subscriptions can re-materialize their subtree.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"lokal/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	valuePrefix = "rt:"
	indexPrefix = "rtc:"
	// changedChannel carries the path of every mutated node.
	changedChannel = "rt:changed"

	// Optimistic transactions retry on WATCH conflicts up to this many times.
	maxTxRetries = 16
)

// ErrTxContention is returned when a counter transaction keeps losing the
// optimistic race past the retry budget.
var ErrTxContention = errors.New("store: transaction contention")

// Store is a realtime hierarchical key-value client. All methods are safe for
// concurrent use.
type Store struct {
	rdb *redis.Client

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID atomic.Uint64

	started atomic.Bool
	cancel  context.CancelFunc
}

// New creates a Store over the given Redis client. Call Start before relying
// on subscription delivery.
func New(rdb *redis.Client) *Store {
	return &Store{
		rdb:  rdb,
		subs: make(map[uint64]*Subscription),
	}
}

// Start launches the change-fanout loop. It returns once the underlying
// pub/sub subscription is confirmed, so writes issued after Start returns are
// guaranteed to be observed.
func (s *Store) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	sub := s.rdb.Subscribe(ctx, changedChannel)
	// Receive forces the SUBSCRIBE handshake before we return.
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		s.started.Store(false)
		return fmt.Errorf("store: subscribe to %s: %w", changedChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in store fanout", "recover", r, "stack", string(debug.Stack()))
						}
					}()
					s.dispatch(msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// Stop tears down the fanout loop and every live subscription.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// dispatch wakes every subscription whose path is related to the changed one.
func (s *Store) dispatch(changed string) {
	middleware.StoreNotifications.Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subs {
		if pathsRelated(sub.path, changed) {
			sub.wake()
		}
	}
}

// pathsRelated reports whether a change at `changed` affects a subscription
// rooted at `subscribed`: either path is the other or an ancestor of it.
func pathsRelated(subscribed, changed string) bool {
	if subscribed == changed {
		return true
	}
	if strings.HasPrefix(changed, subscribed+"/") {
		return true
	}
	return strings.HasPrefix(subscribed, changed+"/")
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("store: empty path")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("store: invalid path %q", path)
		}
	}
	return nil
}

// splitParent returns the parent path and final segment. The parent is ""
// for top-level paths.
func splitParent(path string) (string, string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// Get returns the JSON value at path, or nil when the node is absent.
func (s *Store) Get(ctx context.Context, path string) (json.RawMessage, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	raw, err := s.rdb.Get(ctx, valuePrefix+path).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", path, err)
	}
	return json.RawMessage(raw), nil
}

// Children returns a snapshot of every direct child of path, keyed by child
// id. An absent or empty collection yields an empty map.
func (s *Store) Children(ctx context.Context, path string) (map[string]json.RawMessage, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	ids, err := s.rdb.SMembers(ctx, indexPrefix+path).Result()
	if err != nil {
		return nil, fmt.Errorf("store: children of %s: %w", path, err)
	}
	out := make(map[string]json.RawMessage, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = valuePrefix + path + "/" + id
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("store: mget children of %s: %w", path, err)
	}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Index entry without a value node; skip it.
			continue
		}
		out[ids[i]] = json.RawMessage(str)
	}
	return out, nil
}

// Set replaces the value at path and notifies subscribers.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	if err := validatePath(path); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}

	parent, id := splitParent(path)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, valuePrefix+path, raw, 0)
		if parent != "" {
			pipe.SAdd(ctx, indexPrefix+parent, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: set %s: %w", path, err)
	}
	middleware.StoreWrites.WithLabelValues("set").Inc()
	s.publish(ctx, path)
	return nil
}

// Push allocates a fresh child id under path, writes value there, and returns
// the new id. Ids are opaque; callers needing recency order by stored
// timestamps.
func (s *Store) Push(ctx context.Context, path string, value any) (string, error) {
	if err := validatePath(path); err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.Set(ctx, path+"/"+id, value); err != nil {
		return "", err
	}
	middleware.StoreWrites.WithLabelValues("push").Inc()
	return id, nil
}

// Delete removes the node at path (and any direct children) and notifies
// subscribers. Deleting an absent node is a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := validatePath(path); err != nil {
		return err
	}

	childIDs, err := s.rdb.SMembers(ctx, indexPrefix+path).Result()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", path, err)
	}

	parent, id := splitParent(path)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, valuePrefix+path)
		pipe.Del(ctx, indexPrefix+path)
		for _, child := range childIDs {
			pipe.Del(ctx, valuePrefix+path+"/"+child)
		}
		if parent != "" {
			pipe.SRem(ctx, indexPrefix+parent, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", path, err)
	}
	middleware.StoreWrites.WithLabelValues("delete").Inc()
	s.publish(ctx, path)
	return nil
}

// Transact applies an atomic read-modify-write to the integer counter at
// path. fn receives the current value (0 when the node is absent) and returns
// the new one. Conflicting transactions on the same path retry transparently;
// the operation is NOT atomic jointly with writes to any other path.
func (s *Store) Transact(ctx context.Context, path string, fn func(current int64) int64) (int64, error) {
	if err := validatePath(path); err != nil {
		return 0, err
	}

	key := valuePrefix + path
	var result int64

	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		next := fn(current)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txn, key)
		if err == nil {
			parent, id := splitParent(path)
			if parent != "" {
				s.rdb.SAdd(ctx, indexPrefix+parent, id)
			}
			middleware.StoreWrites.WithLabelValues("transact").Inc()
			s.publish(ctx, path)
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, fmt.Errorf("store: transact %s: %w", path, err)
	}
	return 0, ErrTxContention
}

// ServerTime returns the Redis server clock. Server-assigned timestamps keep
// cross-client ordering immune to local clock skew.
func (s *Store) ServerTime(ctx context.Context) (time.Time, error) {
	t, err := s.rdb.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("store: server time: %w", err)
	}
	return t, nil
}

func (s *Store) publish(ctx context.Context, path string) {
	if err := s.rdb.Publish(ctx, changedChannel, path).Err(); err != nil {
		slog.Warn("store: publish change failed", "path", path, "error", err)
	}
}
