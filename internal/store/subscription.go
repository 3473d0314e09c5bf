package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Snapshot is the full materialized state of a subscribed path: the node's own
// value (nil when absent) plus every direct child keyed by id.
type Snapshot struct {
	Path     string
	Value    json.RawMessage
	Children map[string]json.RawMessage
}

// snapshotTimeout bounds each re-materialization read.
const snapshotTimeout = 10 * time.Second

// Subscription delivers the current snapshot of a path immediately on
// creation and again after every change to the subtree. Deliveries for one
// subscription are serialized and bursts coalesce: the handler always sees a
// snapshot at least as fresh as the change that woke it.
type Subscription struct {
	id    uint64
	path  string
	store *Store
	fn    func(Snapshot)

	notify chan struct{}
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Subscribe registers fn for path. fn receives the initial snapshot before
// any subsequent change delivery. The returned Subscription must be
// unsubscribed when the owner goes away; Unsubscribe is idempotent.
func (s *Store) Subscribe(path string, fn func(Snapshot)) (*Subscription, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}

	sub := &Subscription{
		id:     s.nextID.Add(1),
		path:   path,
		store:  s,
		fn:     fn,
		notify: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.subs[sub.id] = sub
	s.mu.Unlock()

	go sub.run()
	return sub, nil
}

// ID returns the subscription's monotonic id. A resubscribe always yields a
// larger id, which callers can use to discard state from a superseded
// subscription.
func (sub *Subscription) ID() uint64 { return sub.id }

// Path returns the subscribed path.
func (sub *Subscription) Path() string { return sub.path }

// Unsubscribe cancels delivery. It is safe to call multiple times and from
// multiple goroutines; when it returns, the handler will never be invoked
// again. It must not be called from inside the subscription's own handler.
func (sub *Subscription) Unsubscribe() {
	sub.once.Do(func() {
		sub.store.mu.Lock()
		delete(sub.store.subs, sub.id)
		sub.store.mu.Unlock()
		close(sub.stop)
	})
	<-sub.done
}

// wake marks the subscription dirty. Multiple wakes before the next delivery
// collapse into one.
func (sub *Subscription) wake() {
	select {
	case sub.notify <- struct{}{}:
	default:
	}
}

func (sub *Subscription) run() {
	defer close(sub.done)
	for {
		// Stop wins over a pending wake so no delivery races Unsubscribe.
		select {
		case <-sub.stop:
			return
		default:
		}

		sub.deliver()

		select {
		case <-sub.stop:
			return
		case <-sub.notify:
		}
	}
}

func (sub *Subscription) deliver() {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	value, err := sub.store.Get(ctx, sub.path)
	if err != nil {
		slog.Warn("subscription snapshot failed", "path", sub.path, "error", err)
		return
	}
	children, err := sub.store.Children(ctx, sub.path)
	if err != nil {
		slog.Warn("subscription snapshot failed", "path", sub.path, "error", err)
		return
	}

	sub.fn(Snapshot{Path: sub.path, Value: value, Children: children})
}
