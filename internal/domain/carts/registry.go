package carts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const mutateAttempts = 3

// Registry owns the carts of all sessions. It is the only way the API layer
// reaches a cart: handlers call its operations and never write cart fields.
//
// When a SnapshotStore is configured the registry restores a user's cart on
// first access and writes every changed snapshot through to the store.
type Registry struct {
	mu     sync.RWMutex
	carts  map[string]*Cart
	store  SnapshotStore
	idle   time.Duration
	logger *zap.SugaredLogger
}

func NewRegistry(store SnapshotStore, idle time.Duration, logger *zap.SugaredLogger) *Registry {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Registry{
		carts:  make(map[string]*Cart),
		store:  store,
		idle:   idle,
		logger: logger,
	}
}

// Get returns the user's cart, creating (or restoring) it on first access.
func (r *Registry) Get(ctx context.Context, userID string) (*Cart, error) {
	r.mu.RLock()
	c, ok := r.carts[userID]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	loaded, err := r.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another request may have won the race while we were loading
	if c, ok := r.carts[userID]; ok {
		return c, nil
	}
	r.carts[userID] = loaded
	return loaded, nil
}

func (r *Registry) load(ctx context.Context, userID string) (*Cart, error) {
	if r.store == nil {
		return New(userID), nil
	}

	s, err := r.store.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			return New(userID), nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	s.UserID = userID
	return Restore(*s), nil
}

func (r *Registry) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	c, err := r.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return c.Snapshot(), nil
}

func (r *Registry) Add(ctx context.Context, userID string, p Product, qty int) (Snapshot, error) {
	return r.mutate(ctx, userID, func(c *Cart) bool { return c.Add(p, qty) })
}

func (r *Registry) ChangeQty(ctx context.Context, userID, key string, delta int) (Snapshot, error) {
	return r.mutate(ctx, userID, func(c *Cart) bool { return c.ChangeQty(key, delta) })
}

func (r *Registry) SetQuantity(ctx context.Context, userID, key string, qty int) (Snapshot, error) {
	return r.mutate(ctx, userID, func(c *Cart) bool { return c.SetQuantity(key, qty) })
}

func (r *Registry) Remove(ctx context.Context, userID, key string) (Snapshot, error) {
	return r.mutate(ctx, userID, func(c *Cart) bool { return c.Remove(key) })
}

func (r *Registry) RemoveMany(ctx context.Context, userID string, keys []string) (Snapshot, error) {
	return r.mutate(ctx, userID, func(c *Cart) bool { return c.RemoveMany(keys) })
}

func (r *Registry) Clear(ctx context.Context, userID string) (Snapshot, error) {
	return r.mutate(ctx, userID, func(c *Cart) bool { return c.Clear() })
}

// ClearOrdered takes an ordered snapshot out of the user's cart. Lines added
// or raised after the snapshot was taken are kept.
func (r *Registry) ClearOrdered(ctx context.Context, userID string, ordered Snapshot) (Snapshot, error) {
	return r.mutate(ctx, userID, func(c *Cart) bool { return c.ClearOrdered(ordered) })
}

// mutate applies fn to the registered cart. If the cart was evicted while fn
// ran, the change landed on an orphan and is replayed on the fresh cart.
func (r *Registry) mutate(ctx context.Context, userID string, fn func(*Cart) bool) (Snapshot, error) {
	for attempt := 0; ; attempt++ {
		c, err := r.Get(ctx, userID)
		if err != nil {
			return Snapshot{}, err
		}

		changed := fn(c)
		if c.isEvicted() && attempt < mutateAttempts-1 {
			continue
		}
		snap := c.Snapshot()
		if changed {
			r.persist(ctx, snap)
		}
		return snap, nil
	}
}

// persist is best-effort: the in-memory cart stays authoritative.
func (r *Registry) persist(ctx context.Context, s Snapshot) {
	if r.store == nil {
		return
	}
	err := r.store.Save(ctx, s)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleSnapshot):
		r.logger.Warnw("cart snapshot not persisted, store holds a newer version", "user_id", s.UserID, "version", s.Version)
	default:
		r.logger.Warnw("persist cart snapshot failed", "user_id", s.UserID, "version", s.Version, "err", err)
	}
}

// Len reports how many carts are held in memory.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carts)
}

// Active lists non-empty carts, most recently updated first.
func (r *Registry) Active(limit, offset int) ([]Summary, int) {
	r.mu.RLock()
	held := make([]*Cart, 0, len(r.carts))
	for _, c := range r.carts {
		held = append(held, c)
	}
	r.mu.RUnlock()

	out := make([]Summary, 0, len(held))
	for _, c := range held {
		s := c.Snapshot()
		if s.Empty() {
			continue
		}
		t := s.Totals()
		out = append(out, Summary{
			UserID:    s.UserID,
			ItemCount: t.ItemCount,
			Total:     t.Total,
			UpdatedAt: s.UpdatedAt,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	total := len(out)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []Summary{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return out[offset:end], total
}

// EvictIdle drops carts not updated within the idle window and returns how
// many were evicted. Persisted snapshots are untouched; they expire on their
// own TTL in the store.
func (r *Registry) EvictIdle(now time.Time) int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := now.Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, c := range r.carts {
		if c.evictIfIdle(cutoff) {
			delete(r.carts, id)
			n++
		}
	}
	return n
}

// DeleteExpired purges expired snapshots from the configured store.
func (r *Registry) DeleteExpired(ctx context.Context) (int64, error) {
	if r.store == nil {
		return 0, nil
	}
	return r.store.DeleteExpired(ctx)
}
