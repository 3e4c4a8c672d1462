package orders

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps orders in process memory. Used when no database is
// configured.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byUser map[string][]*Order
	byRef  map[string]*Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUser: make(map[string][]*Order),
		byRef:  make(map[string]*Order),
	}
}

func (m *MemoryStore) Record(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.byRef[o.Reference]; dup {
		return nil
	}
	if o.Status == "" {
		o.Status = StatusConfirmed
	}
	m.nextID++
	o.ID = m.nextID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	stored := *o
	stored.Lines = append([]OrderLine(nil), o.Lines...)
	m.byRef[o.Reference] = &stored
	m.byUser[o.UserID] = append(m.byUser[o.UserID], &stored)
	return nil
}

// ListByUser returns newest first, without lines, like the SQL repository.
func (m *MemoryStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Order, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.byUser[userID]
	total := len(all)
	out := make([]Order, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		o := *all[i]
		o.Lines = nil
		out = append(out, o)
	}
	return out, total, nil
}

func (m *MemoryStore) GetByReference(ctx context.Context, userID, reference string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.byRef[reference]
	if !ok || o.UserID != userID {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Lines = append([]OrderLine(nil), o.Lines...)
	return &cp, nil
}
