package carts

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the line-item aggregate of one user. All operations are total:
// unknown keys and malformed input are absorbed, never reported. Every
// operation runs under a single mutex so read-modify-write sequences such as
// ChangeQty cannot lose updates when handlers race on the same cart.
//
// Each operation that changes the cart bumps Version exactly once.
type Cart struct {
	mu        sync.Mutex
	userID    string
	version   uint64
	order     []string
	lines     map[string]*LineItem
	updatedAt time.Time
	now       func() time.Time
	evicted   bool
}

func New(userID string) *Cart {
	return &Cart{
		userID:    userID,
		lines:     make(map[string]*LineItem),
		now:       time.Now,
		updatedAt: time.Now(),
	}
}

// Restore rebuilds a cart from a persisted snapshot. Lines that violate the
// cart invariants (blank key, quantity < 1, duplicate key) are dropped.
func Restore(s Snapshot) *Cart {
	c := New(s.UserID)
	c.version = s.Version
	if !s.UpdatedAt.IsZero() {
		c.updatedAt = s.UpdatedAt
	}
	for _, it := range s.Items {
		key := normalizeKey(it.Key)
		if key == "" || it.Quantity < 1 {
			continue
		}
		if _, dup := c.lines[key]; dup {
			continue
		}
		line := it
		line.Key = key
		if line.UnitPrice.IsNegative() {
			line.UnitPrice = decimal.Zero
		}
		c.lines[key] = &line
		c.order = append(c.order, key)
	}
	return c
}

func (c *Cart) UserID() string {
	return c.userID
}

func (c *Cart) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *Cart) UpdatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updatedAt
}

// Add puts qty units of p into the cart. On an existing key the quantity is
// adjusted by qty and clamped at zero, which removes the line. On a new key
// nothing happens unless qty > 0.
func (c *Cart) Add(p Product, qty int) bool {
	key := ResolveKey(p)
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.lines[key]; ok {
		return c.setLocked(key, addQty(it.Quantity, qty))
	}
	if qty <= 0 {
		return false
	}

	price := p.Price
	if price.IsNegative() {
		price = decimal.Zero
	}
	name := trim(p.Name)
	if name == "" {
		name = key
	}

	c.lines[key] = &LineItem{
		Key:         key,
		ProductID:   firstNonEmpty(p.Key, p.ID),
		Name:        name,
		UnitPrice:   price,
		Quantity:    qty,
		ImageURL:    trim(p.ImageURL),
		Description: p.Description,
	}
	c.order = append(c.order, key)
	c.bumpLocked()
	return true
}

// ChangeQty adds delta (possibly negative) to the quantity of key.
func (c *Cart) ChangeQty(key string, delta int) bool {
	key = normalizeKey(key)
	if key == "" || delta == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.lines[key]
	if !ok {
		return false
	}
	return c.setLocked(key, addQty(it.Quantity, delta))
}

// SetQuantity overwrites the quantity of key; qty <= 0 removes the line.
func (c *Cart) SetQuantity(key string, qty int) bool {
	key = normalizeKey(key)
	if key == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lines[key]; !ok {
		return false
	}
	return c.setLocked(key, qty)
}

func (c *Cart) Remove(key string) bool {
	key = normalizeKey(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lines[key]; !ok {
		return false
	}
	c.deleteLocked(key)
	c.bumpLocked()
	return true
}

// RemoveMany drops every line whose key is in keys as a single transition.
// Use KeyOf to turn numeric identifiers into keys.
func (c *Cart) RemoveMany(keys []string) bool {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k = normalizeKey(k); k != "" {
			drop[k] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.order[:0:0]
	removed := 0
	for _, k := range c.order {
		if _, ok := drop[k]; ok {
			delete(c.lines, k)
			removed++
			continue
		}
		kept = append(kept, k)
	}
	if removed == 0 {
		return false
	}
	c.order = kept
	c.bumpLocked()
	return true
}

func (c *Cart) Clear() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) == 0 {
		return false
	}
	c.order = nil
	c.lines = make(map[string]*LineItem)
	c.bumpLocked()
	return true
}

// ClearOrdered removes what an order took out of the cart. When the cart is
// still at the ordered snapshot's version it is emptied; otherwise the
// ordered quantities are subtracted line by line so anything added since
// survives. Either way it is a single transition.
func (c *Cart) ClearOrdered(ordered Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.order) == 0 {
		return false
	}
	if c.version == ordered.Version {
		c.order = nil
		c.lines = make(map[string]*LineItem)
		c.bumpLocked()
		return true
	}

	changed := false
	for _, o := range ordered.Items {
		it, ok := c.lines[o.Key]
		if !ok {
			continue
		}
		if left := it.Quantity - o.Quantity; left > 0 {
			it.Quantity = left
		} else {
			c.deleteLocked(o.Key)
		}
		changed = true
	}
	if changed {
		c.bumpLocked()
	}
	return changed
}

// Snapshot copies the current lines in insertion order.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]LineItem, 0, len(c.order))
	for _, k := range c.order {
		items = append(items, *c.lines[k])
	}
	return Snapshot{
		UserID:    c.userID,
		Version:   c.version,
		Items:     items,
		UpdatedAt: c.updatedAt,
	}
}

func (c *Cart) Totals() Totals {
	return c.Snapshot().Totals()
}

func (c *Cart) setLocked(key string, qty int) bool {
	if qty <= 0 {
		c.deleteLocked(key)
		c.bumpLocked()
		return true
	}
	it := c.lines[key]
	if it.Quantity == qty {
		return false
	}
	it.Quantity = qty
	c.bumpLocked()
	return true
}

// evictIfIdle marks the cart evicted when it was last changed before cutoff.
func (c *Cart) evictIfIdle(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.updatedAt.Before(cutoff) {
		return false
	}
	c.evicted = true
	return true
}

func (c *Cart) isEvicted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evicted
}

// addQty saturates instead of wrapping so a huge increment never turns into
// a removal.
func addQty(cur, delta int) int {
	switch {
	case delta > 0 && cur > math.MaxInt-delta:
		return math.MaxInt
	case delta < 0 && cur < math.MinInt-delta:
		return math.MinInt
	}
	return cur + delta
}

func (c *Cart) deleteLocked(key string) {
	delete(c.lines, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) bumpLocked() {
	c.version++
	c.updatedAt = c.now()
}
