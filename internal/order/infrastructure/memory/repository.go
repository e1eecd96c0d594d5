// Package memory holds an in-memory order repository used by tests and
// local development. Outbox events are kept alongside orders so tests
// can assert on what would have been relayed.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/storefleet/commerce-core/internal/order/domain"
	"github.com/storefleet/commerce-core/pkg/outbox"
)

type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	events []outbox.Event
	nextID int64
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order), nextID: 1}
}

func (r *Repository) SaveWithOutbox(_ context.Context, o domain.Order, events []outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	for _, ev := range events {
		ev.ID = r.nextID
		r.nextID++
		r.events = append(r.events, ev)
	}
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

func (r *Repository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) ListStalePending(_ context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.Status == domain.StatusPending && o.CreatedAt.Before(cutoff) {
			out = append(out, o)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Events returns a copy of the outbox rows written so far.
func (r *Repository) Events() []outbox.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]outbox.Event, len(r.events))
	copy(out, r.events)
	return out
}
