package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/storefleet/commerce-core/internal/notification/domain"
)

type Repository struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
}

func NewRepository() *Repository {
	return &Repository{items: make(map[string]domain.Notification)}
}

func (r *Repository) Create(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = n
	return nil
}

func (r *Repository) Update(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[n.ID]; !ok {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrNotFound)
	}
	r.items[n.ID] = n
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.items[id]
	if !ok {
		return domain.Notification{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return n, nil
}

func (r *Repository) ListByUser(_ context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Notification
	for _, n := range r.items {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
