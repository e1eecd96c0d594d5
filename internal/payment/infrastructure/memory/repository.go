package memory

import (
	"context"
	"sync"

	"github.com/storefleet/commerce-core/internal/payment/domain"
)

type Repository struct {
	mu       sync.RWMutex
	payments map[string]domain.Payment
}

func NewRepository() *Repository {
	return &Repository{payments: make(map[string]domain.Payment)}
}

func (r *Repository) Create(ctx context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.payments {
		if existing.OrderID == p.OrderID && existing.Active() {
			return domain.ErrDuplicatePayment
		}
	}
	r.payments[p.ID] = p
	return nil
}

func (r *Repository) Update(ctx context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.payments[p.ID] = p
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[id]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Prefer the active payment; fall back to the most recent inactive one.
	var fallback *domain.Payment
	for _, p := range r.payments {
		if p.OrderID != orderID {
			continue
		}
		if p.Active() {
			return p, nil
		}
		cp := p
		if fallback == nil || cp.CreatedAt.After(fallback.CreatedAt) {
			fallback = &cp
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return domain.Payment{}, domain.ErrNotFound
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}
