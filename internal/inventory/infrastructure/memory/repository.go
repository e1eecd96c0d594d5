// Package memory holds an in-process StockRepository used by unit tests
// and local single-binary runs.
package memory

import (
	"context"
	"sync"

	"github.com/storefleet/commerce-core/internal/inventory/domain"
)

type Repository struct {
	mu      sync.RWMutex
	nextID  int64
	records map[string]domain.StockRecord
}

func NewRepository() *Repository {
	return &Repository{records: make(map[string]domain.StockRecord)}
}

func (r *Repository) Create(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ProductID]; ok {
		return domain.StockRecord{}, domain.ErrAlreadyStocked
	}
	r.nextID++
	rec.ID = r.nextID
	rec.Version = 1
	r.records[rec.ProductID] = rec
	return rec, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.StockRecord{}, domain.ErrNotFound
}

func (r *Repository) GetByProductID(ctx context.Context, productID string) (domain.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[productID]
	if !ok {
		return domain.StockRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.StockRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.StockRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.records[rec.ProductID]
	if !ok {
		return domain.StockRecord{}, domain.ErrNotFound
	}
	if current.Version != rec.Version {
		return domain.StockRecord{}, domain.ErrVersionConflict
	}
	rec.Version++
	r.records[rec.ProductID] = rec
	return rec, nil
}
