package application

import (
	"context"

	"github.com/storefleet/commerce-core/internal/inventory/domain"
)

type StockRepository interface {
	// Create assigns an ID and persists a fresh record. Returns
	// domain.ErrAlreadyStocked when the product already has one.
	Create(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error)
	GetByID(ctx context.Context, id int64) (domain.StockRecord, error)
	GetByProductID(ctx context.Context, productID string) (domain.StockRecord, error)
	List(ctx context.Context) ([]domain.StockRecord, error)
	// Update persists rec only if the stored Version still matches rec.Version,
	// bumping it by one. Returns domain.ErrVersionConflict otherwise.
	Update(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error)
}
