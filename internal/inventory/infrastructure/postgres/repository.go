package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storefleet/commerce-core/internal/inventory/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Migrate bootstraps the inventory schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS inventory (
		id BIGSERIAL PRIMARY KEY,
		product_id TEXT NOT NULL UNIQUE,
		on_hand INT NOT NULL CHECK (on_hand >= 0),
		reserved INT NOT NULL DEFAULT 0 CHECK (reserved >= 0 AND reserved <= on_hand),
		warehouse TEXT,
		version BIGINT NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}

func (r *Repository) Create(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO inventory
		(product_id, on_hand, reserved, warehouse, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,1,$5,$6)
		RETURNING id, version`,
		rec.ProductID, rec.OnHand, rec.Reserved, rec.Warehouse, rec.CreatedAt, rec.UpdatedAt).
		Scan(&rec.ID, &rec.Version)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.StockRecord{}, domain.ErrAlreadyStocked
		}
		return domain.StockRecord{}, err
	}
	return rec, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.StockRecord, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectStock+` WHERE id=$1`, id))
}

func (r *Repository) GetByProductID(ctx context.Context, productID string) (domain.StockRecord, error) {
	return r.scanOne(r.pool.QueryRow(ctx, selectStock+` WHERE product_id=$1`, productID))
}

func (r *Repository) List(ctx context.Context) ([]domain.StockRecord, error) {
	rows, err := r.pool.Query(ctx, selectStock+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StockRecord
	for rows.Next() {
		var rec domain.StockRecord
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.OnHand, &rec.Reserved, &rec.Warehouse, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Update is the compare-and-swap: the row is written only when its stored
// version still matches, so concurrent reserve/release on one product
// cannot lose updates.
func (r *Repository) Update(ctx context.Context, rec domain.StockRecord) (domain.StockRecord, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE inventory
		SET on_hand=$2, reserved=$3, warehouse=$4, version=version+1, updated_at=$5
		WHERE product_id=$1 AND version=$6`,
		rec.ProductID, rec.OnHand, rec.Reserved, rec.Warehouse, rec.UpdatedAt, rec.Version)
	if err != nil {
		return domain.StockRecord{}, err
	}
	if ct.RowsAffected() == 0 {
		// Either the row vanished or another writer bumped the version.
		if _, err := r.GetByProductID(ctx, rec.ProductID); errors.Is(err, domain.ErrNotFound) {
			return domain.StockRecord{}, domain.ErrNotFound
		}
		return domain.StockRecord{}, domain.ErrVersionConflict
	}
	rec.Version++
	return rec, nil
}

const selectStock = `SELECT id, product_id, on_hand, reserved, COALESCE(warehouse,''), version, created_at, updated_at FROM inventory`

func (r *Repository) scanOne(row pgx.Row) (domain.StockRecord, error) {
	var rec domain.StockRecord
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.OnHand, &rec.Reserved, &rec.Warehouse, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.StockRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.StockRecord{}, err
	}
	return rec, nil
}
