package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storefleet/commerce-core/internal/notification/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			subject    TEXT NOT NULL,
			message    TEXT NOT NULL,
			read       BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS notifications_user ON notifications (user_id, created_at DESC);
	`)
	return err
}

func (r *Repository) Create(ctx context.Context, n domain.Notification) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO notifications (id, user_id, type, subject, message, read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		n.ID, n.UserID, n.Type, n.Subject, n.Message, n.Read, n.CreatedAt)
	return err
}

func (r *Repository) Update(ctx context.Context, n domain.Notification) error {
	ct, err := r.pool.Exec(ctx, `UPDATE notifications SET read=$2 WHERE id=$1`, n.ID, n.Read)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (domain.Notification, error) {
	var n domain.Notification
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, type, subject, message, read, created_at
		FROM notifications WHERE id=$1`, id).
		Scan(&n.ID, &n.UserID, &n.Type, &n.Subject, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Notification{}, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return domain.Notification{}, err
	}
	return n, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error) {
	q := `SELECT id, user_id, type, subject, message, read, created_at
		FROM notifications WHERE user_id=$1`
	if unreadOnly {
		q += ` AND read=FALSE`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Subject, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
