package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/storefleet/commerce-core/internal/notification/domain"
)

type Repository interface {
	Create(ctx context.Context, n domain.Notification) error
	Update(ctx context.Context, n domain.Notification) error
	GetByID(ctx context.Context, id string) (domain.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]domain.Notification, error)
}

type Service struct {
	log  *slog.Logger
	repo Repository
}

func NewService(log *slog.Logger, repo Repository) *Service {
	return &Service{log: log, repo: repo}
}

func (s *Service) Record(ctx context.Context, userID string, t domain.Type, subject, message string) (domain.Notification, error) {
	n := domain.New(userID, t, subject, message)
	if err := s.repo.Create(ctx, n); err != nil {
		return domain.Notification{}, fmt.Errorf("record notification: %w", err)
	}
	s.log.Info("notification recorded",
		slog.String("notification_id", n.ID),
		slog.String("user_id", userID),
		slog.String("type", string(t)))
	return n, nil
}

func (s *Service) MarkRead(ctx context.Context, id string) (domain.Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Notification{}, err
	}
	if n.Read {
		return n, nil
	}
	n.Read = true
	if err := s.repo.Update(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, false)
}

func (s *Service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, true)
}
