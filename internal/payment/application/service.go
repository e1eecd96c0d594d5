package application

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/storefleet/commerce-core/internal/payment/domain"
)

type Service struct {
	log  *slog.Logger
	repo PaymentRepository
}

func NewService(log *slog.Logger, repo PaymentRepository) *Service {
	return &Service{log: log, repo: repo}
}

// Process charges an order exactly once. There is no external gateway in
// this design: the payment moves PROCESSING -> COMPLETED synchronously.
// A second call for the same order returns domain.ErrDuplicatePayment.
func (s *Service) Process(ctx context.Context, orderID, userID string, amountCents int64, currency domain.Currency, method domain.Method) (domain.Payment, error) {
	p, err := domain.NewPayment(uuid.NewString(), orderID, userID, amountCents, currency, method, uuid.NewString())
	if err != nil {
		return domain.Payment{}, err
	}

	p.MarkProcessing()
	p.MarkCompleted()

	if err := s.repo.Create(ctx, p); err != nil {
		return domain.Payment{}, err
	}
	s.log.Info("payment completed", "payment_id", p.ID, "order_id", orderID, "transaction_id", p.TransactionID, "amount_cents", amountCents)
	return p, nil
}

// Refund reverses a completed payment. It does not touch inventory;
// releasing holds is the order workflow's job.
func (s *Service) Refund(ctx context.Context, paymentID string) (domain.Payment, error) {
	p, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	if err := p.Refund(); err != nil {
		return domain.Payment{}, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return domain.Payment{}, err
	}
	s.log.Info("payment refunded", "payment_id", p.ID, "order_id", p.OrderID)
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}
