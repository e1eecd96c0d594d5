package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storefleet/commerce-core/internal/order/domain"
	"github.com/storefleet/commerce-core/pkg/outbox"
	"github.com/storefleet/commerce-core/pkg/tracing"
)

const staleBatchLimit = 50

type Service struct {
	log       *slog.Logger
	repo      OrderRepository
	inventory InventoryClient
	payments  PaymentClient
}

func NewService(log *slog.Logger, repo OrderRepository, inv InventoryClient, pay PaymentClient) *Service {
	return &Service{log: log, repo: repo, inventory: inv, payments: pay}
}

// CreateRequest carries everything needed to place an order. Payment
// details ride along so the workflow can charge in the same call.
type CreateRequest struct {
	UserID          string
	Lines           []domain.Line
	ShippingAddress string
	Currency        string
	PaymentMethod   string
}

// CreateOrder places an order through the reservation and payment saga.
// The order is persisted as PENDING before any side effect so a crash
// mid-saga leaves an auditable record; on success it is re-persisted as
// CONFIRMED, on saga failure as CANCELLED with the cause surfaced.
func (s *Service) CreateOrder(ctx context.Context, req CreateRequest) (domain.Order, error) {
	o, err := domain.NewOrder(req.UserID, req.Lines, req.ShippingAddress)
	if err != nil {
		return domain.Order{}, err
	}

	// Advisory pre-check: catch obviously short stock before any state
	// is written. The reserve step remains the authority; a stale yes
	// here is resolved by the saga.
	for _, l := range o.Lines {
		ok, err := s.inventory.CheckAvailability(ctx, l.ProductID, l.Quantity)
		if err != nil {
			s.log.Warn("availability pre-check failed, proceeding to reserve",
				slog.String("product_id", l.ProductID),
				slog.String("error", err.Error()))
			continue
		}
		if !ok {
			return domain.Order{}, fmt.Errorf("product %s: %w", l.ProductID, ErrInsufficientStock)
		}
	}

	created := outboxEvent(o, domain.EventOrderCreated, "", "", tracing.Traceparent(ctx))
	if err := s.repo.SaveWithOutbox(ctx, o, []outbox.Event{created}); err != nil {
		return domain.Order{}, fmt.Errorf("persist pending order: %w", err)
	}

	sg := &saga{log: s.log, steps: s.placementSteps(&o, req)}
	if sagaErr := sg.execute(ctx); sagaErr != nil {
		prev := o.Status
		if err := o.TransitionTo(domain.StatusCancelled); err == nil {
			cancelled := outboxEvent(o, domain.EventOrderCancelled, prev, sagaErr.Error(), tracing.Traceparent(ctx))
			if err := s.repo.SaveWithOutbox(ctx, o, []outbox.Event{cancelled}); err != nil {
				s.log.Error("failed to persist cancelled order after saga failure",
					slog.String("order_id", o.ID),
					slog.String("error", err.Error()))
			}
		}
		return domain.Order{}, sagaErr
	}

	prev := o.Status
	if err := o.TransitionTo(domain.StatusConfirmed); err != nil {
		return domain.Order{}, err
	}
	confirmed := outboxEvent(o, domain.EventOrderConfirmed, prev, "", tracing.Traceparent(ctx))
	if err := s.repo.SaveWithOutbox(ctx, o, []outbox.Event{confirmed}); err != nil {
		return domain.Order{}, fmt.Errorf("persist confirmed order: %w", err)
	}

	s.log.Info("order confirmed",
		slog.String("order_id", o.ID),
		slog.String("user_id", o.UserID),
		slog.Int64("total_cents", o.TotalAmountCents))
	return o, nil
}

// placementSteps builds one reservation step per line followed by a
// single payment step for the order total. A zero-total order has
// nothing to charge, so the payment step is omitted entirely.
func (s *Service) placementSteps(o *domain.Order, req CreateRequest) []step {
	steps := make([]step, 0, len(o.Lines)+1)
	for _, l := range o.Lines {
		l := l
		steps = append(steps, step{
			name: "reserve " + l.ProductID,
			run: func(ctx context.Context) error {
				return s.inventory.Reserve(ctx, l.ProductID, l.Quantity)
			},
			compensate: func(ctx context.Context) error {
				return s.inventory.Release(ctx, l.ProductID, l.Quantity)
			},
		})
	}
	if o.TotalAmountCents == 0 {
		return steps
	}

	var paymentID string
	steps = append(steps, step{
		name: "process payment",
		run: func(ctx context.Context) error {
			id, err := s.payments.Process(ctx, o.ID, o.UserID, o.TotalAmountCents, req.Currency, req.PaymentMethod)
			if err != nil {
				return err
			}
			paymentID = id
			return nil
		},
		compensate: func(ctx context.Context) error {
			if paymentID == "" {
				return nil
			}
			return s.payments.Refund(ctx, paymentID)
		},
	})
	return steps
}

// UpdateStatus advances the order through the state machine. A request
// for CANCELLED goes through the full cancellation path so compensation
// runs.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, next domain.Status) (domain.Order, error) {
	if next == domain.StatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	prev := o.Status
	if err := o.TransitionTo(next); err != nil {
		return domain.Order{}, err
	}

	ev := outboxEvent(o, domain.EventTypeFor(next), prev, "", tracing.Traceparent(ctx))
	if err := s.repo.SaveWithOutbox(ctx, o, []outbox.Event{ev}); err != nil {
		return domain.Order{}, fmt.Errorf("persist status change: %w", err)
	}

	s.log.Info("order status changed",
		slog.String("order_id", o.ID),
		slog.String("from", string(prev)),
		slog.String("to", string(next)))
	return o, nil
}

// CancelOrder releases every reservation and refunds a completed
// payment, then records the order as CANCELLED. Cancelling an already
// cancelled order is a no-op; only DELIVERED refuses.
func (s *Service) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status == domain.StatusCancelled {
		return o, nil
	}
	prev := o.Status
	if err := o.TransitionTo(domain.StatusCancelled); err != nil {
		return domain.Order{}, err
	}

	for _, l := range o.Lines {
		if err := s.inventory.Release(ctx, l.ProductID, l.Quantity); err != nil {
			s.log.Error("release failed during cancellation",
				slog.String("order_id", o.ID),
				slog.String("product_id", l.ProductID),
				slog.String("error", err.Error()))
		}
	}

	if err := s.refundIfCompleted(ctx, o.ID); err != nil {
		s.log.Error("refund failed during cancellation",
			slog.String("order_id", o.ID),
			slog.String("error", err.Error()))
	}

	ev := outboxEvent(o, domain.EventOrderCancelled, prev, "cancelled by request", tracing.Traceparent(ctx))
	if err := s.repo.SaveWithOutbox(ctx, o, []outbox.Event{ev}); err != nil {
		return domain.Order{}, fmt.Errorf("persist cancellation: %w", err)
	}

	s.log.Info("order cancelled", slog.String("order_id", o.ID), slog.String("was", string(prev)))
	return o, nil
}

func (s *Service) refundIfCompleted(ctx context.Context, orderID string) error {
	info, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if info.Status != "COMPLETED" {
		return nil
	}
	return s.payments.Refund(ctx, info.ID)
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// WatchStalePending periodically flags orders stuck in PENDING longer
// than olderThan. It blocks until ctx is cancelled.
func (s *Service) WatchStalePending(ctx context.Context, every, olderThan time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stale, err := s.repo.ListStalePending(ctx, olderThan, staleBatchLimit)
			if err != nil {
				s.log.Error("stale pending scan failed", slog.String("error", err.Error()))
				continue
			}
			for _, o := range stale {
				s.log.Warn("order stuck in PENDING",
					slog.String("order_id", o.ID),
					slog.String("user_id", o.UserID),
					slog.Time("created_at", o.CreatedAt))
			}
		}
	}
}

func outboxEvent(o domain.Order, eventType string, prev domain.Status, reason, traceparent string) outbox.Event {
	return outbox.Event{
		AggregateType: domain.AggregateOrder,
		AggregateID:   o.ID,
		Type:          eventType,
		Payload:       domain.MarshalEvent(o, prev, reason),
		Traceparent:   traceparent,
		CreatedAt:     time.Now().UTC(),
		Status:        outbox.StatusPending,
	}
}
