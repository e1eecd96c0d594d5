package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	invapp "github.com/storefleet/commerce-core/internal/inventory/application"
	invdomain "github.com/storefleet/commerce-core/internal/inventory/domain"
	invmemory "github.com/storefleet/commerce-core/internal/inventory/infrastructure/memory"
	"github.com/storefleet/commerce-core/internal/order/application"
	"github.com/storefleet/commerce-core/internal/order/domain"
	ordermemory "github.com/storefleet/commerce-core/internal/order/infrastructure/memory"
	payapp "github.com/storefleet/commerce-core/internal/payment/application"
	paydomain "github.com/storefleet/commerce-core/internal/payment/domain"
	paymemory "github.com/storefleet/commerce-core/internal/payment/infrastructure/memory"
)

// inventoryAdapter drives the real inventory service in process,
// translating its errors the way the HTTP client does.
type inventoryAdapter struct {
	svc *invapp.Service
}

func (a inventoryAdapter) Reserve(ctx context.Context, productID string, qty int) error {
	_, err := a.svc.Reserve(ctx, productID, qty)
	if errors.Is(err, invdomain.ErrInsufficientStock) {
		return fmt.Errorf("product %s: %w", productID, application.ErrInsufficientStock)
	}
	return err
}

func (a inventoryAdapter) Release(ctx context.Context, productID string, qty int) error {
	_, err := a.svc.Release(ctx, productID, qty)
	return err
}

func (a inventoryAdapter) CheckAvailability(ctx context.Context, productID string, qty int) (bool, error) {
	return a.svc.CheckAvailability(ctx, productID, qty)
}

// staleInventory reports everything as available, standing in for a
// pre-check read that raced a concurrent reservation.
type staleInventory struct {
	inventoryAdapter
}

func (staleInventory) CheckAvailability(context.Context, string, int) (bool, error) {
	return true, nil
}

type paymentAdapter struct {
	svc     *payapp.Service
	decline bool
}

func (a *paymentAdapter) Process(ctx context.Context, orderID, userID string, amountCents int64, currency, method string) (string, error) {
	if a.decline {
		return "", application.ErrPaymentDeclined
	}
	p, err := a.svc.Process(ctx, orderID, userID, amountCents, paydomain.Currency(currency), paydomain.Method(method))
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func (a *paymentAdapter) Refund(ctx context.Context, paymentID string) error {
	_, err := a.svc.Refund(ctx, paymentID)
	return err
}

func (a *paymentAdapter) GetByOrderID(ctx context.Context, orderID string) (application.PaymentInfo, error) {
	p, err := a.svc.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, paydomain.ErrNotFound) {
			return application.PaymentInfo{}, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
		}
		return application.PaymentInfo{}, err
	}
	return application.PaymentInfo{ID: p.ID, Status: string(p.Status)}, nil
}

type WorkflowSuite struct {
	suite.Suite

	inventory *invapp.Service
	payRepo   *paymemory.Repository
	payments  *paymentAdapter
	repo      *ordermemory.Repository
	svc       *application.Service
	ctx       context.Context
}

func (s *WorkflowSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.ctx = context.Background()

	s.inventory = invapp.NewService(log, invmemory.NewRepository())
	s.payRepo = paymemory.NewRepository()
	s.payments = &paymentAdapter{svc: payapp.NewService(log, s.payRepo)}
	s.repo = ordermemory.NewRepository()
	s.svc = application.NewService(log, s.repo, inventoryAdapter{svc: s.inventory}, s.payments)

	_, err := s.inventory.AddStock(s.ctx, "p1", 10, "east")
	s.Require().NoError(err)
	_, err = s.inventory.AddStock(s.ctx, "p2", 5, "east")
	s.Require().NoError(err)
}

func (s *WorkflowSuite) placeOrder(lines ...domain.Line) (domain.Order, error) {
	return s.svc.CreateOrder(s.ctx, application.CreateRequest{
		UserID:          "user-1",
		Lines:           lines,
		ShippingAddress: "1 Main St",
		Currency:        "USD",
		PaymentMethod:   "CREDIT_CARD",
	})
}

func (s *WorkflowSuite) reserved(productID string) int {
	rec, err := s.inventory.GetByProductID(s.ctx, productID)
	s.Require().NoError(err)
	return rec.Reserved
}

func (s *WorkflowSuite) TestCreateOrder_HappyPath() {
	o, err := s.placeOrder(
		domain.Line{ProductID: "p1", Quantity: 2, UnitPriceCents: 30},
		domain.Line{ProductID: "p2", Quantity: 3, UnitPriceCents: 10},
	)
	s.Require().NoError(err)

	s.Equal(domain.StatusConfirmed, o.Status)
	s.Equal(int64(90), o.TotalAmountCents)
	s.Equal(2, s.reserved("p1"))
	s.Equal(3, s.reserved("p2"))

	p, err := s.payments.svc.GetByOrderID(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(paydomain.StatusCompleted, p.Status)
	s.Equal(int64(90), p.AmountCents)

	events := s.repo.Events()
	s.Require().Len(events, 2)
	s.Equal(domain.EventOrderCreated, events[0].Type)
	s.Equal(domain.EventOrderConfirmed, events[1].Type)
}

func (s *WorkflowSuite) TestCreateOrder_PrecheckRejectsBeforeSideEffects() {
	_, err := s.placeOrder(
		domain.Line{ProductID: "p1", Quantity: 2, UnitPriceCents: 30},
		domain.Line{ProductID: "p2", Quantity: 6, UnitPriceCents: 10},
	)
	s.Require().Error(err)
	s.ErrorIs(err, application.ErrInsufficientStock)
	s.Contains(err.Error(), "p2")

	s.Equal(0, s.reserved("p1"))
	s.Equal(0, s.reserved("p2"))

	orders, err := s.svc.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(orders)
	s.Empty(s.repo.Events())
}

func (s *WorkflowSuite) TestCreateOrder_StalePrecheckCompensatesEarlierLines() {
	svc := application.NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), s.repo,
		staleInventory{inventoryAdapter{svc: s.inventory}}, s.payments)

	_, err := svc.CreateOrder(s.ctx, application.CreateRequest{
		UserID: "user-1",
		Lines: []domain.Line{
			{ProductID: "p1", Quantity: 2, UnitPriceCents: 30},
			{ProductID: "p2", Quantity: 6, UnitPriceCents: 10},
		},
		ShippingAddress: "1 Main St",
		Currency:        "USD",
		PaymentMethod:   "CREDIT_CARD",
	})
	s.Require().Error(err)
	s.ErrorIs(err, application.ErrInsufficientStock)
	s.Contains(err.Error(), "p2")

	s.Equal(0, s.reserved("p1"))
	s.Equal(0, s.reserved("p2"))

	orders, err := svc.ListByUser(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(orders, 1)
	s.Equal(domain.StatusCancelled, orders[0].Status)
}

func (s *WorkflowSuite) TestCreateOrder_ZeroTotalSkipsPayment() {
	o, err := s.placeOrder(domain.Line{ProductID: "p1", Quantity: 2, UnitPriceCents: 0})
	s.Require().NoError(err)

	s.Equal(domain.StatusConfirmed, o.Status)
	s.Equal(int64(0), o.TotalAmountCents)
	s.Equal(2, s.reserved("p1"))

	_, err = s.payments.svc.GetByOrderID(s.ctx, o.ID)
	s.ErrorIs(err, paydomain.ErrNotFound)
}

func (s *WorkflowSuite) TestCreateOrder_PaymentFailureReleasesAllReservations() {
	s.payments.decline = true

	_, err := s.placeOrder(
		domain.Line{ProductID: "p1", Quantity: 2, UnitPriceCents: 30},
		domain.Line{ProductID: "p2", Quantity: 3, UnitPriceCents: 10},
	)
	s.Require().Error(err)
	s.ErrorIs(err, application.ErrPaymentDeclined)

	s.Equal(0, s.reserved("p1"))
	s.Equal(0, s.reserved("p2"))
}

func (s *WorkflowSuite) TestCreateOrder_ValidationBeforeSideEffects() {
	_, err := s.placeOrder(domain.Line{ProductID: "p1", Quantity: -1, UnitPriceCents: 30})
	s.ErrorIs(err, domain.ErrValidation)

	s.Equal(0, s.reserved("p1"))
	s.Empty(s.repo.Events())
}

func (s *WorkflowSuite) TestCancelOrder_ReleasesAndRefunds() {
	o, err := s.placeOrder(domain.Line{ProductID: "p1", Quantity: 2, UnitPriceCents: 50})
	s.Require().NoError(err)

	cancelled, err := s.svc.CancelOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, cancelled.Status)

	s.Equal(0, s.reserved("p1"))

	p, err := s.payments.svc.GetByOrderID(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(paydomain.StatusRefunded, p.Status)

	events := s.repo.Events()
	s.Equal(domain.EventOrderCancelled, events[len(events)-1].Type)
}

func (s *WorkflowSuite) TestCancelOrder_Idempotent() {
	o, err := s.placeOrder(domain.Line{ProductID: "p1", Quantity: 1, UnitPriceCents: 10})
	s.Require().NoError(err)

	_, err = s.svc.CancelOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	before := len(s.repo.Events())

	again, err := s.svc.CancelOrder(s.ctx, o.ID)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, again.Status)
	s.Len(s.repo.Events(), before)
	s.Equal(0, s.reserved("p1"))
}

func (s *WorkflowSuite) TestCancelOrder_DeliveredRefuses() {
	o, err := s.placeOrder(domain.Line{ProductID: "p1", Quantity: 1, UnitPriceCents: 10})
	s.Require().NoError(err)

	for _, st := range []domain.Status{domain.StatusProcessing, domain.StatusShipped, domain.StatusDelivered} {
		_, err = s.svc.UpdateStatus(s.ctx, o.ID, st)
		s.Require().NoError(err)
	}

	_, err = s.svc.CancelOrder(s.ctx, o.ID)
	s.ErrorIs(err, domain.ErrInvalidTransition)
	s.Equal(1, s.reserved("p1"))
}

func (s *WorkflowSuite) TestUpdateStatus_InvalidTransition() {
	o, err := s.placeOrder(domain.Line{ProductID: "p1", Quantity: 1, UnitPriceCents: 10})
	s.Require().NoError(err)

	_, err = s.svc.UpdateStatus(s.ctx, o.ID, domain.StatusDelivered)
	s.ErrorIs(err, domain.ErrInvalidTransition)
}

func (s *WorkflowSuite) TestUpdateStatus_CancelDelegatesToCancellation() {
	o, err := s.placeOrder(domain.Line{ProductID: "p1", Quantity: 2, UnitPriceCents: 10})
	s.Require().NoError(err)

	cancelled, err := s.svc.UpdateStatus(s.ctx, o.ID, domain.StatusCancelled)
	s.Require().NoError(err)
	s.Equal(domain.StatusCancelled, cancelled.Status)
	s.Equal(0, s.reserved("p1"))
}

func (s *WorkflowSuite) TestGetOrder_NotFound() {
	_, err := s.svc.GetOrder(s.ctx, "nope")
	s.ErrorIs(err, domain.ErrNotFound)
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}
