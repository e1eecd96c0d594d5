package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrValidation        = errors.New("invalid order request")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions is the full lifecycle: forward progress plus cancellation
// from any non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Line is one order position. UnitPriceCents is fixed at order time;
// the catalog is the price authority and is consulted upstream.
type Line struct {
	ProductID      string
	Quantity       int
	UnitPriceCents int64
	SubtotalCents  int64
}

type Order struct {
	ID               string
	UserID           string
	Lines            []Line
	TotalAmountCents int64
	Status           Status
	ShippingAddress  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewOrder validates the request, freezes line prices into subtotals and
// computes the grand total. Orders start life as PENDING.
func NewOrder(userID string, lines []Line, shippingAddress string) (Order, error) {
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if shippingAddress == "" {
		return Order{}, fmt.Errorf("%w: shipping address is required", ErrValidation)
	}
	if len(lines) == 0 {
		return Order{}, fmt.Errorf("%w: order must have at least one line", ErrValidation)
	}

	var total int64
	out := make([]Line, len(lines))
	for i, l := range lines {
		if l.ProductID == "" {
			return Order{}, fmt.Errorf("%w: line %d is missing a product id", ErrValidation, i)
		}
		if l.Quantity <= 0 {
			return Order{}, fmt.Errorf("%w: quantity must be positive for product %s", ErrValidation, l.ProductID)
		}
		if l.UnitPriceCents < 0 {
			return Order{}, fmt.Errorf("%w: unit price cannot be negative for product %s", ErrValidation, l.ProductID)
		}
		l.SubtotalCents = int64(l.Quantity) * l.UnitPriceCents
		total += l.SubtotalCents
		out[i] = l
	}

	now := time.Now().UTC()
	return Order{
		ID:               uuid.NewString(),
		UserID:           userID,
		Lines:            out,
		TotalAmountCents: total,
		Status:           StatusPending,
		ShippingAddress:  shippingAddress,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// TransitionTo moves the order through the state machine.
func (o *Order) TransitionTo(next Status) error {
	if !next.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return nil
}
