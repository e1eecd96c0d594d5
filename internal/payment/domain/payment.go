package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("payment not found")
	ErrDuplicatePayment = errors.New("order already has an active payment")
	ErrInvalidState     = errors.New("invalid payment state")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrBadCurrency      = errors.New("unsupported currency")
	ErrBadMethod        = errors.New("unsupported payment method")
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
)

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	INR Currency = "INR"
)

func (c Currency) Valid() bool {
	switch c {
	case USD, EUR, GBP, INR:
		return true
	}
	return false
}

type Method string

const (
	MethodCreditCard   Method = "CREDIT_CARD"
	MethodDebitCard    Method = "DEBIT_CARD"
	MethodPaypal       Method = "PAYPAL"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCreditCard, MethodDebitCard, MethodPaypal, MethodBankTransfer:
		return true
	}
	return false
}

// Payment records one charge attempt for an order. Amounts are minor
// units (cents). TransactionID is assigned once and never rewritten.
type Payment struct {
	ID            string
	OrderID       string
	UserID        string
	AmountCents   int64
	Currency      Currency
	Method        Method
	Status        Status
	TransactionID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewPayment(id, orderID, userID string, amountCents int64, currency Currency, method Method, transactionID string) (Payment, error) {
	if orderID == "" || userID == "" {
		return Payment{}, errors.New("order id and user id are required")
	}
	if amountCents <= 0 {
		return Payment{}, ErrInvalidAmount
	}
	if !currency.Valid() {
		return Payment{}, fmt.Errorf("%w: %s", ErrBadCurrency, currency)
	}
	if !method.Valid() {
		return Payment{}, fmt.Errorf("%w: %s", ErrBadMethod, method)
	}
	now := time.Now().UTC()
	return Payment{
		ID:            id,
		OrderID:       orderID,
		UserID:        userID,
		AmountCents:   amountCents,
		Currency:      currency,
		Method:        method,
		Status:        StatusPending,
		TransactionID: transactionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Active reports whether this payment still counts against the
// one-payment-per-order rule.
func (p *Payment) Active() bool {
	return p.Status != StatusRefunded && p.Status != StatusFailed
}

func (p *Payment) MarkProcessing() {
	p.Status = StatusProcessing
	p.touch()
}

func (p *Payment) MarkCompleted() {
	p.Status = StatusCompleted
	p.touch()
}

func (p *Payment) MarkFailed() {
	p.Status = StatusFailed
	p.touch()
}

// Refund is only legal from COMPLETED.
func (p *Payment) Refund() error {
	if p.Status != StatusCompleted {
		return fmt.Errorf("%w: cannot refund payment in status %s", ErrInvalidState, p.Status)
	}
	p.Status = StatusRefunded
	p.touch()
	return nil
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now().UTC()
}
