// Package client holds HTTP clients for the downstream inventory and
// payment services. Wire error codes are mapped back onto the sentinel
// errors the workflow branches on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/storefleet/commerce-core/internal/order/application"
	"github.com/storefleet/commerce-core/internal/order/domain"
)

const requestTimeout = 5 * time.Second

type wireError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func do(ctx context.Context, hc *http.Client, method, url string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var we wireError
		if err := json.NewDecoder(resp.Body).Decode(&we); err != nil {
			return fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
		}
		return mapWireError(we)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapWireError(we wireError) error {
	switch we.Code {
	case "NOT_FOUND":
		return fmt.Errorf("%s: %w", we.Error, domain.ErrNotFound)
	case "INSUFFICIENT_STOCK":
		return fmt.Errorf("%s: %w", we.Error, application.ErrInsufficientStock)
	case "DUPLICATE_PAYMENT":
		return fmt.Errorf("%s: %w", we.Error, application.ErrDuplicatePayment)
	case "INVALID_STATE":
		return fmt.Errorf("%s: %w", we.Error, application.ErrPaymentDeclined)
	case "VALIDATION":
		return fmt.Errorf("%s: %w", we.Error, domain.ErrValidation)
	default:
		return fmt.Errorf("downstream error %s: %s", we.Code, we.Error)
	}
}

type Inventory struct {
	base string
	hc   *http.Client
}

func NewInventory(baseURL string) *Inventory {
	return &Inventory{base: baseURL, hc: &http.Client{}}
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (c *Inventory) Reserve(ctx context.Context, productID string, qty int) error {
	url := fmt.Sprintf("%s/api/inventory/product/%s/reserve", c.base, productID)
	return do(ctx, c.hc, http.MethodPost, url, quantityRequest{Quantity: qty}, nil)
}

func (c *Inventory) Release(ctx context.Context, productID string, qty int) error {
	url := fmt.Sprintf("%s/api/inventory/product/%s/release", c.base, productID)
	return do(ctx, c.hc, http.MethodPost, url, quantityRequest{Quantity: qty}, nil)
}

func (c *Inventory) CheckAvailability(ctx context.Context, productID string, qty int) (bool, error) {
	url := fmt.Sprintf("%s/api/inventory/product/%s/check?quantity=%d", c.base, productID, qty)
	var out struct {
		Available bool `json:"available"`
	}
	if err := do(ctx, c.hc, http.MethodGet, url, nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

type Payment struct {
	base string
	hc   *http.Client
}

func NewPayment(baseURL string) *Payment {
	return &Payment{base: baseURL, hc: &http.Client{}}
}

type processRequest struct {
	OrderID     string `json:"orderId"`
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	Method      string `json:"method"`
}

type paymentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (c *Payment) Process(ctx context.Context, orderID, userID string, amountCents int64, currency, method string) (string, error) {
	var out paymentResponse
	err := do(ctx, c.hc, http.MethodPost, c.base+"/api/payments", processRequest{
		OrderID:     orderID,
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    currency,
		Method:      method,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Payment) Refund(ctx context.Context, paymentID string) error {
	return do(ctx, c.hc, http.MethodPost, c.base+"/api/payments/"+paymentID+"/refund", nil, nil)
}

func (c *Payment) GetByOrderID(ctx context.Context, orderID string) (application.PaymentInfo, error) {
	var out paymentResponse
	if err := do(ctx, c.hc, http.MethodGet, c.base+"/api/payments/order/"+orderID, nil, &out); err != nil {
		return application.PaymentInfo{}, err
	}
	return application.PaymentInfo{ID: out.ID, Status: out.Status}, nil
}
