package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Type string

const (
	TypeOrderConfirmed Type = "ORDER_CONFIRMED"
	TypeOrderCancelled Type = "ORDER_CANCELLED"
)

type Notification struct {
	ID        string
	UserID    string
	Type      Type
	Subject   string
	Message   string
	Read      bool
	CreatedAt time.Time
}

func New(userID string, t Type, subject, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      t,
		Subject:   subject,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}
