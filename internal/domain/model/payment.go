package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus describes the settlement lifecycle of a charge.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusExpired PaymentStatus = "expired"
)

// Terminal reports whether no further status transition is permitted.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusExpired:
		return true
	}
	return false
}

// PaymentMethod names how the buyer pays.
type PaymentMethod string

const (
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodOther PaymentMethod = "other"
)

// Payment records one attempted charge and its terminal outcome.
type Payment struct {
	ID        int64
	UserID    int64
	Amount    decimal.Decimal
	Method    PaymentMethod
	Status    PaymentStatus
	SessionID string
	CreatedAt time.Time
	UpdatedAt time.Time
}
