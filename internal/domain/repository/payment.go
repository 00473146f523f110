package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/domain/model"
)

// PaymentRepository describes persistence operations with the payment ledger.
type PaymentRepository interface {
	Create(ctx context.Context, userID int64, amount decimal.Decimal, method model.PaymentMethod) (*model.Payment, error)
	GetByID(ctx context.Context, id int64) (*model.Payment, error)
	AttachSession(ctx context.Context, id int64, sessionID string) error
	GetBySession(ctx context.Context, sessionID string) (*model.Payment, error)
	// TransitionFromPending atomically moves a pending payment to status.
	// It reports whether this caller performed the transition; false means the
	// payment already left the pending state.
	TransitionFromPending(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)
	// SelectStalePending returns pending payments with an attached checkout
	// session that have not been touched for at least olderThan.
	SelectStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]model.Payment, error)
}
