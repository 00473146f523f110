package repository

import (
	"context"

	"github.com/campuseats/canteen/internal/domain/model"
)

// OrderRepository describes persistence operations with orders and their lines.
type OrderRepository interface {
	// Create inserts the order, its items, and the placement notification
	// atomically. When the order carries a payment id that already has an
	// order, the existing order is returned and created is false.
	Create(ctx context.Context, order *model.Order, items []model.OrderItem, note *model.Notification) (*model.Order, bool, error)
	GetByID(ctx context.Context, id int64) (*model.Order, error)
	GetByPaymentID(ctx context.Context, paymentID int64) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	// UpdateStatus moves the order from the observed status to the target and
	// records the notification for the order owner in the same transaction.
	// A concurrent writer that changed the status first makes the update
	// match zero rows; that surfaces as ErrInvalidTransition.
	UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, note *model.Notification) (*model.Order, error)
	// MarkPaid promotes a pending order to paid. It reports whether a row was
	// updated; false means the order already left the pending state.
	MarkPaid(ctx context.Context, orderID int64) (bool, error)
}
