package handlers

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/domain/model"
)

// PaymentFacade encapsulates checkout and reconciliation operations exposed via HTTP.
type PaymentFacade interface {
	InitiateCheckout(ctx context.Context, userID int64, buyerEmail string, amount decimal.Decimal, items []model.CartItem) (*model.Payment, string, error)
	HandleProcessorEvent(ctx context.Context, payload []byte, signature string) error
	ConfirmPayment(ctx context.Context, sessionID string, paymentID int64) (model.PaymentStatus, error)
	Payment(ctx context.Context, id, userID int64, role model.Role) (*model.Payment, *model.Order, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	PlaceOrder(ctx context.Context, userID int64, items []model.CartItem) (*model.Order, error)
	OrderFeed(ctx context.Context, userID int64, role model.Role) (*model.OrderFeed, error)
	Order(ctx context.Context, orderID, userID int64, role model.Role) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string, actor model.Role) (*model.Order, error)
}

// NotificationFacade provides notification lifecycle operations.
type NotificationFacade interface {
	Notifications(ctx context.Context, userID int64) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID int64) error
	DeleteNotification(ctx context.Context, id, userID int64) error
}

// TokenFacade verifies bearer tokens.
type TokenFacade interface {
	ParseToken(token string) (int64, model.Role, error)
}

// CanteenFacade aggregates the full set of operations used across handlers.
type CanteenFacade interface {
	TokenFacade
	PaymentFacade
	OrderFacade
	NotificationFacade
}
