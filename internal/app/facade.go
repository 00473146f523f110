package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/pkg/auth"
	"github.com/campuseats/canteen/internal/usecase"
)

// CanteenFacade is the single entry point the HTTP layer and the reconcile
// worker talk to. It delegates to the use cases and the token strategy.
type CanteenFacade struct {
	checkout      *usecase.CheckoutUseCase
	reconcile     *usecase.ReconcileUseCase
	orders        *usecase.OrderUseCase
	notifications *usecase.NotificationUseCase
	tokens        auth.Strategy
}

func NewCanteenFacade(
	checkout *usecase.CheckoutUseCase,
	reconcile *usecase.ReconcileUseCase,
	orders *usecase.OrderUseCase,
	notifications *usecase.NotificationUseCase,
	tokens auth.Strategy,
) *CanteenFacade {
	return &CanteenFacade{
		checkout:      checkout,
		reconcile:     reconcile,
		orders:        orders,
		notifications: notifications,
		tokens:        tokens,
	}
}

func (f *CanteenFacade) ParseToken(token string) (int64, model.Role, error) {
	return f.tokens.ParseToken(token)
}

func (f *CanteenFacade) InitiateCheckout(ctx context.Context, userID int64, buyerEmail string, amount decimal.Decimal, items []model.CartItem) (*model.Payment, string, error) {
	return f.checkout.InitiateCheckout(ctx, userID, buyerEmail, amount, items)
}

func (f *CanteenFacade) HandleProcessorEvent(ctx context.Context, payload []byte, signature string) error {
	return f.reconcile.HandleEvent(ctx, payload, signature)
}

func (f *CanteenFacade) ConfirmPayment(ctx context.Context, sessionID string, paymentID int64) (model.PaymentStatus, error) {
	return f.reconcile.Confirm(ctx, sessionID, paymentID)
}

func (f *CanteenFacade) Payment(ctx context.Context, id, userID int64, role model.Role) (*model.Payment, *model.Order, error) {
	return f.reconcile.Payment(ctx, id, userID, role)
}

func (f *CanteenFacade) StalePendingPayments(ctx context.Context, olderThan time.Duration, limit int) ([]model.Payment, error) {
	return f.reconcile.StalePending(ctx, olderThan, limit)
}

func (f *CanteenFacade) PlaceOrder(ctx context.Context, userID int64, items []model.CartItem) (*model.Order, error) {
	return f.orders.Place(ctx, userID, items)
}

func (f *CanteenFacade) OrderFeed(ctx context.Context, userID int64, role model.Role) (*model.OrderFeed, error) {
	return f.orders.Feed(ctx, userID, role)
}

func (f *CanteenFacade) Order(ctx context.Context, orderID, userID int64, role model.Role) (*model.Order, error) {
	return f.orders.Get(ctx, orderID, userID, role)
}

func (f *CanteenFacade) UpdateOrderStatus(ctx context.Context, orderID int64, status string, actor model.Role) (*model.Order, error) {
	return f.orders.UpdateStatus(ctx, orderID, status, actor)
}

func (f *CanteenFacade) Notifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	return f.notifications.ListByUser(ctx, userID)
}

func (f *CanteenFacade) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	return f.notifications.MarkRead(ctx, id, userID)
}

func (f *CanteenFacade) DeleteNotification(ctx context.Context, id, userID int64) error {
	return f.notifications.Delete(ctx, id, userID)
}
