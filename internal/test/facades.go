package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	"github.com/campuseats/canteen/internal/domain/model"
)

// PaymentFacadeStub provides controllable behaviour for payment endpoints.
type PaymentFacadeStub struct {
	CheckoutFn func(context.Context, int64, string, decimal.Decimal, []model.CartItem) (*model.Payment, string, error)
	EventFn    func(context.Context, []byte, string) error
	ConfirmFn  func(context.Context, string, int64) (model.PaymentStatus, error)
	PaymentFn  func(context.Context, int64, int64, model.Role) (*model.Payment, *model.Order, error)
}

// InitiateCheckout delegates to the override or returns a pending payment.
func (s PaymentFacadeStub) InitiateCheckout(ctx context.Context, userID int64, buyerEmail string, amount decimal.Decimal, items []model.CartItem) (*model.Payment, string, error) {
	if s.CheckoutFn != nil {
		return s.CheckoutFn(ctx, userID, buyerEmail, amount, items)
	}
	payment := &model.Payment{ID: 1, UserID: userID, Amount: amount, Method: model.PaymentMethodCard, Status: model.PaymentStatusPending}
	return payment, "https://checkout.example/session", nil
}

// HandleProcessorEvent delegates to the override or accepts the event.
func (s PaymentFacadeStub) HandleProcessorEvent(ctx context.Context, payload []byte, signature string) error {
	if s.EventFn != nil {
		return s.EventFn(ctx, payload, signature)
	}
	return nil
}

// ConfirmPayment delegates to the override or reports success.
func (s PaymentFacadeStub) ConfirmPayment(ctx context.Context, sessionID string, paymentID int64) (model.PaymentStatus, error) {
	if s.ConfirmFn != nil {
		return s.ConfirmFn(ctx, sessionID, paymentID)
	}
	return model.PaymentStatusSuccess, nil
}

// Payment delegates to the override or returns a successful payment owned by
// the requesting user.
func (s PaymentFacadeStub) Payment(ctx context.Context, id, userID int64, role model.Role) (*model.Payment, *model.Order, error) {
	if s.PaymentFn != nil {
		return s.PaymentFn(ctx, id, userID, role)
	}
	return &model.Payment{ID: id, UserID: userID, Status: model.PaymentStatusSuccess}, nil, nil
}

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	PlaceFn  func(context.Context, int64, []model.CartItem) (*model.Order, error)
	FeedFn   func(context.Context, int64, model.Role) (*model.OrderFeed, error)
	GetFn    func(context.Context, int64, int64, model.Role) (*model.Order, error)
	UpdateFn func(context.Context, int64, string, model.Role) (*model.Order, error)
}

// PlaceOrder delegates to the override or returns a pending order.
func (s OrderFacadeStub) PlaceOrder(ctx context.Context, userID int64, items []model.CartItem) (*model.Order, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, userID, items)
	}
	return &model.Order{ID: 1, UserID: userID, Status: model.OrderStatusPending}, nil
}

// OrderFeed delegates to the override or returns an empty feed.
func (s OrderFacadeStub) OrderFeed(ctx context.Context, userID int64, role model.Role) (*model.OrderFeed, error) {
	if s.FeedFn != nil {
		return s.FeedFn(ctx, userID, role)
	}
	return &model.OrderFeed{}, nil
}

// Order delegates to the override or returns the requested order.
func (s OrderFacadeStub) Order(ctx context.Context, orderID, userID int64, role model.Role) (*model.Order, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, orderID, userID, role)
	}
	return &model.Order{ID: orderID, UserID: userID, Status: model.OrderStatusPending}, nil
}

// UpdateOrderStatus delegates to the override or echoes the transition.
func (s OrderFacadeStub) UpdateOrderStatus(ctx context.Context, orderID int64, status string, actor model.Role) (*model.Order, error) {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, orderID, status, actor)
	}
	return &model.Order{ID: orderID, Status: model.OrderStatus(status)}, nil
}

// NotificationFacadeStub simulates the notification inbox.
type NotificationFacadeStub struct {
	ListFn     func(context.Context, int64) ([]model.Notification, error)
	MarkReadFn func(context.Context, int64, int64) error
	DeleteFn   func(context.Context, int64, int64) error
}

// Notifications delegates to the override or returns one notification.
func (s NotificationFacadeStub) Notifications(ctx context.Context, userID int64) ([]model.Notification, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, userID)
	}
	return []model.Notification{{ID: 1, UserID: userID, Type: model.NotificationTypeOrderPlaced, Message: "Your order has been placed", CreatedAt: time.Unix(0, 0)}}, nil
}

// MarkNotificationRead delegates to the override or succeeds.
func (s NotificationFacadeStub) MarkNotificationRead(ctx context.Context, id, userID int64) error {
	if s.MarkReadFn != nil {
		return s.MarkReadFn(ctx, id, userID)
	}
	return nil
}

// DeleteNotification delegates to the override or succeeds.
func (s NotificationFacadeStub) DeleteNotification(ctx context.Context, id, userID int64) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, id, userID)
	}
	return nil
}

// CanteenFacadeStub aggregates facade dependencies for HTTP layer tests.
type CanteenFacadeStub struct {
	TokenParserStub
	PaymentFacadeStub
	OrderFacadeStub
	NotificationFacadeStub
}

// ConfirmCall stores information about ConfirmPayment invocations.
type ConfirmCall struct {
	SessionID string
	PaymentID int64
}

// WorkerFacadeStub mimics worker interactions with the application facade.
type WorkerFacadeStub struct {
	Batches   [][]model.Payment
	StaleFn   func(context.Context, time.Duration, int) ([]model.Payment, error)
	ConfirmFn func(context.Context, string, int64) (model.PaymentStatus, error)

	Confirms []ConfirmCall

	mu             sync.Mutex
	staleCallCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *WorkerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *WorkerFacadeStub) Unlock() { s.mu.Unlock() }

// StalePendingPayments returns batches from the configured queue.
func (s *WorkerFacadeStub) StalePendingPayments(ctx context.Context, olderThan time.Duration, limit int) ([]model.Payment, error) {
	if s.StaleFn != nil {
		return s.StaleFn(ctx, olderThan, limit)
	}
	call := atomic.AddInt32(&s.staleCallCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ConfirmPayment records confirmation requests.
func (s *WorkerFacadeStub) ConfirmPayment(ctx context.Context, sessionID string, paymentID int64) (model.PaymentStatus, error) {
	if s.ConfirmFn != nil {
		return s.ConfirmFn(ctx, sessionID, paymentID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Confirms = append(s.Confirms, ConfirmCall{SessionID: sessionID, PaymentID: paymentID})
	return model.PaymentStatusSuccess, nil
}

// ProcessorStub implements the payment processor client for tests.
type ProcessorStub struct {
	CreateFn func(context.Context, stripe.CheckoutParams) (*stripe.Session, error)
	GetFn    func(context.Context, string) (*stripe.Session, error)
	VerifyFn func([]byte, string) (*stripe.Event, error)

	Created []stripe.CheckoutParams
}

// CreateCheckoutSession records params and returns a canned session.
func (s *ProcessorStub) CreateCheckoutSession(ctx context.Context, p stripe.CheckoutParams) (*stripe.Session, error) {
	s.Created = append(s.Created, p)
	if s.CreateFn != nil {
		return s.CreateFn(ctx, p)
	}
	return &stripe.Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1", PaymentStatus: stripe.SessionUnpaid}, nil
}

// GetCheckoutSession delegates to the override or reports a paid session.
func (s *ProcessorStub) GetCheckoutSession(ctx context.Context, id string) (*stripe.Session, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return &stripe.Session{ID: id, PaymentStatus: stripe.SessionPaid}, nil
}

// VerifyEvent delegates to the override or accepts the payload as-is.
func (s *ProcessorStub) VerifyEvent(payload []byte, signature string) (*stripe.Event, error) {
	if s.VerifyFn != nil {
		return s.VerifyFn(payload, signature)
	}
	return &stripe.Event{Type: stripe.EventCheckoutCompleted}, nil
}
