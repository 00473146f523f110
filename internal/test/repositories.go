package test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
)

// PaymentRepositoryStub stores payments in-memory for tests.
type PaymentRepositoryStub struct {
	mu        sync.Mutex
	Payments  map[int64]*model.Payment
	BySession map[string]int64
	Next      int64
	Err       error

	TransitionFn func(context.Context, int64, model.PaymentStatus) (bool, error)
	StaleFn      func(context.Context, time.Duration, int) ([]model.Payment, error)

	Transitions []PaymentTransitionCall
}

// PaymentTransitionCall records one TransitionFromPending invocation.
type PaymentTransitionCall struct {
	PaymentID int64
	Status    model.PaymentStatus
}

// NewPaymentRepositoryStub constructs stub repository with initialized maps.
func NewPaymentRepositoryStub() *PaymentRepositoryStub {
	return &PaymentRepositoryStub{
		Payments:  make(map[int64]*model.Payment),
		BySession: make(map[string]int64),
		Next:      1,
	}
}

// Seed inserts a payment directly, bypassing Create bookkeeping.
func (s *PaymentRepositoryStub) Seed(payment model.Payment) *model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment.ID == 0 {
		payment.ID = s.Next
		s.Next++
	} else if payment.ID >= s.Next {
		s.Next = payment.ID + 1
	}
	stored := payment
	s.Payments[stored.ID] = &stored
	if stored.SessionID != "" {
		s.BySession[stored.SessionID] = stored.ID
	}
	return &stored
}

// Create registers a new pending payment.
func (s *PaymentRepositoryStub) Create(ctx context.Context, userID int64, amount decimal.Decimal, method model.PaymentMethod) (*model.Payment, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	payment := &model.Payment{
		ID:        s.Next,
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Status:    model.PaymentStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.Next++
	s.Payments[payment.ID] = payment
	return clonePayment(payment), nil
}

// GetByID fetches payment or returns not found.
func (s *PaymentRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment, ok := s.Payments[id]; ok {
		return clonePayment(payment), nil
	}
	return nil, domainErrors.ErrNotFound
}

// AttachSession links a checkout session to the payment.
func (s *PaymentRepositoryStub) AttachSession(ctx context.Context, id int64, sessionID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.Payments[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	payment.SessionID = sessionID
	s.BySession[sessionID] = id
	return nil
}

// GetBySession fetches payment by checkout session identifier.
func (s *PaymentRepositoryStub) GetBySession(ctx context.Context, sessionID string) (*model.Payment, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.BySession[sessionID]; ok {
		return clonePayment(s.Payments[id]), nil
	}
	return nil, domainErrors.ErrNotFound
}

// TransitionFromPending applies the compare-and-set semantics of the real
// repository: only a pending payment moves, and only once.
func (s *PaymentRepositoryStub) TransitionFromPending(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	if s.TransitionFn != nil {
		return s.TransitionFn(ctx, id, status)
	}
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Transitions = append(s.Transitions, PaymentTransitionCall{PaymentID: id, Status: status})
	payment, ok := s.Payments[id]
	if !ok {
		return false, domainErrors.ErrNotFound
	}
	if payment.Status != model.PaymentStatusPending {
		return false, nil
	}
	payment.Status = status
	payment.UpdatedAt = time.Now()
	return true, nil
}

// SelectStalePending returns configured stale payments.
func (s *PaymentRepositoryStub) SelectStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]model.Payment, error) {
	if s.StaleFn != nil {
		return s.StaleFn(ctx, olderThan, limit)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Payment
	for _, payment := range s.Payments {
		if payment.Status == model.PaymentStatusPending && payment.SessionID != "" {
			out = append(out, *payment)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func clonePayment(p *model.Payment) *model.Payment {
	cp := *p
	return &cp
}

// OrderRepositoryStub allows tests to customize order persistence behaviour.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	Orders map[int64]*model.Order
	Next   int64
	Err    error

	CreateFn       func(context.Context, *model.Order, []model.OrderItem, *model.Notification) (*model.Order, bool, error)
	ListByUserFn   func(context.Context, int64) ([]model.Order, error)
	ListByStatusFn func(context.Context, model.OrderStatus) ([]model.Order, error)
	UpdateStatusFn func(context.Context, int64, model.OrderStatus, model.OrderStatus, *model.Notification) (*model.Order, error)
	MarkPaidFn     func(context.Context, int64) (bool, error)

	ListByUserCalls   int
	ListByStatusCalls int
	Notes             []model.Notification
}

// NewOrderRepositoryStub constructs stub repository with initialized maps.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{
		Orders: make(map[int64]*model.Order),
		Next:   1,
	}
}

// Seed inserts an order directly.
func (s *OrderRepositoryStub) Seed(order model.Order) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == 0 {
		order.ID = s.Next
		s.Next++
	} else if order.ID >= s.Next {
		s.Next = order.ID + 1
	}
	stored := order
	s.Orders[stored.ID] = &stored
	return &stored
}

// Create inserts the order or returns the existing one for the same payment.
func (s *OrderRepositoryStub) Create(ctx context.Context, order *model.Order, items []model.OrderItem, note *model.Notification) (*model.Order, bool, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, order, items, note)
	}
	if s.Err != nil {
		return nil, false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.PaymentID != nil {
		for _, existing := range s.Orders {
			if existing.PaymentID != nil && *existing.PaymentID == *order.PaymentID {
				return cloneOrder(existing), false, nil
			}
		}
	}
	stored := *order
	stored.ID = s.Next
	s.Next++
	stored.Items = append([]model.OrderItem(nil), items...)
	s.Orders[stored.ID] = &stored
	if note != nil {
		s.Notes = append(s.Notes, *note)
	}
	return cloneOrder(&stored), true, nil
}

// GetByID fetches order or returns not found.
func (s *OrderRepositoryStub) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.Orders[id]; ok {
		return cloneOrder(order), nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetByPaymentID fetches the order linked to the payment.
func (s *OrderRepositoryStub) GetByPaymentID(ctx context.Context, paymentID int64) (*model.Order, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.Orders {
		if order.PaymentID != nil && *order.PaymentID == paymentID {
			return cloneOrder(order), nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// ListByUser returns the user's orders.
func (s *OrderRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	s.mu.Lock()
	s.ListByUserCalls++
	s.mu.Unlock()
	if s.ListByUserFn != nil {
		return s.ListByUserFn(ctx, userID)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, order := range s.Orders {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	return out, nil
}

// ListByStatus returns orders in the given status.
func (s *OrderRepositoryStub) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	s.mu.Lock()
	s.ListByStatusCalls++
	s.mu.Unlock()
	if s.ListByStatusFn != nil {
		return s.ListByStatusFn(ctx, status)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, order := range s.Orders {
		if order.Status == status {
			out = append(out, *order)
		}
	}
	return out, nil
}

// UpdateStatus moves the order off the observed status and records the
// notification, refusing when another writer got there first.
func (s *OrderRepositoryStub) UpdateStatus(ctx context.Context, orderID int64, from, to model.OrderStatus, note *model.Notification) (*model.Order, error) {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, orderID, from, to, note)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	if order.Status != from {
		return nil, domainErrors.ErrInvalidTransition
	}
	order.Status = to
	if note != nil {
		s.Notes = append(s.Notes, *note)
	}
	return cloneOrder(order), nil
}

// MarkPaid promotes a pending order to paid.
func (s *OrderRepositoryStub) MarkPaid(ctx context.Context, orderID int64) (bool, error) {
	if s.MarkPaidFn != nil {
		return s.MarkPaidFn(ctx, orderID)
	}
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[orderID]
	if !ok {
		return false, domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusPending {
		return false, nil
	}
	order.Status = model.OrderStatusPaid
	return true, nil
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem(nil), o.Items...)
	return &cp
}

// NotificationRepositoryStub stores notifications in-memory for tests.
type NotificationRepositoryStub struct {
	mu    sync.Mutex
	Notes map[int64]*model.Notification
	Next  int64
	Err   error
}

// NewNotificationRepositoryStub constructs stub repository with initialized maps.
func NewNotificationRepositoryStub() *NotificationRepositoryStub {
	return &NotificationRepositoryStub{
		Notes: make(map[int64]*model.Notification),
		Next:  1,
	}
}

// Create stores the notification.
func (s *NotificationRepositoryStub) Create(ctx context.Context, note *model.Notification) (*model.Notification, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *note
	stored.ID = s.Next
	s.Next++
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.Notes[stored.ID] = &stored
	out := stored
	return &out, nil
}

// ListByUser returns the user's notifications.
func (s *NotificationRepositoryStub) ListByUser(ctx context.Context, userID int64) ([]model.Notification, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, note := range s.Notes {
		if note.UserID == userID {
			out = append(out, *note)
		}
	}
	return out, nil
}

// MarkRead flags the user's notification as read.
func (s *NotificationRepositoryStub) MarkRead(ctx context.Context, id, userID int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.Notes[id]
	if !ok || note.UserID != userID {
		return domainErrors.ErrNotFound
	}
	note.Read = true
	return nil
}

// Delete removes the user's notification.
func (s *NotificationRepositoryStub) Delete(ctx context.Context, id, userID int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.Notes[id]
	if !ok || note.UserID != userID {
		return domainErrors.ErrNotFound
	}
	delete(s.Notes, id)
	return nil
}

// MenuRepositoryStub serves a fixed catalog for tests.
type MenuRepositoryStub struct {
	Items map[int64]model.MenuItem
	Err   error
}

// NewMenuRepositoryStub seeds a catalog from the provided items.
func NewMenuRepositoryStub(items ...model.MenuItem) *MenuRepositoryStub {
	catalog := make(map[int64]model.MenuItem, len(items))
	for _, item := range items {
		catalog[item.ID] = item
	}
	return &MenuRepositoryStub{Items: catalog}
}

// GetByIDs returns the known subset of the requested items.
func (s *MenuRepositoryStub) GetByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make(map[int64]model.MenuItem, len(ids))
	for _, id := range ids {
		if item, ok := s.Items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}
