package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/cache"
	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/domain/repository"
)

// ViewCache is the order projection cache as seen by the order usecase.
type ViewCache interface {
	Get(userID int64) (cache.Entry, bool)
	Put(userID int64, entry cache.Entry)
	Invalidate(userID int64)
}

// OrderUseCase encapsulates order placement, listing, and staff transitions.
type OrderUseCase struct {
	orders repository.OrderRepository
	menu   repository.MenuRepository
	views  ViewCache
	logger *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, menu repository.MenuRepository, views ViewCache, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{orders: orders, menu: menu, views: views, logger: logger}
}

// Place creates a pay-later order. Line prices come from the catalog, not the
// client; order, items, and the placement notification commit atomically.
func (u *OrderUseCase) Place(ctx context.Context, userID int64, items []model.CartItem) (*model.Order, error) {
	priced, total, err := repriceCart(ctx, u.menu, items)
	if err != nil {
		return nil, err
	}

	orderItems := make([]model.OrderItem, 0, len(priced))
	for _, item := range priced {
		orderItems = append(orderItems, model.OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			UnitPrice:  item.Price,
			Quantity:   item.Quantity,
			Subtotal:   item.Price.Mul(decimal.NewFromInt32(item.Quantity)),
		})
	}

	order := &model.Order{
		UserID: userID,
		Total:  total,
		Status: model.OrderStatusPending,
	}
	note := &model.Notification{
		UserID:  userID,
		Type:    model.NotificationTypeOrderPlaced,
		Message: "Your order has been placed",
	}

	created, _, err := u.orders.Create(ctx, order, orderItems, note)
	if err != nil {
		return nil, err
	}

	u.views.Invalidate(userID)
	return created, nil
}

// Feed returns the role-conditional order listing. Staff see the live pending
// queue and bypass the cache; consumers get their cached current/past split.
func (u *OrderUseCase) Feed(ctx context.Context, userID int64, role model.Role) (*model.OrderFeed, error) {
	if role.Staff() {
		orders, err := u.orders.ListByStatus(ctx, model.OrderStatusPending)
		if err != nil {
			return nil, err
		}
		return &model.OrderFeed{Orders: orders}, nil
	}

	if entry, ok := u.views.Get(userID); ok {
		return &model.OrderFeed{Current: entry.Current, Past: entry.Past}, nil
	}

	orders, err := u.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	entry := cache.Entry{}
	for _, order := range orders {
		view := model.ViewOf(order)
		if order.Status.Closed() {
			entry.Past = append(entry.Past, view)
		} else {
			entry.Current = append(entry.Current, view)
		}
	}
	u.views.Put(userID, entry)

	return &model.OrderFeed{Current: entry.Current, Past: entry.Past}, nil
}

// Get returns one order, restricted to its owner unless the actor is staff.
func (u *OrderUseCase) Get(ctx context.Context, orderID, userID int64, role model.Role) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !role.Staff() && order.UserID != userID {
		return nil, domainErrors.ErrForbidden
	}
	return order, nil
}

// UpdateStatus applies a staff-driven status transition and notifies the
// order owner. Transitions outside the canonical table are rejected.
func (u *OrderUseCase) UpdateStatus(ctx context.Context, orderID int64, rawStatus string, actor model.Role) (*model.Order, error) {
	if !actor.Staff() {
		return nil, domainErrors.ErrForbidden
	}
	if !model.ValidOrderStatus(rawStatus) {
		return nil, domainErrors.ErrInvalidStatus
	}
	target := model.OrderStatus(rawStatus)

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(target) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, order.Status, target)
	}

	note := &model.Notification{
		UserID:  order.UserID,
		Type:    model.NotificationTypeOrderStatus,
		Message: fmt.Sprintf("Your order #%d is now %s", orderID, target),
	}
	updated, err := u.orders.UpdateStatus(ctx, orderID, order.Status, target, note)
	if err != nil {
		return nil, err
	}

	u.logger.Info("order status updated",
		slog.Int64("order_id", orderID),
		slog.String("from", string(order.Status)),
		slog.String("to", string(target)),
	)
	return updated, nil
}
