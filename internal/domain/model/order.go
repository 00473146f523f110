package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes the fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusUnpaid    OrderStatus = "unpaid"
	OrderStatusExpired   OrderStatus = "expired"
)

// allowedTransitions is the canonical table for staff-driven status changes.
var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusPreparing, OrderStatusCancelled},
	OrderStatusPreparing: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusUnpaid:    {OrderStatusCancelled},
}

// CanTransition reports whether from may move to target.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Closed reports whether the order belongs to history rather than the active queue.
func (s OrderStatus) Closed() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ValidOrderStatus reports whether raw names a known status.
func ValidOrderStatus(raw string) bool {
	switch OrderStatus(raw) {
	case OrderStatusPending, OrderStatusPaid, OrderStatusPreparing,
		OrderStatusCompleted, OrderStatusCancelled, OrderStatusUnpaid, OrderStatusExpired:
		return true
	}
	return false
}

// Order is a confirmed or pay-later purchase composed of line items.
type Order struct {
	ID        int64
	UserID    int64
	Total     decimal.Decimal
	Status    OrderStatus
	PaymentID *int64
	OrderedAt time.Time
	ETA       *time.Time
	Items     []OrderItem
}

// OrderItem is one menu-item line within an order. Subtotal is frozen at
// order time and never recomputed from the current catalog price.
type OrderItem struct {
	ID         int64
	OrderID    int64
	MenuItemID int64
	Name       string
	UnitPrice  decimal.Decimal
	Quantity   int32
	Subtotal   decimal.Decimal
}

// CartItem is a priced line captured at checkout time. It round-trips through
// processor metadata so order creation needs no second look at the cart.
type CartItem struct {
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int32           `json:"quantity"`
}

// OrderView is the denormalized per-order projection served to consumers.
type OrderView struct {
	ID          int64
	ItemSummary string
	Price       decimal.Decimal
	Status      OrderStatus
	ETA         *time.Time
	Date        time.Time
}

// OrderFeed is the role-conditional result of an order listing.
type OrderFeed struct {
	// Orders carries the live pending queue for staff and admins.
	Orders []Order
	// Current and Past carry the consumer projection.
	Current []OrderView
	Past    []OrderView
}

// ViewOf projects an order for the consumer feed.
func ViewOf(o Order) OrderView {
	names := make([]string, 0, len(o.Items))
	price := decimal.Zero
	for _, item := range o.Items {
		names = append(names, item.Name)
		price = price.Add(item.Subtotal)
	}
	return OrderView{
		ID:          o.ID,
		ItemSummary: strings.Join(names, ", "),
		Price:       price,
		Status:      o.Status,
		ETA:         o.ETA,
		Date:        o.OrderedAt,
	}
}
