package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/domain/model"
)

// PlaceOrderRequest describes POST /api/order payload (pay-later flow).
type PlaceOrderRequest struct {
	Items []CartItemRequest `json:"items" binding:"required"`
}

// OrderItemResponse is one frozen order line.
type OrderItemResponse struct {
	ID         int64           `json:"id"`
	MenuItemID int64           `json:"menu_item_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int32           `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// OrderResponse is the full order representation.
type OrderResponse struct {
	ID        int64               `json:"id"`
	UserID    int64               `json:"user_id"`
	Total     decimal.Decimal     `json:"total_amount"`
	Status    string              `json:"status"`
	PaymentID *int64              `json:"payment_id,omitempty"`
	OrderedAt time.Time           `json:"ordered_at"`
	ETA       *time.Time          `json:"eta,omitempty"`
	Items     []OrderItemResponse `json:"items"`
}

// OrderViewResponse is the compact projection served to consumers.
type OrderViewResponse struct {
	ID          int64           `json:"id"`
	ItemSummary string          `json:"itemSummary"`
	Price       decimal.Decimal `json:"price"`
	Status      string          `json:"status"`
	ETA         *time.Time      `json:"eta,omitempty"`
	Date        time.Time       `json:"date"`
}

// ConsumerFeedResponse is the student-facing order listing.
type ConsumerFeedResponse struct {
	CurrentOrders []OrderViewResponse `json:"currentOrders"`
	PastOrders    []OrderViewResponse `json:"pastOrders"`
}

// StaffFeedResponse is the staff-facing pending queue.
type StaffFeedResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// ToOrderResponse converts a domain order.
func ToOrderResponse(order model.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:         item.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			UnitPrice:  item.UnitPrice,
			Quantity:   item.Quantity,
			Subtotal:   item.Subtotal,
		})
	}
	return OrderResponse{
		ID:        order.ID,
		UserID:    order.UserID,
		Total:     order.Total,
		Status:    string(order.Status),
		PaymentID: order.PaymentID,
		OrderedAt: order.OrderedAt,
		ETA:       order.ETA,
		Items:     items,
	}
}

// ToOrderViewResponse converts a cached projection.
func ToOrderViewResponse(view model.OrderView) OrderViewResponse {
	return OrderViewResponse{
		ID:          view.ID,
		ItemSummary: view.ItemSummary,
		Price:       view.Price,
		Status:      string(view.Status),
		ETA:         view.ETA,
		Date:        view.Date,
	}
}
