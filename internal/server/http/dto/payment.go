package dto

import "github.com/shopspring/decimal"

// CartItemRequest is one cart line as submitted by the client. The price is
// advisory only; the server re-prices from the catalog.
type CartItemRequest struct {
	MenuItemID int64           `json:"menu_item_id" binding:"required"`
	Quantity   int32           `json:"quantity" binding:"required,gt=0"`
	Price      decimal.Decimal `json:"price"`
}

// CheckoutRequest describes POST /api/payments payload.
type CheckoutRequest struct {
	Amount    decimal.Decimal   `json:"amount" binding:"required"`
	Email     string            `json:"email" binding:"required,email"`
	CartItems []CartItemRequest `json:"cart_items" binding:"required"`
	// UserID is accepted for wire compatibility but the authenticated
	// identity always wins.
	UserID int64 `json:"user_id"`
}

// PaymentResponse is the ledger snapshot returned to clients.
type PaymentResponse struct {
	PaymentID int64           `json:"payment_id"`
	OrderID   *int64          `json:"order_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	Method    string          `json:"method"`
}

// CheckoutResponse carries the created payment and the processor redirect.
type CheckoutResponse struct {
	Payment     PaymentResponse `json:"payment"`
	RedirectURL string          `json:"redirectUrl"`
}

// ConfirmRequest describes POST /api/payments/confirm payload.
type ConfirmRequest struct {
	SessionID string `json:"session_id"`
	PaymentID int64  `json:"payment_id"`
}

// ConfirmResponse reports the reconciled payment status.
type ConfirmResponse struct {
	Status string `json:"status"`
}
