package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/server/http/dto"
	"github.com/campuseats/canteen/internal/usecase"
)

const signatureHeader = "Stripe-Signature"

// PaymentHandler manages checkout and payment reconciliation endpoints.
type PaymentHandler struct {
	facade PaymentFacade
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(facade PaymentFacade) *PaymentHandler {
	return &PaymentHandler{facade: facade}
}

// Checkout handles POST /api/payments.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := CurrentUserID(c)
	payment, redirectURL, err := h.facade.InitiateCheckout(c.Request.Context(), userID, req.Email, req.Amount, cartFromRequest(req.CartItems))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrEmptyCart),
			errors.Is(err, domainErrors.ErrInvalidQuantity),
			errors.Is(err, domainErrors.ErrUnknownMenuItem),
			errors.Is(err, usecase.ErrProcessor):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.CheckoutResponse{
		Payment:     toPaymentResponse(payment, nil),
		RedirectURL: redirectURL,
	})
}

// Webhook handles PUT /api/payments/:id/status, the processor push path. The
// body is consumed raw so the authenticity signature covers the exact bytes.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	signature := c.GetHeader(signatureHeader)
	if signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook signature: missing header"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.facade.HandleProcessorEvent(c.Request.Context(), payload, signature); err != nil {
		if errors.Is(err, stripe.ErrBadSignature) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Confirm handles POST /api/payments/confirm, the client-triggered pull path.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SessionID == "" && req.PaymentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id or payment_id required"})
		return
	}

	status, err := h.facade.ConfirmPayment(c.Request.Context(), req.SessionID, req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, stripe.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Checkout Session not found"})
		case errors.Is(err, domainErrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	code := http.StatusOK
	if status == model.PaymentStatusPending {
		code = http.StatusAccepted
	}
	c.JSON(code, dto.ConfirmResponse{Status: confirmStatus(status)})
}

// Get handles GET /api/payments/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	payment, order, err := h.facade.Payment(c.Request.Context(), id, CurrentUserID(c), CurrentRole(c))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		case errors.Is(err, domainErrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, toPaymentResponse(payment, order))
}

func toPaymentResponse(payment *model.Payment, order *model.Order) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		PaymentID: payment.ID,
		Amount:    payment.Amount,
		Status:    string(payment.Status),
		Method:    string(payment.Method),
	}
	if order != nil {
		resp.OrderID = &order.ID
	}
	return resp
}

// confirmStatus collapses internal payment statuses onto the tri-state
// contract of the confirm endpoint.
func confirmStatus(status model.PaymentStatus) string {
	switch status {
	case model.PaymentStatusSuccess:
		return "success"
	case model.PaymentStatusFailed, model.PaymentStatusExpired:
		return "failed"
	default:
		return "pending"
	}
}
