package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/server/http/dto"
)

// OrderHandler manages order placement and the role-aware order feed.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Place handles POST /api/order.
func (h *OrderHandler) Place(c *gin.Context) {
	var req dto.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := CurrentUserID(c)
	order, err := h.facade.PlaceOrder(c.Request.Context(), userID, cartFromRequest(req.Items))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrEmptyCart),
			errors.Is(err, domainErrors.ErrInvalidQuantity),
			errors.Is(err, domainErrors.ErrUnknownMenuItem):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToOrderResponse(*order))
}

// Feed handles GET /api/order. Staff receive the pending queue, consumers
// their own current and past orders.
func (h *OrderHandler) Feed(c *gin.Context) {
	userID := CurrentUserID(c)
	role := CurrentRole(c)

	feed, err := h.facade.OrderFeed(c.Request.Context(), userID, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if role.Staff() {
		orders := make([]dto.OrderResponse, 0, len(feed.Orders))
		for _, order := range feed.Orders {
			orders = append(orders, dto.ToOrderResponse(order))
		}
		c.JSON(http.StatusOK, dto.StaffFeedResponse{Orders: orders})
		return
	}

	current := make([]dto.OrderViewResponse, 0, len(feed.Current))
	for _, view := range feed.Current {
		current = append(current, dto.ToOrderViewResponse(view))
	}
	past := make([]dto.OrderViewResponse, 0, len(feed.Past))
	for _, view := range feed.Past {
		past = append(past, dto.ToOrderViewResponse(view))
	}
	c.JSON(http.StatusOK, dto.ConsumerFeedResponse{CurrentOrders: current, PastOrders: past})
}

// Get handles GET /api/order/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}

	order, err := h.facade.Order(c.Request.Context(), id, CurrentUserID(c), CurrentRole(c))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, domainErrors.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToOrderResponse(*order))
}

// UpdateStatus handles PUT /api/order/:id?status=<next>.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	status := c.Query("status")
	if status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status query parameter required"})
		return
	}

	order, err := h.facade.UpdateOrderStatus(c.Request.Context(), id, status, CurrentRole(c))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		case errors.Is(err, domainErrors.ErrInvalidStatus),
			errors.Is(err, domainErrors.ErrInvalidTransition):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, domainErrors.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToOrderResponse(*order))
}
