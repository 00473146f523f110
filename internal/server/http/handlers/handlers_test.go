package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/server/http/dto"
	"github.com/campuseats/canteen/internal/server/http/middleware"
	"github.com/campuseats/canteen/internal/usecase"
	testhelpers "github.com/campuseats/canteen/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(t *testing.T, method, path, target string, handler gin.HandlerFunc, setup func(*gin.Context), body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Handle(method, path, func(c *gin.Context) {
		if setup != nil {
			setup(c)
		}
		handler(c)
	})

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func asUser(id int64, role model.Role) func(*gin.Context) {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDContextKey, id)
		c.Set(middleware.UserRoleContextKey, role)
	}
}

func TestCurrentUserIDAndRoleDefaults(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if got := CurrentUserID(c); got != 0 {
		t.Fatalf("expected 0 when not set, got %d", got)
	}
	if got := CurrentRole(c); got != model.RoleStudent {
		t.Fatalf("expected student default, got %s", got)
	}

	c.Set(middleware.UserIDContextKey, int64(42))
	c.Set(middleware.UserRoleContextKey, model.RoleStaff)
	if got := CurrentUserID(c); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if got := CurrentRole(c); got != model.RoleStaff {
		t.Fatalf("expected staff, got %s", got)
	}
}

func checkoutBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(dto.CheckoutRequest{
		Amount: decimal.NewFromInt(110),
		Email:  "s@campus.edu",
		CartItems: []dto.CartItemRequest{
			{MenuItemID: 1, Quantity: 2, Price: decimal.NewFromInt(45)},
			{MenuItemID: 2, Quantity: 1, Price: decimal.NewFromInt(20)},
		},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return body
}

func TestPaymentHandlerCheckout(t *testing.T) {
	facade := testhelpers.PaymentFacadeStub{
		CheckoutFn: func(_ context.Context, userID int64, email string, amount decimal.Decimal, items []model.CartItem) (*model.Payment, string, error) {
			if userID != 7 || email != "s@campus.edu" || len(items) != 2 {
				t.Fatalf("unexpected facade input: %d %q %d items", userID, email, len(items))
			}
			payment := &model.Payment{ID: 5, UserID: userID, Amount: amount, Method: model.PaymentMethodCard, Status: model.PaymentStatusPending}
			return payment, "https://checkout.example/cs_1", nil
		},
	}
	resp := performRequest(t, http.MethodPost, "/payments", "/payments", NewPaymentHandler(facade).Checkout, asUser(7, model.RoleStudent), checkoutBody(t), nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var out dto.CheckoutResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Payment.PaymentID != 5 || out.RedirectURL == "" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestPaymentHandlerCheckoutFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   []byte
		status int
	}{
		{name: "malformed body", body: []byte("{"), status: http.StatusBadRequest},
		{name: "empty cart", err: domainErrors.ErrEmptyCart, status: http.StatusBadRequest},
		{name: "unknown item", err: domainErrors.ErrUnknownMenuItem, status: http.StatusBadRequest},
		{name: "processor down", err: usecase.ErrProcessor, status: http.StatusBadRequest},
		{name: "storage failure", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			facade := testhelpers.PaymentFacadeStub{
				CheckoutFn: func(context.Context, int64, string, decimal.Decimal, []model.CartItem) (*model.Payment, string, error) {
					return nil, "", tc.err
				},
			}
			body := tc.body
			if body == nil {
				body = checkoutBody(t)
			}
			resp := performRequest(t, http.MethodPost, "/payments", "/payments", NewPaymentHandler(facade).Checkout, asUser(7, model.RoleStudent), body, nil)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestPaymentHandlerWebhook(t *testing.T) {
	var gotPayload []byte
	var gotSignature string
	facade := testhelpers.PaymentFacadeStub{
		EventFn: func(_ context.Context, payload []byte, signature string) error {
			gotPayload = payload
			gotSignature = signature
			return nil
		},
	}
	headers := map[string]string{"Stripe-Signature": "t=1,v1=abc"}
	resp := performRequest(t, http.MethodPut, "/payments/:id/status", "/payments/5/status", NewPaymentHandler(facade).Webhook, nil, []byte(`{"type":"checkout.session.completed"}`), headers)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if gotSignature != "t=1,v1=abc" || len(gotPayload) == 0 {
		t.Errorf("raw payload or signature lost: %q %q", gotPayload, gotSignature)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte(`"received":true`)) {
		t.Errorf("unexpected ack body: %s", resp.Body.String())
	}
}

func TestPaymentHandlerWebhookRejections(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		err     error
		status  int
	}{
		{name: "missing signature header", status: http.StatusBadRequest},
		{name: "bad signature", headers: map[string]string{"Stripe-Signature": "t=1,v1=bad"}, err: stripe.ErrBadSignature, status: http.StatusBadRequest},
		{name: "storage failure", headers: map[string]string{"Stripe-Signature": "t=1,v1=ok"}, err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			facade := testhelpers.PaymentFacadeStub{
				EventFn: func(context.Context, []byte, string) error { return tc.err },
			}
			resp := performRequest(t, http.MethodPut, "/payments/:id/status", "/payments/5/status", NewPaymentHandler(facade).Webhook, nil, []byte("{}"), tc.headers)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestPaymentHandlerConfirm(t *testing.T) {
	tests := []struct {
		name       string
		status     model.PaymentStatus
		err        error
		wantCode   int
		wantStatus string
	}{
		{name: "success", status: model.PaymentStatusSuccess, wantCode: http.StatusOK, wantStatus: "success"},
		{name: "failed", status: model.PaymentStatusFailed, wantCode: http.StatusOK, wantStatus: "failed"},
		{name: "still pending", status: model.PaymentStatusPending, wantCode: http.StatusAccepted, wantStatus: "pending"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			facade := testhelpers.PaymentFacadeStub{
				ConfirmFn: func(_ context.Context, sessionID string, paymentID int64) (model.PaymentStatus, error) {
					if sessionID != "cs_1" {
						t.Fatalf("unexpected session id %q", sessionID)
					}
					return tc.status, tc.err
				},
			}
			body, _ := json.Marshal(dto.ConfirmRequest{SessionID: "cs_1"})
			resp := performRequest(t, http.MethodPost, "/payments/confirm", "/payments/confirm", NewPaymentHandler(facade).Confirm, asUser(7, model.RoleStudent), body, nil)
			if resp.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d: %s", tc.wantCode, resp.Code, resp.Body.String())
			}
			var out dto.ConfirmResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if out.Status != tc.wantStatus {
				t.Errorf("expected status %q, got %q", tc.wantStatus, out.Status)
			}
		})
	}
}

func TestPaymentHandlerConfirmUnknownSession(t *testing.T) {
	facade := testhelpers.PaymentFacadeStub{
		ConfirmFn: func(context.Context, string, int64) (model.PaymentStatus, error) {
			return "", stripe.ErrSessionNotFound
		},
	}
	body, _ := json.Marshal(dto.ConfirmRequest{SessionID: "cs_gone"})
	resp := performRequest(t, http.MethodPost, "/payments/confirm", "/payments/confirm", NewPaymentHandler(facade).Confirm, asUser(7, model.RoleStudent), body, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if !bytes.Contains(resp.Body.Bytes(), []byte("Checkout Session not found")) {
		t.Errorf("unexpected body: %s", resp.Body.String())
	}
}

func TestPaymentHandlerConfirmRequiresIdentifier(t *testing.T) {
	body, _ := json.Marshal(dto.ConfirmRequest{})
	resp := performRequest(t, http.MethodPost, "/payments/confirm", "/payments/confirm", NewPaymentHandler(testhelpers.PaymentFacadeStub{}).Confirm, asUser(7, model.RoleStudent), body, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestPaymentHandlerGet(t *testing.T) {
	orderID := int64(11)
	facade := testhelpers.PaymentFacadeStub{
		PaymentFn: func(_ context.Context, id, userID int64, _ model.Role) (*model.Payment, *model.Order, error) {
			payment := &model.Payment{ID: id, UserID: userID, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusSuccess, Method: model.PaymentMethodCard}
			return payment, &model.Order{ID: orderID}, nil
		},
	}
	resp := performRequest(t, http.MethodGet, "/payments/:id", "/payments/5", NewPaymentHandler(facade).Get, asUser(7, model.RoleStudent), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out dto.PaymentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.PaymentID != 5 || out.OrderID == nil || *out.OrderID != orderID {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestPaymentHandlerGetNotFound(t *testing.T) {
	facade := testhelpers.PaymentFacadeStub{
		PaymentFn: func(context.Context, int64, int64, model.Role) (*model.Payment, *model.Order, error) {
			return nil, nil, domainErrors.ErrNotFound
		},
	}
	resp := performRequest(t, http.MethodGet, "/payments/:id", "/payments/999", NewPaymentHandler(facade).Get, asUser(7, model.RoleStudent), nil, nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestPaymentHandlerGetForbiddenForStranger(t *testing.T) {
	facade := testhelpers.PaymentFacadeStub{
		PaymentFn: func(_ context.Context, _, userID int64, role model.Role) (*model.Payment, *model.Order, error) {
			if userID != 8 || role != model.RoleStudent {
				t.Fatalf("unexpected actor: %d %s", userID, role)
			}
			return nil, nil, domainErrors.ErrForbidden
		},
	}
	resp := performRequest(t, http.MethodGet, "/payments/:id", "/payments/5", NewPaymentHandler(facade).Get, asUser(8, model.RoleStudent), nil, nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestOrderHandlerPlace(t *testing.T) {
	facade := testhelpers.OrderFacadeStub{
		PlaceFn: func(_ context.Context, userID int64, items []model.CartItem) (*model.Order, error) {
			if userID != 7 || len(items) != 1 {
				t.Fatalf("unexpected facade input: %d %d items", userID, len(items))
			}
			return &model.Order{ID: 11, UserID: userID, Total: decimal.NewFromInt(45), Status: model.OrderStatusPending}, nil
		},
	}
	body, _ := json.Marshal(dto.PlaceOrderRequest{Items: []dto.CartItemRequest{{MenuItemID: 1, Quantity: 1}}})
	resp := performRequest(t, http.MethodPost, "/order", "/order", NewOrderHandler(facade).Place, asUser(7, model.RoleStudent), body, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var out dto.OrderResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 11 || out.Status != "pending" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestOrderHandlerPlaceValidation(t *testing.T) {
	facade := testhelpers.OrderFacadeStub{
		PlaceFn: func(context.Context, int64, []model.CartItem) (*model.Order, error) {
			return nil, domainErrors.ErrEmptyCart
		},
	}
	body, _ := json.Marshal(dto.PlaceOrderRequest{Items: []dto.CartItemRequest{{MenuItemID: 1, Quantity: 1}}})
	resp := performRequest(t, http.MethodPost, "/order", "/order", NewOrderHandler(facade).Place, asUser(7, model.RoleStudent), body, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestOrderHandlerFeedShapes(t *testing.T) {
	feed := &model.OrderFeed{
		Orders:  []model.Order{{ID: 1, Status: model.OrderStatusPending}},
		Current: []model.OrderView{{ID: 2, Status: model.OrderStatusPreparing}},
		Past:    []model.OrderView{{ID: 3, Status: model.OrderStatusCompleted}},
	}
	facade := testhelpers.OrderFacadeStub{
		FeedFn: func(context.Context, int64, model.Role) (*model.OrderFeed, error) { return feed, nil },
	}

	staffResp := performRequest(t, http.MethodGet, "/order", "/order", NewOrderHandler(facade).Feed, asUser(9, model.RoleStaff), nil, nil)
	if staffResp.Code != http.StatusOK {
		t.Fatalf("staff feed: expected 200, got %d", staffResp.Code)
	}
	var staffOut dto.StaffFeedResponse
	if err := json.Unmarshal(staffResp.Body.Bytes(), &staffOut); err != nil {
		t.Fatalf("decode staff feed: %v", err)
	}
	if len(staffOut.Orders) != 1 {
		t.Errorf("unexpected staff feed: %+v", staffOut)
	}

	consumerResp := performRequest(t, http.MethodGet, "/order", "/order", NewOrderHandler(facade).Feed, asUser(7, model.RoleStudent), nil, nil)
	if consumerResp.Code != http.StatusOK {
		t.Fatalf("consumer feed: expected 200, got %d", consumerResp.Code)
	}
	var consumerOut dto.ConsumerFeedResponse
	if err := json.Unmarshal(consumerResp.Body.Bytes(), &consumerOut); err != nil {
		t.Fatalf("decode consumer feed: %v", err)
	}
	if len(consumerOut.CurrentOrders) != 1 || len(consumerOut.PastOrders) != 1 {
		t.Errorf("unexpected consumer feed: %+v", consumerOut)
	}
}

func TestOrderHandlerGetStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "forbidden", err: domainErrors.ErrForbidden, status: http.StatusForbidden},
		{name: "not found", err: domainErrors.ErrNotFound, status: http.StatusNotFound},
		{name: "storage failure", err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			facade := testhelpers.OrderFacadeStub{
				GetFn: func(context.Context, int64, int64, model.Role) (*model.Order, error) { return nil, tc.err },
			}
			resp := performRequest(t, http.MethodGet, "/order/:id", "/order/11", NewOrderHandler(facade).Get, asUser(7, model.RoleStudent), nil, nil)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.Code)
			}
		})
	}
}

func TestOrderHandlerUpdateStatus(t *testing.T) {
	facade := testhelpers.OrderFacadeStub{
		UpdateFn: func(_ context.Context, orderID int64, status string, actor model.Role) (*model.Order, error) {
			if orderID != 11 || status != "preparing" || actor != model.RoleStaff {
				t.Fatalf("unexpected facade input: %d %q %s", orderID, status, actor)
			}
			return &model.Order{ID: orderID, Status: model.OrderStatusPreparing}, nil
		},
	}
	resp := performRequest(t, http.MethodPut, "/order/:id", "/order/11?status=preparing", NewOrderHandler(facade).UpdateStatus, asUser(9, model.RoleStaff), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestOrderHandlerUpdateStatusFailures(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{name: "missing status param", target: "/order/11", status: http.StatusBadRequest},
		{name: "bad order id", target: "/order/abc?status=preparing", status: http.StatusBadRequest},
		{name: "forbidden", target: "/order/11?status=preparing", err: domainErrors.ErrForbidden, status: http.StatusForbidden},
		{name: "invalid status", target: "/order/11?status=shipped", err: domainErrors.ErrInvalidStatus, status: http.StatusBadRequest},
		{name: "invalid transition", target: "/order/11?status=preparing", err: domainErrors.ErrInvalidTransition, status: http.StatusBadRequest},
		{name: "not found", target: "/order/11?status=preparing", err: domainErrors.ErrNotFound, status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			facade := testhelpers.OrderFacadeStub{
				UpdateFn: func(context.Context, int64, string, model.Role) (*model.Order, error) { return nil, tc.err },
			}
			resp := performRequest(t, http.MethodPut, "/order/:id", tc.target, NewOrderHandler(facade).UpdateStatus, asUser(9, model.RoleStaff), nil, nil)
			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestNotificationHandlerList(t *testing.T) {
	facade := testhelpers.NotificationFacadeStub{
		ListFn: func(_ context.Context, userID int64) ([]model.Notification, error) {
			return []model.Notification{{ID: 1, UserID: userID, Type: model.NotificationTypeOrderStatus, Message: "Your order #11 is now preparing"}}, nil
		},
	}
	resp := performRequest(t, http.MethodGet, "/notifications", "/notifications", NewNotificationHandler(facade).List, asUser(7, model.RoleStudent), nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var out []dto.NotificationResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 1 || out[0].Type != "order_status" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestNotificationHandlerMarkReadAndDelete(t *testing.T) {
	facade := testhelpers.NotificationFacadeStub{}

	markResp := performRequest(t, http.MethodPut, "/notifications/:id/read", "/notifications/1/read", NewNotificationHandler(facade).MarkRead, asUser(7, model.RoleStudent), nil, nil)
	if markResp.Code != http.StatusNoContent {
		t.Fatalf("mark read: expected 204, got %d", markResp.Code)
	}

	deleteResp := performRequest(t, http.MethodDelete, "/notifications/:id", "/notifications/1", NewNotificationHandler(facade).Delete, asUser(7, model.RoleStudent), nil, nil)
	if deleteResp.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", deleteResp.Code)
	}
}

func TestNotificationHandlerOwnershipNotFound(t *testing.T) {
	facade := testhelpers.NotificationFacadeStub{
		MarkReadFn: func(context.Context, int64, int64) error { return domainErrors.ErrNotFound },
		DeleteFn:   func(context.Context, int64, int64) error { return domainErrors.ErrNotFound },
	}

	markResp := performRequest(t, http.MethodPut, "/notifications/:id/read", "/notifications/1/read", NewNotificationHandler(facade).MarkRead, asUser(8, model.RoleStudent), nil, nil)
	if markResp.Code != http.StatusNotFound {
		t.Fatalf("mark read: expected 404, got %d", markResp.Code)
	}

	deleteResp := performRequest(t, http.MethodDelete, "/notifications/:id", "/notifications/1", NewNotificationHandler(facade).Delete, asUser(8, model.RoleStudent), nil, nil)
	if deleteResp.Code != http.StatusNotFound {
		t.Fatalf("delete: expected 404, got %d", deleteResp.Code)
	}
}
