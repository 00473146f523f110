package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/test"
)

func completedMetadata(t *testing.T, paymentID, userID int64) map[string]string {
	t.Helper()
	cart := []model.CartItem{
		{MenuItemID: 1, Name: "Masala Dosa", Price: decimal.NewFromInt(45), Quantity: 2},
		{MenuItemID: 2, Name: "Filter Coffee", Price: decimal.NewFromInt(20), Quantity: 1},
	}
	raw, err := json.Marshal(cart)
	if err != nil {
		t.Fatalf("marshal cart: %v", err)
	}
	return map[string]string{
		stripe.MetaPaymentID: strconv.FormatInt(paymentID, 10),
		stripe.MetaUserID:    strconv.FormatInt(userID, 10),
		stripe.MetaCartItems: string(raw),
	}
}

func eventProcessor(eventType string, metadata map[string]string) *test.ProcessorStub {
	return &test.ProcessorStub{
		VerifyFn: func([]byte, string) (*stripe.Event, error) {
			return &stripe.Event{Type: eventType, Metadata: metadata}, nil
		},
	}
}

func TestHandleEventCheckoutCompletedCreatesPaidOrder(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	orders := test.NewOrderRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusPending})

	processor := eventProcessor(stripe.EventCheckoutCompleted, completedMetadata(t, payment.ID, 7))
	uc := NewReconcileUseCase(payments, orders, processor, discardLogger())

	if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("handle event failed: %v", err)
	}

	stored, _ := payments.GetByID(context.Background(), payment.ID)
	if stored.Status != model.PaymentStatusSuccess {
		t.Errorf("expected success payment, got %s", stored.Status)
	}

	order, err := orders.GetByPaymentID(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("order not created: %v", err)
	}
	if order.Status != model.OrderStatusPaid {
		t.Errorf("expected paid order, got %s", order.Status)
	}
	if !order.Total.Equal(decimal.NewFromInt(110)) {
		t.Errorf("expected order total 110, got %s", order.Total)
	}
	if len(order.Items) != 2 {
		t.Errorf("expected 2 frozen lines, got %d", len(order.Items))
	}
}

func TestHandleEventDuplicateDeliveryCreatesOneOrder(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	orders := test.NewOrderRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusPending})

	processor := eventProcessor(stripe.EventCheckoutCompleted, completedMetadata(t, payment.ID, 7))
	uc := NewReconcileUseCase(payments, orders, processor, discardLogger())

	for i := 0; i < 3; i++ {
		if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("delivery %d failed: %v", i, err)
		}
	}

	if len(orders.Orders) != 1 {
		t.Fatalf("expected exactly one order, got %d", len(orders.Orders))
	}
}

func TestHandleEventCompletedDoesNotRegressTerminalPayment(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	orders := test.NewOrderRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusExpired})

	processor := eventProcessor(stripe.EventCheckoutCompleted, completedMetadata(t, payment.ID, 7))
	uc := NewReconcileUseCase(payments, orders, processor, discardLogger())

	if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("handle event failed: %v", err)
	}

	stored, _ := payments.GetByID(context.Background(), payment.ID)
	if stored.Status != model.PaymentStatusExpired {
		t.Errorf("terminal status regressed to %s", stored.Status)
	}
	if len(orders.Orders) != 0 {
		t.Error("no order may be created for a non-success payment")
	}
}

func TestHandleEventUnknownPaymentIsAcked(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	orders := test.NewOrderRepositoryStub()

	processor := eventProcessor(stripe.EventCheckoutCompleted, completedMetadata(t, 404, 7))
	uc := NewReconcileUseCase(payments, orders, processor, discardLogger())

	if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("expected ack for unknown payment, got %v", err)
	}
}

func TestHandleEventMissingMetadataIsAcked(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	orders := test.NewOrderRepositoryStub()

	processor := eventProcessor(stripe.EventCheckoutCompleted, map[string]string{})
	uc := NewReconcileUseCase(payments, orders, processor, discardLogger())

	if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("expected ack for malformed event, got %v", err)
	}
}

func TestHandleEventWithoutCartCreatesNoOrder(t *testing.T) {
	cases := []struct {
		name string
		cart string
	}{
		{name: "absent", cart: ""},
		{name: "empty list", cart: "[]"},
		{name: "unreadable", cart: "{not json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payments := test.NewPaymentRepositoryStub()
			orders := test.NewOrderRepositoryStub()
			payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusPending})

			metadata := map[string]string{
				stripe.MetaPaymentID: strconv.FormatInt(payment.ID, 10),
				stripe.MetaUserID:    "7",
			}
			if tc.cart != "" {
				metadata[stripe.MetaCartItems] = tc.cart
			}
			processor := eventProcessor(stripe.EventCheckoutCompleted, metadata)
			uc := NewReconcileUseCase(payments, orders, processor, discardLogger())

			if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
				t.Fatalf("expected ack, got %v", err)
			}

			// The ledger records the settlement but an order with no lines
			// would break the total/subtotal accounting, so none is created.
			stored, _ := payments.GetByID(context.Background(), payment.ID)
			if stored.Status != model.PaymentStatusSuccess {
				t.Errorf("expected success payment, got %s", stored.Status)
			}
			if len(orders.Orders) != 0 {
				t.Fatalf("expected no order, got %d", len(orders.Orders))
			}
		})
	}
}

func TestHandleEventBadSignatureSurfaces(t *testing.T) {
	processor := &test.ProcessorStub{
		VerifyFn: func([]byte, string) (*stripe.Event, error) {
			return nil, stripe.ErrBadSignature
		},
	}
	uc := NewReconcileUseCase(test.NewPaymentRepositoryStub(), test.NewOrderRepositoryStub(), processor, discardLogger())

	err := uc.HandleEvent(context.Background(), []byte("{}"), "bad")
	if !errors.Is(err, stripe.ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestHandleEventPaymentFailedMarksLedger(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(45), Status: model.PaymentStatusPending})

	metadata := map[string]string{stripe.MetaPaymentID: strconv.FormatInt(payment.ID, 10)}
	processor := eventProcessor(stripe.EventPaymentFailed, metadata)
	uc := NewReconcileUseCase(payments, test.NewOrderRepositoryStub(), processor, discardLogger())

	if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("handle event failed: %v", err)
	}

	stored, _ := payments.GetByID(context.Background(), payment.ID)
	if stored.Status != model.PaymentStatusFailed {
		t.Errorf("expected failed payment, got %s", stored.Status)
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	processor := eventProcessor("customer.created", nil)
	uc := NewReconcileUseCase(test.NewPaymentRepositoryStub(), test.NewOrderRepositoryStub(), processor, discardLogger())

	if err := uc.HandleEvent(context.Background(), []byte("{}"), "sig"); err != nil {
		t.Fatalf("expected unrelated event to be acked, got %v", err)
	}
}

func TestConfirmPaidSessionPromotesPaymentAndOrder(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	orders := test.NewOrderRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusPending, SessionID: "cs_1"})
	orders.Seed(model.Order{UserID: 7, Total: decimal.NewFromInt(110), Status: model.OrderStatusPending, PaymentID: &payment.ID})

	processor := &test.ProcessorStub{
		GetFn: func(_ context.Context, id string) (*stripe.Session, error) {
			return &stripe.Session{ID: id, PaymentStatus: stripe.SessionPaid}, nil
		},
	}
	uc := NewReconcileUseCase(payments, orders, processor, discardLogger())

	status, err := uc.Confirm(context.Background(), "cs_1", 0)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if status != model.PaymentStatusSuccess {
		t.Errorf("expected success, got %s", status)
	}

	order, _ := orders.GetByPaymentID(context.Background(), payment.ID)
	if order.Status != model.OrderStatusPaid {
		t.Errorf("linked order not promoted: %s", order.Status)
	}
}

func TestConfirmUnpaidSessionMarksFailed(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(45), Status: model.PaymentStatusPending, SessionID: "cs_2"})

	processor := &test.ProcessorStub{
		GetFn: func(_ context.Context, id string) (*stripe.Session, error) {
			return &stripe.Session{ID: id, PaymentStatus: stripe.SessionUnpaid}, nil
		},
	}
	uc := NewReconcileUseCase(payments, test.NewOrderRepositoryStub(), processor, discardLogger())

	status, err := uc.Confirm(context.Background(), "", payment.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if status != model.PaymentStatusFailed {
		t.Errorf("expected failed, got %s", status)
	}
}

func TestConfirmIsIdempotentForTerminalPayment(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(45), Status: model.PaymentStatusSuccess, SessionID: "cs_3"})

	processor := &test.ProcessorStub{
		GetFn: func(_ context.Context, id string) (*stripe.Session, error) {
			return &stripe.Session{ID: id, PaymentStatus: stripe.SessionPaid}, nil
		},
	}
	uc := NewReconcileUseCase(payments, test.NewOrderRepositoryStub(), processor, discardLogger())

	status, err := uc.Confirm(context.Background(), "", payment.ID)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if status != model.PaymentStatusSuccess {
		t.Errorf("expected stored terminal status back, got %s", status)
	}
}

func TestConfirmUnknownSessionSurfaces(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(45), Status: model.PaymentStatusPending, SessionID: "cs_gone"})

	processor := &test.ProcessorStub{
		GetFn: func(context.Context, string) (*stripe.Session, error) {
			return nil, stripe.ErrSessionNotFound
		},
	}
	uc := NewReconcileUseCase(payments, test.NewOrderRepositoryStub(), processor, discardLogger())

	_, err := uc.Confirm(context.Background(), "", payment.ID)
	if !errors.Is(err, stripe.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConfirmPaymentWithoutSessionIsNotFound(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(45), Status: model.PaymentStatusPending})

	uc := NewReconcileUseCase(payments, test.NewOrderRepositoryStub(), &test.ProcessorStub{}, discardLogger())

	_, err := uc.Confirm(context.Background(), "", payment.ID)
	if !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPaymentReturnsLinkedOrder(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	orders := test.NewOrderRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusSuccess})
	seeded := orders.Seed(model.Order{UserID: 7, Total: decimal.NewFromInt(110), Status: model.OrderStatusPaid, PaymentID: &payment.ID})

	uc := NewReconcileUseCase(payments, orders, &test.ProcessorStub{}, discardLogger())

	got, order, err := uc.Payment(context.Background(), payment.ID, 7, model.RoleStudent)
	if err != nil {
		t.Fatalf("payment lookup failed: %v", err)
	}
	if got.ID != payment.ID {
		t.Errorf("unexpected payment: %+v", got)
	}
	if order == nil || order.ID != seeded.ID {
		t.Errorf("expected linked order %d, got %+v", seeded.ID, order)
	}
}

func TestPaymentReadIsOwnerOrStaffOnly(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(110), Status: model.PaymentStatusSuccess})

	uc := NewReconcileUseCase(payments, test.NewOrderRepositoryStub(), &test.ProcessorStub{}, discardLogger())

	if _, _, err := uc.Payment(context.Background(), payment.ID, 8, model.RoleStudent); !errors.Is(err, domainErrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a stranger, got %v", err)
	}
	if _, _, err := uc.Payment(context.Background(), payment.ID, 8, model.RoleStaff); err != nil {
		t.Fatalf("staff lookup failed: %v", err)
	}
}

func TestPaymentWithoutOrderReturnsNilOrder(t *testing.T) {
	payments := test.NewPaymentRepositoryStub()
	payment := payments.Seed(model.Payment{UserID: 7, Amount: decimal.NewFromInt(45), Status: model.PaymentStatusPending})

	uc := NewReconcileUseCase(payments, test.NewOrderRepositoryStub(), &test.ProcessorStub{}, discardLogger())

	got, order, err := uc.Payment(context.Background(), payment.ID, 7, model.RoleStudent)
	if err != nil {
		t.Fatalf("payment lookup failed: %v", err)
	}
	if got == nil || order != nil {
		t.Errorf("expected payment with no order, got %+v / %+v", got, order)
	}
}
