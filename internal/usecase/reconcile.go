package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/domain/repository"
)

// ReconcileUseCase drives the payment ledger and the order store to a
// consistent terminal state from asynchronous processor events (push) and
// client- or worker-triggered session lookups (pull). Both entry points are
// idempotent and safe under concurrent duplicate delivery: terminal payment
// states never regress and at most one order is created per payment.
type ReconcileUseCase struct {
	payments  repository.PaymentRepository
	orders    repository.OrderRepository
	processor stripe.Client
	logger    *slog.Logger
}

// NewReconcileUseCase constructs ReconcileUseCase.
func NewReconcileUseCase(payments repository.PaymentRepository, orders repository.OrderRepository, processor stripe.Client, logger *slog.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{payments: payments, orders: orders, processor: processor, logger: logger}
}

// HandleEvent verifies and applies one webhook delivery. Malformed but
// authentic events are acked with a warning so the processor doesn't retry
// them forever; only signature failures and storage errors surface.
func (u *ReconcileUseCase) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := u.processor.VerifyEvent(payload, signature)
	if err != nil {
		return err
	}

	switch event.Type {
	case stripe.EventCheckoutCompleted:
		return u.applyCompleted(ctx, event.Metadata)
	case stripe.EventPaymentFailed:
		return u.applyTerminal(ctx, event.Metadata, model.PaymentStatusFailed)
	case stripe.EventCheckoutExpired:
		return u.applyTerminal(ctx, event.Metadata, model.PaymentStatusExpired)
	default:
		u.logger.Debug("ignoring processor event", slog.String("type", event.Type))
		return nil
	}
}

// applyCompleted owns order creation exclusively. The payment CAS plus the
// unique payment_id constraint on orders guarantee at most one order per
// payment even under concurrent duplicate delivery.
func (u *ReconcileUseCase) applyCompleted(ctx context.Context, metadata map[string]string) error {
	paymentID, ok := metadataID(metadata, stripe.MetaPaymentID)
	if !ok {
		u.logger.Warn("checkout completed event without payment_id metadata, acking")
		return nil
	}

	payment, err := u.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("checkout completed for unknown payment, acking", slog.Int64("payment_id", paymentID))
			return nil
		}
		return err
	}

	applied, err := u.payments.TransitionFromPending(ctx, paymentID, model.PaymentStatusSuccess)
	if err != nil {
		return err
	}
	if !applied {
		current, err := u.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if current.Status != model.PaymentStatusSuccess {
			// A different terminal state won; success must not overwrite it.
			u.logger.Warn("checkout completed for payment in terminal state, acking",
				slog.Int64("payment_id", paymentID), slog.String("status", string(current.Status)))
			return nil
		}
	}

	userID, ok := metadataID(metadata, stripe.MetaUserID)
	if !ok {
		u.logger.Error("payment confirmed but user_id metadata missing, order not created",
			slog.Int64("payment_id", paymentID))
		return nil
	}

	raw := metadata[stripe.MetaCartItems]
	if raw == "" {
		u.logger.Error("payment confirmed but cart metadata missing, order not created",
			slog.Int64("payment_id", paymentID))
		return nil
	}
	var items []model.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		u.logger.Error("payment confirmed but cart metadata unreadable, order not created",
			slog.Int64("payment_id", paymentID), slog.String("error", err.Error()))
		return nil
	}
	if len(items) == 0 {
		u.logger.Error("payment confirmed but cart metadata empty, order not created",
			slog.Int64("payment_id", paymentID))
		return nil
	}

	orderItems := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, model.OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			UnitPrice:  item.Price,
			Quantity:   item.Quantity,
			Subtotal:   item.Price.Mul(decimal.NewFromInt32(item.Quantity)),
		})
	}

	order := &model.Order{
		UserID:    userID,
		Total:     payment.Amount,
		Status:    model.OrderStatusPaid,
		PaymentID: &paymentID,
	}
	note := &model.Notification{
		UserID:  userID,
		Type:    model.NotificationTypeOrderPlaced,
		Message: "Payment received, your order is confirmed",
	}

	created, wasNew, err := u.orders.Create(ctx, order, orderItems, note)
	if err != nil {
		return err
	}
	if !wasNew {
		u.logger.Info("order already exists for payment, duplicate delivery acked",
			slog.Int64("payment_id", paymentID), slog.Int64("order_id", created.ID))
	}
	return nil
}

func (u *ReconcileUseCase) applyTerminal(ctx context.Context, metadata map[string]string, status model.PaymentStatus) error {
	paymentID, ok := metadataID(metadata, stripe.MetaPaymentID)
	if !ok {
		u.logger.Warn("processor event without payment_id metadata, acking",
			slog.String("status", string(status)))
		return nil
	}

	applied, err := u.payments.TransitionFromPending(ctx, paymentID, status)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			u.logger.Warn("processor event for unknown payment, acking", slog.Int64("payment_id", paymentID))
			return nil
		}
		return err
	}
	if !applied {
		u.logger.Info("payment already terminal, event acked", slog.Int64("payment_id", paymentID))
	}
	return nil
}

// Confirm is the pull entry point: it reads session state from the processor
// and transitions the payment, and a pending linked order, accordingly. It
// never creates orders; that belongs to the webhook path.
func (u *ReconcileUseCase) Confirm(ctx context.Context, sessionID string, paymentID int64) (model.PaymentStatus, error) {
	payment, err := u.resolvePayment(ctx, sessionID, paymentID)
	if err != nil {
		return "", err
	}
	if payment.SessionID == "" {
		return "", fmt.Errorf("payment %d has no checkout session: %w", payment.ID, domainErrors.ErrNotFound)
	}

	session, err := u.processor.GetCheckoutSession(ctx, payment.SessionID)
	if err != nil {
		return "", err
	}

	var target model.PaymentStatus
	switch session.PaymentStatus {
	case stripe.SessionPaid, stripe.SessionNoPaymentRequired:
		target = model.PaymentStatusSuccess
	case stripe.SessionUnpaid:
		target = model.PaymentStatusFailed
	default:
		return model.PaymentStatusPending, nil
	}

	applied, err := u.payments.TransitionFromPending(ctx, payment.ID, target)
	if err != nil {
		return "", err
	}
	if !applied {
		current, err := u.payments.GetByID(ctx, payment.ID)
		if err != nil {
			return "", err
		}
		return current.Status, nil
	}

	if target == model.PaymentStatusSuccess {
		if err := u.promoteLinkedOrder(ctx, payment.ID); err != nil {
			return "", err
		}
	}
	return target, nil
}

// promoteLinkedOrder moves a still-pending order for the payment to paid. The
// pending guard keeps a later staff-set state from being clobbered.
func (u *ReconcileUseCase) promoteLinkedOrder(ctx context.Context, paymentID int64) error {
	order, err := u.orders.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil
		}
		return err
	}
	promoted, err := u.orders.MarkPaid(ctx, order.ID)
	if err != nil {
		return err
	}
	if promoted {
		u.logger.Info("order promoted to paid", slog.Int64("order_id", order.ID), slog.Int64("payment_id", paymentID))
	}
	return nil
}

// Payment returns the ledger entry and its linked order, if any. The read is
// restricted to the paying user unless the actor is staff.
func (u *ReconcileUseCase) Payment(ctx context.Context, id, userID int64, role model.Role) (*model.Payment, *model.Order, error) {
	payment, err := u.payments.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !role.Staff() && payment.UserID != userID {
		return nil, nil, domainErrors.ErrForbidden
	}
	order, err := u.orders.GetByPaymentID(ctx, id)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return payment, nil, nil
		}
		return nil, nil, err
	}
	return payment, order, nil
}

// StalePending selects pending payments with a checkout session that have not
// seen an update for olderThan. They are candidates for a pull confirmation in
// case the webhook delivery was lost.
func (u *ReconcileUseCase) StalePending(ctx context.Context, olderThan time.Duration, limit int) ([]model.Payment, error) {
	return u.payments.SelectStalePending(ctx, olderThan, limit)
}

func (u *ReconcileUseCase) resolvePayment(ctx context.Context, sessionID string, paymentID int64) (*model.Payment, error) {
	if paymentID != 0 {
		return u.payments.GetByID(ctx, paymentID)
	}
	if sessionID != "" {
		return u.payments.GetBySession(ctx, sessionID)
	}
	return nil, domainErrors.ErrNotFound
}

func metadataID(metadata map[string]string, key string) (int64, bool) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
