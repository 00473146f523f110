package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/domain/repository"
)

// ErrProcessor marks failures talking to the external payment processor.
var ErrProcessor = errors.New("payment processor")

// CheckoutUseCase opens payment-gated checkouts with the external processor.
type CheckoutUseCase struct {
	payments  repository.PaymentRepository
	menu      repository.MenuRepository
	processor stripe.Client
	baseURL   string
	currency  string
	logger    *slog.Logger
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(payments repository.PaymentRepository, menu repository.MenuRepository, processor stripe.Client, baseURL, currency string, logger *slog.Logger) *CheckoutUseCase {
	return &CheckoutUseCase{
		payments:  payments,
		menu:      menu,
		processor: processor,
		baseURL:   baseURL,
		currency:  currency,
		logger:    logger,
	}
}

// InitiateCheckout records a pending payment and builds a checkout session for
// the buyer's browser. The cart is re-priced from the catalog and the amount
// recomputed server-side; a mismatching client amount is overridden, not an
// error. If the processor call fails the pending payment remains on the ledger
// for the reconcile worker and operational monitoring to pick up.
func (u *CheckoutUseCase) InitiateCheckout(ctx context.Context, userID int64, buyerEmail string, amount decimal.Decimal, items []model.CartItem) (*model.Payment, string, error) {
	priced, total, err := repriceCart(ctx, u.menu, items)
	if err != nil {
		return nil, "", err
	}
	if !total.Equal(amount) {
		u.logger.Warn("client amount differs from catalog total, overriding",
			slog.Int64("user_id", userID),
			slog.String("client_amount", amount.String()),
			slog.String("catalog_total", total.String()),
		)
	}

	payment, err := u.payments.Create(ctx, userID, total, model.PaymentMethodCard)
	if err != nil {
		return nil, "", err
	}

	session, err := u.processor.CreateCheckoutSession(ctx, stripe.CheckoutParams{
		PaymentID:  payment.ID,
		UserID:     userID,
		BuyerEmail: buyerEmail,
		Currency:   u.currency,
		SuccessURL: u.baseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  u.baseURL + "/payment/cancel",
		Items:      priced,
	})
	if err != nil {
		u.logger.Error("checkout session creation failed, pending payment orphaned",
			slog.Int64("payment_id", payment.ID), slog.String("error", err.Error()))
		return nil, "", fmt.Errorf("%w: %s", ErrProcessor, err)
	}

	if err := u.payments.AttachSession(ctx, payment.ID, session.ID); err != nil {
		return nil, "", err
	}
	payment.SessionID = session.ID

	return payment, session.URL, nil
}
