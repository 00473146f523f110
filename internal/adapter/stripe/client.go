package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/campuseats/canteen/internal/domain/model"
)

// ErrSessionNotFound indicates the processor doesn't know the session.
var ErrSessionNotFound = errors.New("checkout session not found")

// ErrBadSignature indicates the webhook payload failed signature verification.
// The prefix is kept stable for operator grep.
var ErrBadSignature = errors.New("webhook signature: verification failed")

// Event types this core reacts to. Anything else is acked and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// Payment statuses a checkout session reports.
const (
	SessionPaid              = "paid"
	SessionUnpaid            = "unpaid"
	SessionNoPaymentRequired = "no_payment_required"
)

// Metadata keys round-tripped through the checkout session so the webhook can
// rebuild the order without another look at the ephemeral cart.
const (
	MetaPaymentID = "payment_id"
	MetaUserID    = "user_id"
	MetaCartItems = "cart_items"
)

// Session is the processor-side view of one buyer-facing payment attempt.
type Session struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

// Event is a verified webhook notification.
type Event struct {
	Type     string
	Metadata map[string]string
}

// CheckoutParams describes a checkout session to create.
type CheckoutParams struct {
	PaymentID  int64
	UserID     int64
	BuyerEmail string
	Currency   string
	SuccessURL string
	CancelURL  string
	Items      []model.CartItem
}

// Client exposes the payment processor operations used by the reconciliation core.
type Client interface {
	CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*Session, error)
	VerifyEvent(payload []byte, signature string) (*Event, error)
}

// APIClient implements Client against the Stripe API.
type APIClient struct {
	api           *client.API
	webhookSecret string
	logger        *slog.Logger
}

// NewAPIClient creates a Stripe-backed client.
func NewAPIClient(secretKey, webhookSecret string, logger *slog.Logger) (*APIClient, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key must be provided")
	}
	api := &client.API{}
	api.Init(secretKey, nil)
	return &APIClient{api: api, webhookSecret: webhookSecret, logger: logger}, nil
}

// CreateCheckoutSession builds a checkout session carrying the payment id,
// buyer id, and the frozen cart snapshot in processor-visible metadata.
func (c *APIClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*Session, error) {
	lineItems := make([]*stripeapi.CheckoutSessionLineItemParams, 0, len(p.Items))
	for _, item := range p.Items {
		lineItems = append(lineItems, &stripeapi.CheckoutSessionLineItemParams{
			Quantity: stripeapi.Int64(int64(item.Quantity)),
			PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripeapi.String(p.Currency),
				UnitAmount: stripeapi.Int64(minorUnits(item.Price)),
				ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripeapi.String(item.Name),
				},
			},
		})
	}

	cart, err := json.Marshal(p.Items)
	if err != nil {
		return nil, fmt.Errorf("serialize cart: %w", err)
	}

	params := &stripeapi.CheckoutSessionParams{
		Params:        stripeapi.Params{Context: ctx},
		Mode:          stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		CustomerEmail: stripeapi.String(p.BuyerEmail),
		SuccessURL:    stripeapi.String(p.SuccessURL),
		CancelURL:     stripeapi.String(p.CancelURL),
		LineItems:     lineItems,
	}
	params.AddMetadata(MetaPaymentID, strconv.FormatInt(p.PaymentID, 10))
	params.AddMetadata(MetaUserID, strconv.FormatInt(p.UserID, 10))
	params.AddMetadata(MetaCartItems, string(cart))

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		c.logger.Error("create checkout session failed",
			slog.Int64("payment_id", p.PaymentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return fromAPISession(sess), nil
}

// GetCheckoutSession retrieves current session state from the processor.
func (c *APIClient) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	sess, err := c.api.CheckoutSessions.Get(id, &stripeapi.CheckoutSessionParams{
		Params: stripeapi.Params{Context: ctx},
	})
	if err != nil {
		var stripeErr *stripeapi.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripeapi.ErrorCodeResourceMissing {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return fromAPISession(sess), nil
}

// VerifyEvent checks the authenticity signature over the raw request body and
// normalizes the event payload.
func (c *APIClient) VerifyEvent(payload []byte, signature string) (*Event, error) {
	ev, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadSignature, err)
	}

	var object struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(ev.Data.Raw, &object); err != nil {
		return nil, fmt.Errorf("decode event object: %w", err)
	}

	return &Event{Type: string(ev.Type), Metadata: object.Metadata}, nil
}

func fromAPISession(sess *stripeapi.CheckoutSession) *Session {
	return &Session{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
}

func minorUnits(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
