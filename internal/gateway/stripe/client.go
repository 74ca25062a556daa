// Package stripe opens Stripe Checkout sessions for reservations and reads
// their outcome back, either by lookup or from signed webhooks.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/kirinyoku/venue-go/internal/domain"
)

const (
	DefaultCurrency = "npr"

	metaReservationID = "reservation_id"

	eventCheckoutCompleted = "checkout.session.completed"
)

var (
	ErrBadSignature = errors.New("stripe: webhook signature rejected")
	ErrBadEvent     = errors.New("stripe: malformed webhook event")
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	FrontendURL   string
	// Backends overrides the API endpoints; nil uses Stripe's.
	Backends *stripe.Backends
}

type Client struct {
	api           *client.API
	currency      string
	frontendURL   string
	webhookSecret string
}

func New(cfg Config) *Client {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, cfg.Backends)

	return &Client{
		api:           api,
		currency:      strings.ToLower(cfg.Currency),
		frontendURL:   strings.TrimRight(cfg.FrontendURL, "/"),
		webhookSecret: cfg.WebhookSecret,
	}
}

// Initiate creates a one-line Checkout session priced at the reservation total.
func (c *Client) Initiate(ctx context.Context, req domain.PaymentRequest) (domain.PaymentInitiation, error) {
	const op = "stripe.Client.Initiate"

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.frontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(c.frontendURL + "/payment/cancel"),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.currency),
				UnitAmount: stripe.Int64(req.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.OrderName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.AddMetadata(metaReservationID, strconv.FormatInt(req.ReservationID, 10))
	params.Context = ctx

	s, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return domain.PaymentInitiation{}, fmt.Errorf("%s:%w", op, err)
	}

	return domain.PaymentInitiation{ProviderRef: s.ID, RedirectURL: s.URL}, nil
}

// Verify fetches the session and reports whether it has been paid.
func (c *Client) Verify(ctx context.Context, sessionID string) (domain.PaymentVerification, error) {
	const op = "stripe.Client.Verify"

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return domain.PaymentVerification{}, fmt.Errorf("%s:%w", op, err)
	}

	return verificationFromSession(s), nil
}

// WebhookResult is a completed checkout read from a webhook delivery.
type WebhookResult struct {
	ReservationID int64
	Verification  domain.PaymentVerification
}

// ParseWebhook checks the signature and decodes checkout.session.completed
// events. Other event types return ok=false.
func (c *Client) ParseWebhook(payload []byte, signature string) (WebhookResult, bool, error) {
	const op = "stripe.Client.ParseWebhook"

	evt, err := webhook.ConstructEventWithOptions(payload, signature, c.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return WebhookResult{}, false, fmt.Errorf("%s:%w: %v", op, ErrBadSignature, err)
	}

	if string(evt.Type) != eventCheckoutCompleted {
		return WebhookResult{}, false, nil
	}

	var s stripe.CheckoutSession
	if evt.Data == nil || json.Unmarshal(evt.Data.Raw, &s) != nil {
		return WebhookResult{}, false, fmt.Errorf("%s:%w", op, ErrBadEvent)
	}

	id, err := strconv.ParseInt(s.Metadata[metaReservationID], 10, 64)
	if err != nil {
		return WebhookResult{}, false, fmt.Errorf("%s:%w: reservation_id", op, ErrBadEvent)
	}

	return WebhookResult{ReservationID: id, Verification: verificationFromSession(&s)}, true, nil
}

func verificationFromSession(s *stripe.CheckoutSession) domain.PaymentVerification {
	v := domain.PaymentVerification{
		ProviderRef: s.ID,
		Completed:   s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Status:      string(s.PaymentStatus),
		AmountCents: s.AmountTotal,
	}
	if s.PaymentIntent != nil {
		v.TransactionID = s.PaymentIntent.ID
	}
	return v
}
