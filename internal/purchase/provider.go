// AngelaMos | 2026
// provider.go

package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/carterperez-dev/paywall-blog/internal/config"
	"github.com/carterperez-dev/paywall-blog/internal/content"
)

const (
	SignatureHeader    = "Stripe-Signature"
	maxProviderPayload = 1 << 20
)

type CheckoutRequest struct {
	Reference  Reference
	Title      string
	Price      content.Price
	Email      string
	SuccessURL string
	CancelURL  string
}

// Provider is the payment collaborator: it opens hosted checkouts and
// authenticates the webhooks that report their completion.
type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (string, error)
	ParseEvent(payload []byte, signature string) (Event, error)
}

// StripeProvider opens Stripe checkout sessions and verifies
// Stripe-Signature webhook headers through stripe-go.
type StripeProvider struct {
	sessions      *session.Client
	webhookSecret string
	tolerance     time.Duration
}

func NewStripeProvider(cfg config.PurchaseConfig, client *http.Client) *StripeProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	tolerance := cfg.SignatureTolerance
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        client,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     stripeLogger{logger: slog.Default()},
	}
	if baseURL := strings.TrimRight(cfg.APIBaseURL, "/"); baseURL != "" {
		backendCfg.URL = stripe.String(baseURL)
	}

	return &StripeProvider{
		sessions: &session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.APIKey,
		},
		webhookSecret: cfg.WebhookSecret,
		tolerance:     tolerance,
	}
}

func (p *StripeProvider) CreateCheckout(
	ctx context.Context,
	req CheckoutRequest,
) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.Reference.Encode()),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(string(req.Price.Currency))),
					UnitAmount: stripe.Int64(req.Price.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Title),
					},
				},
			},
		},
	}
	params.Context = ctx
	params.AddMetadata("article_id", req.Reference.ArticleID)
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	cs, err := p.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
			return "", fmt.Errorf("create checkout: %s (%d)", stripeErr.Msg, stripeErr.HTTPStatusCode)
		}
		return "", fmt.Errorf("create checkout: %w", err)
	}
	if cs.URL == "" {
		return "", errors.New("create checkout: provider returned no url")
	}

	return cs.URL, nil
}

// ParseEvent authenticates payload against the signature header and
// decodes it. Completed checkouts that are not paid yet are reported with
// an empty reference.
func (p *StripeProvider) ParseEvent(payload []byte, signature string) (Event, error) {
	if p.webhookSecret == "" {
		return Event{}, fmt.Errorf("%w: no webhook secret configured", ErrInvalidSignature)
	}

	raw, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{
			Tolerance:                p.tolerance,
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		if isSignatureError(err) {
			return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.ID == "" || raw.Type == "" {
		return Event{}, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	ev := Event{ID: raw.ID, Type: string(raw.Type)}
	if ev.Type != EventCheckoutCompleted || raw.Data == nil {
		return ev, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(raw.Data.Raw, &cs); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	ev.Amount = cs.AmountTotal
	ev.Currency = strings.ToUpper(string(cs.Currency))
	if cs.PaymentStatus == "" || cs.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		ev.Reference = cs.ClientReferenceID
	}
	return ev, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

// stripeLogger routes stripe-go client logs into slog.
type stripeLogger struct {
	logger *slog.Logger
}

func (l stripeLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l stripeLogger) Infof(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l stripeLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l stripeLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
