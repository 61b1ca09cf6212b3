// AngelaMos | 2026
// reconciler.go

package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/paywall-blog/internal/core"
)

// Granter is the slice of the account store the reconciler writes to.
type Granter interface {
	GrantArticle(ctx context.Context, userID uint64, articleID string) error
	HasArticle(ctx context.Context, userID uint64, articleID string) bool
}

// WebhookRecorder counts handled webhook deliveries by outcome.
type WebhookRecorder interface {
	RecordWebhook(ctx context.Context, outcome Outcome)
}

// Reconciler turns provider webhooks into entitlement grants. Handling the
// same delivery any number of times leaves the store as one delivery
// would.
type Reconciler struct {
	provider Provider
	grants   Granter
	guard    ReplayGuard
	ledger   Ledger
	recorder WebhookRecorder
	logger   *slog.Logger
}

type ReconcilerOption func(*Reconciler)

func WithReplayGuard(g ReplayGuard) ReconcilerOption {
	return func(r *Reconciler) { r.guard = g }
}

func WithLedger(l Ledger) ReconcilerOption {
	return func(r *Reconciler) { r.ledger = l }
}

func WithWebhookRecorder(rec WebhookRecorder) ReconcilerOption {
	return func(r *Reconciler) { r.recorder = rec }
}

func NewReconciler(
	provider Provider,
	grants Granter,
	logger *slog.Logger,
	opts ...ReconcilerOption,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		provider: provider,
		grants:   grants,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle authenticates and applies one webhook delivery. A non-nil error
// comes with OutcomeRejected for deliveries that will never succeed and
// OutcomeFailed for ones worth retrying.
func (r *Reconciler) Handle(
	ctx context.Context,
	payload []byte,
	signature string,
) (Outcome, error) {
	ctx, span := core.StartSpan(ctx, "purchase.reconcile")
	defer span.End()

	outcome, err := r.handle(ctx, payload, signature)

	span.SetAttributes(attribute.String("purchase.outcome", outcome.String()))
	if err != nil {
		core.SetSpanError(span, err)
	}
	if r.recorder != nil {
		r.recorder.RecordWebhook(ctx, outcome)
	}
	return outcome, err
}

func (r *Reconciler) handle(
	ctx context.Context,
	payload []byte,
	signature string,
) (Outcome, error) {
	event, err := r.provider.ParseEvent(payload, signature)
	if err != nil {
		r.logger.WarnContext(ctx, "webhook rejected", "error", err)
		return OutcomeRejected, err
	}

	log := r.logger.With("event_id", event.ID, "event_type", event.Type)

	if event.Type != EventCheckoutCompleted {
		log.InfoContext(ctx, "webhook event ignored")
		return OutcomeIgnored, nil
	}
	if event.Reference == "" {
		log.InfoContext(ctx, "checkout completed without payment, ignored")
		return OutcomeIgnored, nil
	}

	ref, err := DecodeReference(event.Reference)
	if err != nil {
		log.WarnContext(ctx, "webhook reference rejected", "error", err)
		return OutcomeRejected, err
	}
	log = log.With("user_id", ref.UserID, "article_id", ref.ArticleID)

	if r.guard != nil {
		first, err := r.guard.Claim(ctx, event.ID)
		switch {
		case err != nil:
			// Grants are idempotent, so losing the guard only costs work.
			log.WarnContext(ctx, "replay guard unavailable", "error", err)
		case !first:
			log.InfoContext(ctx, "webhook replay skipped")
			return OutcomeDuplicate, nil
		}
	}

	outcome, err := r.apply(ctx, event, ref)
	if err != nil && outcome == OutcomeFailed && r.guard != nil {
		if relErr := r.guard.Release(ctx, event.ID); relErr != nil {
			log.WarnContext(ctx, "replay guard release failed", "error", relErr)
		}
	}

	switch {
	case err != nil:
		log.ErrorContext(ctx, "webhook grant failed", "error", err)
	case outcome == OutcomeGranted:
		log.InfoContext(ctx, "article granted")
	default:
		log.InfoContext(ctx, "webhook handled", "outcome", outcome.String())
	}
	return outcome, err
}

func (r *Reconciler) apply(ctx context.Context, event Event, ref Reference) (Outcome, error) {
	replay := false

	if r.ledger != nil {
		err := r.ledger.Record(ctx, Record{
			EventID:     event.ID,
			UserID:      ref.UserID,
			ArticleID:   ref.ArticleID,
			AmountMinor: event.Amount,
			Currency:    event.Currency,
		})
		switch {
		case errors.Is(err, core.ErrDuplicateKey):
			replay = true
		case err != nil:
			return OutcomeFailed, fmt.Errorf("ledger: %w", err)
		}
	}

	// Without a ledger the store is the only record of earlier deliveries.
	owned := r.ledger == nil && r.grants.HasArticle(ctx, ref.UserID, ref.ArticleID)

	if err := r.grants.GrantArticle(ctx, ref.UserID, ref.ArticleID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// The buyer deleted their account before the webhook arrived.
			return OutcomeIgnored, nil
		}
		return OutcomeFailed, fmt.Errorf("grant article: %w", err)
	}

	if replay || owned {
		return OutcomeDuplicate, nil
	}
	return OutcomeGranted, nil
}
