// AngelaMos | 2026
// entity.go

package purchase

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/paywall-blog/internal/core"
)

const EventCheckoutCompleted = "checkout.session.completed"

var (
	ErrInvalidSignature = fmt.Errorf("invalid webhook signature: %w", core.ErrProviderWebhook)
	ErrMalformedEvent   = fmt.Errorf("malformed webhook event: %w", core.ErrProviderWebhook)
	ErrInvalidReference = fmt.Errorf("invalid purchase reference: %w", core.ErrInvalidInput)
	ErrNotPurchasable   = fmt.Errorf("article: %w", core.ErrNotFound)
	ErrAlreadyOwned     = fmt.Errorf("article already owned: %w", core.ErrConflict)
)

// Reference ties a checkout to the buyer and the article. The provider
// echoes it back unchanged on completion.
type Reference struct {
	UserID    uint64 `json:"user_id"`
	ArticleID string `json:"article_id"`
}

func (r Reference) Encode() string {
	//nolint:errcheck // marshalling a fixed struct of scalars cannot fail
	raw, _ := json.Marshal(r)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeReference(s string) (Reference, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	var ref Reference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return Reference{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if ref.ArticleID == "" {
		return Reference{}, fmt.Errorf("%w: missing article id", ErrInvalidReference)
	}
	return ref, nil
}

// Event is the part of a provider webhook the reconciler needs.
type Event struct {
	ID        string
	Type      string
	Reference string
	Amount    int64
	Currency  string
}

// Record is one row of the purchase ledger.
type Record struct {
	EventID     string    `db:"event_id"     json:"event_id"`
	UserID      uint64    `db:"user_id"      json:"user_id"`
	ArticleID   string    `db:"article_id"   json:"article_id"`
	AmountMinor int64     `db:"amount_minor" json:"amount_minor"`
	Currency    string    `db:"currency"     json:"currency"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeGranted
	OutcomeIgnored
	OutcomeDuplicate
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeGranted:
		return "granted"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFailed:
		return "failed"
	default:
		return "rejected"
	}
}
