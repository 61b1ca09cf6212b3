// AngelaMos | 2026
// service.go

package purchase

import (
	"context"
	"fmt"
	"strings"

	"github.com/carterperez-dev/paywall-blog/internal/content"
)

type ArticleIndex interface {
	Metadata(key content.Key) (content.PaywallMetadata, bool)
}

type OwnershipChecker interface {
	HasArticle(ctx context.Context, userID uint64, articleID string) bool
}

type Service struct {
	provider  Provider
	articles  ArticleIndex
	owners    OwnershipChecker
	ledger    Ledger
	publicURL string
}

func NewService(
	provider Provider,
	articles ArticleIndex,
	owners OwnershipChecker,
	ledger Ledger,
	publicURL string,
) *Service {
	return &Service{
		provider:  provider,
		articles:  articles,
		owners:    owners,
		ledger:    ledger,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Checkout opens a provider checkout for key on behalf of userID and
// returns the URL the buyer should be sent to.
func (s *Service) Checkout(
	ctx context.Context,
	key content.Key,
	userID uint64,
) (string, error) {
	meta, ok := s.articles.Metadata(key)
	if !ok {
		return "", ErrNotPurchasable
	}

	if s.owners.HasArticle(ctx, userID, meta.Identifier) {
		return "", ErrAlreadyOwned
	}

	link := s.publicURL + meta.Link
	url, err := s.provider.CreateCheckout(ctx, CheckoutRequest{
		Reference:  Reference{UserID: userID, ArticleID: meta.Identifier},
		Title:      meta.Title,
		Price:      meta.Price,
		SuccessURL: link + "?success=1",
		CancelURL:  link + "?success=0",
	})
	if err != nil {
		return "", fmt.Errorf("checkout %s: %w", key, err)
	}
	return url, nil
}

// History returns the recorded purchases of userID, or nothing when no
// ledger is configured.
func (s *Service) History(ctx context.Context, userID uint64) ([]Record, error) {
	if s.ledger == nil {
		return []Record{}, nil
	}
	return s.ledger.ListForUser(ctx, userID)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s.ledger == nil {
		return []Record{}, nil
	}
	return s.ledger.Recent(ctx, limit)
}
