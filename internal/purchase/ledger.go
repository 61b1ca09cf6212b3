// AngelaMos | 2026
// ledger.go

package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/paywall-blog/internal/core"
)

// Ledger is the durable audit trail of completed purchases.
type Ledger interface {
	Record(ctx context.Context, rec Record) error
	ListForUser(ctx context.Context, userID uint64) ([]Record, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
}

type PostgresLedger struct {
	db core.DBTX
}

func NewPostgresLedger(db core.DBTX) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// Record inserts rec. An event id that is already present yields
// core.ErrDuplicateKey.
func (l *PostgresLedger) Record(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO purchases (event_id, user_id, article_id, amount_minor, currency)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING created_at`

	var createdAt time.Time
	err := l.db.GetContext(ctx, &createdAt, query,
		rec.EventID,
		rec.UserID,
		rec.ArticleID,
		rec.AmountMinor,
		rec.Currency,
	)
	if errors.Is(err, sql.ErrNoRows) || isDuplicateKeyError(err) {
		return fmt.Errorf("record purchase %s: %w", rec.EventID, core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("record purchase %s: %w", rec.EventID, err)
	}

	return nil
}

func (l *PostgresLedger) ListForUser(ctx context.Context, userID uint64) ([]Record, error) {
	query := `
		SELECT event_id, user_id, article_id, amount_minor, currency, created_at
		FROM purchases
		WHERE user_id = $1
		ORDER BY created_at DESC`

	var records []Record
	if err := l.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return records, nil
}

func (l *PostgresLedger) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT event_id, user_id, article_id, amount_minor, currency, created_at
		FROM purchases
		ORDER BY created_at DESC
		LIMIT $1`

	var records []Record
	if err := l.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("list recent purchases: %w", err)
	}
	return records, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
