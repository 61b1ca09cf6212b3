// AngelaMos | 2026
// ledger_test.go

package purchase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/paywall-blog/internal/core"
)

func newMockLedger(t *testing.T) (*PostgresLedger, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewPostgresLedger(sqlx.NewDb(db, "sqlmock")), mock
}

var insertPurchase = regexp.QuoteMeta("INSERT INTO purchases")

func TestLedgerRecord(t *testing.T) {
	t.Parallel()

	ledger, mock := newMockLedger(t)
	rec := Record{EventID: "evt_1", UserID: 7, ArticleID: "deep-dive", AmountMinor: 499, Currency: "USD"}

	mock.ExpectQuery(insertPurchase).
		WithArgs("evt_1", sqlmock.AnyArg(), "deep-dive", int64(499), "USD").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	mock.ExpectQuery(insertPurchase).
		WithArgs("evt_1", sqlmock.AnyArg(), "deep-dive", int64(499), "USD").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}))

	require.NoError(t, ledger.Record(context.Background(), rec))
	assert.ErrorIs(t, ledger.Record(context.Background(), rec), core.ErrDuplicateKey)
}

func TestLedgerRecordErrors(t *testing.T) {
	t.Parallel()

	ledger, mock := newMockLedger(t)
	rec := Record{EventID: "evt_2", UserID: 1, ArticleID: "a", Currency: "EUR"}

	mock.ExpectQuery(insertPurchase).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(insertPurchase).
		WillReturnError(errors.New("connection refused"))

	assert.ErrorIs(t, ledger.Record(context.Background(), rec), core.ErrDuplicateKey)

	err := ledger.Record(context.Background(), rec)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicateKey)
}

func TestLedgerListForUser(t *testing.T) {
	t.Parallel()

	ledger, mock := newMockLedger(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"event_id", "user_id", "article_id", "amount_minor", "currency", "created_at",
	}).
		AddRow("evt_2", int64(7), "second", int64(900), "EUR", created.Add(time.Hour)).
		AddRow("evt_1", int64(7), "first", int64(499), "USD", created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM purchases")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	records, err := ledger.ListForUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "evt_2", records[0].EventID)
	assert.Equal(t, uint64(7), records[1].UserID)
	assert.Equal(t, created, records[1].CreatedAt)
}

func TestLedgerRecentClampsLimit(t *testing.T) {
	t.Parallel()

	ledger, mock := newMockLedger(t)

	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $1")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	records, err := ledger.Recent(context.Background(), 10_000)
	require.NoError(t, err)
	assert.Empty(t, records)
}
