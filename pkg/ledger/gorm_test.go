package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shubham-shewale/signal-pairing/pkg/ledger"
	"github.com/shubham-shewale/signal-pairing/pkg/models"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

var holdingColumns = []string{"id", "symbol", "signal", "type", "qty", "status", "price", "timestamp", "created_at", "updated_at"}

func newGormLedger(t *testing.T) (*ledger.GormLedger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return ledger.NewGormLedger(gdb), mock
}

func holdingRow(rows *sqlmock.Rows, id int64, sym string, status ledger.Status, created time.Time) *sqlmock.Rows {
	return rows.AddRow(id, sym, "LongEntry", "C", 50, string(status), "120.5", created, created, created)
}

func TestGormLedger_FindOpenHolding_MostRecent(t *testing.T) {
	l, mock := newGormLedger(t)
	created := time.Date(2025, 9, 1, 9, 15, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "holdings" WHERE \(?symbol = \$1 AND status = \$2\)? ORDER BY created_at DESC, id DESC.* LIMIT`).
		WithArgs("NIFTY250930C25200", "Holding", sqlmock.AnyArg()).
		WillReturnRows(holdingRow(sqlmock.NewRows(holdingColumns), 7, "NIFTY250930C25200", ledger.StatusHolding, created))

	h, err := l.FindOpenHolding(context.Background(), "NIFTY250930C25200")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, uint(7), h.ID)
	assert.Equal(t, ledger.StatusHolding, h.Status)
	assert.Equal(t, symbol.Call, h.Type)
	assert.Equal(t, "120.5", h.Price.String())
}

func TestGormLedger_FindOpenHolding_None(t *testing.T) {
	l, mock := newGormLedger(t)

	mock.ExpectQuery(`SELECT \* FROM "holdings" WHERE`).
		WillReturnRows(sqlmock.NewRows(holdingColumns))

	h, err := l.FindOpenHolding(context.Background(), "NIFTY250930P25200")
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestGormLedger_CreateHolding(t *testing.T) {
	l, mock := newGormLedger(t)

	mock.ExpectQuery(`INSERT INTO "holdings" .* RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	h, err := l.CreateHolding(context.Background(), signal("NIFTY250930P25200", models.ShortEntry, 1700000000000), symbol.Put)
	require.NoError(t, err)
	assert.Equal(t, uint(11), h.ID)
	assert.Equal(t, ledger.StatusHolding, h.Status)
	assert.Equal(t, symbol.Put, h.Type)
	assert.Equal(t, int64(50), h.Qty)
}

// The status guard makes a repeated close a zero-row update, not an error.
func TestGormLedger_CloseHolding_Idempotent(t *testing.T) {
	l, mock := newGormLedger(t)
	closeSQL := `UPDATE "holdings" SET "status"=\$1,"updated_at"=\$2 WHERE \(?id = \$3 AND status = \$4\)?`

	mock.ExpectExec(closeSQL).
		WithArgs("Sent", sqlmock.AnyArg(), 42, "Holding").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(closeSQL).
		WithArgs("Sent", sqlmock.AnyArg(), 42, "Holding").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, l.CloseHolding(ctx, 42))
	assert.NoError(t, l.CloseHolding(ctx, 42), "closing an already Sent row is a no-op")
}

func TestGormLedger_ListOpen(t *testing.T) {
	l, mock := newGormLedger(t)
	created := time.Date(2025, 9, 1, 9, 15, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "holdings" WHERE status = \$1 ORDER BY created_at DESC`).
		WithArgs("Holding").
		WillReturnRows(holdingRow(sqlmock.NewRows(holdingColumns), 3, "NIFTY250930C25200", ledger.StatusHolding, created))

	rows, err := l.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(3), rows[0].ID)
}

func TestGormLedger_ListHistory_NewestFirst(t *testing.T) {
	l, mock := newGormLedger(t)
	older := time.Date(2025, 9, 1, 9, 15, 0, 0, time.UTC)
	newer := older.Add(time.Minute)

	rows := sqlmock.NewRows(holdingColumns)
	holdingRow(rows, 2, "NIFTY250930P25200", ledger.StatusHolding, newer)
	holdingRow(rows, 1, "NIFTY250930C25200", ledger.StatusSent, older)
	mock.ExpectQuery(`SELECT \* FROM "holdings" ORDER BY created_at DESC, id DESC`).
		WillReturnRows(rows)

	got, err := l.ListHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint(2), got[0].ID)
	assert.Equal(t, ledger.StatusSent, got[1].Status)
}

func TestGormLedger_ErrorsWrapPersistence(t *testing.T) {
	l, mock := newGormLedger(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`SELECT \* FROM "holdings" WHERE`).WillReturnError(boom)
	mock.ExpectExec(`UPDATE "holdings"`).WillReturnError(boom)
	mock.ExpectQuery(`SELECT \* FROM "holdings" ORDER BY`).WillReturnError(boom)

	ctx := context.Background()
	_, err := l.FindOpenHolding(ctx, "NIFTY250930C25200")
	assert.ErrorIs(t, err, ledger.ErrPersistence)
	assert.ErrorIs(t, l.CloseHolding(ctx, 1), ledger.ErrPersistence)
	_, err = l.ListHistory(ctx)
	assert.ErrorIs(t, err, ledger.ErrPersistence)
}
