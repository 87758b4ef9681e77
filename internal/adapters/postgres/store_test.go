package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/domain"
	"tradegate/internal/ports"
)

func fp(v float64) *float64 { return &v }

func TestTableSpecs_Alignment(t *testing.T) {
	t.Run("orders", func(t *testing.T) {
		spec := orderRecordSpec()
		rec := &domain.OrderRecord{AttemptID: "attempt-1", Symbol: "XAUUSD", Side: domain.Buy, SL: fp(2398)}
		require.Len(t, spec.values(rec), len(spec.columns), "insert values must line up with the column list")

		spec.setID(rec, 7)
		assert.Equal(t, int64(7), spec.id(rec))
	})

	t.Run("deals", func(t *testing.T) {
		spec := dealRecordSpec()
		rec := &domain.DealRecord{AttemptID: "attempt-1", DealTicket: 700001, Symbol: "XAUUSD", Side: domain.Buy}
		require.Len(t, spec.values(rec), len(spec.columns), "insert values must line up with the column list")

		spec.setID(rec, 9)
		assert.Equal(t, int64(9), spec.id(rec))
	})

	t.Run("snapshots", func(t *testing.T) {
		spec := snapshotSpec()
		rec := &domain.PositionSnapshot{Symbol: "XAUUSD", Ticket: 100001, Side: domain.Sell}
		require.Len(t, spec.values(rec), len(spec.columns), "insert values must line up with the column list")

		spec.setID(rec, 3)
		assert.Equal(t, int64(3), spec.id(rec))
	})
}

func TestTableSpec_InsertSQL(t *testing.T) {
	spec := snapshotSpec()
	want := "INSERT INTO position_snapshots (symbol, ticket, side, volume, price_open, sl, tp, profit, snapped_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id"
	assert.Equal(t, want, spec.insertSQL())
}

func TestTableSpec_SelectColumns(t *testing.T) {
	orders := orderRecordSpec()
	assert.Equal(t, "id", orders.selectColumns()[:2], "id always leads the select list")
	assert.Contains(t, orders.selectColumns(), "created_at", "server-assigned timestamps read back")

	snaps := snapshotSpec()
	assert.NotContains(t, snaps.selectColumns(), "created_at", "snapshots carry their own timestamp")
}

func TestMapPostgresError(t *testing.T) {
	unique := &pgconn.PgError{Code: uniqueViolationCode, Message: "duplicate key value violates unique constraint"}
	err := mapPostgresError(fmt.Errorf("insert: %w", unique))
	assert.ErrorIs(t, err, ports.ErrDuplicateRecord)

	foreignKey := &pgconn.PgError{Code: "23503", Message: "foreign key violation"}
	err = mapPostgresError(foreignKey)
	assert.NotErrorIs(t, err, ports.ErrDuplicateRecord)

	plain := fmt.Errorf("connection refused")
	assert.Equal(t, plain, mapPostgresError(plain))
}

func TestNullHelpers(t *testing.T) {
	assert.False(t, nullInt(0).Valid, "zero tickets store as NULL")
	assert.True(t, nullInt(800001).Valid)
	assert.Equal(t, int64(800001), nullInt(800001).Int64)

	assert.False(t, nullFloat(nil).Valid)
	require.True(t, nullFloat(fp(2400)).Valid)
	assert.Equal(t, 2400.0, nullFloat(fp(2400)).Float64)

	assert.Nil(t, floatPtr(nullFloat(nil)))
	got := floatPtr(nullFloat(fp(2.5)))
	require.NotNil(t, got)
	assert.Equal(t, 2.5, *got)
}
