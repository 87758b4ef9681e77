package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/domain"
	"tradegate/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestRecorder creates a temporary database for testing
func setupTestRecorder(t *testing.T) (*Recorder, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "tradegate-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	rec, err := NewRecorder(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		rec.Close()
		os.RemoveAll(tmpDir)
	}

	return rec, cleanup
}

func fp(v float64) *float64 { return &v }

func sampleOrderRecord(attemptID string, brokerOrder int64) *domain.OrderRecord {
	return &domain.OrderRecord{
		AttemptID:    attemptID,
		BrokerOrder:  brokerOrder,
		BrokerDeal:   brokerOrder + 1,
		Symbol:       "XAUUSD",
		Side:         domain.Buy,
		Kind:         string(domain.KindMarket),
		Volume:       0.01,
		FilledPrice:  fp(2400.00),
		SL:           fp(2398.00),
		TP:           fp(2402.00),
		SLDistance:   fp(2.0),
		TPDistance:   fp(2.0),
		Deviation:    120,
		Retcode:      10009,
		RetcodeLabel: "DONE",
		RetComment:   "done",
		RequestID:    1,
	}
}

func sampleDealRecord(attemptID string, dealTicket int64) *domain.DealRecord {
	return &domain.DealRecord{
		AttemptID:   attemptID,
		DealTicket:  dealTicket,
		OrderTicket: dealTicket + 1000,
		Symbol:      "XAUUSD",
		Side:        domain.Buy,
		Volume:      0.01,
		Price:       2400.00,
		Time:        time.Now().UTC().Truncate(time.Second),
	}
}

func TestRecordOrder_PairedRows(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()

	order := sampleOrderRecord("attempt-1", 800001)
	deal := sampleDealRecord("attempt-1", 700001)
	require.NoError(t, rec.RecordOrder(ctx, order, deal))
	require.NotZero(t, order.ID)
	require.NotZero(t, deal.ID)

	gotOrder, err := rec.OrderRecords().Get(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, gotOrder)
	assert.Equal(t, "attempt-1", gotOrder.AttemptID)
	assert.Equal(t, int64(800001), gotOrder.BrokerOrder)
	assert.Equal(t, domain.Buy, gotOrder.Side)
	assert.Equal(t, "DONE", gotOrder.RetcodeLabel)
	require.NotNil(t, gotOrder.FilledPrice)
	assert.Equal(t, 2400.00, *gotOrder.FilledPrice)
	require.NotNil(t, gotOrder.SLDistance)
	assert.Equal(t, 2.0, *gotOrder.SLDistance)
	assert.Nil(t, gotOrder.RequestedPrice, "market orders carry no requested price")
	assert.False(t, gotOrder.CreatedAt.IsZero(), "the store assigns creation time")

	gotDeal, err := rec.DealRecords().Get(ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, gotDeal)
	assert.Equal(t, gotOrder.AttemptID, gotDeal.AttemptID, "paired rows share the attempt ID")
	assert.Equal(t, int64(700001), gotDeal.DealTicket)
	assert.Nil(t, gotDeal.Profit, "profit is unknown at fill time")
	assert.WithinDuration(t, deal.Time, gotDeal.Time, time.Second)
}

func TestRecordOrder_OrderOnly(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()

	order := sampleOrderRecord("attempt-1", 0)
	order.BrokerDeal = 0
	order.Retcode = 10013
	order.RetcodeLabel = "INVALID"
	require.NoError(t, rec.RecordOrder(ctx, order, nil))

	orders, err := rec.OrderRecords().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Zero(t, orders[0].BrokerOrder, "a rejected attempt has no broker ticket")

	deals, err := rec.DealRecords().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestRecordOrder_DuplicateBrokerTicket(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, rec.RecordOrder(ctx, sampleOrderRecord("attempt-1", 800001), sampleDealRecord("attempt-1", 700001)))

	err := rec.RecordOrder(ctx, sampleOrderRecord("attempt-2", 800001), sampleDealRecord("attempt-2", 700002))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDuplicateRecord)

	orders, err := rec.OrderRecords().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestRecordOrder_DealConflictRollsBackOrderRow(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, rec.RecordOrder(ctx, sampleOrderRecord("attempt-1", 800001), sampleDealRecord("attempt-1", 700001)))

	// The order row is fine but its deal replays an existing ticket. The
	// whole transaction must come back out.
	err := rec.RecordOrder(ctx, sampleOrderRecord("attempt-2", 800002), sampleDealRecord("attempt-2", 700001))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrDuplicateRecord)

	orders, err := rec.OrderRecords().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, orders, 1, "the conflicting attempt's order row must not survive")

	deals, err := rec.DealRecords().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, deals, 1)
}

func TestRecordOrder_ChangeRowsRepeatTicket(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()

	change := func(attemptID string) *domain.OrderRecord {
		return &domain.OrderRecord{
			AttemptID:    attemptID,
			BrokerOrder:  100001,
			RefTicket:    100001,
			Kind:         domain.ChangeModify,
			Retcode:      10009,
			RetcodeLabel: "DONE",
			RequestID:    1,
		}
	}

	// Two modifications of the same position repeat its ticket.
	require.NoError(t, rec.RecordOrder(ctx, change("attempt-1"), nil))
	require.NoError(t, rec.RecordOrder(ctx, change("attempt-2"), nil))

	orders, err := rec.OrderRecords().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestRecordSnapshots(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, rec.RecordSnapshots(ctx, nil), "an empty batch writes nothing")

	snaps, err := rec.Snapshots().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, snaps)

	now := time.Now().UTC().Truncate(time.Second)
	batch := []*domain.PositionSnapshot{
		{Symbol: "XAUUSD", Ticket: 100001, Side: domain.Buy, Volume: 0.01, PriceOpen: 2400.00, SL: 2398.00, TP: 2402.00, Profit: -0.20, SnappedAt: now},
		{Symbol: "EURUSD", Ticket: 100002, Side: domain.Sell, Volume: 0.10, PriceOpen: 1.08550, Profit: 1.50, SnappedAt: now},
	}
	require.NoError(t, rec.RecordSnapshots(ctx, batch))

	snaps, err = rec.Snapshots().List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	// Newest first.
	assert.Equal(t, int64(100002), snaps[0].Ticket)
	assert.Equal(t, domain.Sell, snaps[0].Side)
	assert.Equal(t, int64(100001), snaps[1].Ticket)
	assert.Equal(t, 2398.00, snaps[1].SL)
	assert.WithinDuration(t, now, snaps[1].SnappedAt, time.Second)
}

func TestStore_CRUD(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()
	orders := rec.OrderRecords()

	order := sampleOrderRecord("attempt-1", 800001)
	id, err := orders.Create(ctx, order)
	require.NoError(t, err)
	require.NotZero(t, id)
	assert.Equal(t, id, order.ID)

	order.RetComment = "enriched"
	require.NoError(t, orders.Update(ctx, order))

	got, err := orders.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "enriched", got.RetComment)

	require.NoError(t, orders.Delete(ctx, id))

	got, err = orders.Get(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, got, "a deleted record reads back as absent")

	assert.ErrorIs(t, orders.Update(ctx, order), ports.ErrRecordNotFound)
	assert.ErrorIs(t, orders.Delete(ctx, id), ports.ErrRecordNotFound)
}

func TestStore_ListFilters(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()
	ctx := context.Background()
	orders := rec.OrderRecords()

	for i, symbol := range []string{"XAUUSD", "XAUUSD", "EURUSD", "XAUUSD"} {
		o := sampleOrderRecord("attempt", int64(800001+i))
		o.AttemptID = o.AttemptID + "-" + symbol
		o.Symbol = symbol
		_, err := orders.Create(ctx, o)
		require.NoError(t, err)
	}

	all, err := orders.List(ctx, ports.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	gold, err := orders.List(ctx, ports.ListQuery{Symbol: "XAUUSD"})
	require.NoError(t, err)
	assert.Len(t, gold, 3)

	capped, err := orders.List(ctx, ports.ListQuery{Symbol: "XAUUSD", Limit: 2})
	require.NoError(t, err)
	require.Len(t, capped, 2)
	assert.Greater(t, capped[0].ID, capped[1].ID, "listings come back newest first")
}

func TestStore_GetMissing(t *testing.T) {
	rec, cleanup := setupTestRecorder(t)
	defer cleanup()

	got, err := rec.OrderRecords().Get(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, got)
}
