package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/internal/domain"
	"tradegate/internal/ports"
)

// Mock implementations
type mockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}

func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.infoMsgs = append(m.infoMsgs, msg)
}

func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}

func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockGateway struct {
	account      *domain.Account
	accountErr   error
	marketRes    *domain.OrderResult
	marketErr    error
	lastMarket   *domain.OrderRequest
	pendingRes   *domain.OrderResult
	pendingErr   error
	lastPending  *domain.OrderRequest
	modifyRes    *domain.OrderResult
	modifyErr    error
	closeResults map[int64]*domain.OrderResult
	closeErrors  map[int64]error
	cancelRes    *domain.OrderResult
	cancelErr    error
	positions    []*domain.Position
	positionsErr error
	orders       []*domain.PendingOrder
}

func (m *mockGateway) Connect(ctx context.Context) error { return nil }
func (m *mockGateway) Close(ctx context.Context) error   { return nil }

func (m *mockGateway) AccountInfo(ctx context.Context) (*domain.Account, error) {
	return m.account, m.accountErr
}

func (m *mockGateway) EnsureSymbol(ctx context.Context, symbol string) (*domain.SymbolDetails, error) {
	return &domain.SymbolDetails{Name: symbol}, nil
}

func (m *mockGateway) Quote(ctx context.Context, symbol string) (*domain.Tick, error) {
	return &domain.Tick{Bid: 2399.80, Ask: 2400.00}, nil
}

func (m *mockGateway) MarketOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	m.lastMarket = req
	return m.marketRes, m.marketErr
}

func (m *mockGateway) PendingOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	m.lastPending = req
	return m.pendingRes, m.pendingErr
}

func (m *mockGateway) ModifyPositionSLTP(ctx context.Context, ticket int64, sl, tp *float64) (*domain.OrderResult, error) {
	return m.modifyRes, m.modifyErr
}

func (m *mockGateway) ClosePosition(ctx context.Context, ticket int64, volume *float64, deviation int) (*domain.OrderResult, error) {
	if err := m.closeErrors[ticket]; err != nil {
		return nil, err
	}
	return m.closeResults[ticket], nil
}

func (m *mockGateway) CancelOrder(ctx context.Context, ticket int64) (*domain.OrderResult, error) {
	return m.cancelRes, m.cancelErr
}

func (m *mockGateway) Positions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	return m.positions, m.positionsErr
}

func (m *mockGateway) PendingOrders(ctx context.Context, symbol string) ([]*domain.PendingOrder, error) {
	return m.orders, nil
}

type mockRecorder struct {
	orders    []*domain.OrderRecord
	deals     []*domain.DealRecord
	snaps     []*domain.PositionSnapshot
	snapCalls int
	recordErr error
	snapErr   error
}

func (m *mockRecorder) RecordOrder(ctx context.Context, rec *domain.OrderRecord, deal *domain.DealRecord) error {
	if m.recordErr != nil {
		return m.recordErr
	}
	m.orders = append(m.orders, rec)
	if deal != nil {
		m.deals = append(m.deals, deal)
	}
	return nil
}

func (m *mockRecorder) RecordSnapshots(ctx context.Context, snaps []*domain.PositionSnapshot) error {
	m.snapCalls++
	if m.snapErr != nil {
		return m.snapErr
	}
	m.snaps = append(m.snaps, snaps...)
	return nil
}

func (m *mockRecorder) Close() error { return nil }

// --- Helpers ---

func newTestService(t *testing.T, gw *mockGateway, rec *mockRecorder) (*TradingService, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	svc, err := NewTradingService(Config{Gateway: gw, Recorder: rec, Logger: logger})
	require.NoError(t, err)
	return svc, logger
}

func fp(v float64) *float64 { return &v }

func doneResult(order, deal int64) *domain.OrderResult {
	return &domain.OrderResult{
		Retcode: 10009, Label: domain.LabelDone, Comment: "done",
		Order: order, Deal: deal, Price: 2400.00, RequestID: 1,
		Raw: map[string]interface{}{"volume": 0.01},
	}
}

func placedResult(order int64) *domain.OrderResult {
	return &domain.OrderResult{
		Retcode: 10008, Label: domain.LabelPlaced, Comment: "placed",
		Order: order, Price: 2390.00, RequestID: 2,
		Raw: map[string]interface{}{"volume": 0.01},
	}
}

func rejectedResult(retcode int, label string) *domain.OrderResult {
	return &domain.OrderResult{
		Retcode: retcode, Label: label, Comment: "rejected",
		RequestID: 3, Raw: map[string]interface{}{},
	}
}

// --- Tests ---

func TestNewTradingService_Validation(t *testing.T) {
	gw := &mockGateway{}
	rec := &mockRecorder{}
	logger := &mockLogger{}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "all dependencies", cfg: Config{Gateway: gw, Recorder: rec, Logger: logger}},
		{name: "missing gateway", cfg: Config{Recorder: rec, Logger: logger}, wantErr: true},
		{name: "missing recorder", cfg: Config{Gateway: gw, Logger: logger}, wantErr: true},
		{name: "missing logger", cfg: Config{Gateway: gw, Recorder: rec}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTradingService(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestBuy_RecordsOrderAndDeal(t *testing.T) {
	gw := &mockGateway{marketRes: doneResult(800001, 700001)}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.Buy(context.Background(), "XAUUSD", 0.01, MarketOpts{SLDistance: fp(2.0), TPDistance: fp(2.0)})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, domain.LabelDone, res.Label)

	require.NotNil(t, gw.lastMarket)
	assert.Equal(t, domain.KindMarket, gw.lastMarket.Kind)
	assert.Equal(t, "gw-buy", gw.lastMarket.Comment)

	require.Len(t, rec.orders, 1)
	order := rec.orders[0]
	assert.NotEmpty(t, order.AttemptID)
	assert.Equal(t, int64(800001), order.BrokerOrder)
	assert.Equal(t, domain.Buy, order.Side)
	assert.Equal(t, string(domain.KindMarket), order.Kind)
	require.NotNil(t, order.FilledPrice)
	assert.Equal(t, 2400.00, *order.FilledPrice)
	require.NotNil(t, order.SLDistance)
	assert.Equal(t, 2.0, *order.SLDistance)
	assert.Nil(t, order.RequestedPrice)

	require.Len(t, rec.deals, 1)
	deal := rec.deals[0]
	assert.Equal(t, order.AttemptID, deal.AttemptID, "paired rows share the attempt ID")
	assert.Equal(t, int64(700001), deal.DealTicket)
	assert.Equal(t, 0.01, deal.Volume)
	assert.Equal(t, 2400.00, deal.Price)
}

func TestSell_CommentHandling(t *testing.T) {
	gw := &mockGateway{marketRes: doneResult(800002, 700002)}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)
	ctx := context.Background()

	_, err := svc.Sell(ctx, "XAUUSD", 0.01, MarketOpts{})
	require.NoError(t, err)
	assert.Equal(t, "gw-sell", gw.lastMarket.Comment)
	assert.Equal(t, domain.Sell, gw.lastMarket.Side)

	_, err = svc.Sell(ctx, "XAUUSD", 0.01, MarketOpts{Comment: "scalp-7"})
	require.NoError(t, err)
	assert.Equal(t, "scalp-7", gw.lastMarket.Comment, "an explicit comment wins over the default")
}

func TestBuy_GatewayError(t *testing.T) {
	gw := &mockGateway{marketErr: ports.ErrNoQuote}
	rec := &mockRecorder{}
	svc, logger := newTestService(t, gw, rec)

	res, err := svc.Buy(context.Background(), "XAUUSD", 0.01, MarketOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNoQuote)
	assert.Nil(t, res)
	assert.Empty(t, rec.orders, "nothing reached the broker, nothing to audit")
	assert.Empty(t, rec.deals)
	assert.NotEmpty(t, logger.errorMsgs)
}

func TestBuy_PersistenceFailureKeepsBrokerOutcome(t *testing.T) {
	gw := &mockGateway{marketRes: doneResult(800001, 700001)}
	rec := &mockRecorder{recordErr: errors.New("disk full")}
	svc, logger := newTestService(t, gw, rec)

	res, err := svc.Buy(context.Background(), "XAUUSD", 0.01, MarketOpts{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrPersistenceFailure)
	require.NotNil(t, res, "the broker outcome must survive a failed audit write")
	assert.Equal(t, domain.LabelDone, res.Label)
	assert.NotEmpty(t, logger.errorMsgs)
}

func TestBuy_RejectionIsRecordedNotAnError(t *testing.T) {
	gw := &mockGateway{marketRes: rejectedResult(10019, "NO_MONEY")}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.Buy(context.Background(), "XAUUSD", 5.0, MarketOpts{})
	require.NoError(t, err, "a broker rejection is a result, not an error")
	require.NotNil(t, res)
	assert.False(t, res.Succeeded())

	require.Len(t, rec.orders, 1)
	assert.Equal(t, "NO_MONEY", rec.orders[0].RetcodeLabel)
	assert.Zero(t, rec.orders[0].BrokerOrder)
	assert.Empty(t, rec.deals, "a rejection fills nothing")

	err = ResultError(res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrBrokerRejected)
}

func TestPlacePending_RecordsOrder(t *testing.T) {
	gw := &mockGateway{pendingRes: placedResult(800003)}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.PlacePending(context.Background(), "XAUUSD", domain.KindBuyLimit, 0.01, PendingOpts{
		Price: 2390.00, TPDistance: fp(2.0),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LabelPlaced, res.Label)

	require.NotNil(t, gw.lastPending)
	assert.Equal(t, domain.Buy, gw.lastPending.Side, "the side follows from the kind")
	require.NotNil(t, gw.lastPending.Price)
	assert.Equal(t, 2390.00, *gw.lastPending.Price)
	assert.Equal(t, "gw-pending", gw.lastPending.Comment)

	require.Len(t, rec.orders, 1)
	order := rec.orders[0]
	assert.Equal(t, string(domain.KindBuyLimit), order.Kind)
	require.NotNil(t, order.RequestedPrice)
	assert.Equal(t, 2390.00, *order.RequestedPrice)
	assert.Empty(t, rec.deals, "a placement fills nothing yet")
}

func TestModifySLTP_RecordsChange(t *testing.T) {
	gw := &mockGateway{modifyRes: doneResult(100001, 0)}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.ModifySLTP(context.Background(), 100001, fp(2395.00), fp(2405.00))
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	require.Len(t, rec.orders, 1)
	change := rec.orders[0]
	assert.Equal(t, domain.ChangeModify, change.Kind)
	assert.Equal(t, int64(100001), change.RefTicket)
	assert.Empty(t, change.Symbol, "change rows carry the ticket, not the symbol")
	require.NotNil(t, change.SL)
	assert.Equal(t, 2395.00, *change.SL)
	assert.Empty(t, rec.deals)
}

func TestClose_RecordsChange(t *testing.T) {
	closeRes := doneResult(900001, 700010)
	gw := &mockGateway{closeResults: map[int64]*domain.OrderResult{100001: closeRes}}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.Close(context.Background(), 100001, fp(0.04), 0)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	require.Len(t, rec.orders, 1)
	change := rec.orders[0]
	assert.Equal(t, domain.ChangeClose, change.Kind)
	assert.Equal(t, int64(100001), change.RefTicket)
	assert.Equal(t, 0.04, change.Volume)
	assert.Equal(t, int64(700010), change.BrokerDeal, "the closing deal ticket lands on the change row")
	assert.Empty(t, rec.deals, "change rows carry no paired deal row")
}

func TestClose_GatewayError(t *testing.T) {
	gw := &mockGateway{closeErrors: map[int64]error{999: ports.ErrPositionNotFound}}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.Close(context.Background(), 999, nil, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrPositionNotFound)
	assert.Nil(t, res)
	assert.Empty(t, rec.orders)
}

func TestCancel_RecordsChange(t *testing.T) {
	gw := &mockGateway{cancelRes: doneResult(800004, 0)}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.Cancel(context.Background(), 800004)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())

	require.Len(t, rec.orders, 1)
	assert.Equal(t, domain.ChangeCancel, rec.orders[0].Kind)
	assert.Equal(t, int64(800004), rec.orders[0].RefTicket)
}

func TestCancel_StaleTicket(t *testing.T) {
	gw := &mockGateway{cancelErr: ports.ErrOrderNotFound}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	res, err := svc.Cancel(context.Background(), 999)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrOrderNotFound)
	assert.Nil(t, res)
	assert.Empty(t, rec.orders, "a stale ticket never reaches the broker, nothing to audit")
}

func TestCloseAll_SweepContinuesPastFailures(t *testing.T) {
	gw := &mockGateway{
		positions: []*domain.Position{
			{Ticket: 1, Symbol: "XAUUSD", Side: domain.Buy, Volume: 0.01},
			{Ticket: 2, Symbol: "XAUUSD", Side: domain.Buy, Volume: 0.01},
			{Ticket: 3, Symbol: "XAUUSD", Side: domain.Sell, Volume: 0.02},
		},
		closeResults: map[int64]*domain.OrderResult{
			1: doneResult(900001, 700011),
			3: doneResult(900003, 700013),
		},
		closeErrors: map[int64]error{2: ports.ErrPositionNotFound},
	}
	rec := &mockRecorder{}
	svc, logger := newTestService(t, gw, rec)

	outcomes, err := svc.CloseAll(context.Background(), "XAUUSD")
	require.NoError(t, err)
	require.Len(t, outcomes, 3, "every position gets an outcome")

	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.NoError(t, outcomes[2].Err)
	assert.Equal(t, int64(2), outcomes[1].Ticket)
	assert.Nil(t, outcomes[1].Result)

	assert.Len(t, rec.orders, 2, "only attempts that reached the broker are audited")
	assert.Len(t, logger.warnMsgs, 1)
}

func TestCloseAll_NoPositions(t *testing.T) {
	gw := &mockGateway{}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	outcomes, err := svc.CloseAll(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Empty(t, rec.orders)
}

func TestSnapshotPositions(t *testing.T) {
	gw := &mockGateway{
		positions: []*domain.Position{
			{Ticket: 100001, Symbol: "XAUUSD", Side: domain.Buy, Volume: 0.01, PriceOpen: 2400.00, SL: 2398.00, TP: 2402.00, Profit: -0.20},
			{Ticket: 100002, Symbol: "EURUSD", Side: domain.Sell, Volume: 0.10, PriceOpen: 1.08550, Profit: 1.50},
		},
	}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	positions, err := svc.SnapshotPositions(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, positions, 2)

	require.Len(t, rec.snaps, 2)
	assert.Equal(t, rec.snaps[0].SnappedAt, rec.snaps[1].SnappedAt, "one capture, one timestamp")
	assert.Equal(t, int64(100001), rec.snaps[0].Ticket)
	assert.Equal(t, 2398.00, rec.snaps[0].SL)
	assert.Equal(t, domain.Sell, rec.snaps[1].Side)
}

func TestSnapshotPositions_Empty(t *testing.T) {
	gw := &mockGateway{}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	positions, err := svc.SnapshotPositions(context.Background(), "XAUUSD")
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.Empty(t, rec.snaps)
}

func TestSnapshotPositions_PersistenceFailure(t *testing.T) {
	gw := &mockGateway{positions: []*domain.Position{{Ticket: 100001, Symbol: "XAUUSD", Side: domain.Buy, Volume: 0.01}}}
	rec := &mockRecorder{snapErr: errors.New("disk full")}
	svc, _ := newTestService(t, gw, rec)

	positions, err := svc.SnapshotPositions(context.Background(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrPersistenceFailure)
	assert.Len(t, positions, 1, "the read outcome must survive a failed audit write")
}

func TestStatus(t *testing.T) {
	gw := &mockGateway{account: &domain.Account{Login: 5500123, Balance: 10000, Currency: "USD"}}
	rec := &mockRecorder{}
	svc, _ := newTestService(t, gw, rec)

	acc, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, int64(5500123), acc.Login)

	gw.account = nil
	gw.accountErr = ports.ErrNotConnected
	_, err = svc.Status(context.Background())
	assert.ErrorIs(t, err, ports.ErrNotConnected)
}

func TestResultError(t *testing.T) {
	assert.ErrorIs(t, ResultError(nil), ports.ErrBrokerRejected)
	assert.NoError(t, ResultError(doneResult(1, 2)))
	assert.NoError(t, ResultError(placedResult(1)))

	err := ResultError(rejectedResult(10016, "INVALID_STOPS"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrBrokerRejected)
	assert.Contains(t, err.Error(), "INVALID_STOPS")
	assert.Contains(t, err.Error(), "10016")
}
