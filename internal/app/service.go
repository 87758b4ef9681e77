package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradegate/internal/domain"
	"tradegate/internal/ports"
)

// TradingService drives the gateway and records every broker attempt in the
// audit store. The broker outcome always reaches the caller: when an audit
// write fails after the broker answered, the result returns together with
// an error wrapping ports.ErrPersistenceFailure.
type TradingService struct {
	gateway  ports.Gateway
	recorder ports.TradeRecorder
	logger   ports.Logger
}

// Config holds the dependencies of the trading service.
type Config struct {
	Gateway  ports.Gateway
	Recorder ports.TradeRecorder
	Logger   ports.Logger
}

// NewTradingService creates a new application service instance.
func NewTradingService(cfg Config) (*TradingService, error) {
	if cfg.Gateway == nil || cfg.Recorder == nil || cfg.Logger == nil {
		return nil, fmt.Errorf("missing required dependencies for TradingService")
	}
	return &TradingService{
		gateway:  cfg.Gateway,
		recorder: cfg.Recorder,
		logger:   cfg.Logger,
	}, nil
}

// MarketOpts carries the optional parts of a market order. Stops may be
// absolute prices or distances from the execution price; a distance wins
// over its absolute counterpart.
type MarketOpts struct {
	SL         *float64
	TP         *float64
	SLDistance *float64
	TPDistance *float64
	Deviation  int // max slippage in points, 0 means the gateway default
	Comment    string
	Magic      int64
}

// PendingOpts carries the parts of a pending order beyond kind, symbol and
// volume.
type PendingOpts struct {
	Price      float64  // entry price, required
	StopLimit  *float64 // trigger price for *_STOP_LIMIT kinds
	SL         *float64
	TP         *float64
	SLDistance *float64
	TPDistance *float64
	Comment    string
	Magic      int64
}

// Buy executes a market buy and records the attempt.
func (s *TradingService) Buy(ctx context.Context, symbol string, volume float64, opts MarketOpts) (*domain.OrderResult, error) {
	return s.marketOrder(ctx, "Buy", symbol, domain.Buy, volume, opts)
}

// Sell executes a market sell and records the attempt.
func (s *TradingService) Sell(ctx context.Context, symbol string, volume float64, opts MarketOpts) (*domain.OrderResult, error) {
	return s.marketOrder(ctx, "Sell", symbol, domain.Sell, volume, opts)
}

func (s *TradingService) marketOrder(ctx context.Context, op, symbol string, side domain.OrderSide, volume float64, opts MarketOpts) (*domain.OrderResult, error) {
	comment := opts.Comment
	if comment == "" {
		comment = "gw-" + strings.ToLower(string(side))
	}
	req := &domain.OrderRequest{
		Symbol:     symbol,
		Side:       side,
		Kind:       domain.KindMarket,
		Volume:     volume,
		SL:         opts.SL,
		TP:         opts.TP,
		SLDistance: opts.SLDistance,
		TPDistance: opts.TPDistance,
		Deviation:  opts.Deviation,
		Comment:    comment,
		Magic:      opts.Magic,
	}

	res, err := s.gateway.MarketOrder(ctx, req)
	if err != nil {
		s.logger.Error(ctx, err, "Market order failed before reaching the broker", map[string]interface{}{
			"symbol": symbol, "side": side, "volume": volume,
		})
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return res, s.recordAttempt(ctx, req, res)
}

// PlacePending places a pending order of the given kind and records the
// attempt. The order's side follows from the kind.
func (s *TradingService) PlacePending(ctx context.Context, symbol string, kind domain.OrderKind, volume float64, opts PendingOpts) (*domain.OrderResult, error) {
	op := "PlacePending"

	comment := opts.Comment
	if comment == "" {
		comment = "gw-pending"
	}
	req := &domain.OrderRequest{
		Symbol:     symbol,
		Side:       kind.Direction(),
		Kind:       kind,
		Volume:     volume,
		StopLimit:  opts.StopLimit,
		SL:         opts.SL,
		TP:         opts.TP,
		SLDistance: opts.SLDistance,
		TPDistance: opts.TPDistance,
		Comment:    comment,
		Magic:      opts.Magic,
	}
	if opts.Price > 0 {
		p := opts.Price
		req.Price = &p
	}

	res, err := s.gateway.PendingOrder(ctx, req)
	if err != nil {
		s.logger.Error(ctx, err, "Pending order failed before reaching the broker", map[string]interface{}{
			"symbol": symbol, "kind": kind, "volume": volume,
		})
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	return res, s.recordAttempt(ctx, req, res)
}

// ModifySLTP replaces the stops on an open position and records the change.
// A nil price removes that stop.
func (s *TradingService) ModifySLTP(ctx context.Context, ticket int64, sl, tp *float64) (*domain.OrderResult, error) {
	op := "ModifySLTP"

	res, err := s.gateway.ModifyPositionSLTP(ctx, ticket, sl, tp)
	if err != nil {
		s.logger.Error(ctx, err, "Stop modification failed before reaching the broker", map[string]interface{}{"ticket": ticket})
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	rec := &domain.OrderRecord{RefTicket: ticket, Kind: domain.ChangeModify, SL: sl, TP: tp}
	return res, s.recordChange(ctx, rec, res)
}

// Close closes an open position at market and records the change. A nil
// volume closes the full position size.
func (s *TradingService) Close(ctx context.Context, ticket int64, volume *float64, deviation int) (*domain.OrderResult, error) {
	op := "Close"

	res, err := s.gateway.ClosePosition(ctx, ticket, volume, deviation)
	if err != nil {
		s.logger.Error(ctx, err, "Position close failed before reaching the broker", map[string]interface{}{"ticket": ticket})
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	rec := &domain.OrderRecord{RefTicket: ticket, Kind: domain.ChangeClose, Deviation: deviation}
	if volume != nil {
		rec.Volume = *volume
	}
	return res, s.recordChange(ctx, rec, res)
}

// Cancel removes a working pending order and records the change.
func (s *TradingService) Cancel(ctx context.Context, ticket int64) (*domain.OrderResult, error) {
	op := "Cancel"

	res, err := s.gateway.CancelOrder(ctx, ticket)
	if err != nil {
		s.logger.Error(ctx, err, "Order cancel failed before reaching the broker", map[string]interface{}{"ticket": ticket})
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}
	rec := &domain.OrderRecord{RefTicket: ticket, Kind: domain.ChangeCancel}
	return res, s.recordChange(ctx, rec, res)
}

// CloseOutcome reports the close attempt for one position.
type CloseOutcome struct {
	Ticket int64
	Result *domain.OrderResult
	Err    error
}

// CloseAll closes every open position, all symbols when symbol is empty.
// One failing position does not stop the sweep; each outcome carries its
// own result or error.
func (s *TradingService) CloseAll(ctx context.Context, symbol string) ([]CloseOutcome, error) {
	op := "CloseAll"

	positions, err := s.gateway.Positions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}

	outcomes := make([]CloseOutcome, 0, len(positions))
	for _, pos := range positions {
		res, err := s.Close(ctx, pos.Ticket, nil, 0)
		if err != nil {
			s.logger.Warn(ctx, "Close attempt failed during sweep", map[string]interface{}{
				"ticket": pos.Ticket, "symbol": pos.Symbol, "error": err.Error(),
			})
		}
		outcomes = append(outcomes, CloseOutcome{Ticket: pos.Ticket, Result: res, Err: err})
	}
	return outcomes, nil
}

// Status returns the current account state.
func (s *TradingService) Status(ctx context.Context) (*domain.Account, error) {
	acc, err := s.gateway.AccountInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("Status failed: %w", err)
	}
	return acc, nil
}

// Positions lists open positions, all of them when symbol is empty.
func (s *TradingService) Positions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	return s.gateway.Positions(ctx, symbol)
}

// PendingOrders lists working pending orders, all of them when symbol is
// empty.
func (s *TradingService) PendingOrders(ctx context.Context, symbol string) ([]*domain.PendingOrder, error) {
	return s.gateway.PendingOrders(ctx, symbol)
}

// SnapshotPositions captures the open positions into the audit store and
// returns them. On a failed write the positions still return, together
// with an error wrapping ports.ErrPersistenceFailure.
func (s *TradingService) SnapshotPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	op := "SnapshotPositions"

	positions, err := s.gateway.Positions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", op, err)
	}

	now := time.Now().UTC()
	snaps := make([]*domain.PositionSnapshot, 0, len(positions))
	for _, pos := range positions {
		snaps = append(snaps, &domain.PositionSnapshot{
			Symbol:    pos.Symbol,
			Ticket:    pos.Ticket,
			Side:      pos.Side,
			Volume:    pos.Volume,
			PriceOpen: pos.PriceOpen,
			SL:        pos.SL,
			TP:        pos.TP,
			Profit:    pos.Profit,
			SnappedAt: now,
		})
	}
	if err := s.recorder.RecordSnapshots(ctx, snaps); err != nil {
		s.logger.Error(ctx, err, "Snapshot write failed", map[string]interface{}{"count": len(snaps)})
		return positions, fmt.Errorf("%s: %w: %w", op, ports.ErrPersistenceFailure, err)
	}
	s.logger.Debug(ctx, "Open positions captured", map[string]interface{}{"count": len(snaps)})
	return positions, nil
}

// recordAttempt writes the audit rows for a placement: the order row and,
// when the broker reported a deal, its paired deal row.
func (s *TradingService) recordAttempt(ctx context.Context, req *domain.OrderRequest, res *domain.OrderResult) error {
	attemptID := uuid.NewString()

	rec := &domain.OrderRecord{
		AttemptID:      attemptID,
		BrokerOrder:    res.Order,
		BrokerDeal:     res.Deal,
		Symbol:         req.Symbol,
		Side:           req.Side,
		Kind:           string(req.Kind),
		Volume:         req.Volume,
		RequestedPrice: req.Price,
		SL:             req.SL,
		TP:             req.TP,
		SLDistance:     req.SLDistance,
		TPDistance:     req.TPDistance,
		Deviation:      req.Deviation,
		Retcode:        res.Retcode,
		RetcodeLabel:   res.Label,
		RetComment:     res.Comment,
		RequestID:      res.RequestID,
	}
	if res.Price != 0 {
		p := res.Price
		rec.FilledPrice = &p
	}

	var deal *domain.DealRecord
	if res.Deal != 0 {
		vol := req.Volume
		if v, ok := res.Raw["volume"].(float64); ok && v > 0 {
			// Partial fills report the executed volume, not the requested one.
			vol = v
		}
		deal = &domain.DealRecord{
			AttemptID:   attemptID,
			DealTicket:  res.Deal,
			OrderTicket: res.Order,
			Symbol:      req.Symbol,
			Side:        req.Side,
			Volume:      vol,
			Price:       res.Price,
			Time:        time.Now().UTC(),
		}
	}

	return s.persistAttempt(ctx, rec, deal, res)
}

// recordChange writes the audit row for a change against an existing
// ticket. Change rows carry no paired deal row; a closing deal's ticket
// lands on the order row itself.
func (s *TradingService) recordChange(ctx context.Context, rec *domain.OrderRecord, res *domain.OrderResult) error {
	rec.AttemptID = uuid.NewString()
	rec.BrokerOrder = res.Order
	rec.BrokerDeal = res.Deal
	rec.Retcode = res.Retcode
	rec.RetcodeLabel = res.Label
	rec.RetComment = res.Comment
	rec.RequestID = res.RequestID
	if res.Price != 0 {
		p := res.Price
		rec.FilledPrice = &p
	}
	return s.persistAttempt(ctx, rec, nil, res)
}

func (s *TradingService) persistAttempt(ctx context.Context, rec *domain.OrderRecord, deal *domain.DealRecord, res *domain.OrderResult) error {
	if err := s.recorder.RecordOrder(ctx, rec, deal); err != nil {
		s.logger.Error(ctx, err, "Audit write failed after broker response", map[string]interface{}{
			"attemptID": rec.AttemptID, "kind": rec.Kind, "retcode": res.Retcode, "label": res.Label,
		})
		return fmt.Errorf("broker outcome received but audit write failed: %w: %w", ports.ErrPersistenceFailure, err)
	}
	return nil
}

// ResultError converts a rejected result into an error view for callers
// that treat anything but success as failure. A successful result maps to
// nil.
func ResultError(res *domain.OrderResult) error {
	if res == nil {
		return fmt.Errorf("no broker result: %w", ports.ErrBrokerRejected)
	}
	if res.Succeeded() {
		return nil
	}
	return fmt.Errorf("broker returned %s (retcode %d): %w", res.Label, res.Retcode, ports.ErrBrokerRejected)
}
