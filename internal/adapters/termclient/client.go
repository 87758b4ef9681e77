// Package termclient implements the ports.Gateway interface on top of a
// termapi.Terminal session.
package termclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tradegate/internal/domain"
	"tradegate/internal/ports"
	"tradegate/internal/termapi"
)

// DefaultDeviation is the slippage cap applied to market executions when
// neither the request nor the adapter configuration sets one, in points.
const DefaultDeviation = 120

const defaultComment = "gw-trade"

// kindToOrderType maps pending order kinds onto the terminal enumeration.
var kindToOrderType = map[domain.OrderKind]termapi.OrderType{
	domain.KindBuyLimit:      termapi.OrderTypeBuyLimit,
	domain.KindSellLimit:     termapi.OrderTypeSellLimit,
	domain.KindBuyStop:       termapi.OrderTypeBuyStop,
	domain.KindSellStop:      termapi.OrderTypeSellStop,
	domain.KindBuyStopLimit:  termapi.OrderTypeBuyStopLimit,
	domain.KindSellStopLimit: termapi.OrderTypeSellStopLimit,
}

// orderTypeToKind is the reverse mapping for listings.
var orderTypeToKind = map[termapi.OrderType]domain.OrderKind{
	termapi.OrderTypeBuyLimit:      domain.KindBuyLimit,
	termapi.OrderTypeSellLimit:     domain.KindSellLimit,
	termapi.OrderTypeBuyStop:       domain.KindBuyStop,
	termapi.OrderTypeSellStop:      domain.KindSellStop,
	termapi.OrderTypeBuyStopLimit:  domain.KindBuyStopLimit,
	termapi.OrderTypeSellStopLimit: domain.KindSellStopLimit,
}

// Client implements the ports.Gateway interface using a terminal session.
type Client struct {
	term      termapi.Terminal
	logger    ports.Logger
	creds     termapi.Credentials
	deviation int
	magic     int64
}

// Config holds configuration specific to the terminal gateway client.
type Config struct {
	Terminal    termapi.Terminal
	Logger      ports.Logger
	Credentials termapi.Credentials
	Deviation   int   // default slippage cap in points, 0 means DefaultDeviation
	Magic       int64 // magic number stamped on requests without one
}

// New creates a new terminal gateway client.
func New(cfg Config) (*Client, error) {
	if cfg.Terminal == nil {
		return nil, fmt.Errorf("terminal is required for gateway client")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for gateway client")
	}
	deviation := cfg.Deviation
	if deviation <= 0 {
		deviation = DefaultDeviation
	}
	return &Client{
		term:      cfg.Terminal,
		logger:    cfg.Logger,
		creds:     cfg.Credentials,
		deviation: deviation,
		magic:     cfg.Magic,
	}, nil
}

// handleError wraps a failure with the operation name and logs it together
// with the session diagnostic. Sentinel classification happens at the call
// site; the chain stays visible to errors.Is.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}
	if code, desc := c.term.LastError(ctx); code != termapi.DiagOK {
		fields["diagCode"] = code
		fields["diagDescription"] = desc
	}

	var finalErr error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		finalErr = fmt.Errorf("%s canceled: %w", operation, err)
	default:
		finalErr = fmt.Errorf("%s failed: %w", operation, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Connect opens the terminal session and verifies an account is attached.
func (c *Client) Connect(ctx context.Context) error {
	op := "Connect"
	if err := c.term.Initialize(ctx, c.creds); err != nil {
		return c.handleError(ctx, fmt.Errorf("initialize: %w: %w", ports.ErrNotConnected, err), op)
	}
	acc, err := c.term.AccountSnapshot(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	if acc == nil {
		return c.handleError(ctx, fmt.Errorf("no account attached to session: %w", ports.ErrNotConnected), op)
	}
	c.logger.Info(ctx, "Terminal session connected", map[string]interface{}{
		"login":    acc.Login,
		"server":   acc.Server,
		"currency": acc.Currency,
		"balance":  acc.Balance,
	})
	return nil
}

// Close shuts the terminal session down.
func (c *Client) Close(ctx context.Context) error {
	op := "Close"
	if err := c.term.Shutdown(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Debug(ctx, "Terminal session closed")
	return nil
}

// AccountInfo returns the current account state.
func (c *Client) AccountInfo(ctx context.Context) (*domain.Account, error) {
	op := "AccountInfo"
	acc, err := c.term.AccountSnapshot(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if acc == nil {
		return nil, c.handleError(ctx, fmt.Errorf("no account attached to session: %w", ports.ErrNotConnected), op)
	}
	return translateAccount(acc), nil
}

// EnsureSymbol makes the symbol tradable in this session and returns its
// details.
func (c *Client) EnsureSymbol(ctx context.Context, symbol string) (*domain.SymbolDetails, error) {
	op := "EnsureSymbol"
	spec, err := c.ensureSymbol(ctx, op, symbol)
	if err != nil {
		return nil, err
	}
	return translateSymbol(spec), nil
}

// Quote returns the current top-of-book quote for the symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*domain.Tick, error) {
	op := "Quote"
	if _, err := c.ensureSymbol(ctx, op, symbol); err != nil {
		return nil, err
	}
	tick, err := c.quote(ctx, op, symbol)
	if err != nil {
		return nil, err
	}
	return translateTick(tick), nil
}

// MarketOrder executes an immediate buy or sell at the current price.
// The broker's answer, rejections included, comes back as an OrderResult;
// an error means the order never reached the trade server.
func (c *Client) MarketOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	op := "MarketOrder"
	if err := validateBase(req); err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if req.Kind != "" && req.Kind != domain.KindMarket {
		return nil, c.handleError(ctx, fmt.Errorf("kind %q is not a market order: %w", req.Kind, ports.ErrInvalidRequest), op)
	}

	spec, err := c.ensureSymbol(ctx, op, req.Symbol)
	if err != nil {
		return nil, err
	}
	tick, err := c.quote(ctx, op, req.Symbol)
	if err != nil {
		return nil, err
	}

	// Buys execute at the ask, sells at the bid.
	price := tick.Ask
	orderType := termapi.OrderTypeBuy
	if req.Side == domain.Sell {
		price = tick.Bid
		orderType = termapi.OrderTypeSell
	}
	sl, tp := resolveStops(req, price, spec.Digits)

	treq := &termapi.TradeRequest{
		Action:    termapi.TradeActionDeal,
		Symbol:    req.Symbol,
		Volume:    req.Volume,
		Price:     price,
		Deviation: c.effectiveDeviation(req.Deviation),
		OrderType: orderType,
		Filling:   pickFilling(spec.FillingMask),
		Lifetime:  termapi.LifetimeGTC,
		Comment:   commentOrDefault(req.Comment),
		Magic:     c.effectiveMagic(req.Magic),
	}
	applyStops(treq, sl, tp)

	c.logger.Debug(ctx, "Sending market order", map[string]interface{}{
		"symbol": req.Symbol, "side": req.Side, "volume": req.Volume,
		"price": price, "sl": treq.SL, "tp": treq.TP, "filling": treq.Filling,
	})
	res, err := c.term.OrderSend(ctx, treq)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := c.formatResult(ctx, res)
	echoStops(out, sl, tp)
	c.logger.Info(ctx, "Market order completed", map[string]interface{}{
		"symbol": req.Symbol, "side": req.Side, "volume": req.Volume,
		"retcode": out.Retcode, "label": out.Label, "order": out.Order, "deal": out.Deal,
	})
	return out, nil
}

// PendingOrder places one of the six pending order kinds. SL/TP distances
// resolve around the requested entry price.
func (c *Client) PendingOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error) {
	op := "PendingOrder"
	if err := validateBase(req); err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if !req.Kind.IsPending() {
		return nil, c.handleError(ctx, fmt.Errorf("kind %q is not a pending order kind: %w", req.Kind, ports.ErrInvalidRequest), op)
	}
	if dir := req.Kind.Direction(); dir != req.Side {
		return nil, c.handleError(ctx, fmt.Errorf("side %s does not match kind %s: %w", req.Side, req.Kind, ports.ErrInvalidRequest), op)
	}
	if req.Price == nil {
		return nil, c.handleError(ctx, fmt.Errorf("pending order requires an entry price: %w", ports.ErrInvalidRequest), op)
	}
	if req.Kind.IsStopLimit() && req.StopLimit == nil {
		return nil, c.handleError(ctx, fmt.Errorf("%s requires a stop-limit trigger price: %w", req.Kind, ports.ErrInvalidRequest), op)
	}

	spec, err := c.ensureSymbol(ctx, op, req.Symbol)
	if err != nil {
		return nil, err
	}
	sl, tp := resolveStops(req, *req.Price, spec.Digits)

	treq := &termapi.TradeRequest{
		Action:    termapi.TradeActionPending,
		Symbol:    req.Symbol,
		Volume:    req.Volume,
		Price:     *req.Price,
		Deviation: c.effectiveDeviation(req.Deviation),
		OrderType: kindToOrderType[req.Kind],
		Filling:   termapi.FillingReturn,
		Lifetime:  termapi.LifetimeGTC,
		Comment:   commentOrDefault(req.Comment),
		Magic:     c.effectiveMagic(req.Magic),
	}
	if req.StopLimit != nil {
		treq.StopLimit = *req.StopLimit
	}
	applyStops(treq, sl, tp)

	c.logger.Debug(ctx, "Placing pending order", map[string]interface{}{
		"symbol": req.Symbol, "kind": req.Kind, "volume": req.Volume,
		"price": treq.Price, "stopLimit": treq.StopLimit, "sl": treq.SL, "tp": treq.TP,
	})
	res, err := c.term.OrderSend(ctx, treq)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := c.formatResult(ctx, res)
	echoStops(out, sl, tp)
	c.logger.Info(ctx, "Pending order completed", map[string]interface{}{
		"symbol": req.Symbol, "kind": req.Kind, "volume": req.Volume,
		"retcode": out.Retcode, "label": out.Label, "order": out.Order,
	})
	return out, nil
}

// ModifyPositionSLTP replaces the SL/TP attached to an open position. A nil
// price removes that stop at the broker.
func (c *Client) ModifyPositionSLTP(ctx context.Context, ticket int64, sl, tp *float64) (*domain.OrderResult, error) {
	op := "ModifyPositionSLTP"
	pos, err := c.findPosition(ctx, op, ticket)
	if err != nil {
		return nil, err
	}

	treq := &termapi.TradeRequest{
		Action:   termapi.TradeActionSLTP,
		Symbol:   pos.Symbol,
		Position: ticket,
		Comment:  "gw-modify",
		Magic:    c.magic,
	}
	applyStops(treq, sl, tp)

	res, err := c.term.OrderSend(ctx, treq)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := c.formatResult(ctx, res)
	c.logger.Info(ctx, "Position SL/TP modified", map[string]interface{}{
		"ticket": ticket, "sl": treq.SL, "tp": treq.TP,
		"retcode": out.Retcode, "label": out.Label,
	})
	return out, nil
}

// ClosePosition closes an open position at market. A nil volume closes the
// full position size.
func (c *Client) ClosePosition(ctx context.Context, ticket int64, volume *float64, deviation int) (*domain.OrderResult, error) {
	op := "ClosePosition"
	pos, err := c.findPosition(ctx, op, ticket)
	if err != nil {
		return nil, err
	}
	spec, err := c.ensureSymbol(ctx, op, pos.Symbol)
	if err != nil {
		return nil, err
	}
	tick, err := c.quote(ctx, op, pos.Symbol)
	if err != nil {
		return nil, err
	}

	// Closing a buy sells at the bid; closing a sell buys back at the ask.
	orderType := termapi.OrderTypeSell
	price := tick.Bid
	if pos.Type == termapi.PositionSell {
		orderType = termapi.OrderTypeBuy
		price = tick.Ask
	}
	vol := pos.Volume
	if volume != nil && *volume > 0 && *volume < pos.Volume {
		vol = *volume
	}

	treq := &termapi.TradeRequest{
		Action:    termapi.TradeActionDeal,
		Symbol:    pos.Symbol,
		Position:  ticket,
		Volume:    vol,
		Price:     price,
		Deviation: c.effectiveDeviation(deviation),
		OrderType: orderType,
		Filling:   pickFilling(spec.FillingMask),
		Lifetime:  termapi.LifetimeGTC,
		Comment:   "gw-close",
		Magic:     c.magic,
	}

	res, err := c.term.OrderSend(ctx, treq)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := c.formatResult(ctx, res)
	c.logger.Info(ctx, "Position close completed", map[string]interface{}{
		"ticket": ticket, "symbol": pos.Symbol, "volume": vol,
		"retcode": out.Retcode, "label": out.Label, "deal": out.Deal,
	})
	return out, nil
}

// CancelOrder removes a working pending order.
func (c *Client) CancelOrder(ctx context.Context, ticket int64) (*domain.OrderResult, error) {
	op := "CancelOrder"
	ord, err := c.findOrder(ctx, op, ticket)
	if err != nil {
		return nil, err
	}

	treq := &termapi.TradeRequest{
		Action:  termapi.TradeActionRemove,
		Symbol:  ord.Symbol,
		Order:   ticket,
		Comment: "gw-cancel",
		Magic:   c.magic,
	}

	res, err := c.term.OrderSend(ctx, treq)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	out := c.formatResult(ctx, res)
	c.logger.Info(ctx, "Pending order cancel completed", map[string]interface{}{
		"ticket": ticket, "symbol": ord.Symbol,
		"retcode": out.Retcode, "label": out.Label,
	})
	return out, nil
}

// Positions lists open positions, all of them when symbol is empty.
func (c *Client) Positions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	op := "Positions"
	infos, err := c.term.Positions(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	positions := make([]*domain.Position, 0, len(infos))
	for _, info := range infos {
		positions = append(positions, translatePosition(info))
	}
	return positions, nil
}

// PendingOrders lists working pending orders, all of them when symbol is
// empty.
func (c *Client) PendingOrders(ctx context.Context, symbol string) ([]*domain.PendingOrder, error) {
	op := "PendingOrders"
	infos, err := c.term.Orders(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	orders := make([]*domain.PendingOrder, 0, len(infos))
	for _, info := range infos {
		orders = append(orders, translatePending(info))
	}
	return orders, nil
}

// --- Internal Helpers ---

// ensureSymbol selects the symbol in the session and returns its spec.
func (c *Client) ensureSymbol(ctx context.Context, op, symbol string) (*termapi.SymbolSpec, error) {
	if symbol == "" {
		return nil, c.handleError(ctx, fmt.Errorf("symbol is required: %w", ports.ErrInvalidRequest), op)
	}
	ok, err := c.term.SymbolSelect(ctx, symbol, true)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if !ok {
		return nil, c.handleError(ctx, fmt.Errorf("symbol %s could not be selected: %w", symbol, ports.ErrSymbolNotAvailable), op)
	}
	spec, err := c.term.SymbolInfo(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if spec == nil {
		return nil, c.handleError(ctx, fmt.Errorf("symbol %s has no specification: %w", symbol, ports.ErrSymbolNotAvailable), op)
	}
	return spec, nil
}

// quote returns the current tick or an ErrNoQuote failure.
func (c *Client) quote(ctx context.Context, op, symbol string) (*termapi.SymbolTick, error) {
	tick, err := c.term.SymbolTick(ctx, symbol)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if tick == nil {
		return nil, c.handleError(ctx, fmt.Errorf("no tick for symbol %s: %w", symbol, ports.ErrNoQuote), op)
	}
	return tick, nil
}

// findPosition locates an open position by ticket.
func (c *Client) findPosition(ctx context.Context, op string, ticket int64) (*termapi.PositionInfo, error) {
	infos, err := c.term.Positions(ctx, "")
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	for _, info := range infos {
		if info.Ticket == ticket {
			return info, nil
		}
	}
	return nil, c.handleError(ctx, fmt.Errorf("position ticket %d: %w", ticket, ports.ErrPositionNotFound), op)
}

// findOrder locates a working pending order by ticket.
func (c *Client) findOrder(ctx context.Context, op string, ticket int64) (*termapi.PendingInfo, error) {
	infos, err := c.term.Orders(ctx, "")
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	for _, info := range infos {
		if info.Ticket == ticket {
			return info, nil
		}
	}
	return nil, c.handleError(ctx, fmt.Errorf("order ticket %d: %w", ticket, ports.ErrOrderNotFound), op)
}

// formatResult normalizes one broker response. A nil response is the
// documented no-result case: retcode -1 with label NO_RESULT and the
// session diagnostic captured for forensics.
func (c *Client) formatResult(ctx context.Context, res *termapi.TradeResult) *domain.OrderResult {
	code, desc := c.term.LastError(ctx)
	lastError := fmt.Sprintf("(%d, %s)", code, desc)

	if res == nil {
		c.logger.Warn(ctx, "Trade server returned no result", map[string]interface{}{
			"diagCode": code, "diagDescription": desc,
		})
		return &domain.OrderResult{
			Retcode:   domain.RetcodeNoResult,
			Label:     domain.LabelNoResult,
			LastError: lastError,
			Raw:       map[string]interface{}{},
		}
	}
	return &domain.OrderResult{
		Retcode:   res.Retcode,
		Label:     termapi.LabelRetcode(res.Retcode),
		Comment:   res.Comment,
		Order:     res.Order,
		Deal:      res.Deal,
		Price:     res.Price,
		RequestID: res.RequestID,
		LastError: lastError,
		Raw:       res.Fields(),
	}
}

func (c *Client) effectiveDeviation(requested int) int {
	if requested > 0 {
		return requested
	}
	return c.deviation
}

func (c *Client) effectiveMagic(requested int64) int64 {
	if requested != 0 {
		return requested
	}
	return c.magic
}

// validateBase checks the fields every order shape requires.
func validateBase(req *domain.OrderRequest) error {
	if req == nil {
		return fmt.Errorf("nil order request: %w", ports.ErrInvalidRequest)
	}
	if req.Symbol == "" {
		return fmt.Errorf("symbol is required: %w", ports.ErrInvalidRequest)
	}
	if !req.Side.IsValid() {
		return fmt.Errorf("side %q is not valid: %w", req.Side, ports.ErrInvalidRequest)
	}
	if req.Volume <= 0 {
		return fmt.Errorf("volume must be positive, got %v: %w", req.Volume, ports.ErrInvalidRequest)
	}
	return nil
}

// resolveStops converts SL/TP distances into absolute prices around the
// reference price, rounded to the instrument's quoted digits. A distance
// wins over an absolute price supplied alongside it.
func resolveStops(req *domain.OrderRequest, price float64, digits int) (sl, tp *float64) {
	sl, tp = req.SL, req.TP
	if req.SLDistance != nil {
		v := price - *req.SLDistance
		if req.Side == domain.Sell {
			v = price + *req.SLDistance
		}
		v = roundToDigits(v, digits)
		sl = &v
	}
	if req.TPDistance != nil {
		v := price + *req.TPDistance
		if req.Side == domain.Sell {
			v = price - *req.TPDistance
		}
		v = roundToDigits(v, digits)
		tp = &v
	}
	return sl, tp
}

// roundToDigits rounds a price to the instrument precision without binary
// float drift.
func roundToDigits(v float64, digits int) float64 {
	f, _ := decimal.NewFromFloat(v).Round(int32(digits)).Float64()
	return f
}

// pickFilling negotiates the execution filling mode from the symbol's
// capability flags, preferring FOK, then IOC. IOC is also the fallback when
// the mask advertises nothing usable.
func pickFilling(mask int) termapi.FillingType {
	switch {
	case mask&termapi.SymbolFillingFOK != 0:
		return termapi.FillingFOK
	case mask&termapi.SymbolFillingIOC != 0:
		return termapi.FillingIOC
	default:
		return termapi.FillingIOC
	}
}

func applyStops(treq *termapi.TradeRequest, sl, tp *float64) {
	if sl != nil {
		treq.SL = *sl
	}
	if tp != nil {
		treq.TP = *tp
	}
}

// echoStops retains the stop prices actually sent, for audit forensics.
func echoStops(res *domain.OrderResult, sl, tp *float64) {
	if res.Raw == nil {
		return
	}
	if sl != nil {
		res.Raw["applied_sl"] = *sl
	}
	if tp != nil {
		res.Raw["applied_tp"] = *tp
	}
}

func commentOrDefault(comment string) string {
	if comment == "" {
		return defaultComment
	}
	return comment
}

// --- Translation Helpers ---

func translateAccount(a *termapi.AccountSnapshot) *domain.Account {
	return &domain.Account{
		Login:      a.Login,
		Name:       a.Name,
		Server:     a.Server,
		Currency:   a.Currency,
		Leverage:   a.Leverage,
		Balance:    a.Balance,
		Equity:     a.Equity,
		Margin:     a.Margin,
		MarginFree: a.MarginFree,
	}
}

func translateSymbol(s *termapi.SymbolSpec) *domain.SymbolDetails {
	return &domain.SymbolDetails{
		Name:         s.Name,
		Description:  s.Description,
		Digits:       s.Digits,
		Point:        s.Point,
		ContractSize: s.ContractSize,
		VolumeMin:    s.VolumeMin,
		VolumeMax:    s.VolumeMax,
		VolumeStep:   s.VolumeStep,
		StopsLevel:   s.StopsLevel,
		TradeMode:    int(s.TradeMode),
		FillingMask:  s.FillingMask,
	}
}

func translateTick(t *termapi.SymbolTick) *domain.Tick {
	return &domain.Tick{
		Time: t.Time,
		Bid:  t.Bid,
		Ask:  t.Ask,
		Last: t.Last,
	}
}

func translatePosition(p *termapi.PositionInfo) *domain.Position {
	side := domain.Buy
	if p.Type == termapi.PositionSell {
		side = domain.Sell
	}
	return &domain.Position{
		Ticket:       p.Ticket,
		Symbol:       p.Symbol,
		Side:         side,
		Volume:       p.Volume,
		PriceOpen:    p.PriceOpen,
		PriceCurrent: p.PriceCurrent,
		SL:           p.SL,
		TP:           p.TP,
		Profit:       p.Profit,
		Swap:         p.Swap,
		Magic:        p.Magic,
		Comment:      p.Comment,
		OpenedAt:     p.Time,
	}
}

func translatePending(o *termapi.PendingInfo) *domain.PendingOrder {
	kind := orderTypeToKind[o.Type]
	return &domain.PendingOrder{
		Ticket:    o.Ticket,
		Symbol:    o.Symbol,
		Kind:      kind,
		Side:      kind.Direction(),
		Volume:    o.Volume,
		PriceOpen: o.PriceOpen,
		StopLimit: o.StopLimit,
		SL:        o.SL,
		TP:        o.TP,
		Magic:     o.Magic,
		Comment:   o.Comment,
		PlacedAt:  o.TimeSetup,
	}
}
