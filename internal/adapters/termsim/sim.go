package termsim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradegate/internal/ports"
	"tradegate/internal/termapi"
)

// Simulator is an in-process terminal session over a paper account. It
// implements termapi.Terminal with hedging-style positions: every fill
// opens its own ticket.
//
// Like a real terminal it answers logical absence with nil results, not
// errors: a dead session, an unknown symbol or a dropped order all come
// back nil with the diagnostic set.
type Simulator struct {
	logger ports.Logger

	mu          sync.Mutex
	connected   bool
	account     AccountConfig
	balance     float64
	symbols     map[string]*symbolState
	positions   map[int64]*termapi.PositionInfo
	orders      map[int64]*termapi.PendingInfo
	nextTicket  int64
	nextDeal    int64
	nextRequest int64
	diagCode    int
	diagDesc    string
	dropOrders  bool
}

type symbolState struct {
	spec     termapi.SymbolSpec
	selected bool
	tick     termapi.SymbolTick
	hasTick  bool
}

// Config holds configuration specific to the simulated terminal.
type Config struct {
	Catalog *Catalog // nil uses DefaultCatalog
	Logger  ports.Logger
}

// New creates a new simulated terminal from a catalog.
func New(cfg Config) (*Simulator, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for simulated terminal")
	}
	cat := cfg.Catalog
	if cat == nil {
		cat = DefaultCatalog()
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	sim := &Simulator{
		logger:     cfg.Logger,
		account:    cat.Account,
		balance:    cat.Account.Balance,
		symbols:    make(map[string]*symbolState, len(cat.Instruments)),
		positions:  make(map[int64]*termapi.PositionInfo),
		orders:     make(map[int64]*termapi.PendingInfo),
		nextTicket: 100000,
		nextDeal:   500000,
		diagCode:   termapi.DiagOK,
		diagDesc:   "Success",
	}
	for _, inst := range cat.Instruments {
		st := &symbolState{spec: inst.spec()}
		if inst.Bid > 0 && inst.Ask > 0 {
			st.tick = termapi.SymbolTick{Time: time.Now(), Bid: inst.Bid, Ask: inst.Ask, Last: inst.Bid}
			st.hasTick = true
		}
		sim.symbols[inst.Name] = st
	}
	return sim, nil
}

// Initialize opens the session. Credentials are checked only against the
// catalog fields that are set.
func (s *Simulator) Initialize(ctx context.Context, creds termapi.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if creds.Login != 0 && s.account.Login != 0 && creds.Login != s.account.Login {
		s.setDiag(termapi.DiagAuthFailed, "authorization failed")
		return fmt.Errorf("authorization failed for login %d", creds.Login)
	}
	if creds.Password != "" && s.account.Password != "" && creds.Password != s.account.Password {
		s.setDiag(termapi.DiagAuthFailed, "authorization failed")
		return fmt.Errorf("authorization failed for login %d", creds.Login)
	}
	s.connected = true
	s.setDiag(termapi.DiagOK, "Success")
	s.logger.Info(ctx, "Simulated terminal session opened", map[string]interface{}{
		"login": s.account.Login, "server": s.account.Server, "balance": s.balance,
	})
	return nil
}

// Shutdown closes the session. Open positions and working orders survive a
// reconnect.
func (s *Simulator) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.logger.Debug(ctx, "Simulated terminal session closed")
	return nil
}

// AccountSnapshot returns the account state, or nil on a dead session.
func (s *Simulator) AccountSnapshot(ctx context.Context) (*termapi.AccountSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.setDiag(termapi.DiagInternalFail, "terminal not initialized")
		return nil, nil
	}
	equity := s.equityLocked()
	margin := s.marginLocked()
	return &termapi.AccountSnapshot{
		Login:      s.account.Login,
		Name:       s.account.Name,
		Server:     s.account.Server,
		Currency:   s.account.Currency,
		Leverage:   s.leverage(),
		Balance:    s.balance,
		Equity:     equity,
		Margin:     margin,
		MarginFree: equity - margin,
	}, nil
}

// SymbolSelect shows or hides a symbol in the session's market watch.
func (s *Simulator) SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.setDiag(termapi.DiagInternalFail, "terminal not initialized")
		return false, nil
	}
	st, ok := s.symbols[symbol]
	if !ok {
		s.setDiag(termapi.DiagNotFound, fmt.Sprintf("symbol %s not found", symbol))
		return false, nil
	}
	st.selected = enable
	return true, nil
}

// SymbolInfo returns the symbol's specification, or nil when unknown.
func (s *Simulator) SymbolInfo(ctx context.Context, symbol string) (*termapi.SymbolSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.setDiag(termapi.DiagInternalFail, "terminal not initialized")
		return nil, nil
	}
	st, ok := s.symbols[symbol]
	if !ok {
		s.setDiag(termapi.DiagNotFound, fmt.Sprintf("symbol %s not found", symbol))
		return nil, nil
	}
	spec := st.spec
	return &spec, nil
}

// SymbolTick returns the current quote, or nil when none is available.
func (s *Simulator) SymbolTick(ctx context.Context, symbol string) (*termapi.SymbolTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.setDiag(termapi.DiagInternalFail, "terminal not initialized")
		return nil, nil
	}
	st, ok := s.symbols[symbol]
	if !ok || !st.hasTick {
		s.setDiag(termapi.DiagNotFound, fmt.Sprintf("no tick for symbol %s", symbol))
		return nil, nil
	}
	tick := st.tick
	return &tick, nil
}

// Positions lists open positions with profits refreshed against the
// current quotes.
func (s *Simulator) Positions(ctx context.Context, symbol string) ([]*termapi.PositionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.setDiag(termapi.DiagInternalFail, "terminal not initialized")
		return nil, nil
	}
	out := make([]*termapi.PositionInfo, 0, len(s.positions))
	for _, pos := range s.positions {
		if symbol != "" && pos.Symbol != symbol {
			continue
		}
		s.refreshLocked(pos)
		cp := *pos
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

// Orders lists working pending orders.
func (s *Simulator) Orders(ctx context.Context, symbol string) ([]*termapi.PendingInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		s.setDiag(termapi.DiagInternalFail, "terminal not initialized")
		return nil, nil
	}
	out := make([]*termapi.PendingInfo, 0, len(s.orders))
	for _, ord := range s.orders {
		if symbol != "" && ord.Symbol != symbol {
			continue
		}
		cp := *ord
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out, nil
}

// OrderSend executes a trade request against the paper account.
func (s *Simulator) OrderSend(ctx context.Context, req *termapi.TradeRequest) (*termapi.TradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropOrders {
		s.setDiag(termapi.DiagFail, "no response from trade server")
		return nil, nil
	}
	if !s.connected {
		s.setDiag(termapi.DiagInternalFail, "terminal not initialized")
		return nil, nil
	}
	if req == nil {
		s.setDiag(termapi.DiagInvalidParams, "nil trade request")
		return nil, nil
	}
	s.setDiag(termapi.DiagOK, "Success")

	switch req.Action {
	case termapi.TradeActionDeal:
		return s.execDeal(ctx, req), nil
	case termapi.TradeActionPending:
		return s.execPending(ctx, req), nil
	case termapi.TradeActionSLTP:
		return s.execSLTP(ctx, req), nil
	case termapi.TradeActionModify:
		return s.execModifyPending(ctx, req), nil
	case termapi.TradeActionRemove:
		return s.execRemove(ctx, req), nil
	default:
		return s.reject(req, termapi.RetcodeInvalid, "unsupported action"), nil
	}
}

// LastError returns the session's last diagnostic.
func (s *Simulator) LastError(ctx context.Context) (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagCode, s.diagDesc
}

// SetTick publishes a new quote and runs the trigger sweep: pending orders
// fill and position SL/TP close when the new quote crosses them.
func (s *Simulator) SetTick(symbol string, bid, ask float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.symbols[symbol]
	if !ok {
		return fmt.Errorf("unknown symbol %s", symbol)
	}
	if bid <= 0 || ask <= 0 || bid > ask {
		return fmt.Errorf("inconsistent quote %v/%v for %s", bid, ask, symbol)
	}
	st.tick = termapi.SymbolTick{Time: time.Now(), Bid: bid, Ask: ask, Last: bid}
	st.hasTick = true
	s.sweepOrdersLocked(st)
	s.sweepStopsLocked(st)
	return nil
}

// DropOrders makes OrderSend return no result at all, simulating a trade
// server that stopped answering. Quote and listing calls keep working.
func (s *Simulator) DropOrders(drop bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropOrders = drop
}

// Balance returns the current paper balance.
func (s *Simulator) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// --- Trade Execution ---

func (s *Simulator) execDeal(ctx context.Context, req *termapi.TradeRequest) *termapi.TradeResult {
	st, ok := s.symbols[req.Symbol]
	if !ok {
		return s.reject(req, termapi.RetcodeInvalid, "unknown symbol")
	}
	if !st.hasTick {
		return s.reject(req, termapi.RetcodePriceOff, "off quotes")
	}
	if req.Position != 0 {
		return s.closeDeal(ctx, req, st)
	}
	return s.openDeal(ctx, req, st)
}

func (s *Simulator) openDeal(ctx context.Context, req *termapi.TradeRequest, st *symbolState) *termapi.TradeResult {
	spec := &st.spec
	switch spec.TradeMode {
	case termapi.TradeModeDisabled:
		return s.reject(req, termapi.RetcodeTradeDisabled, "trading disabled")
	case termapi.TradeModeCloseOnly:
		return s.reject(req, termapi.RetcodeMarketClosed, "market closed for new positions")
	case termapi.TradeModeLongOnly:
		if req.OrderType == termapi.OrderTypeSell {
			return s.reject(req, termapi.RetcodeInvalid, "long positions only")
		}
	case termapi.TradeModeShortOnly:
		if req.OrderType == termapi.OrderTypeBuy {
			return s.reject(req, termapi.RetcodeInvalid, "short positions only")
		}
	}
	if req.OrderType != termapi.OrderTypeBuy && req.OrderType != termapi.OrderTypeSell {
		return s.reject(req, termapi.RetcodeInvalid, "order type is not a deal")
	}
	if !validVolume(spec, req.Volume) {
		return s.reject(req, termapi.RetcodeInvalidVolume, "invalid volume")
	}

	price := st.tick.Ask
	side := termapi.PositionBuy
	if req.OrderType == termapi.OrderTypeSell {
		price = st.tick.Bid
		side = termapi.PositionSell
	}
	// Requote when the live price drifted past the deviation corridor.
	if req.Price > 0 && req.Deviation > 0 {
		if math.Abs(price-req.Price) > float64(req.Deviation)*spec.Point {
			res := s.reject(req, termapi.RetcodeRequote, "requote")
			res.Price = price
			return res
		}
	}
	if !validStops(side, price, req.SL, req.TP, spec) {
		return s.reject(req, termapi.RetcodeInvalidStops, "invalid stops")
	}
	margin := req.Volume * spec.ContractSize * price / float64(s.leverage())
	if margin > s.equityLocked()-s.marginLocked() {
		return s.reject(req, termapi.RetcodeNoMoney, "no money")
	}

	s.nextTicket++
	s.nextDeal++
	s.nextRequest++
	ticket := s.nextTicket
	s.positions[ticket] = &termapi.PositionInfo{
		Ticket:       ticket,
		Symbol:       spec.Name,
		Type:         side,
		Volume:       req.Volume,
		PriceOpen:    price,
		PriceCurrent: price,
		SL:           req.SL,
		TP:           req.TP,
		Magic:        req.Magic,
		Comment:      req.Comment,
		Time:         time.Now(),
	}
	s.logger.Debug(ctx, "Deal executed", map[string]interface{}{
		"symbol": spec.Name, "ticket": ticket, "price": price, "volume": req.Volume,
	})

	return &termapi.TradeResult{
		Retcode: termapi.RetcodeDone, Deal: s.nextDeal, Order: ticket,
		Volume: req.Volume, Price: price, Bid: st.tick.Bid, Ask: st.tick.Ask,
		Comment: "done", RequestID: s.nextRequest,
	}
}

func (s *Simulator) closeDeal(ctx context.Context, req *termapi.TradeRequest, st *symbolState) *termapi.TradeResult {
	pos, ok := s.positions[req.Position]
	if !ok {
		return s.reject(req, termapi.RetcodePositionClosed, "position already closed")
	}
	spec := &st.spec
	if pos.Symbol != spec.Name {
		return s.reject(req, termapi.RetcodeInvalid, "symbol does not match position")
	}

	// Closing executes on the opposite side of the book.
	price := st.tick.Bid
	if pos.Type == termapi.PositionSell {
		price = st.tick.Ask
	}
	if req.Price > 0 && req.Deviation > 0 {
		if math.Abs(price-req.Price) > float64(req.Deviation)*spec.Point {
			res := s.reject(req, termapi.RetcodeRequote, "requote")
			res.Price = price
			return res
		}
	}

	vol := pos.Volume
	if req.Volume > 0 && req.Volume < pos.Volume {
		vol = req.Volume
	}
	profit := profitFor(pos, price, vol, spec.ContractSize)
	s.balance = addFloat(s.balance, profit)
	if vol == pos.Volume {
		delete(s.positions, pos.Ticket)
	} else {
		pos.Volume = subFloat(pos.Volume, vol)
	}

	s.nextTicket++
	s.nextDeal++
	s.nextRequest++
	s.logger.Debug(ctx, "Position closed", map[string]interface{}{
		"symbol": spec.Name, "ticket": pos.Ticket, "price": price, "volume": vol, "profit": profit,
	})

	return &termapi.TradeResult{
		Retcode: termapi.RetcodeDone, Deal: s.nextDeal, Order: s.nextTicket,
		Volume: vol, Price: price, Bid: st.tick.Bid, Ask: st.tick.Ask,
		Comment: "done", RequestID: s.nextRequest,
	}
}

func (s *Simulator) execPending(ctx context.Context, req *termapi.TradeRequest) *termapi.TradeResult {
	st, ok := s.symbols[req.Symbol]
	if !ok {
		return s.reject(req, termapi.RetcodeInvalid, "unknown symbol")
	}
	spec := &st.spec
	switch spec.TradeMode {
	case termapi.TradeModeDisabled:
		return s.reject(req, termapi.RetcodeTradeDisabled, "trading disabled")
	case termapi.TradeModeCloseOnly:
		return s.reject(req, termapi.RetcodeMarketClosed, "market closed for new orders")
	}
	if !req.OrderType.IsPending() {
		return s.reject(req, termapi.RetcodeInvalid, "order type is not pending")
	}
	if !validVolume(spec, req.Volume) {
		return s.reject(req, termapi.RetcodeInvalidVolume, "invalid volume")
	}
	if req.Price <= 0 {
		return s.reject(req, termapi.RetcodeInvalidPrice, "invalid price")
	}
	stopLimit := req.OrderType == termapi.OrderTypeBuyStopLimit || req.OrderType == termapi.OrderTypeSellStopLimit
	if stopLimit && req.StopLimit <= 0 {
		return s.reject(req, termapi.RetcodeInvalidPrice, "invalid stop limit price")
	}
	if st.hasTick && !validTriggerSide(req.OrderType, req.Price, st.tick, spec) {
		return s.reject(req, termapi.RetcodeInvalidPrice, "price on wrong side of market")
	}

	s.nextTicket++
	s.nextRequest++
	ticket := s.nextTicket
	s.orders[ticket] = &termapi.PendingInfo{
		Ticket:    ticket,
		Symbol:    spec.Name,
		Type:      req.OrderType,
		Volume:    req.Volume,
		PriceOpen: req.Price,
		StopLimit: req.StopLimit,
		SL:        req.SL,
		TP:        req.TP,
		Magic:     req.Magic,
		Comment:   req.Comment,
		TimeSetup: time.Now(),
	}
	s.logger.Debug(ctx, "Pending order placed", map[string]interface{}{
		"symbol": spec.Name, "ticket": ticket, "type": req.OrderType, "price": req.Price,
	})

	return &termapi.TradeResult{
		Retcode: termapi.RetcodePlaced, Order: ticket,
		Volume: req.Volume, Price: req.Price, Bid: st.tick.Bid, Ask: st.tick.Ask,
		Comment: "placed", RequestID: s.nextRequest,
	}
}

func (s *Simulator) execSLTP(ctx context.Context, req *termapi.TradeRequest) *termapi.TradeResult {
	pos, ok := s.positions[req.Position]
	if !ok {
		return s.reject(req, termapi.RetcodeInvalid, "position not found")
	}
	if pos.SL == req.SL && pos.TP == req.TP {
		return s.reject(req, termapi.RetcodeNoChanges, "no changes")
	}
	if st, ok := s.symbols[pos.Symbol]; ok && st.hasTick {
		price := st.tick.Bid
		if pos.Type == termapi.PositionSell {
			price = st.tick.Ask
		}
		if !validStops(pos.Type, price, req.SL, req.TP, &st.spec) {
			return s.reject(req, termapi.RetcodeInvalidStops, "invalid stops")
		}
	}
	pos.SL = req.SL
	pos.TP = req.TP
	s.nextRequest++
	s.logger.Debug(ctx, "Position stops updated", map[string]interface{}{
		"ticket": pos.Ticket, "sl": pos.SL, "tp": pos.TP,
	})
	return &termapi.TradeResult{Retcode: termapi.RetcodeDone, Order: pos.Ticket, Comment: "done", RequestID: s.nextRequest}
}

func (s *Simulator) execModifyPending(ctx context.Context, req *termapi.TradeRequest) *termapi.TradeResult {
	ord, ok := s.orders[req.Order]
	if !ok {
		return s.reject(req, termapi.RetcodeInvalidOrder, "unknown order")
	}
	if req.Price > 0 {
		ord.PriceOpen = req.Price
	}
	if req.StopLimit > 0 {
		ord.StopLimit = req.StopLimit
	}
	ord.SL = req.SL
	ord.TP = req.TP
	s.nextRequest++
	return &termapi.TradeResult{Retcode: termapi.RetcodeDone, Order: ord.Ticket, Price: ord.PriceOpen, Comment: "done", RequestID: s.nextRequest}
}

func (s *Simulator) execRemove(ctx context.Context, req *termapi.TradeRequest) *termapi.TradeResult {
	ord, ok := s.orders[req.Order]
	if !ok {
		return s.reject(req, termapi.RetcodeInvalidOrder, "unknown order")
	}
	delete(s.orders, ord.Ticket)
	s.nextRequest++
	s.logger.Debug(ctx, "Pending order removed", map[string]interface{}{"ticket": ord.Ticket})
	return &termapi.TradeResult{Retcode: termapi.RetcodeDone, Order: ord.Ticket, Comment: "done", RequestID: s.nextRequest}
}

// --- Trigger Sweeps ---

// sweepOrdersLocked fills pending orders whose trigger the quote crossed.
// The position keeps the order's ticket.
func (s *Simulator) sweepOrdersLocked(st *symbolState) {
	for ticket, ord := range s.orders {
		if ord.Symbol != st.spec.Name || !pendingTriggered(ord, st.tick) {
			continue
		}
		price := ord.PriceOpen
		if ord.Type == termapi.OrderTypeBuyStopLimit || ord.Type == termapi.OrderTypeSellStopLimit {
			// The trigger converts a stop limit into a fill at its limit price.
			price = ord.StopLimit
		}
		side := termapi.PositionBuy
		switch ord.Type {
		case termapi.OrderTypeSellLimit, termapi.OrderTypeSellStop, termapi.OrderTypeSellStopLimit:
			side = termapi.PositionSell
		}
		s.nextDeal++
		s.positions[ticket] = &termapi.PositionInfo{
			Ticket:       ticket,
			Symbol:       ord.Symbol,
			Type:         side,
			Volume:       ord.Volume,
			PriceOpen:    price,
			PriceCurrent: price,
			SL:           ord.SL,
			TP:           ord.TP,
			Magic:        ord.Magic,
			Comment:      ord.Comment,
			Time:         time.Now(),
		}
		delete(s.orders, ticket)
	}
}

// sweepStopsLocked closes positions whose SL or TP the quote crossed.
func (s *Simulator) sweepStopsLocked(st *symbolState) {
	for ticket, pos := range s.positions {
		if pos.Symbol != st.spec.Name {
			continue
		}
		price := st.tick.Bid
		if pos.Type == termapi.PositionSell {
			price = st.tick.Ask
		}
		var hit bool
		if pos.Type == termapi.PositionBuy {
			hit = (pos.SL != 0 && price <= pos.SL) || (pos.TP != 0 && price >= pos.TP)
		} else {
			hit = (pos.SL != 0 && price >= pos.SL) || (pos.TP != 0 && price <= pos.TP)
		}
		if !hit {
			continue
		}
		s.balance = addFloat(s.balance, profitFor(pos, price, pos.Volume, st.spec.ContractSize))
		s.nextDeal++
		delete(s.positions, ticket)
	}
}

func pendingTriggered(ord *termapi.PendingInfo, tick termapi.SymbolTick) bool {
	switch ord.Type {
	case termapi.OrderTypeBuyLimit:
		return tick.Ask <= ord.PriceOpen
	case termapi.OrderTypeBuyStop, termapi.OrderTypeBuyStopLimit:
		return tick.Ask >= ord.PriceOpen
	case termapi.OrderTypeSellLimit:
		return tick.Bid >= ord.PriceOpen
	case termapi.OrderTypeSellStop, termapi.OrderTypeSellStopLimit:
		return tick.Bid <= ord.PriceOpen
	}
	return false
}

// --- Internal Helpers ---

func (s *Simulator) reject(req *termapi.TradeRequest, retcode int, comment string) *termapi.TradeResult {
	s.nextRequest++
	res := &termapi.TradeResult{Retcode: retcode, Comment: comment, RequestID: s.nextRequest}
	if st, ok := s.symbols[req.Symbol]; ok && st.hasTick {
		res.Bid = st.tick.Bid
		res.Ask = st.tick.Ask
	}
	return res
}

func (s *Simulator) setDiag(code int, desc string) {
	s.diagCode = code
	s.diagDesc = desc
}

func (s *Simulator) leverage() int {
	if s.account.Leverage <= 0 {
		return 1
	}
	return s.account.Leverage
}

func (s *Simulator) refreshLocked(pos *termapi.PositionInfo) {
	st, ok := s.symbols[pos.Symbol]
	if !ok || !st.hasTick {
		return
	}
	price := st.tick.Bid
	if pos.Type == termapi.PositionSell {
		price = st.tick.Ask
	}
	pos.PriceCurrent = price
	pos.Profit = profitFor(pos, price, pos.Volume, st.spec.ContractSize)
}

func (s *Simulator) equityLocked() float64 {
	eq := decimal.NewFromFloat(s.balance)
	for _, pos := range s.positions {
		st, ok := s.symbols[pos.Symbol]
		if !ok || !st.hasTick {
			continue
		}
		price := st.tick.Bid
		if pos.Type == termapi.PositionSell {
			price = st.tick.Ask
		}
		eq = eq.Add(decimal.NewFromFloat(profitFor(pos, price, pos.Volume, st.spec.ContractSize)))
	}
	f, _ := eq.Float64()
	return f
}

func (s *Simulator) marginLocked() float64 {
	m := decimal.Zero
	for _, pos := range s.positions {
		st, ok := s.symbols[pos.Symbol]
		if !ok {
			continue
		}
		m = m.Add(decimal.NewFromFloat(pos.Volume).
			Mul(decimal.NewFromFloat(st.spec.ContractSize)).
			Mul(decimal.NewFromFloat(pos.PriceOpen)).
			Div(decimal.NewFromInt(int64(s.leverage()))))
	}
	f, _ := m.Float64()
	return f
}

// validStops enforces the minimal stop distance from the execution price.
// A stop on the wrong side of the price always fails.
func validStops(side termapi.PositionSide, price float64, sl, tp float64, spec *termapi.SymbolSpec) bool {
	minDist := float64(spec.StopsLevel) * spec.Point
	if side == termapi.PositionBuy {
		if sl != 0 && price-sl < minDist {
			return false
		}
		if tp != 0 && tp-price < minDist {
			return false
		}
		return true
	}
	if sl != 0 && sl-price < minDist {
		return false
	}
	if tp != 0 && price-tp < minDist {
		return false
	}
	return true
}

// validTriggerSide rejects pending prices already past their trigger side.
func validTriggerSide(t termapi.OrderType, price float64, tick termapi.SymbolTick, spec *termapi.SymbolSpec) bool {
	minDist := float64(spec.StopsLevel) * spec.Point
	switch t {
	case termapi.OrderTypeBuyLimit:
		return tick.Ask-price >= minDist
	case termapi.OrderTypeBuyStop, termapi.OrderTypeBuyStopLimit:
		return price-tick.Ask >= minDist
	case termapi.OrderTypeSellLimit:
		return price-tick.Bid >= minDist
	case termapi.OrderTypeSellStop, termapi.OrderTypeSellStopLimit:
		return tick.Bid-price >= minDist
	}
	return false
}

func validVolume(spec *termapi.SymbolSpec, volume float64) bool {
	if volume < spec.VolumeMin || volume > spec.VolumeMax {
		return false
	}
	step := decimal.NewFromFloat(spec.VolumeStep)
	if step.IsZero() {
		return true
	}
	return decimal.NewFromFloat(volume).Mod(step).IsZero()
}

// profitFor values closing volume of a position at the given price.
func profitFor(pos *termapi.PositionInfo, price float64, volume, contract float64) float64 {
	diff := decimal.NewFromFloat(price).Sub(decimal.NewFromFloat(pos.PriceOpen))
	if pos.Type == termapi.PositionSell {
		diff = diff.Neg()
	}
	f, _ := diff.Mul(decimal.NewFromFloat(volume)).Mul(decimal.NewFromFloat(contract)).Float64()
	return f
}

func addFloat(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Float64()
	return f
}

func subFloat(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Float64()
	return f
}
