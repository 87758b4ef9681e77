package termapi

import "time"

// TradeRequest is one trade server instruction. Which fields matter depends
// on the Action: deals use Price/Deviation, pendings use Price/StopLimit and
// Lifetime, SL/TP changes use Position, removals use Order.
type TradeRequest struct {
	Action     TradeAction
	Symbol     string
	Volume     float64
	Price      float64
	StopLimit  float64
	SL         float64
	TP         float64
	Deviation  int // max accepted slippage in points
	OrderType  OrderType
	Filling    FillingType
	Lifetime   LifetimeType
	Expiration int64 // epoch seconds, 0 when Lifetime does not need one
	Position   int64 // position ticket for SLTP/close requests
	Order      int64 // order ticket for modify/remove requests
	Comment    string
	Magic      int64
}

// TradeResult is the trade server's answer to one request. Zero fields mean
// the server did not report them.
type TradeResult struct {
	Retcode         int
	Deal            int64 // deal ticket when a deal was executed
	Order           int64 // order ticket when an order was placed
	Volume          float64
	Price           float64
	Bid             float64
	Ask             float64
	Comment         string
	RequestID       int64
	RetcodeExternal int
}

// Fields flattens the result for structured logging and audit retention.
func (r *TradeResult) Fields() map[string]interface{} {
	return map[string]interface{}{
		"retcode":          r.Retcode,
		"deal":             r.Deal,
		"order":            r.Order,
		"volume":           r.Volume,
		"price":            r.Price,
		"bid":              r.Bid,
		"ask":              r.Ask,
		"comment":          r.Comment,
		"request_id":       r.RequestID,
		"retcode_external": r.RetcodeExternal,
	}
}

// AccountSnapshot is the attached account's state at read time.
type AccountSnapshot struct {
	Login      int64
	Name       string
	Server     string
	Currency   string
	Leverage   int
	Balance    float64
	Equity     float64
	Margin     float64
	MarginFree float64
}

// SymbolSpec is a symbol's contract specification.
type SymbolSpec struct {
	Name         string
	Description  string
	Digits       int     // quoted decimal places
	Point        float64 // smallest price increment
	ContractSize float64
	VolumeMin    float64
	VolumeMax    float64
	VolumeStep   float64
	StopsLevel   int // minimal SL/TP distance from price, in points
	TradeMode    TradeMode
	FillingMask  int // SymbolFilling* capability flags
}

// SymbolTick is one top-of-book quote.
type SymbolTick struct {
	Time   time.Time
	Bid    float64
	Ask    float64
	Last   float64
	Volume float64
}

// PositionInfo is one open position as the terminal reports it.
type PositionInfo struct {
	Ticket       int64
	Symbol       string
	Type         PositionSide
	Volume       float64
	PriceOpen    float64
	PriceCurrent float64
	SL           float64
	TP           float64
	Profit       float64
	Swap         float64
	Magic        int64
	Comment      string
	Time         time.Time
}

// PendingInfo is one working pending order as the terminal reports it.
type PendingInfo struct {
	Ticket    int64
	Symbol    string
	Type      OrderType
	Volume    float64
	PriceOpen float64
	StopLimit float64
	SL        float64
	TP        float64
	Magic     int64
	Comment   string
	TimeSetup time.Time
}
