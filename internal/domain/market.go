package domain

import "time"

// Account is the broker account state at read time.
type Account struct {
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

// SymbolDetails describes one tradable instrument as the broker quotes it.
type SymbolDetails struct {
	Name         string
	Description  string
	Digits       int     // quoted decimal places
	Point        float64 // smallest price increment
	ContractSize float64
	VolumeMin    float64
	VolumeMax    float64
	VolumeStep   float64
	StopsLevel   int // minimal SL/TP distance from price, in points
	TradeMode    int // raw terminal trade mode
	FillingMask  int // raw filling capability flags
}

// Tick is one top-of-book quote.
type Tick struct {
	Time time.Time
	Bid  float64
	Ask  float64
	Last float64
}

// Position is one broker-owned open position. Positions are ephemeral
// reads; the broker assigns tickets and owns the live state.
type Position struct {
	Ticket       int64
	Symbol       string
	Side         OrderSide
	Volume       float64
	PriceOpen    float64
	PriceCurrent float64
	SL           float64 // 0 when no stop loss is attached
	TP           float64 // 0 when no take profit is attached
	Profit       float64
	Swap         float64
	Magic        int64
	Comment      string
	OpenedAt     time.Time
}

// PendingOrder is one broker-owned working order awaiting its trigger.
type PendingOrder struct {
	Ticket    int64
	Symbol    string
	Kind      OrderKind
	Side      OrderSide
	Volume    float64
	PriceOpen float64
	StopLimit float64
	SL        float64
	TP        float64
	Magic     int64
	Comment   string
	PlacedAt  time.Time
}
