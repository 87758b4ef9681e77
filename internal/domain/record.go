package domain

import "time"

// Audit records are append-only rows describing what was asked of the
// broker and what came back. The store assigns IDs and creation times.

// Change kinds mark order rows written for actions against an existing
// ticket rather than a fresh placement.
const (
	ChangeModify = "MODIFY"
	ChangeClose  = "CLOSE"
	ChangeCancel = "CANCEL"
)

// OrderRecord is one audit row per broker attempt: market orders, pending
// placements and MODIFY/CLOSE/CANCEL changes alike.
type OrderRecord struct {
	ID             int64
	AttemptID      string    // shared with the paired deal row
	BrokerOrder    int64     // broker order ticket, 0 when none was returned
	BrokerDeal     int64     // broker deal ticket, 0 when none was returned
	RefTicket      int64     // ticket a change row refers to, 0 for placements
	Symbol         string    // empty for change rows
	Side           OrderSide // empty for change rows
	Kind           string    // OrderKind value or one of the Change* kinds
	Volume         float64
	RequestedPrice *float64 // entry price as requested, nil for market orders
	FilledPrice    *float64 // execution price the broker reported
	SL             *float64 // absolute stop loss as requested
	TP             *float64 // absolute take profit as requested
	SLDistance     *float64 // stop loss distance as requested
	TPDistance     *float64 // take profit distance as requested
	Deviation      int
	Retcode        int
	RetcodeLabel   string
	RetComment     string
	RequestID      int64
	CreatedAt      time.Time
}

// DealRecord pairs an order row with the broker deal that filled it. Profit,
// commission and swap are unknown at fill time and stay nil until enriched.
type DealRecord struct {
	ID          int64
	AttemptID   string // same value as the paired order row
	DealTicket  int64
	OrderTicket int64
	Symbol      string
	Side        OrderSide
	Volume      float64
	Price       float64
	Profit      *float64
	Commission  *float64
	Swap        *float64
	Time        time.Time
	CreatedAt   time.Time
}

// PositionSnapshot is one open position captured at snapshot time.
type PositionSnapshot struct {
	ID        int64
	Symbol    string
	Ticket    int64
	Side      OrderSide
	Volume    float64
	PriceOpen float64
	SL        float64
	TP        float64
	Profit    float64
	SnappedAt time.Time
}
