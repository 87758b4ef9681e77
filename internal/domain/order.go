package domain

// OrderRequest carries the caller's intent for one market or pending order.
// Optional fields are pointers; nil means not supplied. When both an
// absolute stop price and a distance are supplied for the same stop, the
// distance wins.
type OrderRequest struct {
	Symbol     string
	Side       OrderSide
	Kind       OrderKind
	Volume     float64
	Price      *float64 // entry price, required for pending kinds
	StopLimit  *float64 // trigger price, required for *_STOP_LIMIT kinds
	SL         *float64 // absolute stop loss price
	TP         *float64 // absolute take profit price
	SLDistance *float64 // stop loss distance from the execution price
	TPDistance *float64 // take profit distance from the execution price
	Deviation  int      // max slippage in points, 0 means the gateway default
	Comment    string
	Magic      int64
}

// Result labels the gateway guarantees beyond the broker's own catalogue.
const (
	LabelDone        = "DONE"
	LabelDonePartial = "DONE_PARTIAL"
	LabelPlaced      = "PLACED"
	LabelNoResult    = "NO_RESULT"
)

// RetcodeNoResult marks a broker call that produced no response at all.
const RetcodeNoResult = -1

// OrderResult is the normalized outcome of one broker call. Every broker
// response becomes a result, including rejections; only transport and
// session failures surface as errors instead.
//
// Zero values mean the broker did not report the field: tickets and prices
// stay 0, strings stay empty.
type OrderResult struct {
	Retcode   int    // broker return code, RetcodeNoResult when absent
	Label     string // symbolic label for Retcode
	Comment   string // broker's own comment
	Order     int64  // order ticket
	Deal      int64  // deal ticket
	Price     float64
	RequestID int64
	LastError string                 // session diagnostic captured with the response
	Raw       map[string]interface{} // full broker response for forensics
}

// Succeeded reports whether the broker executed or placed the request.
// Partial fills count as success.
func (r *OrderResult) Succeeded() bool {
	switch r.Label {
	case LabelDone, LabelDonePartial, LabelPlaced:
		return true
	}
	return false
}
