package termapi

// TradeAction selects what a trade request does.
type TradeAction int

const (
	TradeActionDeal    TradeAction = 1  // immediate execution at market
	TradeActionPending TradeAction = 5  // place a pending order
	TradeActionSLTP    TradeAction = 6  // change SL/TP of an open position
	TradeActionModify  TradeAction = 7  // change a pending order's parameters
	TradeActionRemove  TradeAction = 8  // delete a pending order
	TradeActionCloseBy TradeAction = 10 // close a position by an opposite one
)

// OrderType is the terminal's order type enumeration.
type OrderType int

const (
	OrderTypeBuy           OrderType = 0
	OrderTypeSell          OrderType = 1
	OrderTypeBuyLimit      OrderType = 2
	OrderTypeSellLimit     OrderType = 3
	OrderTypeBuyStop       OrderType = 4
	OrderTypeSellStop      OrderType = 5
	OrderTypeBuyStopLimit  OrderType = 6
	OrderTypeSellStopLimit OrderType = 7
)

// IsPending reports whether the order type is one of the six pending shapes.
func (t OrderType) IsPending() bool {
	return t >= OrderTypeBuyLimit && t <= OrderTypeSellStopLimit
}

// FillingType is the execution filling policy of one request.
type FillingType int

const (
	FillingFOK    FillingType = 0 // fill completely or not at all
	FillingIOC    FillingType = 1 // fill what is available, cancel the rest
	FillingReturn FillingType = 2 // keep the unfilled remainder working
)

// Symbol filling capability flags, combined into SymbolSpec.FillingMask.
const (
	SymbolFillingFOK = 1
	SymbolFillingIOC = 2
)

// LifetimeType is the expiration policy of a pending order.
type LifetimeType int

const (
	LifetimeGTC          LifetimeType = 0 // good till cancelled
	LifetimeDay          LifetimeType = 1 // good for the trading day
	LifetimeSpecified    LifetimeType = 2 // good until the given time
	LifetimeSpecifiedDay LifetimeType = 3 // good until the end of the given day
)

// PositionSide is the direction of an open position.
type PositionSide int

const (
	PositionBuy  PositionSide = 0
	PositionSell PositionSide = 1
)

// TradeMode is what the broker currently permits on a symbol.
type TradeMode int

const (
	TradeModeDisabled  TradeMode = 0
	TradeModeLongOnly  TradeMode = 1
	TradeModeShortOnly TradeMode = 2
	TradeModeCloseOnly TradeMode = 3
	TradeModeFull      TradeMode = 4
)

// Session diagnostic codes reported by LastError.
const (
	DiagOK                  = 1
	DiagFail                = -1
	DiagInvalidParams       = -2
	DiagNotFound            = -4
	DiagAuthFailed          = -6
	DiagAutoTradingDisabled = -8
	DiagInternalFail        = -10000
)

// Trade server return codes carried in TradeResult.Retcode.
const (
	RetcodeRequote           = 10004
	RetcodeReject            = 10006
	RetcodeCancel            = 10007
	RetcodePlaced            = 10008
	RetcodeDone              = 10009
	RetcodeDonePartial       = 10010
	RetcodeError             = 10011
	RetcodeTimeout           = 10012
	RetcodeInvalid           = 10013
	RetcodeInvalidVolume     = 10014
	RetcodeInvalidPrice      = 10015
	RetcodeInvalidStops      = 10016
	RetcodeTradeDisabled     = 10017
	RetcodeMarketClosed      = 10018
	RetcodeNoMoney           = 10019
	RetcodePriceChanged      = 10020
	RetcodePriceOff          = 10021
	RetcodeInvalidExpiration = 10022
	RetcodeOrderChanged      = 10023
	RetcodeTooManyRequests   = 10024
	RetcodeNoChanges         = 10025
	RetcodeServerDisablesAT  = 10026
	RetcodeClientDisablesAT  = 10027
	RetcodeLocked            = 10028
	RetcodeFrozen            = 10029
	RetcodeInvalidFill       = 10030
	RetcodeConnection        = 10031
	RetcodeOnlyReal          = 10032
	RetcodeLimitOrders       = 10033
	RetcodeLimitVolume       = 10034
	RetcodeInvalidOrder      = 10035
	RetcodePositionClosed    = 10036
)
