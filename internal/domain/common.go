package domain

// OrderSide defines the direction of a trade.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// IsValid reports whether the side is one of the two known directions.
func (s OrderSide) IsValid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the side that flattens a position opened with s.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind selects between an immediate market execution and the six
// pending order shapes.
type OrderKind string

const (
	KindMarket        OrderKind = "MARKET"
	KindBuyLimit      OrderKind = "BUY_LIMIT"
	KindSellLimit     OrderKind = "SELL_LIMIT"
	KindBuyStop       OrderKind = "BUY_STOP"
	KindSellStop      OrderKind = "SELL_STOP"
	KindBuyStopLimit  OrderKind = "BUY_STOP_LIMIT"
	KindSellStopLimit OrderKind = "SELL_STOP_LIMIT"
)

// IsValid reports whether the kind is part of the enumeration.
func (k OrderKind) IsValid() bool {
	switch k {
	case KindMarket, KindBuyLimit, KindSellLimit, KindBuyStop,
		KindSellStop, KindBuyStopLimit, KindSellStopLimit:
		return true
	}
	return false
}

// IsPending reports whether the kind places a working order instead of
// executing immediately.
func (k OrderKind) IsPending() bool {
	return k.IsValid() && k != KindMarket
}

// IsStopLimit reports whether the kind needs a stop-limit trigger price.
func (k OrderKind) IsStopLimit() bool {
	return k == KindBuyStopLimit || k == KindSellStopLimit
}

// Direction returns the side a pending kind trades, or "" for MARKET where
// the caller chooses the side.
func (k OrderKind) Direction() OrderSide {
	switch k {
	case KindBuyLimit, KindBuyStop, KindBuyStopLimit:
		return Buy
	case KindSellLimit, KindSellStop, KindSellStopLimit:
		return Sell
	}
	return ""
}
