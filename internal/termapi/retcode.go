package termapi

import "fmt"

// retcodeLabels is the fixed catalogue of trade server return codes. It is
// built once and never mutated; codes outside it get a synthetic label from
// LabelRetcode.
var retcodeLabels = map[int]string{
	RetcodeRequote:           "REQUOTE",
	RetcodeReject:            "REJECT",
	RetcodeCancel:            "CANCEL",
	RetcodePlaced:            "PLACED",
	RetcodeDone:              "DONE",
	RetcodeDonePartial:       "DONE_PARTIAL",
	RetcodeError:             "ERROR",
	RetcodeTimeout:           "TIMEOUT",
	RetcodeInvalid:           "INVALID",
	RetcodeInvalidVolume:     "INVALID_VOLUME",
	RetcodeInvalidPrice:      "INVALID_PRICE",
	RetcodeInvalidStops:      "INVALID_STOPS",
	RetcodeTradeDisabled:     "TRADE_DISABLED",
	RetcodeMarketClosed:      "MARKET_CLOSED",
	RetcodeNoMoney:           "NO_MONEY",
	RetcodePriceChanged:      "PRICE_CHANGED",
	RetcodePriceOff:          "OFF_QUOTES",
	RetcodeInvalidExpiration: "INVALID_EXPIRATION",
	RetcodeOrderChanged:      "ORDER_CHANGED",
	RetcodeTooManyRequests:   "TOO_MANY_REQUESTS",
	RetcodeNoChanges:         "NO_CHANGES",
	RetcodeServerDisablesAT:  "SERVER_AT_DISABLED",
	RetcodeClientDisablesAT:  "CLIENT_AT_DISABLED",
	RetcodeLocked:            "SYMBOL_TRADE_DISABLED",
	RetcodeFrozen:            "SYMBOL_FROZEN",
	RetcodeInvalidFill:       "INVALID_FILL",
	RetcodeConnection:        "CONNECTION",
	RetcodeOnlyReal:          "ONLY_REAL",
	RetcodeLimitOrders:       "LIMIT_ORDERS",
	RetcodeLimitVolume:       "LIMIT_VOLUME",
	RetcodeInvalidOrder:      "INVALID_ORDER",
	RetcodePositionClosed:    "POSITION_CLOSED",
}

// LabelRetcode returns the symbolic label for a trade server return code.
// Unknown codes yield "UNKNOWN(<code>)" so they stay distinguishable in
// logs and audit rows.
func LabelRetcode(code int) string {
	if label, ok := retcodeLabels[code]; ok {
		return label
	}
	return fmt.Sprintf("UNKNOWN(%d)", code)
}
