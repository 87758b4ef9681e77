package termapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelRetcode_KnownCodes(t *testing.T) {
	tests := []struct {
		name  string
		code  int
		label string
	}{
		{name: "done", code: RetcodeDone, label: "DONE"},
		{name: "done partial", code: RetcodeDonePartial, label: "DONE_PARTIAL"},
		{name: "placed", code: RetcodePlaced, label: "PLACED"},
		{name: "reject", code: RetcodeReject, label: "REJECT"},
		{name: "cancel", code: RetcodeCancel, label: "CANCEL"},
		{name: "invalid", code: RetcodeInvalid, label: "INVALID"},
		{name: "invalid volume", code: RetcodeInvalidVolume, label: "INVALID_VOLUME"},
		{name: "invalid price", code: RetcodeInvalidPrice, label: "INVALID_PRICE"},
		{name: "invalid stops", code: RetcodeInvalidStops, label: "INVALID_STOPS"},
		{name: "market closed", code: RetcodeMarketClosed, label: "MARKET_CLOSED"},
		{name: "no money", code: RetcodeNoMoney, label: "NO_MONEY"},
		{name: "price changed", code: RetcodePriceChanged, label: "PRICE_CHANGED"},
		{name: "off quotes", code: RetcodePriceOff, label: "OFF_QUOTES"},
		{name: "trade disabled", code: RetcodeTradeDisabled, label: "TRADE_DISABLED"},
		{name: "timeout", code: RetcodeTimeout, label: "TIMEOUT"},
		{name: "order changed", code: RetcodeOrderChanged, label: "ORDER_CHANGED"},
		{name: "too many requests", code: RetcodeTooManyRequests, label: "TOO_MANY_REQUESTS"},
		{name: "client autotrading disabled", code: RetcodeClientDisablesAT, label: "CLIENT_AT_DISABLED"},
		{name: "symbol locked", code: RetcodeLocked, label: "SYMBOL_TRADE_DISABLED"},
		{name: "symbol frozen", code: RetcodeFrozen, label: "SYMBOL_FROZEN"},
		{name: "requote", code: RetcodeRequote, label: "REQUOTE"},
		{name: "position closed", code: RetcodePositionClosed, label: "POSITION_CLOSED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.label, LabelRetcode(tt.code))
		})
	}
}

func TestLabelRetcode_UnknownCodes(t *testing.T) {
	assert.Equal(t, "UNKNOWN(99999)", LabelRetcode(99999))
	assert.Equal(t, "UNKNOWN(-1)", LabelRetcode(-1))
	assert.Equal(t, "UNKNOWN(0)", LabelRetcode(0))
	// 10005 is a gap in the server's numbering.
	assert.Equal(t, "UNKNOWN(10005)", LabelRetcode(10005))
}

func TestRetcodeLabels_NoSyntheticEntries(t *testing.T) {
	for code, label := range retcodeLabels {
		assert.NotEmpty(t, label, "code %d has an empty label", code)
		assert.NotContains(t, label, "UNKNOWN", "code %d carries a synthetic label", code)
	}
}

func TestOrderType_IsPending(t *testing.T) {
	assert.False(t, OrderTypeBuy.IsPending())
	assert.False(t, OrderTypeSell.IsPending())
	assert.True(t, OrderTypeBuyLimit.IsPending())
	assert.True(t, OrderTypeSellLimit.IsPending())
	assert.True(t, OrderTypeBuyStop.IsPending())
	assert.True(t, OrderTypeSellStop.IsPending())
	assert.True(t, OrderTypeBuyStopLimit.IsPending())
	assert.True(t, OrderTypeSellStopLimit.IsPending())
}
