// Package termapi defines the wire-level surface of a MetaTrader-style
// trading terminal: the request/result structures, the numeric constants
// the protocol uses, and the Terminal interface a session implements.
//
// The package mirrors the terminal's own conventions. Absent values are
// reported as nil pointers, not errors: an unknown symbol, a missing quote
// and a missing trade response are all nil results with the session
// diagnostic set. Callers that want application-level errors translate at
// a higher layer.
package termapi

import (
	"context"
	"time"
)

// Credentials identifies the account a session attaches to.
type Credentials struct {
	Login    int64
	Password string
	Server   string
	Path     string        // terminal executable path, empty for the default
	Timeout  time.Duration // connect timeout, zero for the terminal default
}

// Terminal is one trading terminal session.
//
// Methods return an error only for transport or session failures. Logical
// absence (unknown symbol, no quote, no trade response) is a nil result
// with a nil error; the reason is retrievable through LastError.
type Terminal interface {
	// Initialize opens the session and logs the account in.
	Initialize(ctx context.Context, creds Credentials) error

	// Shutdown closes the session. Safe to call on a closed session.
	Shutdown(ctx context.Context) error

	// AccountSnapshot returns the attached account state, or nil when no
	// account is attached.
	AccountSnapshot(ctx context.Context) (*AccountSnapshot, error)

	// SymbolSelect shows or hides a symbol in the session's market watch.
	// It returns false when the symbol does not exist on the account.
	SymbolSelect(ctx context.Context, symbol string, enable bool) (bool, error)

	// SymbolInfo returns the symbol's contract specification, or nil when
	// the symbol is unknown.
	SymbolInfo(ctx context.Context, symbol string) (*SymbolSpec, error)

	// SymbolTick returns the symbol's current top-of-book quote, or nil
	// when no quote is available.
	SymbolTick(ctx context.Context, symbol string) (*SymbolTick, error)

	// Positions lists open positions, all of them when symbol is empty.
	Positions(ctx context.Context, symbol string) ([]*PositionInfo, error)

	// Orders lists working pending orders, all of them when symbol is empty.
	Orders(ctx context.Context, symbol string) ([]*PendingInfo, error)

	// OrderSend submits a trade request. A nil result with a nil error
	// means the terminal produced no response at all; the session
	// diagnostic carries the reason.
	OrderSend(ctx context.Context, req *TradeRequest) (*TradeResult, error)

	// LastError returns the session's last diagnostic code and its
	// description.
	LastError(ctx context.Context) (int, string)
}
