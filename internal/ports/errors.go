package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying terminal and storage errors with these so
// callers can branch with errors.Is without knowing the engine behind the
// port.
var (
	// Gateway Errors
	ErrNotConnected       = errors.New("terminal session is not connected")
	ErrSymbolNotAvailable = errors.New("symbol is not available on this account")
	ErrNoQuote            = errors.New("no current quote for symbol")
	ErrInvalidRequest     = errors.New("invalid request parameters")
	ErrPositionNotFound   = errors.New("position not found at the broker")
	ErrOrderNotFound      = errors.New("pending order not found at the broker")

	// ErrBrokerRejected classifies a present-but-negative broker result for
	// callers that want an error view of it. Gateways never return it on
	// their own: a rejection is a normal OrderResult.
	ErrBrokerRejected = errors.New("broker rejected the trade request")

	// Audit Store Errors
	// ErrPersistenceFailure marks an audit write that failed after the
	// broker already acted. It travels alongside the broker outcome and
	// never replaces it.
	ErrPersistenceFailure = errors.New("audit write failed after broker action")
	ErrDuplicateRecord    = errors.New("audit record already exists")
	ErrRecordNotFound     = errors.New("audit record not found")
)
