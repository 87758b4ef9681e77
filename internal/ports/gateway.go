package ports

import (
	"context"

	"tradegate/internal/domain"
)

// Gateway defines the broker-agnostic trading operations the application
// drives. Implementations translate them onto a concrete terminal session
// and normalize every broker response into a domain.OrderResult.
//
// A response that exists but signals rejection is a normal result, not an
// error. Errors are reserved for failures of the operation itself: a dead
// session, an unknown symbol, invalid parameters, a missing ticket.
type Gateway interface {
	// Connect opens the terminal session and verifies an account is
	// attached to it.
	Connect(ctx context.Context) error

	// Close shuts the terminal session down.
	Close(ctx context.Context) error

	// AccountInfo returns the current account state.
	AccountInfo(ctx context.Context) (*domain.Account, error)

	// EnsureSymbol makes the symbol tradable in this session and returns
	// its details.
	EnsureSymbol(ctx context.Context, symbol string) (*domain.SymbolDetails, error)

	// Quote returns the current top-of-book quote for the symbol.
	Quote(ctx context.Context, symbol string) (*domain.Tick, error)

	// MarketOrder executes an immediate buy or sell at the current price.
	MarketOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error)

	// PendingOrder places one of the six pending order kinds.
	PendingOrder(ctx context.Context, req *domain.OrderRequest) (*domain.OrderResult, error)

	// ModifyPositionSLTP replaces the SL/TP attached to an open position.
	// A nil price removes that stop.
	ModifyPositionSLTP(ctx context.Context, ticket int64, sl, tp *float64) (*domain.OrderResult, error)

	// ClosePosition closes an open position at market. A nil volume closes
	// the full position size; deviation 0 means the gateway default.
	ClosePosition(ctx context.Context, ticket int64, volume *float64, deviation int) (*domain.OrderResult, error)

	// CancelOrder removes a working pending order.
	CancelOrder(ctx context.Context, ticket int64) (*domain.OrderResult, error)

	// Positions lists open positions, all of them when symbol is empty.
	Positions(ctx context.Context, symbol string) ([]*domain.Position, error)

	// PendingOrders lists working pending orders, all of them when symbol
	// is empty.
	PendingOrders(ctx context.Context, symbol string) ([]*domain.PendingOrder, error)
}
