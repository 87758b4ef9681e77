package ports

import (
	"context"

	"tradegate/internal/domain"
)

// ListQuery narrows a Store listing.
type ListQuery struct {
	Symbol string // empty matches all symbols
	Limit  int    // 0 or negative means no limit
}

// Store is the generic CRUD surface over one audit record shape. Storage
// engines implement it once and instantiate it per table.
type Store[T any] interface {
	// Create inserts the record, assigns its ID and returns it.
	Create(ctx context.Context, rec *T) (int64, error)
	// Get retrieves a record by ID. Returns nil, nil when absent.
	Get(ctx context.Context, id int64) (*T, error)
	// List retrieves records newest-first.
	List(ctx context.Context, q ListQuery) ([]*T, error)
	// Update rewrites the record's mutable columns. Returns
	// ErrRecordNotFound when the ID does not exist.
	Update(ctx context.Context, rec *T) error
	// Delete removes a record by ID. Returns ErrRecordNotFound when the
	// ID does not exist.
	Delete(ctx context.Context, id int64) error
}

// TradeRecorder persists the audit trail of trading attempts.
type TradeRecorder interface {
	// RecordOrder appends an order row and, when deal is non-nil, its
	// paired deal row. Both rows commit in the same transaction or not at
	// all.
	RecordOrder(ctx context.Context, rec *domain.OrderRecord, deal *domain.DealRecord) error

	// RecordSnapshots appends one row per captured position. An empty
	// slice writes nothing and returns nil.
	RecordSnapshots(ctx context.Context, snaps []*domain.PositionSnapshot) error

	// Close releases the underlying store.
	Close() error
}

// AuditReader exposes the typed record stores for inspection tooling.
type AuditReader interface {
	OrderRecords() Store[domain.OrderRecord]
	DealRecords() Store[domain.DealRecord]
	Snapshots() Store[domain.PositionSnapshot]
}
