package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tradegate/internal/domain"
	"tradegate/internal/ports"
)

// tableSpec describes how a record type maps onto its table. The insert
// column list and the values function must stay aligned; scan reads back
// id, the insert columns and, when present, the server-assigned created
// column, in that order.
type tableSpec[T any] struct {
	table      string
	symbolCol  string
	createdCol string // empty when the record carries its own timestamps
	columns    []string
	values     func(rec *T) []interface{}
	scan       func(s scanner, rec *T) error
	id         func(rec *T) int64
	setID      func(rec *T, id int64)
}

func (sp *tableSpec[T]) selectColumns() string {
	cols := append([]string{"id"}, sp.columns...)
	if sp.createdCol != "" {
		cols = append(cols, sp.createdCol)
	}
	return strings.Join(cols, ", ")
}

// store implements ports.Store for one table.
type store[T any] struct {
	db     *sql.DB
	logger ports.Logger
	spec   tableSpec[T]
}

func newStore[T any](db *sql.DB, logger ports.Logger, spec tableSpec[T]) *store[T] {
	return &store[T]{db: db, logger: logger, spec: spec}
}

// execer is satisfied by both *sql.DB and *sql.Tx so inserts can join an
// enclosing transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Create saves a new record and returns its assigned ID.
func (s *store[T]) Create(ctx context.Context, rec *T) (int64, error) {
	return s.createIn(ctx, s.db, rec)
}

func (s *store[T]) createIn(ctx context.Context, ex execer, rec *T) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("cannot store a nil %s record", s.spec.table)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.spec.table, strings.Join(s.spec.columns, ", "), placeholders(len(s.spec.columns)))

	result, err := ex.ExecContext(ctx, query, s.spec.values(rec)...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", s.spec.table, mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for %s: %w", s.spec.table, err)
	}
	s.spec.setID(rec, id)
	s.logger.Debug(ctx, "Audit record created", map[string]interface{}{"table": s.spec.table, "id": id})
	return id, nil
}

// Get retrieves a record by its ID, or nil when no such row exists.
func (s *store[T]) Get(ctx context.Context, id int64) (*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", s.spec.selectColumns(), s.spec.table)

	rec := new(T)
	if err := s.spec.scan(s.db.QueryRowContext(ctx, query, id), rec); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not an error, just not found
		}
		return nil, fmt.Errorf("failed to query %s by ID %d: %w", s.spec.table, id, err)
	}
	return rec, nil
}

// List retrieves records newest first, optionally filtered by symbol.
func (s *store[T]) List(ctx context.Context, q ports.ListQuery) ([]*T, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", s.spec.selectColumns(), s.spec.table)
	args := make([]interface{}, 0, 2)
	if q.Symbol != "" {
		query += fmt.Sprintf(" WHERE %s = ?", s.spec.symbolCol)
		args = append(args, q.Symbol)
	}
	query += " ORDER BY id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", s.spec.table, err)
	}
	defer rows.Close()

	records := make([]*T, 0)
	for rows.Next() {
		rec := new(T)
		if err := s.spec.scan(rows, rec); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", s.spec.table, err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", s.spec.table, err)
	}
	return records, nil
}

// Update rewrites an existing record based on its ID.
func (s *store[T]) Update(ctx context.Context, rec *T) error {
	if rec == nil {
		return fmt.Errorf("cannot update a nil %s record", s.spec.table)
	}
	id := s.spec.id(rec)
	sets := make([]string, len(s.spec.columns))
	for i, col := range s.spec.columns {
		sets[i] = col + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", s.spec.table, strings.Join(sets, ", "))

	result, err := s.db.ExecContext(ctx, query, append(s.spec.values(rec), id)...)
	if err != nil {
		return fmt.Errorf("failed to update %s ID %d: %w", s.spec.table, id, mapSQLiteError(err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s ID %d: %w", s.spec.table, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s ID %d not found for update: %w", s.spec.table, id, ports.ErrRecordNotFound)
	}
	return nil
}

// Delete removes a record by its ID.
func (s *store[T]) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.spec.table)

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s ID %d: %w", s.spec.table, id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for %s ID %d: %w", s.spec.table, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s ID %d not found for delete: %w", s.spec.table, id, ports.ErrRecordNotFound)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// --- Table Specs ---

func orderRecordSpec() tableSpec[domain.OrderRecord] {
	return tableSpec[domain.OrderRecord]{
		table:      "orders",
		symbolCol:  "symbol",
		createdCol: "created_at",
		columns: []string{
			"attempt_id", "broker_order", "broker_deal", "ref_ticket", "symbol", "side", "kind",
			"volume", "requested_price", "filled_price", "sl", "tp", "sl_dist", "tp_dist",
			"deviation", "retcode", "retcode_label", "ret_comment", "request_id",
		},
		values: func(rec *domain.OrderRecord) []interface{} {
			return []interface{}{
				rec.AttemptID, nullInt(rec.BrokerOrder), nullInt(rec.BrokerDeal), nullInt(rec.RefTicket),
				rec.Symbol, string(rec.Side), rec.Kind,
				rec.Volume, nullFloat(rec.RequestedPrice), nullFloat(rec.FilledPrice),
				nullFloat(rec.SL), nullFloat(rec.TP), nullFloat(rec.SLDistance), nullFloat(rec.TPDistance),
				rec.Deviation, rec.Retcode, rec.RetcodeLabel, rec.RetComment, rec.RequestID,
			}
		},
		scan: func(s scanner, rec *domain.OrderRecord) error {
			var (
				brokerOrder, brokerDeal, refTicket          sql.NullInt64
				side                                        string
				requestedPrice, filledPrice                 sql.NullFloat64
				slPrice, tpPrice, slDistance, tpDistance    sql.NullFloat64
			)
			err := s.Scan(
				&rec.ID, &rec.AttemptID, &brokerOrder, &brokerDeal, &refTicket, &rec.Symbol, &side, &rec.Kind,
				&rec.Volume, &requestedPrice, &filledPrice, &slPrice, &tpPrice, &slDistance, &tpDistance,
				&rec.Deviation, &rec.Retcode, &rec.RetcodeLabel, &rec.RetComment, &rec.RequestID, &rec.CreatedAt)
			if err != nil {
				return err // Handle sql.ErrNoRows in the caller
			}
			rec.BrokerOrder = brokerOrder.Int64
			rec.BrokerDeal = brokerDeal.Int64
			rec.RefTicket = refTicket.Int64
			rec.Side = domain.OrderSide(side)
			rec.RequestedPrice = floatPtr(requestedPrice)
			rec.FilledPrice = floatPtr(filledPrice)
			rec.SL = floatPtr(slPrice)
			rec.TP = floatPtr(tpPrice)
			rec.SLDistance = floatPtr(slDistance)
			rec.TPDistance = floatPtr(tpDistance)
			return nil
		},
		id:    func(rec *domain.OrderRecord) int64 { return rec.ID },
		setID: func(rec *domain.OrderRecord, id int64) { rec.ID = id },
	}
}

func dealRecordSpec() tableSpec[domain.DealRecord] {
	return tableSpec[domain.DealRecord]{
		table:      "deals",
		symbolCol:  "symbol",
		createdCol: "created_at",
		columns: []string{
			"attempt_id", "deal_ticket", "order_ticket", "symbol", "side",
			"volume", "price", "profit", "commission", "swap", "deal_time",
		},
		values: func(rec *domain.DealRecord) []interface{} {
			return []interface{}{
				rec.AttemptID, rec.DealTicket, rec.OrderTicket, rec.Symbol, string(rec.Side),
				rec.Volume, rec.Price, nullFloat(rec.Profit), nullFloat(rec.Commission), nullFloat(rec.Swap), rec.Time,
			}
		},
		scan: func(s scanner, rec *domain.DealRecord) error {
			var (
				side                     string
				profit, commission, swap sql.NullFloat64
			)
			err := s.Scan(
				&rec.ID, &rec.AttemptID, &rec.DealTicket, &rec.OrderTicket, &rec.Symbol, &side,
				&rec.Volume, &rec.Price, &profit, &commission, &swap, &rec.Time, &rec.CreatedAt)
			if err != nil {
				return err // Handle sql.ErrNoRows in the caller
			}
			rec.Side = domain.OrderSide(side)
			rec.Profit = floatPtr(profit)
			rec.Commission = floatPtr(commission)
			rec.Swap = floatPtr(swap)
			return nil
		},
		id:    func(rec *domain.DealRecord) int64 { return rec.ID },
		setID: func(rec *domain.DealRecord, id int64) { rec.ID = id },
	}
}

func snapshotSpec() tableSpec[domain.PositionSnapshot] {
	return tableSpec[domain.PositionSnapshot]{
		table:     "position_snapshots",
		symbolCol: "symbol",
		columns: []string{
			"symbol", "ticket", "side", "volume", "price_open", "sl", "tp", "profit", "snapped_at",
		},
		values: func(rec *domain.PositionSnapshot) []interface{} {
			return []interface{}{
				rec.Symbol, rec.Ticket, string(rec.Side), rec.Volume,
				rec.PriceOpen, rec.SL, rec.TP, rec.Profit, rec.SnappedAt,
			}
		},
		scan: func(s scanner, rec *domain.PositionSnapshot) error {
			var side string
			err := s.Scan(
				&rec.ID, &rec.Symbol, &rec.Ticket, &side, &rec.Volume,
				&rec.PriceOpen, &rec.SL, &rec.TP, &rec.Profit, &rec.SnappedAt)
			if err != nil {
				return err // Handle sql.ErrNoRows in the caller
			}
			rec.Side = domain.OrderSide(side)
			return nil
		},
		id:    func(rec *domain.PositionSnapshot) int64 { return rec.ID },
		setID: func(rec *domain.PositionSnapshot, id int64) { rec.ID = id },
	}
}

// --- Scan Helpers ---

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func nullInt(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
