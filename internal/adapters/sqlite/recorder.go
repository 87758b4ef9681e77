package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tradegate/internal/domain"
	"tradegate/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Recorder implements the ports.TradeRecorder and ports.AuditReader
// interfaces using SQLite.
type Recorder struct {
	db     *sql.DB
	logger ports.Logger
	orders *store[domain.OrderRecord]
	deals  *store[domain.DealRecord]
	snaps  *store[domain.PositionSnapshot]
}

// Config holds configuration for the SQLite recorder.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRecorder creates a new SQLite recorder instance.
func NewRecorder(cfg Config) (*Recorder, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite recorder")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/tradegate.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite recorder initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite recorder initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite recorder initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1) // SQLite handles concurrency internally, but Go driver benefits from limiting connections
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	rec := &Recorder{
		db:     db,
		logger: cfg.Logger,
		orders: newStore(db, cfg.Logger, orderRecordSpec()),
		deals:  newStore(db, cfg.Logger, dealRecordSpec()),
		snaps:  newStore(db, cfg.Logger, snapshotSpec()),
	}

	if err := rec.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite recorder initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return rec, nil
}

// initializeSchema creates tables if they don't exist.
// NOTE: This is a basic approach. A proper migration tool is recommended for production.
func (r *Recorder) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id TEXT NOT NULL,
		broker_order INTEGER DEFAULT NULL,
		broker_deal INTEGER DEFAULT NULL,
		ref_ticket INTEGER DEFAULT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		kind TEXT NOT NULL,
		volume REAL NOT NULL,
		requested_price REAL DEFAULT NULL,
		filled_price REAL DEFAULT NULL,
		sl REAL DEFAULT NULL,
		tp REAL DEFAULT NULL,
		sl_dist REAL DEFAULT NULL,
		tp_dist REAL DEFAULT NULL,
		deviation INTEGER NOT NULL,
		retcode INTEGER NOT NULL,
		retcode_label TEXT NOT NULL,
		ret_comment TEXT NOT NULL,
		request_id INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS deals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attempt_id TEXT NOT NULL,
		deal_ticket INTEGER NOT NULL UNIQUE,
		order_ticket INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		volume REAL NOT NULL,
		price REAL NOT NULL,
		profit REAL DEFAULT NULL,
		commission REAL DEFAULT NULL,
		swap REAL DEFAULT NULL,
		deal_time TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS position_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		ticket INTEGER NOT NULL,
		side TEXT NOT NULL,
		volume REAL NOT NULL,
		price_open REAL NOT NULL,
		sl REAL NOT NULL,
		tp REAL NOT NULL,
		profit REAL NOT NULL,
		snapped_at TIMESTAMP NOT NULL
	);
	-- A placement row may carry each broker ticket only once; change rows
	-- (ref_ticket set) repeat the ticket freely.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_broker_order
		ON orders (broker_order) WHERE broker_order IS NOT NULL AND ref_ticket IS NULL;
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_orders_symbol_created_at ON orders (symbol, created_at);
	CREATE INDEX IF NOT EXISTS idx_deals_symbol_deal_time ON deals (symbol, deal_time);
	CREATE INDEX IF NOT EXISTS idx_snapshots_symbol_snapped_at ON position_snapshots (symbol, snapped_at);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Recorder) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- TradeRecorder Implementation ---

// RecordOrder writes the order row and, when given, its paired deal row in
// one transaction. Either both land or neither does.
func (r *Recorder) RecordOrder(ctx context.Context, order *domain.OrderRecord, deal *domain.DealRecord) error {
	if order == nil {
		return fmt.Errorf("cannot record a nil order")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin audit transaction: %w", err)
	}
	if _, err := r.orders.createIn(ctx, tx, order); err != nil {
		_ = tx.Rollback()
		return err
	}
	if deal != nil {
		if _, err := r.deals.createIn(ctx, tx, deal); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit audit transaction: %w", err)
	}

	fields := map[string]interface{}{"orderRecordID": order.ID, "attemptID": order.AttemptID}
	if deal != nil {
		fields["dealRecordID"] = deal.ID
	}
	r.logger.Debug(ctx, "Order attempt recorded", fields)
	return nil
}

// RecordSnapshots writes one row per open position in a single transaction.
// An empty batch writes nothing.
func (r *Recorder) RecordSnapshots(ctx context.Context, snaps []*domain.PositionSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	for _, snap := range snaps {
		if _, err := r.snaps.createIn(ctx, tx, snap); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	r.logger.Debug(ctx, "Position snapshots recorded", map[string]interface{}{"count": len(snaps)})
	return nil
}

// --- AuditReader Implementation ---

// OrderRecords exposes the order attempt rows.
func (r *Recorder) OrderRecords() ports.Store[domain.OrderRecord] { return r.orders }

// DealRecords exposes the deal rows.
func (r *Recorder) DealRecords() ports.Store[domain.DealRecord] { return r.deals }

// Snapshots exposes the position snapshot rows.
func (r *Recorder) Snapshots() ports.Store[domain.PositionSnapshot] { return r.snaps }
