package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"tradegate/config"
	"tradegate/internal/adapters/logger"
	"tradegate/internal/adapters/postgres"
	"tradegate/internal/adapters/sqlite"
	"tradegate/internal/adapters/termclient"
	"tradegate/internal/adapters/termsim"
	"tradegate/internal/app"
	"tradegate/internal/ports"
	"tradegate/internal/termapi"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	var appLogger ports.Logger
	if cfg.LogJSON {
		zapLogger := logger.NewZapLogger(cfg.LogLevel, true)
		defer func() { _ = zapLogger.Sync() }()
		appLogger = zapLogger
	} else {
		appLogger = logger.NewStdLogger(cfg.LogLevel)
	}
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "json": cfg.LogJSON})

	// 3. Initialize Trade Recorder (Audit Store Adapter)
	var recorder ports.TradeRecorder
	if cfg.PostgresDSN != "" {
		recorder, err = postgres.NewRecorder(ctx, postgres.Config{
			DSN:    cfg.PostgresDSN,
			Logger: appLogger,
		})
	} else {
		recorder, err = sqlite.NewRecorder(sqlite.Config{
			DBPath: cfg.DBPath,
			Logger: appLogger,
		})
	}
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade recorder")
		log.Fatalf("FATAL: Failed to initialize trade recorder: %v", err) // Also log to stderr
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing trade recorder")
		}
	}()
	appLogger.Info(ctx, "Trade recorder initialized")

	// 4. Initialize Terminal (Simulated Adapter)
	var catalog *termsim.Catalog
	if cfg.CatalogPath != "" {
		catalog, err = termsim.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to load instrument catalog")
			log.Fatalf("FATAL: Failed to load instrument catalog: %v", err)
		}
	}
	terminal, err := termsim.New(termsim.Config{
		Catalog: catalog, // nil falls back to the built-in demo catalog
		Logger:  appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize simulated terminal")
		log.Fatalf("FATAL: Failed to initialize simulated terminal: %v", err)
	}
	appLogger.Info(ctx, "Simulated terminal initialized")

	// 5. Initialize Gateway Client (Terminal Adapter)
	gateway, err := termclient.New(termclient.Config{
		Terminal: terminal,
		Logger:   appLogger,
		Credentials: termapi.Credentials{
			Login:    cfg.Login,
			Password: cfg.Password,
			Server:   cfg.Server,
			Path:     cfg.TerminalPath,
			Timeout:  cfg.Timeout,
		},
		Deviation: cfg.Deviation,
		Magic:     cfg.Magic,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize gateway client")
		log.Fatalf("FATAL: Failed to initialize gateway client: %v", err)
	}
	if err := gateway.Connect(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to connect to terminal")
		log.Fatalf("FATAL: Failed to connect to terminal: %v", err)
	}
	defer func() {
		if err := gateway.Close(ctx); err != nil {
			appLogger.Error(ctx, err, "Error closing gateway client")
		}
	}()
	appLogger.Info(ctx, "Gateway client connected")

	// 6. Initialize Application Service
	tradingService, err := app.NewTradingService(app.Config{
		Gateway:  gateway,
		Recorder: recorder,
		Logger:   appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(ctx, "Trading service initialized")

	// 7. Run a paper-trading round trip against the simulated terminal
	res, err := tradingService.Buy(ctx, cfg.Symbol, cfg.Volume, app.MarketOpts{
		SLDistance: optDistance(cfg.SLDistance),
		TPDistance: optDistance(cfg.TPDistance),
		Deviation:  cfg.Deviation,
		Magic:      cfg.Magic,
	})
	if err != nil {
		if !errors.Is(err, ports.ErrPersistenceFailure) {
			appLogger.Error(ctx, err, "FATAL: Market order failed")
			log.Fatalf("FATAL: Market order failed: %v", err)
		}
		// The broker already answered; a lost audit row is not worth the session.
		appLogger.Warn(ctx, "Audit write failed, continuing with the broker outcome", map[string]interface{}{"error": err.Error()})
	}
	if err := app.ResultError(res); err != nil {
		appLogger.Error(ctx, err, "FATAL: Market order rejected by broker")
		log.Fatalf("FATAL: Market order rejected by broker: %v", err)
	}
	appLogger.Info(ctx, "Market order executed", map[string]interface{}{
		"order": res.Order, "deal": res.Deal, "price": res.Price, "label": res.Label,
	})

	positions, err := tradingService.SnapshotPositions(ctx, cfg.Symbol)
	if err != nil {
		if !errors.Is(err, ports.ErrPersistenceFailure) {
			appLogger.Error(ctx, err, "FATAL: Failed to read open positions")
			log.Fatalf("FATAL: Failed to read open positions: %v", err)
		}
		appLogger.Warn(ctx, "Snapshot write failed, continuing", map[string]interface{}{"error": err.Error()})
	}
	appLogger.Info(ctx, "Open positions captured", map[string]interface{}{"count": len(positions)})

	if len(positions) > 0 {
		closeRes, err := tradingService.Close(ctx, positions[0].Ticket, nil, cfg.Deviation)
		if err != nil && !errors.Is(err, ports.ErrPersistenceFailure) {
			appLogger.Error(ctx, err, "FATAL: Failed to close position")
			log.Fatalf("FATAL: Failed to close position: %v", err)
		}
		if err := app.ResultError(closeRes); err != nil {
			appLogger.Error(ctx, err, "FATAL: Close rejected by broker")
			log.Fatalf("FATAL: Close rejected by broker: %v", err)
		}
		appLogger.Info(ctx, "Position closed", map[string]interface{}{
			"ticket": positions[0].Ticket, "deal": closeRes.Deal, "price": closeRes.Price,
		})
	}

	account, err := tradingService.Status(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to read account state")
		log.Fatalf("FATAL: Failed to read account state: %v", err)
	}
	appLogger.Info(ctx, "Session summary", map[string]interface{}{
		"login": account.Login, "balance": account.Balance, "equity": account.Equity, "currency": account.Currency,
	})

	appLogger.Info(ctx, "Application finished gracefully.")
}

// optDistance turns a configured distance into an optional stop, nil when
// the distance is disabled.
func optDistance(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
