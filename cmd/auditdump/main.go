package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"text/tabwriter"

	"tradegate/internal/adapters/logger"
	"tradegate/internal/adapters/postgres"
	"tradegate/internal/adapters/sqlite"
	"tradegate/internal/ports"
	"tradegate/internal/utils"
)

// auditdump lists the recorded trading attempts from the audit store.
//
//	auditdump -table orders -symbol XAUUSD -limit 20
//	auditdump -dsn postgres://... -table deals -csv deals.csv
func main() {
	dbPath := flag.String("db", "./data/tradegate.db", "SQLite audit database path")
	dsn := flag.String("dsn", "", "Postgres connection string, overrides -db")
	table := flag.String("table", "orders", "table to dump: orders, deals or snapshots")
	symbol := flag.String("symbol", "", "filter by symbol, empty for all")
	limit := flag.Int("limit", 50, "max rows, 0 for all")
	csvPath := flag.String("csv", "", "write the rows to this CSV file instead of stdout")
	flag.Parse()

	ctx := context.Background()
	// Only surface store problems; row output goes to stdout.
	appLogger := logger.NewStdLogger(logger.LevelWarn)

	var reader ports.AuditReader
	if *dsn != "" {
		rec, err := postgres.NewRecorder(ctx, postgres.Config{DSN: *dsn, Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to open Postgres audit store: %v", err)
		}
		defer rec.Close()
		reader = rec
	} else {
		rec, err := sqlite.NewRecorder(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
		if err != nil {
			log.Fatalf("FATAL: Failed to open SQLite audit store: %v", err)
		}
		defer rec.Close()
		reader = rec
	}

	query := ports.ListQuery{Symbol: *symbol, Limit: *limit}
	switch *table {
	case "orders":
		dumpOrders(ctx, reader, query, *csvPath)
	case "deals":
		dumpDeals(ctx, reader, query, *csvPath)
	case "snapshots":
		dumpSnapshots(ctx, reader, query, *csvPath)
	default:
		log.Fatalf("FATAL: Unknown table %q, want orders, deals or snapshots", *table)
	}
}

func dumpOrders(ctx context.Context, reader ports.AuditReader, q ports.ListQuery, csvPath string) {
	records, err := reader.OrderRecords().List(ctx, q)
	if err != nil {
		log.Fatalf("FATAL: Failed to list order records: %v", err)
	}
	if csvPath != "" {
		if err := utils.WriteOrderRecordsToCSV(records, csvPath); err != nil {
			log.Fatalf("FATAL: Failed to write CSV: %v", err)
		}
		fmt.Printf("Wrote %d order records to %s\n", len(records), csvPath)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tATTEMPT\tKIND\tSYMBOL\tSIDE\tVOLUME\tORDER\tREF\tRETCODE\tLABEL\tPRICE\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			r.ID,
			shortID(r.AttemptID),
			r.Kind,
			dash(r.Symbol),
			dash(string(r.Side)),
			formatVolume(r.Volume),
			r.BrokerOrder,
			r.RefTicket,
			r.Retcode,
			r.RetcodeLabel,
			optFloat(r.FilledPrice),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
	fmt.Printf("%d order records\n", len(records))
}

func dumpDeals(ctx context.Context, reader ports.AuditReader, q ports.ListQuery, csvPath string) {
	records, err := reader.DealRecords().List(ctx, q)
	if err != nil {
		log.Fatalf("FATAL: Failed to list deal records: %v", err)
	}
	if csvPath != "" {
		if err := utils.WriteDealRecordsToCSV(records, csvPath); err != nil {
			log.Fatalf("FATAL: Failed to write CSV: %v", err)
		}
		fmt.Printf("Wrote %d deal records to %s\n", len(records), csvPath)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tATTEMPT\tDEAL\tORDER\tSYMBOL\tSIDE\tVOLUME\tPRICE\tPROFIT\tTIME")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			shortID(r.AttemptID),
			r.DealTicket,
			r.OrderTicket,
			r.Symbol,
			r.Side,
			formatVolume(r.Volume),
			strconv.FormatFloat(r.Price, 'f', -1, 64),
			optFloat(r.Profit),
			r.Time.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
	fmt.Printf("%d deal records\n", len(records))
}

func dumpSnapshots(ctx context.Context, reader ports.AuditReader, q ports.ListQuery, csvPath string) {
	snaps, err := reader.Snapshots().List(ctx, q)
	if err != nil {
		log.Fatalf("FATAL: Failed to list position snapshots: %v", err)
	}
	if csvPath != "" {
		if err := utils.WriteSnapshotsToCSV(snaps, csvPath); err != nil {
			log.Fatalf("FATAL: Failed to write CSV: %v", err)
		}
		fmt.Printf("Wrote %d snapshots to %s\n", len(snaps), csvPath)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTICKET\tSYMBOL\tSIDE\tVOLUME\tOPEN\tSL\tTP\tPROFIT\tSNAPPED")
	for _, s := range snaps {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID,
			s.Ticket,
			s.Symbol,
			s.Side,
			formatVolume(s.Volume),
			strconv.FormatFloat(s.PriceOpen, 'f', -1, 64),
			strconv.FormatFloat(s.SL, 'f', -1, 64),
			strconv.FormatFloat(s.TP, 'f', -1, 64),
			strconv.FormatFloat(s.Profit, 'f', -1, 64),
			s.SnappedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
	fmt.Printf("%d snapshots\n", len(snaps))
}

// shortID trims an attempt UUID down to its first block for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return dash(id)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatVolume(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
