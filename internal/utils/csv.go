package utils

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"tradegate/internal/domain"
)

func WriteOrderRecordsToCSV(records []*domain.OrderRecord, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{
		"id", "attempt_id", "broker_order", "broker_deal", "ref_ticket", "symbol", "side", "kind",
		"volume", "requested_price", "filled_price", "sl", "tp", "sl_dist", "tp_dist",
		"deviation", "retcode", "retcode_label", "ret_comment", "request_id", "created_at",
	})

	for _, r := range records {
		writer.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.AttemptID,
			strconv.FormatInt(r.BrokerOrder, 10),
			strconv.FormatInt(r.BrokerDeal, 10),
			strconv.FormatInt(r.RefTicket, 10),
			r.Symbol,
			string(r.Side),
			r.Kind,
			strconv.FormatFloat(r.Volume, 'f', -1, 64),
			formatOptFloat(r.RequestedPrice),
			formatOptFloat(r.FilledPrice),
			formatOptFloat(r.SL),
			formatOptFloat(r.TP),
			formatOptFloat(r.SLDistance),
			formatOptFloat(r.TPDistance),
			strconv.Itoa(r.Deviation),
			strconv.Itoa(r.Retcode),
			r.RetcodeLabel,
			r.RetComment,
			strconv.FormatInt(r.RequestID, 10),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return writer.Error()
}

func WriteDealRecordsToCSV(records []*domain.DealRecord, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{
		"id", "attempt_id", "deal_ticket", "order_ticket", "symbol", "side",
		"volume", "price", "profit", "commission", "swap", "deal_time", "created_at",
	})

	for _, r := range records {
		writer.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.AttemptID,
			strconv.FormatInt(r.DealTicket, 10),
			strconv.FormatInt(r.OrderTicket, 10),
			r.Symbol,
			string(r.Side),
			strconv.FormatFloat(r.Volume, 'f', -1, 64),
			strconv.FormatFloat(r.Price, 'f', -1, 64),
			formatOptFloat(r.Profit),
			formatOptFloat(r.Commission),
			formatOptFloat(r.Swap),
			r.Time.Format(time.RFC3339),
			r.CreatedAt.Format(time.RFC3339),
		})
	}
	return writer.Error()
}

func WriteSnapshotsToCSV(snaps []*domain.PositionSnapshot, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{
		"id", "symbol", "ticket", "side", "volume", "price_open", "sl", "tp", "profit", "snapped_at",
	})

	for _, s := range snaps {
		writer.Write([]string{
			strconv.FormatInt(s.ID, 10),
			s.Symbol,
			strconv.FormatInt(s.Ticket, 10),
			string(s.Side),
			strconv.FormatFloat(s.Volume, 'f', -1, 64),
			strconv.FormatFloat(s.PriceOpen, 'f', -1, 64),
			strconv.FormatFloat(s.SL, 'f', -1, 64),
			strconv.FormatFloat(s.TP, 'f', -1, 64),
			strconv.FormatFloat(s.Profit, 'f', -1, 64),
			s.SnappedAt.Format(time.RFC3339),
		})
	}
	return writer.Error()
}

// formatOptFloat renders an optional price, empty when absent.
func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
