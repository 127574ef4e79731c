// Package export serialises ledger views for download.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/artha-erp/artha-erp/internal/ledger"
	"github.com/artha-erp/artha-erp/internal/reconcile"
)

// WriteExpenseGridCSV emits the monthly expense grid as CSV.
func WriteExpenseGridCSV(w io.Writer, cells []ledger.ExpenseGridCell) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Period", "Source", "Total"}); err != nil {
		return err
	}
	for _, cell := range cells {
		if err := writer.Write([]string{cell.Period, cell.Source, formatFloat(cell.Total)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteShareholderBalancesCSV emits per-shareholder flows as CSV.
func WriteShareholderBalancesCSV(w io.Writer, flows []ledger.ShareholderFlow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Shareholder ID", "Allocated", "Contributed", "Spent", "Balance", "Balance (display)"}); err != nil {
		return err
	}
	for _, f := range flows {
		if err := writer.Write([]string{
			strconv.FormatInt(f.ShareholderID, 10),
			formatFloat(f.Allocated),
			formatFloat(f.Contributed),
			formatFloat(f.Spent),
			formatFloat(f.Balance),
			FormatIDR(f.Balance),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WritePOPaymentsCSV emits the PO payment summary as CSV.
func WritePOPaymentsCSV(w io.Writer, balances []reconcile.POBalance) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"PO ID", "Subtotal", "Total", "Paid", "Remaining", "Remaining (display)", "Status"}); err != nil {
		return err
	}
	for _, b := range balances {
		if err := writer.Write([]string{
			strconv.FormatInt(b.POID, 10),
			formatFloat(b.Subtotal),
			formatFloat(b.Total),
			formatFloat(b.Paid),
			formatFloat(b.Remaining),
			FormatIDR(b.Remaining),
			string(b.Status),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
