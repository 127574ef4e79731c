package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/artha-erp/artha-erp/internal/ledger"
	"github.com/artha-erp/artha-erp/internal/reconcile"
)

func TestWriteExpenseGridCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExpenseGridCSV(&buf, []ledger.ExpenseGridCell{
		{Period: "2026-01", Source: "RAB", Total: 1250000},
		{Period: "2026-02", Source: "PETTY", Total: 40000},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"Period", "Source", "Total"}, rows[0])
	require.Equal(t, []string{"2026-01", "RAB", "1250000.00"}, rows[1])
}

func TestWriteShareholderBalancesCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteShareholderBalancesCSV(&buf, []ledger.ShareholderFlow{
		{ShareholderID: 3, Allocated: 500000, Contributed: 500000, Spent: 420000, Balance: 80000},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "80000.00", rows[1][4])
	require.Contains(t, rows[1][5], "Rp")
}

func TestWritePOPaymentsCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WritePOPaymentsCSV(&buf, []reconcile.POBalance{
		{POID: 7, Subtotal: 1000, Total: 1110, Paid: 700, Remaining: 410, Status: reconcile.StatusPartial},
	})
	require.NoError(t, err)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "410.00", rows[1][4])
	require.Equal(t, string(reconcile.StatusPartial), rows[1][6])
}

func TestFormatIDRGrouping(t *testing.T) {
	out := FormatIDR(1250000)
	require.True(t, strings.HasPrefix(out, "Rp"))
	require.Contains(t, out, "1.250.000")
}
