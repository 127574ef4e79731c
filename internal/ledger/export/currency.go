package export

import (
	"strconv"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idrPrinter = message.NewPrinter(language.Indonesian)

// FormatIDR renders an amount as a rupiah display string with Indonesian
// digit grouping, e.g. "Rp 1.250.000,00".
func FormatIDR(v float64) string {
	unit, err := currency.ParseISO("IDR")
	if err != nil {
		return "Rp " + strconv.FormatFloat(v, 'f', 2, 64)
	}
	return idrPrinter.Sprint(currency.Symbol(unit.Amount(v)))
}
