package http

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Money formats amounts for display in one currency and locale.
type Money struct {
	printer *message.Printer
	symbol  string
	scale   int
}

func NewMoney(code, locale string) (Money, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Money{}, fmt.Errorf("parse currency %q: %w", code, err)
	}
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return Money{}, fmt.Errorf("parse locale %q: %w", locale, err)
	}
	p := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	return Money{
		printer: p,
		symbol:  p.Sprint(currency.Symbol(unit)),
		scale:   scale,
	}, nil
}

// Format renders v with the currency symbol, locale grouping and the
// currency's standard number of decimals.
func (m Money) Format(v float64) string {
	if m.printer == nil {
		return fmt.Sprintf("%.2f", v)
	}
	return m.symbol + " " + m.printer.Sprint(number.Decimal(v, number.Scale(m.scale)))
}
