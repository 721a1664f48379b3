package dataset

import (
	"slices"
	"strings"
	"time"

	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01",
	"Jan 2006",
	"January 2006",
}

// Spreadsheet serial dates fall in this range (1900-01-01 .. 9999-12-31).
const (
	minSerialDate = 1
	maxSerialDate = 2958465
)

// coerce applies the descriptor's defaults and column types to t.
// A cell that fails to parse becomes null; rows are never dropped.
func coerce(t *table.Table, d Descriptor) *table.Table {
	for col, def := range d.Defaults {
		t = t.WithColumn(col, func(r table.Row) table.Value {
			v := r.Get(col)
			if v.IsNull() || strings.TrimSpace(v.Str()) == "" {
				return table.String(def)
			}
			return v
		})
	}
	for _, col := range d.KeyColumns {
		if t.HasColumn(col) {
			t = t.WithColumn(col, func(r table.Row) table.Value { return normaliseKey(r.Get(col)) })
		}
	}
	for _, col := range d.DateColumns {
		if !t.HasColumn(col) {
			continue
		}
		period := slices.Contains(d.PeriodColumns, col)
		t = t.WithColumn(col, func(r table.Row) table.Value {
			v := parseDate(r.Get(col))
			if period {
				if tm, ok := v.Time(); ok {
					return table.Date(time.Date(tm.Year(), tm.Month(), 1, 0, 0, 0, 0, time.UTC))
				}
			}
			return v
		})
	}
	for _, col := range d.NumericColumns {
		if t.HasColumn(col) {
			t = t.WithColumn(col, func(r table.Row) table.Value { return parseNumber(r.Get(col)) })
		}
	}
	return t
}

// normaliseKey trims key cells and renders integral numbers without a
// fractional part, so "4000.0", " 4000" and 4000 all join as "4000".
func normaliseKey(v table.Value) table.Value {
	switch v.Kind() {
	case table.KindNull:
		return v
	case table.KindNumber:
		d, _ := v.Decimal()
		return table.String(keyText(d))
	default:
		s := strings.TrimSpace(v.Str())
		if s == "" {
			return table.Null()
		}
		if d, err := decimal.NewFromString(s); err == nil && d.Equal(d.Truncate(0)) {
			return table.String(keyText(d))
		}
		return table.String(s)
	}
}

func keyText(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.String()
}

// parseDate turns a cell into a UTC date, or null when it cannot be read.
func parseDate(v table.Value) table.Value {
	switch v.Kind() {
	case table.KindDate:
		return v
	case table.KindNumber:
		d, _ := v.Decimal()
		return serialDate(d)
	case table.KindString:
		s := strings.TrimSpace(v.Str())
		for _, layout := range dateLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return table.Date(tm.UTC())
			}
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return serialDate(d)
		}
	}
	return table.Null()
}

func serialDate(d decimal.Decimal) table.Value {
	f := d.InexactFloat64()
	if f < minSerialDate || f > maxSerialDate {
		return table.Null()
	}
	tm, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return table.Null()
	}
	return table.Date(time.Date(tm.Year(), tm.Month(), tm.Day(), 0, 0, 0, 0, time.UTC))
}

// parseNumber turns a cell into a decimal. It accepts currency symbols,
// thousands separators, accounting parentheses for negatives and a trailing
// percent sign (which divides by 100). Anything else is null.
func parseNumber(v table.Value) table.Value {
	switch v.Kind() {
	case table.KindNumber:
		return v
	case table.KindString:
		if d, ok := ParseDecimal(v.Str()); ok {
			return table.Number(d)
		}
	}
	return table.Null()
}

// ParseDecimal is the lenient numeric parser used for numeric columns.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		neg = !neg
		s = strings.TrimSpace(s[1:])
	}
	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if percent {
		d = d.Shift(-2)
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}
