package table

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical text form of date cells.
const DateLayout = "2006-01-02"

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	default:
		return "null"
	}
}

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	date time.Time
}

// Null returns the null cell.
func Null() Value { return Value{} }

// String returns a text cell.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric cell.
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }

// Int returns a numeric cell holding i.
func Int(i int64) Value { return Number(decimal.NewFromInt(i)) }

// Float returns a numeric cell holding f.
func Float(f float64) Value { return Number(decimal.NewFromFloat(f)) }

// Date returns a date cell.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Kind reports the type of the cell.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the text form of the cell. Null cells render as "".
func (v Value) Str() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindDate:
		return v.date.Format(DateLayout)
	default:
		return ""
	}
}

// Decimal returns the numeric content of the cell.
// ok is false for anything but a number cell.
func (v Value) Decimal() (d decimal.Decimal, ok bool) {
	if v.kind != KindNumber {
		return decimal.Zero, false
	}
	return v.num, true
}

// DecimalOrZero returns the numeric content, treating non-numbers as zero.
func (v Value) DecimalOrZero() decimal.Decimal {
	d, _ := v.Decimal()
	return d
}

// Time returns the date content of the cell.
func (v Value) Time() (t time.Time, ok bool) {
	if v.kind != KindDate {
		return time.Time{}, false
	}
	return v.date, true
}

// Key returns a string that is equal for two cells iff they hold the same
// kind and value. Numbers compare by value, so 1 and 1.00 share a key.
func (v Value) Key() string {
	switch v.kind {
	case KindString:
		return "s:" + v.str
	case KindNumber:
		return "n:" + v.num.String()
	case KindDate:
		return "d:" + v.date.UTC().Format(time.RFC3339Nano)
	default:
		return "0:"
	}
}

// Equal reports whether two cells hold the same kind and value.
func (v Value) Equal(o Value) bool { return Compare(v, o) == 0 }

// MarshalJSON renders null, strings, numbers and dates as JSON null,
// strings, numbers and YYYY-MM-DD strings respectively.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindDate:
		return json.Marshal(v.date.Format(DateLayout))
	default:
		return []byte("null"), nil
	}
}

// Compare orders cells: nulls first, then by kind, then by value.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str)
	case KindNumber:
		return a.num.Cmp(b.num)
	case KindDate:
		return a.date.Compare(b.date)
	default:
		return 0
	}
}
