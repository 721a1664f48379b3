package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month, stored as its first day at 00:00 UTC.
// The zero Month means "unset".
type Month struct {
	t time.Time
}

var monthLayouts = []string{
	"2006-01",
	"2006-01-02",
	"Jan 2006",
	"January 2006",
	"01/2006",
}

// MonthOf truncates t to its month.
func MonthOf(t time.Time) Month {
	if t.IsZero() {
		return Month{}
	}
	return Month{t: time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)}
}

// NewMonth builds a Month from a year and month number.
func NewMonth(year int, month time.Month) Month {
	return Month{t: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// ParseMonth parses "2024-01", "2024-01-15", "Jan 2024", "January 2024" or "01/2024".
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthOf(t), nil
		}
	}
	return Month{}, fmt.Errorf("invalid month %q: expected YYYY-MM", s)
}

// Time returns the first instant of the month.
func (m Month) Time() time.Time { return m.t }

// IsZero reports whether the month is unset.
func (m Month) IsZero() bool { return m.t.IsZero() }

// Before reports whether m is strictly before o.
func (m Month) Before(o Month) bool { return m.t.Before(o.t) }

// AddMonths shifts the month by n.
func (m Month) AddMonths(n int) Month { return Month{t: m.t.AddDate(0, n, 0)} }

// String returns "YYYY-MM".
func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return m.t.Format("2006-01")
}

// Label returns the display form, e.g. "Jan 2024".
func (m Month) Label() string {
	if m.IsZero() {
		return ""
	}
	return m.t.Format("Jan 2006")
}

// MarshalJSON renders "YYYY-MM", or null for the zero month.
func (m Month) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts null or any layout ParseMonth understands.
func (m *Month) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Month{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to unmarshal month: %w", err)
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
