// Package statements builds the derived financial reports: profit and loss,
// cash walk and runway, scenario projections, exit valuation, risk flags and
// the portfolio summaries. Every builder is a pure function of the tables it
// is given and never modifies them.
package statements

import "errors"

var (
	// ErrNoData is returned when the selected window or filter leaves nothing to report on.
	ErrNoData = errors.New("no data for the selected period")
	// ErrInvalidLookback is returned for a runway lookback below one period.
	ErrInvalidLookback = errors.New("lookback must be at least one period")
	// ErrInvalidCapRate is returned for a zero or negative cap rate.
	ErrInvalidCapRate = errors.New("cap rate must be greater than zero")
)
