package statements

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/craftbits/executive-portal/internal/aggregate"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// BuildCashflow pivots cashflow items by period and item type and walks the
// periods in ascending order. A period with a non-zero Opening Cash resets the
// running balance to that value before its net flow is added; every other
// item type is an additive flow.
//
// More than one Opening Cash entry in the window is reported as a warning:
// entries in the same period are summed and each later period resets history.
func BuildCashflow(items *table.Table, w aggregate.Window) (models.CashflowStatement, error) {
	var out models.CashflowStatement

	rows := aggregate.FilterPeriods(items, models.ColPeriodLower, w)
	if rows.Len() == 0 {
		return out, fmt.Errorf("cashflow %s: %w", w, ErrNoData)
	}

	pivot, err := aggregate.Pivot(rows, []string{models.ColPeriodLower}, models.ColItemType, models.ColAmount)
	if err != nil {
		return out, err
	}
	for _, c := range pivot.Columns() {
		if c != models.ColPeriodLower {
			out.ItemTypes = append(out.ItemTypes, c)
		}
	}

	current := decimal.Zero
	for _, row := range pivot.Rows() {
		d, _ := row.Get(models.ColPeriodLower).Time()
		p := models.CashflowPeriod{
			Period: models.MonthOf(d),
			Flows:  make(map[string]decimal.Decimal, len(out.ItemTypes)),
		}
		for _, item := range out.ItemTypes {
			amount := row.Get(item).DecimalOrZero()
			p.Flows[item] = amount
			if item == models.ItemTypeOpeningCash {
				p.OpeningCash = amount
				continue
			}
			p.NetCashExclOpening = p.NetCashExclOpening.Add(amount)
		}

		if !p.OpeningCash.IsZero() {
			current = p.OpeningCash
			p.Reset = true
		}
		current = current.Add(p.NetCashExclOpening)
		p.EndingCash = current
		out.Periods = append(out.Periods, p)
	}

	out.Warnings = openingWarnings(rows)
	return out, nil
}

func openingWarnings(rows *table.Table) []string {
	openings := rows.Filter(func(r table.Row) bool {
		return r.Str(models.ColItemType) == models.ItemTypeOpeningCash && !r.Get(models.ColAmount).IsNull()
	})
	if openings.Len() < 2 {
		return nil
	}

	counts := make(map[models.Month]int)
	for _, row := range openings.Rows() {
		d, _ := row.Get(models.ColPeriodLower).Time()
		counts[models.MonthOf(d)]++
	}
	periods := make([]models.Month, 0, len(counts))
	for m := range counts {
		periods = append(periods, m)
	}
	slices.SortFunc(periods, func(a, b models.Month) int { return a.Time().Compare(b.Time()) })

	var warnings []string
	labels := make([]string, len(periods))
	for i, m := range periods {
		labels[i] = m.String()
		if counts[m] > 1 {
			warnings = append(warnings, fmt.Sprintf(
				"%s has %d %s entries; their sum was used as the opening balance",
				m, counts[m], models.ItemTypeOpeningCash))
		}
	}
	if len(periods) > 1 {
		warnings = append(warnings, fmt.Sprintf(
			"%s appears in %d periods (%s); the running balance resets at each",
			models.ItemTypeOpeningCash, len(periods), strings.Join(labels, ", ")))
	}
	return warnings
}

// Runway averages the net cash flow (excluding opening balances) over the
// last lookback periods, scales it by (1 + burnAdjustPct) and divides the
// final ending cash by the resulting burn. A non-negative adjusted net gives
// the infinite runway sentinel. A lookback longer than the statement uses
// every period.
func Runway(stmt models.CashflowStatement, lookback int, burnAdjustPct float64) (models.Runway, error) {
	out := models.Runway{Lookback: lookback, BurnAdjustPct: burnAdjustPct}
	if lookback < 1 {
		return out, fmt.Errorf("runway lookback %d: %w", lookback, ErrInvalidLookback)
	}
	if len(stmt.Periods) == 0 {
		return out, fmt.Errorf("runway: %w", ErrNoData)
	}

	n := min(lookback, len(stmt.Periods))
	out.Lookback = n
	total := decimal.Zero
	for _, p := range stmt.Periods[len(stmt.Periods)-n:] {
		total = total.Add(p.NetCashExclOpening)
	}
	out.MonthlyNet = total.Div(decimal.NewFromInt(int64(n)))
	out.AdjustedMonthlyNet = out.MonthlyNet.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(burnAdjustPct)))
	out.EndingCash = stmt.EndingCash()

	if out.AdjustedMonthlyNet.IsNegative() {
		out.Months = out.EndingCash.Div(out.AdjustedMonthlyNet.Abs()).InexactFloat64()
	} else {
		out.Months = math.Inf(1)
	}
	return out, nil
}

// CashPosition reports cash through a cutoff month: the latest Opening Cash
// entry by date plus every other flow up to the cutoff.
func CashPosition(items *table.Table, through models.Month) (models.CashPosition, error) {
	out := models.CashPosition{Through: through}

	rows := aggregate.YearToDate(items, models.ColPeriodLower, through)
	if rows.Len() == 0 {
		return out, fmt.Errorf("cash position through %s: %w", through, ErrNoData)
	}

	openings := rows.Filter(func(r table.Row) bool {
		return r.Str(models.ColItemType) == models.ItemTypeOpeningCash
	}).SortBy(models.ColDateLower)
	if n := openings.Len(); n > 0 {
		out.OpeningCash = openings.Row(n - 1).Get(models.ColAmount).DecimalOrZero()
	}

	for _, row := range rows.Rows() {
		if row.Str(models.ColItemType) != models.ItemTypeOpeningCash {
			out.OtherFlows = out.OtherFlows.Add(row.Get(models.ColAmount).DecimalOrZero())
		}
	}
	out.EndingCash = out.OpeningCash.Add(out.OtherFlows)
	return out, nil
}
