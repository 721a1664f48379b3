package statements

import (
	"fmt"
	"slices"

	"github.com/craftbits/executive-portal/internal/aggregate"
	"github.com/craftbits/executive-portal/internal/join"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// SignConvention says how cost lines are signed in the ledger.
type SignConvention string

const (
	// SignLedger: revenue is positive and costs are negative.
	SignLedger SignConvention = "ledger"
	// SignPositive: every line is a positive magnitude.
	SignPositive SignConvention = "positive"
)

// Valid reports whether c is a known convention.
func (c SignConvention) Valid() bool { return c == SignLedger || c == SignPositive }

// cost turns a ledger amount into a positive cost.
func (c SignConvention) cost(d decimal.Decimal) decimal.Decimal {
	if c == SignPositive {
		return d
	}
	return d.Neg()
}

// PnLOptions tunes the P&L builders.
type PnLOptions struct {
	Sign SignConvention
	// Scenario selects GL rows by their scenario tag. Empty means Actual.
	Scenario string
}

func (o PnLOptions) scenario() string {
	if o.Scenario == "" {
		return models.ScenarioActual
	}
	return o.Scenario
}

func (o PnLOptions) sign() SignConvention {
	if o.Sign == "" {
		return SignLedger
	}
	return o.Sign
}

// Derived P&L table columns.
const (
	ColGrossProfit = "gross_profit"
	ColRevenue     = "revenue"
	ColCOGS        = "cogs"
)

// BuildPnL summarises actual and budget P&L over the same window.
//
// GL rows are limited to opts.Scenario; rows whose account has no usable
// classification are totalled into Unclassified instead of any line.
func BuildPnL(gl, budget, coa *table.Table, w aggregate.Window, opts PnLOptions) (models.PnLComparison, error) {
	out := models.PnLComparison{Start: w.Start, End: w.End, Scenario: opts.scenario()}

	actualRows := forScenario(aggregate.FilterPeriods(gl, models.ColPeriodLower, w), opts.scenario())
	actual, err := pnlFigures(actualRows, coa, models.ColAmount, opts.sign())
	if err != nil {
		return out, fmt.Errorf("actual: %w", err)
	}

	budgetRows := aggregate.FilterPeriods(budget, models.ColPeriodLower, w)
	planned, err := pnlFigures(budgetRows, coa, models.ColBudgetAmount, opts.sign())
	if err != nil {
		return out, fmt.Errorf("budget: %w", err)
	}

	out.Actual = actual.PnLFigures
	out.Budget = planned.PnLFigures
	out.Variance = actual.Sub(planned.PnLFigures)
	out.Unclassified = actual.unclassified
	out.UnclassifiedAccounts = actual.unclassifiedAccounts
	return out, nil
}

type classified struct {
	models.PnLFigures
	unclassified         decimal.Decimal
	unclassifiedAccounts []string
}

// pnlFigures is shared by the actual and budget pipelines so both produce
// the same lines from the same classification.
func pnlFigures(rows, coa *table.Table, valueCol string, sign SignConvention) (classified, error) {
	var out classified

	byAccount, err := aggregate.Aggregate(rows, []string{models.ColAccountNumber}, aggregate.Sum(valueCol))
	if err != nil {
		return out, err
	}
	enriched, err := join.Enrich(byAccount, coa, models.ColAccountNumber, models.ColAccountType, models.ColRatioGroup)
	if err != nil {
		return out, err
	}

	for _, row := range enriched.Rows() {
		amount := row.Get(valueCol).DecimalOrZero()
		switch classify(row) {
		case lineRevenue:
			out.Revenue = out.Revenue.Add(amount)
		case lineCOGS:
			out.COGS = out.COGS.Add(sign.cost(amount))
		case lineOpex:
			out.Opex = out.Opex.Add(sign.cost(amount))
		case lineBelow:
			out.BelowTheLine = out.BelowTheLine.Add(sign.cost(amount))
		default:
			out.unclassified = out.unclassified.Add(amount)
			if acct := row.Str(models.ColAccountNumber); acct != "" {
				out.unclassifiedAccounts = append(out.unclassifiedAccounts, acct)
			}
		}
	}

	out.GrossProfit = out.Revenue.Sub(out.COGS)
	out.OperatingProfit = out.GrossProfit.Sub(out.Opex)
	out.NetProfit = out.OperatingProfit.Sub(out.BelowTheLine)
	return out, nil
}

type line uint8

const (
	lineNone line = iota
	lineRevenue
	lineCOGS
	lineOpex
	lineBelow
)

func classify(row table.Row) line {
	switch row.Str(models.ColAccountType) {
	case models.AccountTypeRevenue:
		return lineRevenue
	case models.AccountTypeCOGS:
		return lineCOGS
	case models.AccountTypeExpense:
		switch row.Str(models.ColRatioGroup) {
		case models.RatioGroupOperatingExpenses:
			return lineOpex
		case models.RatioGroupBelowTheLine:
			return lineBelow
		}
	}
	return lineNone
}

// forScenario keeps GL rows tagged with scenario. Tables without a scenario
// column are taken to be all Actual.
func forScenario(gl *table.Table, scenario string) *table.Table {
	if !gl.HasColumn(models.ColScenario) {
		if scenario == models.ScenarioActual {
			return gl
		}
		return gl.Filter(func(table.Row) bool { return false })
	}
	return gl.Filter(func(r table.Row) bool {
		s := r.Str(models.ColScenario)
		return s == scenario || (s == "" && scenario == models.ScenarioActual)
	})
}

// PnLMatrix lays out raw GL amounts as account rows by period columns, with
// the matching budget column after each period when includeBudget is set.
// Accounts come from the GL; budget-only accounts are not shown. Rows are
// ordered by report class, ratio group and account number.
func PnLMatrix(gl, budget, coa *table.Table, w aggregate.Window, opts PnLOptions, includeBudget bool) (models.PnLMatrix, error) {
	out := models.PnLMatrix{Start: w.Start, End: w.End, Scenario: opts.scenario()}

	actualRows := forScenario(aggregate.FilterPeriods(gl, models.ColPeriodLower, w), opts.scenario())
	if actualRows.Len() == 0 {
		return out, fmt.Errorf("p&l matrix %s: %w", w, ErrNoData)
	}
	out.Periods = aggregate.Periods(actualRows, models.ColPeriodLower)

	actual, err := aggregate.Pivot(actualRows, []string{models.ColAccountNumber}, models.ColPeriodLower, models.ColAmount)
	if err != nil {
		return out, err
	}
	enriched, err := join.Enrich(actual, coa, models.ColAccountNumber,
		models.ColAccountName, models.ColReportClass, models.ColRatioGroup)
	if err != nil {
		return out, err
	}

	budgets := make(map[string]table.Row)
	if includeBudget {
		budgetRows := aggregate.FilterPeriods(budget, models.ColPeriodLower, w)
		pivot, err := aggregate.Pivot(budgetRows, []string{models.ColAccountNumber}, models.ColPeriodLower, models.ColBudgetAmount)
		if err != nil {
			return out, err
		}
		for _, row := range pivot.Rows() {
			budgets[row.Get(models.ColAccountNumber).Key()] = row
		}
	}

	columns := []string{models.ColReportClass, models.ColRatioGroup, models.ColAccountNumber, models.ColAccountName}
	for _, p := range out.Periods {
		columns = append(columns, p.Label())
		if includeBudget {
			columns = append(columns, p.Label()+" (Budget)")
		}
	}

	zero := table.Number(decimal.Zero)
	b := table.NewBuilder(columns...)
	for _, row := range enriched.Rows() {
		vals := []table.Value{
			row.Get(models.ColReportClass),
			row.Get(models.ColRatioGroup),
			row.Get(models.ColAccountNumber),
			row.Get(models.ColAccountName),
		}
		planned, hasBudget := budgets[row.Get(models.ColAccountNumber).Key()]
		for _, p := range out.Periods {
			key := periodColumn(p)
			vals = append(vals, row.Get(key))
			if includeBudget {
				v := zero
				if hasBudget && planned.Get(key).Kind() == table.KindNumber {
					v = planned.Get(key)
				}
				vals = append(vals, v)
			}
		}
		b.Add(vals...)
	}

	out.Table = b.Build().SortBy(models.ColReportClass, models.ColRatioGroup, models.ColAccountNumber)
	return out, nil
}

// PnLTrend returns revenue, COGS and gross profit per period for the
// selected scenario, ascending by period.
func PnLTrend(gl, coa *table.Table, opts PnLOptions) (*table.Table, error) {
	rows := forScenario(gl, opts.scenario())
	byPeriod, err := aggregate.Aggregate(rows,
		[]string{models.ColPeriodLower, models.ColAccountNumber}, aggregate.Sum(models.ColAmount))
	if err != nil {
		return nil, err
	}
	enriched, err := join.Enrich(byPeriod, coa, models.ColAccountNumber, models.ColAccountType, models.ColRatioGroup)
	if err != nil {
		return nil, err
	}

	type totals struct{ revenue, cogs decimal.Decimal }
	sums := make(map[models.Month]*totals)
	for _, row := range enriched.Rows() {
		d, ok := row.Get(models.ColPeriodLower).Time()
		if !ok {
			continue
		}
		m := models.MonthOf(d)
		if sums[m] == nil {
			sums[m] = &totals{}
		}
		amount := row.Get(models.ColAmount).DecimalOrZero()
		switch classify(row) {
		case lineRevenue:
			sums[m].revenue = sums[m].revenue.Add(amount)
		case lineCOGS:
			sums[m].cogs = sums[m].cogs.Add(opts.sign().cost(amount))
		}
	}

	periods := make([]models.Month, 0, len(sums))
	for m := range sums {
		periods = append(periods, m)
	}
	slices.SortFunc(periods, func(a, b models.Month) int { return a.Time().Compare(b.Time()) })

	b := table.NewBuilder(models.ColPeriodLower, ColRevenue, ColCOGS, ColGrossProfit)
	for _, m := range periods {
		s := sums[m]
		b.Add(
			table.Date(m.Time()),
			table.Number(s.revenue),
			table.Number(s.cogs),
			table.Number(s.revenue.Sub(s.cogs)),
		)
	}
	return b.Build(), nil
}

// periodColumn is the column name Pivot gives a month.
func periodColumn(m models.Month) string { return table.Date(m.Time()).Str() }
