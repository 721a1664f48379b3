package statements

import (
	"fmt"

	"github.com/craftbits/executive-portal/internal/aggregate"
	"github.com/craftbits/executive-portal/internal/dataset"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// Assumption keys read by DefaultScenarioInputs.
const (
	AssumptionRevenueGrowth = "revenue_growth_rate_yoy"
	AssumptionGrossMargin   = "gross_margin_target"
	AssumptionOpexPct       = "opex_as_percent_revenue"
)

// Fallback scenario ratios used when an assumption is absent or not numeric.
const (
	DefaultGrowth      = 0.20
	DefaultGrossMargin = 0.60
	DefaultOpexPct     = 0.40
)

// AssumptionValue returns the numeric base_value of the first row whose
// assumption_key is key, or def when there is no such row or the value
// does not parse.
func AssumptionValue(assumptions *table.Table, key string, def float64) float64 {
	for _, row := range assumptions.Rows() {
		if row.Str(models.ColAssumptionKey) != key {
			continue
		}
		v := row.Get(models.ColBaseValue)
		if d, ok := v.Decimal(); ok {
			return d.InexactFloat64()
		}
		if d, ok := dataset.ParseDecimal(v.Str()); ok {
			return d.InexactFloat64()
		}
		return def
	}
	return def
}

// DefaultScenarioInputs reads the three projection ratios from the
// assumptions table.
func DefaultScenarioInputs(assumptions *table.Table) models.ScenarioInputs {
	return models.ScenarioInputs{
		Growth:      AssumptionValue(assumptions, AssumptionRevenueGrowth, DefaultGrowth),
		GrossMargin: AssumptionValue(assumptions, AssumptionGrossMargin, DefaultGrossMargin),
		OpexPct:     AssumptionValue(assumptions, AssumptionOpexPct, DefaultOpexPct),
	}
}

// BaseActuals sums the classified GL through the cutoff month. A zero
// cutoff means the latest period in the GL.
func BaseActuals(gl, coa *table.Table, through models.Month, opts PnLOptions) (models.BaseActuals, error) {
	rows := forScenario(gl, opts.scenario())
	if through.IsZero() {
		periods := aggregate.Periods(rows, models.ColPeriodLower)
		if len(periods) == 0 {
			return models.BaseActuals{}, fmt.Errorf("base actuals: %w", ErrNoData)
		}
		through = periods[len(periods)-1]
	}

	fig, err := pnlFigures(aggregate.YearToDate(rows, models.ColPeriodLower, through), coa, models.ColAmount, opts.sign())
	if err != nil {
		return models.BaseActuals{}, fmt.Errorf("base actuals: %w", err)
	}
	return models.BaseActuals{
		Through:     through,
		Revenue:     fig.Revenue,
		COGS:        fig.COGS,
		GrossProfit: fig.GrossProfit,
		Opex:        fig.Opex,
		EBITDA:      fig.OperatingProfit,
	}, nil
}

// ProjectScenario applies growth, target gross margin and opex ratio to the
// base revenue.
func ProjectScenario(base models.BaseActuals, in models.ScenarioInputs) models.ScenarioProjection {
	one := decimal.NewFromInt(1)
	targetRevenue := base.Revenue.Mul(one.Add(decimal.NewFromFloat(in.Growth)))
	targetGross := targetRevenue.Mul(decimal.NewFromFloat(in.GrossMargin))
	opex := targetRevenue.Mul(decimal.NewFromFloat(in.OpexPct))

	return models.ScenarioProjection{
		Inputs:          in,
		Base:            base,
		TargetRevenue:   targetRevenue,
		TargetGross:     targetGross,
		ProjectedCOGS:   targetRevenue.Sub(targetGross),
		ProjectedOpex:   opex,
		ProjectedEBITDA: targetGross.Sub(opex),
	}
}
