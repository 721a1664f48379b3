package statements

import (
	"errors"
	"testing"
	"time"

	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/sample"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assumptions(kv ...table.Value) *table.Table {
	b := table.NewBuilder(models.ColAssumptionKey, models.ColBaseValue)
	for i := 0; i+1 < len(kv); i += 2 {
		b.Add(kv[i], kv[i+1])
	}
	return b.Build()
}

func TestAssumptionValue(t *testing.T) {
	a := assumptions(
		table.String("growth"), table.String("0.35"),
		table.String("margin"), table.String("55%"),
		table.String("numeric"), table.Float(0.12),
		table.String("broken"), table.String("tbd"),
		table.String("blank"), table.Null(),
		table.String("growth"), table.String("0.99"),
	)

	tests := []struct {
		key  string
		want float64
	}{
		{"growth", 0.35},
		{"margin", 0.55},
		{"numeric", 0.12},
		{"broken", -1},
		{"blank", -1},
		{"missing", -1},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.InDelta(t, tt.want, AssumptionValue(a, tt.key, -1), 1e-12)
		})
	}
}

func TestDefaultScenarioInputs(t *testing.T) {
	t.Run("from sample assumptions", func(t *testing.T) {
		in := DefaultScenarioInputs(sample.ModelAssumptions())
		assert.InDelta(t, 0.20, in.Growth, 1e-12)
		assert.InDelta(t, 0.60, in.GrossMargin, 1e-12)
		assert.InDelta(t, 0.40, in.OpexPct, 1e-12)
	})

	t.Run("literal fallbacks", func(t *testing.T) {
		in := DefaultScenarioInputs(assumptions(table.String(AssumptionGrossMargin), table.String("n/a")))
		assert.Equal(t, models.ScenarioInputs{Growth: DefaultGrowth, GrossMargin: DefaultGrossMargin, OpexPct: DefaultOpexPct}, in)
	})
}

func TestBaseActuals(t *testing.T) {
	gl := glTable(
		row("4000", jan, 1000), row("5000", jan, -400), row("6000", jan, -100),
		row("4000", feb, 1000), row("5000", feb, -400), row("6000", feb, -100),
	)

	base, err := BaseActuals(gl, coaTable(), models.Month{}, PnLOptions{})
	require.NoError(t, err)
	assert.Equal(t, feb, base.Through)
	assertDecimal(t, "2000", base.Revenue)
	assertDecimal(t, "800", base.COGS)
	assertDecimal(t, "1200", base.GrossProfit)
	assertDecimal(t, "200", base.Opex)
	assertDecimal(t, "1000", base.EBITDA)

	through, err := BaseActuals(gl, coaTable(), jan, PnLOptions{})
	require.NoError(t, err)
	assertDecimal(t, "1000", through.Revenue)

	_, err = BaseActuals(glTable(), coaTable(), models.Month{}, PnLOptions{})
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestProjectScenario(t *testing.T) {
	base := models.BaseActuals{Revenue: dec("1000000")}
	p := ProjectScenario(base, models.ScenarioInputs{Growth: 0.2, GrossMargin: 0.6, OpexPct: 0.4})

	assertDecimal(t, "1200000", p.TargetRevenue)
	assertDecimal(t, "720000", p.TargetGross)
	assertDecimal(t, "480000", p.ProjectedCOGS)
	assertDecimal(t, "480000", p.ProjectedOpex)
	assertDecimal(t, "240000", p.ProjectedEBITDA)
}

func TestProjectScenario_IdentityAtZeroDeltas(t *testing.T) {
	base, err := BaseActuals(sample.GLTransactions(), sample.ChartOfAccounts(),
		models.NewMonth(sample.Year, time.December), PnLOptions{})
	require.NoError(t, err)
	require.True(t, base.Revenue.IsPositive())

	revenue := base.Revenue.InexactFloat64()
	in := models.ScenarioInputs{
		Growth:      0,
		GrossMargin: base.GrossProfit.InexactFloat64() / revenue,
		OpexPct:     base.Opex.InexactFloat64() / revenue,
	}
	p := ProjectScenario(base, in)

	assert.InDelta(t, base.EBITDA.InexactFloat64(), p.ProjectedEBITDA.InexactFloat64(), 0.01)
	assert.InDelta(t, base.COGS.InexactFloat64(), p.ProjectedCOGS.InexactFloat64(), 0.01)
	assert.True(t, p.TargetRevenue.Equal(base.Revenue))
}
