package statements

import (
	"fmt"

	"github.com/craftbits/executive-portal/internal/aggregate"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// ExitValues values every registered property at capRate using the sum of
// its NOI over all loaded periods as the trailing twelve months. A property
// without financials has zero NOI.
func ExitValues(financials, properties *table.Table, capRate decimal.Decimal) (models.ExitValuation, error) {
	out := models.ExitValuation{CapRate: capRate}
	if !capRate.IsPositive() {
		return out, fmt.Errorf("exit value at cap rate %s: %w", capRate, ErrInvalidCapRate)
	}

	t12, err := aggregate.Aggregate(financials, []string{models.ColProperty}, aggregate.Sum(models.ColNOI))
	if err != nil {
		return out, err
	}
	noi := make(map[string]decimal.Decimal, t12.Len())
	for _, row := range t12.Rows() {
		noi[row.Get(models.ColProperty).Key()] = row.Get(models.ColNOI).DecimalOrZero()
	}

	out.Properties = []models.PropertyExitValue{}
	for _, row := range properties.Rows() {
		v := models.PropertyExitValue{
			Property: row.Str(models.ColProperty),
			T12NOI:   noi[row.Get(models.ColProperty).Key()],
		}
		if d, ok := row.Get(models.ColAcquisitionDate).Time(); ok {
			v.AcquisitionDate = &d
		}
		v.ExitValue = v.T12NOI.Div(capRate)
		out.TotalT12NOI = out.TotalT12NOI.Add(v.T12NOI)
		out.TotalExitValue = out.TotalExitValue.Add(v.ExitValue)
		out.Properties = append(out.Properties, v)
	}
	return out, nil
}
