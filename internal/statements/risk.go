package statements

import (
	"fmt"
	"time"

	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// RiskThresholds are the minimum acceptable rates. A rate at least Delta
// above its threshold is good.
type RiskThresholds struct {
	Occupancy  float64
	Collection float64
	Delta      float64
}

// DefaultRiskThresholds are the dashboard defaults.
var DefaultRiskThresholds = RiskThresholds{Occupancy: 0.92, Collection: 0.94, Delta: 0.02}

// WithDefaults fills zero fields from DefaultRiskThresholds.
func (t RiskThresholds) WithDefaults() RiskThresholds {
	if t.Occupancy == 0 {
		t.Occupancy = DefaultRiskThresholds.Occupancy
	}
	if t.Collection == 0 {
		t.Collection = DefaultRiskThresholds.Collection
	}
	if t.Delta == 0 {
		t.Delta = DefaultRiskThresholds.Delta
	}
	return t
}

// ClassifyRate flags a rate as good when it is at least threshold+delta,
// warning when it is at least threshold and breach otherwise. A null or
// non-numeric rate is unknown. The comparison is done in decimal so that
// 0.94 against 0.92+0.02 is good.
func ClassifyRate(rate table.Value, threshold, delta float64) models.Flag {
	r, ok := rate.Decimal()
	if !ok {
		return models.FlagUnknown
	}
	warn := decimal.NewFromFloat(threshold)
	switch {
	case r.GreaterThanOrEqual(warn.Add(decimal.NewFromFloat(delta))):
		return models.FlagGood
	case r.GreaterThanOrEqual(warn):
		return models.FlagWarning
	default:
		return models.FlagBreach
	}
}

// RiskExceptions lists the properties whose occupancy or collection rate is
// below its threshold on the latest collections date within month. A zero
// month means the latest month on record. Rows are ordered by property.
func RiskExceptions(collections *table.Table, month models.Month, th RiskThresholds) (models.RiskReport, error) {
	th = th.WithDefaults()
	out := models.RiskReport{
		OccupancyThreshold:  th.Occupancy,
		CollectionThreshold: th.Collection,
		Delta:               th.Delta,
		Exceptions:          []models.RiskException{},
	}

	asOf, ok := latestDate(collections, models.ColDate, month)
	if !ok {
		return out, fmt.Errorf("risk exceptions %s: %w", month, ErrNoData)
	}
	out.AsOf = asOf

	current := onDate(collections, models.ColDate, asOf).SortBy(models.ColProperty)
	occLimit := decimal.NewFromFloat(th.Occupancy)
	collLimit := decimal.NewFromFloat(th.Collection)
	for _, row := range current.Rows() {
		occ := row.Get(models.ColOccupancyPct)
		coll := row.Get(models.ColCollectionPct)
		if !below(occ, occLimit) && !below(coll, collLimit) {
			continue
		}
		out.Exceptions = append(out.Exceptions, models.RiskException{
			Property:       row.Str(models.ColProperty),
			Region:         row.Str(models.ColRegion),
			Occupancy:      floatPtr(occ),
			Collection:     floatPtr(coll),
			OccupancyFlag:  ClassifyRate(occ, th.Occupancy, th.Delta),
			CollectionFlag: ClassifyRate(coll, th.Collection, th.Delta),
			TotalUnits:     row.Get(models.ColTotalUnits).DecimalOrZero(),
			BilledRent:     row.Get(models.ColBilledRent).DecimalOrZero(),
			CollectedRent:  row.Get(models.ColCollectedRent).DecimalOrZero(),
		})
	}
	return out, nil
}

// below reports whether v is a number strictly under limit. Nulls never breach.
func below(v table.Value, limit decimal.Decimal) bool {
	d, ok := v.Decimal()
	return ok && d.LessThan(limit)
}

// latestDate returns the greatest date in column, restricted to month unless
// month is zero.
func latestDate(t *table.Table, column string, month models.Month) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, v := range t.Column(column) {
		d, ok := v.Time()
		if !ok || (!month.IsZero() && models.MonthOf(d) != month) {
			continue
		}
		if !found || d.After(latest) {
			latest, found = d, true
		}
	}
	return latest, found
}

func onDate(t *table.Table, column string, day time.Time) *table.Table {
	return t.Filter(func(r table.Row) bool {
		d, ok := r.Get(column).Time()
		return ok && d.Equal(day)
	})
}

func floatPtr(v table.Value) *float64 {
	d, ok := v.Decimal()
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}
