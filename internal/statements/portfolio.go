package statements

import (
	"fmt"
	"slices"

	"github.com/craftbits/executive-portal/internal/aggregate"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// CollectionsSummary averages collection and occupancy rates across the
// properties reporting in month and lists them by property. A zero month
// means the latest month on record.
func CollectionsSummary(collections *table.Table, month models.Month) (models.CollectionsSummary, error) {
	if month.IsZero() {
		periods := aggregate.Periods(collections, models.ColDate)
		if len(periods) == 0 {
			return models.CollectionsSummary{}, fmt.Errorf("collections: %w", ErrNoData)
		}
		month = periods[len(periods)-1]
	}
	out := models.CollectionsSummary{Month: month}

	current := aggregate.FilterPeriods(collections, models.ColDate, aggregate.Window{Start: month, End: month})
	if current.Len() == 0 {
		return out, fmt.Errorf("collections %s: %w", month, ErrNoData)
	}

	out.CollectionRate = meanOf(current, models.ColCollectionPct)
	out.OccupancyRate = meanOf(current, models.ColOccupancyPct)

	props, err := current.SortBy(models.ColProperty).Select(
		models.ColProperty, models.ColDate, models.ColBilledRent, models.ColCollectedRent,
		models.ColCollectionPct, models.ColOccupancyPct,
	)
	if err != nil {
		return out, err
	}
	out.Properties = props
	return out, nil
}

// PortfolioOverview assembles the executive snapshot: rates on the latest
// collections date, NOI for the latest financial period, total units, a
// per-region snapshot and the occupancy, collection and NOI trends.
func PortfolioOverview(collections, financials, properties *table.Table) (models.PortfolioOverview, error) {
	var out models.PortfolioOverview

	asOf, ok := latestDate(collections, models.ColDate, models.Month{})
	if !ok {
		return out, fmt.Errorf("portfolio overview collections: %w", ErrNoData)
	}
	periods := aggregate.Periods(financials, models.ColPeriod)
	if len(periods) == 0 {
		return out, fmt.Errorf("portfolio overview financials: %w", ErrNoData)
	}
	out.CollectionsThrough = asOf
	out.FinancialsThrough = periods[len(periods)-1]

	current := onDate(collections, models.ColDate, asOf)
	out.Occupancy = meanOf(current, models.ColOccupancyPct)
	out.CollectionRate = meanOf(current, models.ColCollectionPct)

	latest := aggregate.FilterPeriods(financials, models.ColPeriod,
		aggregate.Window{Start: out.FinancialsThrough, End: out.FinancialsThrough})
	out.LatestNOI = sumOf(latest, models.ColNOI)
	out.NOIMargin = meanOf(latest, models.ColNOIMargin)
	out.TotalUnits = sumOf(properties, models.ColUnits)

	var err error
	out.Regions, err = aggregate.Aggregate(current, []string{models.ColRegion},
		aggregate.Sum(models.ColTotalUnits),
		aggregate.Mean(models.ColOccupancyPct),
		aggregate.Mean(models.ColCollectionPct),
		aggregate.Sum(models.ColBilledRent),
		aggregate.Sum(models.ColCollectedRent),
	)
	if err != nil {
		return out, fmt.Errorf("region snapshot: %w", err)
	}
	out.CollectionsTrend, err = aggregate.Aggregate(collections, []string{models.ColDate},
		aggregate.Mean(models.ColOccupancyPct),
		aggregate.Mean(models.ColCollectionPct),
	)
	if err != nil {
		return out, fmt.Errorf("collections trend: %w", err)
	}
	out.NOITrend, err = aggregate.Aggregate(financials, []string{models.ColPeriod}, aggregate.Sum(models.ColNOI))
	if err != nil {
		return out, fmt.Errorf("noi trend: %w", err)
	}
	return out, nil
}

// FinancialFilter narrows the financial summary. Empty slices select all.
type FinancialFilter struct {
	Month      models.Month
	Regions    []string
	Properties []string
}

// FinancialSummary totals revenue, opex and NOI for one month and the
// filtered properties, compares NOI to budget and breaks the result down by
// property. NOI margin is null when revenue totals zero. The trend covers
// every month and ignores the region and property filters.
func FinancialSummary(financials *table.Table, f FinancialFilter) (models.FinancialSummary, error) {
	if f.Month.IsZero() {
		periods := aggregate.Periods(financials, models.ColPeriod)
		if len(periods) == 0 {
			return models.FinancialSummary{}, fmt.Errorf("financial summary: %w", ErrNoData)
		}
		f.Month = periods[len(periods)-1]
	}
	out := models.FinancialSummary{Month: f.Month, Regions: f.Regions, Properties: f.Properties}

	view := aggregate.FilterPeriods(financials, models.ColPeriod, aggregate.Window{Start: f.Month, End: f.Month}).
		Filter(func(r table.Row) bool {
			return selected(f.Regions, r.Str(models.ColRegion)) && selected(f.Properties, r.Str(models.ColProperty))
		})
	if view.Len() == 0 {
		return out, fmt.Errorf("financial summary %s: %w", f.Month, ErrNoData)
	}

	out.Revenue = sumOf(view, models.ColRevenue)
	out.Opex = sumOf(view, models.ColOpex)
	out.NOI = sumOf(view, models.ColNOI)
	out.BudgetNOI = sumOf(view, models.ColBudgetNOI)
	out.NOIVariance = out.NOI.Sub(out.BudgetNOI)
	if !out.Revenue.IsZero() {
		m := out.NOI.Div(out.Revenue).InexactFloat64()
		out.NOIMargin = &m
	}

	var err error
	out.ByProperty, err = aggregate.Aggregate(view, []string{models.ColProperty, models.ColRegion},
		aggregate.Sum(models.ColRevenue),
		aggregate.Sum(models.ColNOI),
		aggregate.Sum(models.ColBudgetNOI),
		aggregate.Sum(models.ColNOIVariance),
		aggregate.Mean(models.ColNOIMargin),
	)
	if err != nil {
		return out, fmt.Errorf("noi by property: %w", err)
	}
	out.Trend, err = aggregate.Aggregate(financials, []string{models.ColPeriod},
		aggregate.Sum(models.ColNOI),
		aggregate.Sum(models.ColBudgetNOI),
	)
	if err != nil {
		return out, fmt.Errorf("noi trend: %w", err)
	}
	return out, nil
}

// PropertiesSummary counts the registered properties and their units.
func PropertiesSummary(properties *table.Table) models.PropertiesSummary {
	return models.PropertiesSummary{
		ActiveProperties: properties.Len(),
		TotalUnits:       sumOf(properties, models.ColUnits),
		Properties:       properties,
	}
}

// MetricSeries returns one operational KPI by period. An empty metric
// selects the first metric name in sort order.
func MetricSeries(kpis *table.Table, metric string) (models.MetricSeries, error) {
	var out models.MetricSeries
	for _, v := range kpis.Distinct(models.ColMetricName) {
		if !v.IsNull() {
			out.Metrics = append(out.Metrics, v.Str())
		}
	}
	if len(out.Metrics) == 0 {
		return out, fmt.Errorf("operational kpis: %w", ErrNoData)
	}
	if metric == "" {
		metric = out.Metrics[0]
	}
	if !slices.Contains(out.Metrics, metric) {
		return out, fmt.Errorf("metric %q: %w", metric, ErrNoData)
	}
	out.Metric = metric

	series, err := kpis.Filter(func(r table.Row) bool {
		return r.Str(models.ColMetricName) == metric
	}).SortBy(models.ColPeriodLower).Select(models.ColPeriodLower, models.ColMetricValue)
	if err != nil {
		return out, err
	}
	out.Series = series
	return out, nil
}

func selected(allowed []string, v string) bool {
	return len(allowed) == 0 || slices.Contains(allowed, v)
}

func sumOf(t *table.Table, column string) decimal.Decimal {
	total := decimal.Zero
	for _, v := range t.Column(column) {
		total = total.Add(v.DecimalOrZero())
	}
	return total
}

// meanOf returns the mean of the numeric cells of column, or nil when there are none.
func meanOf(t *table.Table, column string) *float64 {
	reduced, err := aggregate.Aggregate(t, nil, aggregate.Mean(column))
	if err != nil {
		return nil
	}
	return floatPtr(reduced.Row(0).Get(column))
}
