package dataset

import (
	"sort"
	"sync"

	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/sample"
)

// Descriptor describes how one logical dataset is validated and coerced.
type Descriptor struct {
	Name     string
	Required []string
	// DateColumns are parsed to dates; PeriodColumns are additionally
	// truncated to the first day of their month.
	DateColumns    []string
	PeriodColumns  []string
	NumericColumns []string
	// KeyColumns are trimmed and have integral numerics normalised ("4000.0" -> "4000").
	KeyColumns []string
	// Defaults fill absent columns and empty cells.
	Defaults map[string]string
	// Fallback produces the synthetic table. Nil means the dataset has no fallback.
	Fallback sample.Generator
}

// Registry maps dataset names to descriptors. It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
}

// NewRegistry returns a registry holding ds.
func NewRegistry(ds ...Descriptor) *Registry {
	r := &Registry{descriptors: make(map[string]Descriptor, len(ds))}
	for _, d := range ds {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a descriptor.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.Name] = d
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Names returns the registered dataset names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for n := range r.descriptors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry registers the nine recognised datasets, each backed by its
// synthetic generator.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Descriptor{
			Name: models.DatasetCollections,
			Required: []string{
				models.ColDate, models.ColProperty, models.ColRegion,
				models.ColBilledRent, models.ColCollectedRent,
				models.ColOccupancyPct, models.ColCollectionPct,
				models.ColTotalUnits, models.ColOccupiedUnits,
			},
			DateColumns: []string{models.ColDate},
			NumericColumns: []string{
				models.ColBilledRent, models.ColCollectedRent,
				models.ColOccupancyPct, models.ColCollectionPct,
				models.ColTotalUnits, models.ColOccupiedUnits,
			},
			KeyColumns: []string{models.ColProperty},
			Fallback:   sample.Collections,
		},
		Descriptor{
			Name: models.DatasetFinancials,
			Required: []string{
				models.ColPeriod, models.ColProperty, models.ColRegion,
				models.ColRevenue, models.ColOpex, models.ColNOI,
				models.ColBudgetNOI, models.ColNOIVariance, models.ColNOIMargin,
			},
			DateColumns:   []string{models.ColPeriod},
			PeriodColumns: []string{models.ColPeriod},
			NumericColumns: []string{
				models.ColRevenue, models.ColOpex, models.ColNOI,
				models.ColBudgetNOI, models.ColNOIVariance, models.ColNOIMargin,
			},
			KeyColumns: []string{models.ColProperty},
			Fallback:   sample.Financials,
		},
		Descriptor{
			Name: models.DatasetProperties,
			Required: []string{
				models.ColProperty, models.ColAcquisitionDate, models.ColCity,
				models.ColState, models.ColUnits, models.ColLatestValue,
			},
			DateColumns:    []string{models.ColAcquisitionDate},
			NumericColumns: []string{models.ColUnits, models.ColLatestValue},
			KeyColumns:     []string{models.ColProperty},
			Fallback:       sample.Properties,
		},
		Descriptor{
			Name: models.DatasetChartOfAccounts,
			Required: []string{
				models.ColAccountNumber, models.ColAccountName, models.ColAccountType,
				models.ColRatioGroup, models.ColReportClass,
			},
			KeyColumns: []string{models.ColAccountNumber},
			Fallback:   sample.ChartOfAccounts,
		},
		Descriptor{
			Name:           models.DatasetGLTransactions,
			Required:       []string{models.ColAccountNumber, models.ColPeriodLower, models.ColAmount},
			DateColumns:    []string{models.ColPeriodLower, models.ColTxnDate},
			PeriodColumns:  []string{models.ColPeriodLower},
			NumericColumns: []string{models.ColAmount},
			KeyColumns:     []string{models.ColAccountNumber},
			Defaults:       map[string]string{models.ColScenario: models.ScenarioActual},
			Fallback:       sample.GLTransactions,
		},
		Descriptor{
			Name:           models.DatasetBudgetMonthly,
			Required:       []string{models.ColAccountNumber, models.ColPeriodLower, models.ColBudgetAmount},
			DateColumns:    []string{models.ColPeriodLower},
			PeriodColumns:  []string{models.ColPeriodLower},
			NumericColumns: []string{models.ColBudgetAmount},
			KeyColumns:     []string{models.ColAccountNumber},
			Fallback:       sample.BudgetMonthly,
		},
		Descriptor{
			Name:           models.DatasetCashflowItems,
			Required:       []string{models.ColDateLower, models.ColPeriodLower, models.ColItemType, models.ColAmount},
			DateColumns:    []string{models.ColDateLower, models.ColPeriodLower},
			PeriodColumns:  []string{models.ColPeriodLower},
			NumericColumns: []string{models.ColAmount},
			KeyColumns:     []string{models.ColItemType},
			Fallback:       sample.CashflowItems,
		},
		Descriptor{
			Name:           models.DatasetOperationalKPIs,
			Required:       []string{models.ColPeriodLower, models.ColMetricName, models.ColMetricValue},
			DateColumns:    []string{models.ColPeriodLower},
			PeriodColumns:  []string{models.ColPeriodLower},
			NumericColumns: []string{models.ColMetricValue},
			KeyColumns:     []string{models.ColMetricName},
			Fallback:       sample.OperationalKPIs,
		},
		Descriptor{
			Name:       models.DatasetModelAssumptions,
			Required:   []string{models.ColAssumptionKey, models.ColBaseValue},
			KeyColumns: []string{models.ColAssumptionKey},
			Fallback:   sample.ModelAssumptions,
		},
	)
}
