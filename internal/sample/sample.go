// Package sample generates the synthetic datasets used when a real source is
// missing or structurally invalid.
//
// Every generator is deterministic: it seeds its own random stream from the
// dataset name, so two calls always return identical tables.
package sample

import (
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// Generator produces one synthetic dataset.
type Generator func() *table.Table

// Year is the calendar year covered by the synthetic data.
const Year = 2024

// Months is the number of monthly periods generated, starting in January.
const Months = 12

// OpeningCash is the opening balance recorded in the first cashflow period.
const OpeningCash = 2_500_000

type property struct {
	name     string
	region   string
	city     string
	state    string
	units    int64
	rent     float64
	acquired time.Time
}

var portfolio = []property{
	{"Cedar Ridge", "Southeast", "Atlanta", "GA", 240, 1450, date(2018, time.March, 15)},
	{"Harbor View", "Southeast", "Tampa", "FL", 180, 1620, date(2019, time.June, 1)},
	{"Maple Commons", "Midwest", "Columbus", "OH", 210, 1180, date(2017, time.September, 20)},
	{"Prairie Point", "Midwest", "Indianapolis", "IN", 156, 1090, date(2020, time.February, 10)},
	{"Sunset Terrace", "Southwest", "Phoenix", "AZ", 300, 1380, date(2016, time.November, 5)},
	{"Canyon Lofts", "Southwest", "Tucson", "AZ", 128, 1240, date(2021, time.May, 28)},
}

type account struct {
	number      string
	name        string
	accountType string
	ratioGroup  string
	reportClass string
	// monthly actual magnitude; the sign is applied from accountType
	base float64
}

var accounts = []account{
	{"4000", "Rental Income", models.AccountTypeRevenue, "Revenue", "Income Statement", 1_750_000},
	{"4100", "Other Income", models.AccountTypeRevenue, "Revenue", "Income Statement", 95_000},
	{"5000", "Property Operating Costs", models.AccountTypeCOGS, "Cost of Revenue", "Income Statement", 610_000},
	{"6000", "Salaries & Wages", models.AccountTypeExpense, models.RatioGroupOperatingExpenses, "Income Statement", 260_000},
	{"6100", "Repairs & Maintenance", models.AccountTypeExpense, models.RatioGroupOperatingExpenses, "Income Statement", 120_000},
	{"6200", "Marketing", models.AccountTypeExpense, models.RatioGroupOperatingExpenses, "Income Statement", 35_000},
	{"6300", "General & Administrative", models.AccountTypeExpense, models.RatioGroupOperatingExpenses, "Income Statement", 80_000},
	{"7000", "Interest Expense", models.AccountTypeExpense, models.RatioGroupBelowTheLine, "Income Statement", 210_000},
	{"7100", "Depreciation", models.AccountTypeExpense, models.RatioGroupBelowTheLine, "Income Statement", 180_000},
}

// All returns every generator keyed by dataset name.
func All() map[string]Generator {
	return map[string]Generator{
		models.DatasetCollections:      Collections,
		models.DatasetFinancials:       Financials,
		models.DatasetProperties:       Properties,
		models.DatasetChartOfAccounts:  ChartOfAccounts,
		models.DatasetGLTransactions:   GLTransactions,
		models.DatasetBudgetMonthly:    BudgetMonthly,
		models.DatasetCashflowItems:    CashflowItems,
		models.DatasetOperationalKPIs:  OperationalKPIs,
		models.DatasetModelAssumptions: ModelAssumptions,
	}
}

// Properties returns the property register.
func Properties() *table.Table {
	b := table.NewBuilder(
		models.ColProperty, models.ColAcquisitionDate, models.ColCity,
		models.ColState, models.ColUnits, models.ColLatestValue,
	)
	r := stream(models.DatasetProperties)
	for _, p := range portfolio {
		perUnit := between(r, 165_000, 235_000)
		b.Add(
			table.String(p.name),
			table.Date(p.acquired),
			table.String(p.city),
			table.String(p.state),
			table.Int(p.units),
			money(float64(p.units)*perUnit),
		)
	}
	return b.Build()
}

// Collections returns monthly rent roll and collection records per property.
func Collections() *table.Table {
	b := table.NewBuilder(
		models.ColDate, models.ColProperty, models.ColRegion,
		models.ColBilledRent, models.ColCollectedRent,
		models.ColOccupancyPct, models.ColCollectionPct,
		models.ColTotalUnits, models.ColOccupiedUnits,
	)
	r := stream(models.DatasetCollections)
	for m := range Months {
		for _, p := range portfolio {
			occ := round(between(r, 0.88, 0.985), 4)
			coll := round(between(r, 0.9, 0.995), 4)
			occupied := int64(float64(p.units)*occ + 0.5)
			billed := float64(occupied) * p.rent
			b.Add(
				table.Date(period(m)),
				table.String(p.name),
				table.String(p.region),
				money(billed),
				money(billed*coll),
				table.Float(occ),
				table.Float(coll),
				table.Int(p.units),
				table.Int(occupied),
			)
		}
	}
	return b.Build()
}

// Financials returns monthly NOI records per property. NOI is always
// Revenue minus Operating Expenses.
func Financials() *table.Table {
	b := table.NewBuilder(
		models.ColPeriod, models.ColProperty, models.ColRegion,
		models.ColRevenue, models.ColOpex, models.ColNOI,
		models.ColBudgetNOI, models.ColNOIVariance, models.ColNOIMargin,
	)
	r := stream(models.DatasetFinancials)
	for m := range Months {
		for _, p := range portfolio {
			revenue := decimal.NewFromFloat(float64(p.units) * p.rent * between(r, 0.9, 0.98)).Round(2)
			opex := revenue.Mul(decimal.NewFromFloat(between(r, 0.38, 0.48))).Round(2)
			noi := revenue.Sub(opex)
			budget := noi.Mul(decimal.NewFromFloat(between(r, 0.94, 1.06))).Round(2)
			b.Add(
				table.Date(period(m)),
				table.String(p.name),
				table.String(p.region),
				table.Number(revenue),
				table.Number(opex),
				table.Number(noi),
				table.Number(budget),
				table.Number(noi.Sub(budget)),
				table.Number(noi.Div(revenue).Round(4)),
			)
		}
	}
	return b.Build()
}

// ChartOfAccounts returns the account classification table.
func ChartOfAccounts() *table.Table {
	b := table.NewBuilder(
		models.ColAccountNumber, models.ColAccountName, models.ColAccountType,
		models.ColRatioGroup, models.ColReportClass,
	)
	for _, a := range accounts {
		b.Add(
			table.String(a.number),
			table.String(a.name),
			table.String(a.accountType),
			table.String(a.ratioGroup),
			table.String(a.reportClass),
		)
	}
	return b.Build()
}

// GLTransactions returns one actual ledger posting per account and month.
// Revenue is positive and costs are negative.
func GLTransactions() *table.Table {
	b := table.NewBuilder(
		models.ColAccountNumber, models.ColPeriodLower, models.ColAmount,
		models.ColScenario, models.ColTxnDate,
	)
	r := stream(models.DatasetGLTransactions)
	for m := range Months {
		start := period(m)
		for _, a := range accounts {
			b.Add(
				table.String(a.number),
				table.Date(start),
				money(ledgerSign(a)*a.base*between(r, 0.92, 1.08)),
				table.String(models.ScenarioActual),
				table.Date(start.AddDate(0, 1, -1)),
			)
		}
	}
	return b.Build()
}

// BudgetMonthly returns one budget line per account and month, using the
// same sign convention as GLTransactions.
func BudgetMonthly() *table.Table {
	b := table.NewBuilder(models.ColAccountNumber, models.ColPeriodLower, models.ColBudgetAmount)
	r := stream(models.DatasetBudgetMonthly)
	for m := range Months {
		for _, a := range accounts {
			b.Add(
				table.String(a.number),
				table.Date(period(m)),
				money(ledgerSign(a)*a.base*between(r, 0.97, 1.05)),
			)
		}
	}
	return b.Build()
}

// CashflowItems returns an opening balance in the first period followed by
// operating, investing and financing flows each month.
func CashflowItems() *table.Table {
	b := table.NewBuilder(models.ColDateLower, models.ColPeriodLower, models.ColItemType, models.ColAmount)
	r := stream(models.DatasetCashflowItems)
	for m := range Months {
		start := period(m)
		if m == 0 {
			b.Add(table.Date(start), table.Date(start), table.String(models.ItemTypeOpeningCash), table.Int(OpeningCash))
		}
		flows := []struct {
			item   string
			lo, hi float64
		}{
			{"Operating", -140_000, -40_000},
			{"Investing", -45_000, -5_000},
			{"Financing", -10_000, 25_000},
		}
		for _, f := range flows {
			b.Add(
				table.Date(start.AddDate(0, 0, 14)),
				table.Date(start),
				table.String(f.item),
				money(between(r, f.lo, f.hi)),
			)
		}
	}
	return b.Build()
}

// OperationalKPIs returns several operating metrics per month.
func OperationalKPIs() *table.Table {
	b := table.NewBuilder(models.ColPeriodLower, models.ColMetricName, models.ColMetricValue)
	r := stream(models.DatasetOperationalKPIs)
	for m := range Months {
		start := period(m)
		b.Add(table.Date(start), table.String("Work Orders Completed"), table.Int(int64(between(r, 320, 460))))
		b.Add(table.Date(start), table.String("Avg Days to Lease"), table.Float(round(between(r, 14, 32), 1)))
		b.Add(table.Date(start), table.String("Resident Retention %"), table.Float(round(between(r, 0.52, 0.68), 3)))
	}
	return b.Build()
}

// ModelAssumptions returns the scenario assumptions. Values are stored as
// text, the way spreadsheet exports deliver them.
func ModelAssumptions() *table.Table {
	return table.NewBuilder(models.ColAssumptionKey, models.ColBaseValue).
		Add(table.String("revenue_growth_rate_yoy"), table.String("0.20")).
		Add(table.String("gross_margin_target"), table.String("0.60")).
		Add(table.String("opex_as_percent_revenue"), table.String("0.40")).
		Add(table.String("base_cap_rate"), table.String("0.055")).
		Add(table.String("base_occupancy"), table.String("0.96")).
		Build()
}

func stream(name string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func between(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func round(f float64, places int32) float64 {
	return decimal.NewFromFloat(f).Round(places).InexactFloat64()
}

func money(f float64) table.Value {
	return table.Number(decimal.NewFromFloat(f).Round(2))
}

func ledgerSign(a account) float64 {
	if a.accountType == models.AccountTypeRevenue {
		return 1
	}
	return -1
}

func period(offset int) time.Time {
	return time.Date(Year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, offset, 0)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
