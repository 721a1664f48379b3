package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
)

// SourceInfo describes where a dataset used by a report came from.
type SourceInfo struct {
	LoadedAt   time.Time `json:"loaded_at"`
	Dataset    string    `json:"dataset"`
	Provenance string    `json:"provenance"`
	Origin     string    `json:"origin,omitempty"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// PnLFigures is one column of a summarised profit and loss statement.
// Cost lines are sign-normalised so that a positive value is a cost.
type PnLFigures struct {
	Revenue         decimal.Decimal `json:"revenue"`
	COGS            decimal.Decimal `json:"cogs"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	Opex            decimal.Decimal `json:"opex"`
	OperatingProfit decimal.Decimal `json:"operating_profit"`
	BelowTheLine    decimal.Decimal `json:"below_the_line"`
	NetProfit       decimal.Decimal `json:"net_profit"`
}

// Sub returns the field-by-field difference p - o.
func (p PnLFigures) Sub(o PnLFigures) PnLFigures {
	return PnLFigures{
		Revenue:         p.Revenue.Sub(o.Revenue),
		COGS:            p.COGS.Sub(o.COGS),
		GrossProfit:     p.GrossProfit.Sub(o.GrossProfit),
		Opex:            p.Opex.Sub(o.Opex),
		OperatingProfit: p.OperatingProfit.Sub(o.OperatingProfit),
		BelowTheLine:    p.BelowTheLine.Sub(o.BelowTheLine),
		NetProfit:       p.NetProfit.Sub(o.NetProfit),
	}
}

// PnLComparison holds Actual and Budget figures over the same window.
type PnLComparison struct {
	Start                Month           `json:"start"`
	End                  Month           `json:"end"`
	Scenario             string          `json:"scenario"`
	Actual               PnLFigures      `json:"actual"`
	Budget               PnLFigures      `json:"budget"`
	Variance             PnLFigures      `json:"variance"`
	Unclassified         decimal.Decimal `json:"unclassified"`
	UnclassifiedAccounts []string        `json:"unclassified_accounts,omitempty"`
}

// CashflowPeriod is one month of the running cash statement.
type CashflowPeriod struct {
	Period             Month                      `json:"period"`
	Flows              map[string]decimal.Decimal `json:"flows"`
	OpeningCash        decimal.Decimal            `json:"opening_cash"`
	NetCashExclOpening decimal.Decimal            `json:"net_cash_excl_opening"`
	EndingCash         decimal.Decimal            `json:"ending_cash"`
	Reset              bool                       `json:"reset"`
}

// CashflowStatement is the ordered month-by-month cash walk.
type CashflowStatement struct {
	ItemTypes []string         `json:"item_types"`
	Periods   []CashflowPeriod `json:"periods"`
	Warnings  []string         `json:"warnings,omitempty"`
}

// EndingCash returns the ending cash of the last period, or zero when empty.
func (s CashflowStatement) EndingCash() decimal.Decimal {
	if len(s.Periods) == 0 {
		return decimal.Zero
	}
	return s.Periods[len(s.Periods)-1].EndingCash
}

// Runway is the burn and runway estimate over a lookback window.
// Months is +Inf when the adjusted monthly net is not negative.
type Runway struct {
	Lookback           int
	BurnAdjustPct      float64
	MonthlyNet         decimal.Decimal
	AdjustedMonthlyNet decimal.Decimal
	EndingCash         decimal.Decimal
	Months             float64
}

// Indefinite reports whether the runway is the infinite sentinel.
func (r Runway) Indefinite() bool { return math.IsInf(r.Months, 1) }

// MarshalJSON renders the infinite sentinel as runway_months: null plus indefinite: true.
func (r Runway) MarshalJSON() ([]byte, error) {
	var months *float64
	if !r.Indefinite() {
		m := r.Months
		months = &m
	}
	return json.Marshal(struct {
		Lookback           int             `json:"lookback"`
		BurnAdjustPct      float64         `json:"burn_adjust_pct"`
		MonthlyNet         decimal.Decimal `json:"monthly_net"`
		AdjustedMonthlyNet decimal.Decimal `json:"adjusted_monthly_net"`
		EndingCash         decimal.Decimal `json:"ending_cash"`
		RunwayMonths       *float64        `json:"runway_months"`
		Indefinite         bool            `json:"indefinite"`
	}{
		Lookback:           r.Lookback,
		BurnAdjustPct:      r.BurnAdjustPct,
		MonthlyNet:         r.MonthlyNet,
		AdjustedMonthlyNet: r.AdjustedMonthlyNet,
		EndingCash:         r.EndingCash,
		RunwayMonths:       months,
		Indefinite:         r.Indefinite(),
	})
}

// CashflowReport bundles the cash walk with its runway.
type CashflowReport struct {
	Statement CashflowStatement `json:"statement"`
	Runway    Runway            `json:"runway"`
}

// CashPosition is the cash balance through a cutoff month.
type CashPosition struct {
	Through     Month           `json:"through"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	OtherFlows  decimal.Decimal `json:"other_flows"`
	EndingCash  decimal.Decimal `json:"ending_cash"`
}

// ScenarioInputs are the three tunable projection ratios.
type ScenarioInputs struct {
	Growth      float64 `json:"growth"`
	GrossMargin float64 `json:"gross_margin"`
	OpexPct     float64 `json:"opex_pct"`
}

// BaseActuals are the actual figures a projection starts from.
type BaseActuals struct {
	Through     Month           `json:"through"`
	Revenue     decimal.Decimal `json:"revenue"`
	COGS        decimal.Decimal `json:"cogs"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	Opex        decimal.Decimal `json:"opex"`
	EBITDA      decimal.Decimal `json:"ebitda"`
}

// ScenarioProjection is the what-if result for one set of inputs.
type ScenarioProjection struct {
	Inputs          ScenarioInputs  `json:"inputs"`
	Base            BaseActuals     `json:"base"`
	TargetRevenue   decimal.Decimal `json:"target_revenue"`
	TargetGross     decimal.Decimal `json:"target_gross"`
	ProjectedCOGS   decimal.Decimal `json:"projected_cogs"`
	ProjectedOpex   decimal.Decimal `json:"projected_opex"`
	ProjectedEBITDA decimal.Decimal `json:"projected_ebitda"`
}

// PropertyExitValue is the exit valuation of a single property.
type PropertyExitValue struct {
	AcquisitionDate *time.Time      `json:"acquisition_date,omitempty"`
	Property        string          `json:"property"`
	T12NOI          decimal.Decimal `json:"t12_noi"`
	ExitValue       decimal.Decimal `json:"exit_value"`
}

// ExitValuation covers every loaded property at one cap rate.
type ExitValuation struct {
	CapRate        decimal.Decimal     `json:"cap_rate"`
	Properties     []PropertyExitValue `json:"properties"`
	TotalT12NOI    decimal.Decimal     `json:"total_t12_noi"`
	TotalExitValue decimal.Decimal     `json:"total_exit_value"`
}

// Flag is a three-tier performance marker for a rate.
type Flag string

const (
	FlagGood    Flag = "good"
	FlagWarning Flag = "warning"
	FlagBreach  Flag = "breach"
	FlagUnknown Flag = ""
)

// RiskException is a property breaching an occupancy or collection threshold.
type RiskException struct {
	Occupancy      *float64        `json:"occupancy"`
	Collection     *float64        `json:"collection"`
	Property       string          `json:"property"`
	Region         string          `json:"region"`
	OccupancyFlag  Flag            `json:"occupancy_flag"`
	CollectionFlag Flag            `json:"collection_flag"`
	TotalUnits     decimal.Decimal `json:"total_units"`
	BilledRent     decimal.Decimal `json:"billed_rent"`
	CollectedRent  decimal.Decimal `json:"collected_rent"`
}

// RiskReport lists the exceptions at the latest (or chosen) collections date.
type RiskReport struct {
	AsOf                time.Time       `json:"as_of"`
	OccupancyThreshold  float64         `json:"occupancy_threshold"`
	CollectionThreshold float64         `json:"collection_threshold"`
	Delta               float64         `json:"delta"`
	Exceptions          []RiskException `json:"exceptions"`
}

// CollectionsSummary is the portfolio collection picture for one month.
type CollectionsSummary struct {
	Month          Month        `json:"month"`
	CollectionRate *float64     `json:"collection_rate"`
	OccupancyRate  *float64     `json:"occupancy_rate"`
	Properties     *table.Table `json:"properties"`
}

// PortfolioOverview is the executive landing snapshot.
type PortfolioOverview struct {
	CollectionsThrough time.Time       `json:"collections_through"`
	FinancialsThrough  Month           `json:"financials_through"`
	Occupancy          *float64        `json:"occupancy"`
	CollectionRate     *float64        `json:"collection_rate"`
	LatestNOI          decimal.Decimal `json:"latest_noi"`
	NOIMargin          *float64        `json:"noi_margin"`
	TotalUnits         decimal.Decimal `json:"total_units"`
	Regions            *table.Table    `json:"regions"`
	CollectionsTrend   *table.Table    `json:"collections_trend"`
	NOITrend           *table.Table    `json:"noi_trend"`
}

// FinancialSummary is the NOI picture for one month and a property filter.
type FinancialSummary struct {
	Month       Month           `json:"month"`
	Regions     []string        `json:"regions,omitempty"`
	Properties  []string        `json:"properties,omitempty"`
	Revenue     decimal.Decimal `json:"revenue"`
	Opex        decimal.Decimal `json:"opex"`
	NOI         decimal.Decimal `json:"noi"`
	BudgetNOI   decimal.Decimal `json:"budget_noi"`
	NOIVariance decimal.Decimal `json:"noi_variance"`
	NOIMargin   *float64        `json:"noi_margin"`
	ByProperty  *table.Table    `json:"by_property"`
	Trend       *table.Table    `json:"trend"`
}

// PropertiesSummary counts the active portfolio.
type PropertiesSummary struct {
	ActiveProperties int             `json:"active_properties"`
	TotalUnits       decimal.Decimal `json:"total_units"`
	Properties       *table.Table    `json:"properties"`
}

// MetricSeries is one operational KPI over time.
type MetricSeries struct {
	Metric  string       `json:"metric"`
	Metrics []string     `json:"metrics"`
	Series  *table.Table `json:"series"`
}

// PnLMatrix is the account by period P&L grid. Columns are the account
// attributes followed by one "Jan 2024" style column per period and, when
// budgets are included, a "Jan 2024 (Budget)" column after each.
type PnLMatrix struct {
	Start    Month        `json:"start"`
	End      Month        `json:"end"`
	Scenario string       `json:"scenario"`
	Periods  []Month      `json:"periods"`
	Table    *table.Table `json:"table"`
}

// Report wraps a statement with the provenance of every dataset it read.
// Display holds pre-formatted headline amounts in Currency.
type Report[T any] struct {
	Data      T                 `json:"data"`
	Currency  string            `json:"currency"`
	Display   map[string]string `json:"display,omitempty"`
	Sources   []SourceInfo      `json:"sources"`
	Synthetic bool              `json:"synthetic"`
}

// DatasetStatus describes one registered dataset for listings.
type DatasetStatus struct {
	Name      string   `json:"name"`
	Required  []string `json:"required"`
	Freshness float64  `json:"freshness"`
}

// DatasetView is a loaded dataset as returned to API clients.
type DatasetView struct {
	Source    SourceInfo   `json:"source"`
	Rows      int          `json:"rows"`
	Truncated bool         `json:"truncated"`
	Table     *table.Table `json:"table"`
}
