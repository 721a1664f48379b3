package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/craftbits/executive-portal/internal/aggregate"
	"github.com/craftbits/executive-portal/internal/cache"
	"github.com/craftbits/executive-portal/internal/dataset"
	"github.com/craftbits/executive-portal/internal/logger"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/statements"
	"github.com/craftbits/executive-portal/internal/table"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Service-level errors
var (
	ErrInvalidWindow = errors.New("window start is after window end")
	ErrInvalidSign   = errors.New("unknown sign convention")
)

// DatasetStore is the cached view over the dataset loader.
type DatasetStore interface {
	Get(ctx context.Context, name string) (*dataset.Result, error)
	Invalidate(name string)
	Purge()
	Stats() cache.Stats
}

// Catalog lists the registered datasets and reports their change tokens.
type Catalog interface {
	Registry() *dataset.Registry
	Freshness(name string) float64
}

// Options carries presentation settings shared by every report.
type Options struct {
	Currency string
	Sign     statements.SignConvention
}

// PnLQuery selects the ledger rows a P&L reads.
type PnLQuery struct {
	Window   aggregate.Window
	Scenario string
	// Sign overrides the configured sign convention when set.
	Sign statements.SignConvention
}

// ScenarioQuery holds the projection cutoff and any input overrides.
// Nil inputs are read from the model_assumptions dataset.
type ScenarioQuery struct {
	Through     models.Month
	Scenario    string
	Growth      *float64
	GrossMargin *float64
	OpexPct     *float64
}

// CashflowQuery selects the cash walk window and runway settings.
type CashflowQuery struct {
	Window        aggregate.Window
	Lookback      int
	BurnAdjustPct float64
}

// ReportService defines the read-side operations of the reporting engine.
// Every statement method loads its datasets through the cache and returns
// the statement together with the provenance of each dataset it read.
type ReportService interface {
	// ListDatasets describes every registered dataset.
	ListDatasets(ctx context.Context) []models.DatasetStatus

	// LoadDataset returns a dataset through the cache.
	// Returns *dataset.UnknownDatasetError when no registry entry or source knows name.
	LoadDataset(ctx context.Context, name string) (*dataset.Result, error)

	// DatasetFreshness returns the change token of a dataset, 0 when unknown.
	DatasetFreshness(name string) float64

	// Invalidate drops one cached dataset, or all of them when name is empty.
	Invalidate(name string)

	// CacheStats returns the dataset cache counters.
	CacheStats() cache.Stats

	PnL(ctx context.Context, q PnLQuery) (models.Report[models.PnLComparison], error)
	PnLMatrix(ctx context.Context, q PnLQuery, includeBudget bool) (models.Report[models.PnLMatrix], error)
	PnLTrend(ctx context.Context, q PnLQuery) (models.Report[*table.Table], error)
	Cashflow(ctx context.Context, q CashflowQuery) (models.Report[models.CashflowReport], error)
	CashPosition(ctx context.Context, through models.Month) (models.Report[models.CashPosition], error)
	Scenario(ctx context.Context, q ScenarioQuery) (models.Report[models.ScenarioProjection], error)
	ExitValues(ctx context.Context, capRate decimal.Decimal) (models.Report[models.ExitValuation], error)

	PortfolioOverview(ctx context.Context) (models.Report[models.PortfolioOverview], error)
	Collections(ctx context.Context, month models.Month) (models.Report[models.CollectionsSummary], error)
	Financials(ctx context.Context, f statements.FinancialFilter) (models.Report[models.FinancialSummary], error)
	RiskExceptions(ctx context.Context, month models.Month, th statements.RiskThresholds) (models.Report[models.RiskReport], error)
	Properties(ctx context.Context) (models.Report[models.PropertiesSummary], error)
	OperationalKPIs(ctx context.Context, metric string) (models.Report[models.MetricSeries], error)
}

// reportService is the concrete implementation of ReportService.
type reportService struct {
	store   DatasetStore
	catalog Catalog
	opts    Options
	log     *logger.Logger
}

// NewReportService creates a new instance of ReportService.
func NewReportService(store DatasetStore, catalog Catalog, opts Options, log *logger.Logger) ReportService {
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Sign == "" {
		opts.Sign = statements.SignLedger
	}
	return &reportService{
		store:   store,
		catalog: catalog,
		opts:    opts,
		log:     log,
	}
}

func (s *reportService) ListDatasets(ctx context.Context) []models.DatasetStatus {
	reg := s.catalog.Registry()
	names := reg.Names()
	out := make([]models.DatasetStatus, 0, len(names))
	for _, name := range names {
		desc, _ := reg.Lookup(name)
		out = append(out, models.DatasetStatus{
			Name:      name,
			Required:  desc.Required,
			Freshness: s.catalog.Freshness(name),
		})
	}
	return out
}

func (s *reportService) LoadDataset(ctx context.Context, name string) (*dataset.Result, error) {
	res, err := s.store.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", name, err)
	}
	return res, nil
}

func (s *reportService) DatasetFreshness(name string) float64 {
	return s.catalog.Freshness(name)
}

func (s *reportService) Invalidate(name string) {
	if name == "" {
		s.store.Purge()
		s.log.Info("Dataset cache purged", nil)
		return
	}
	s.store.Invalidate(name)
	s.log.Info("Dataset cache entry invalidated", map[string]interface{}{"dataset": name})
}

func (s *reportService) CacheStats() cache.Stats {
	return s.store.Stats()
}

// load fetches the named datasets concurrently. The results are returned
// in the order of names.
func (s *reportService) load(ctx context.Context, names ...string) ([]*dataset.Result, error) {
	results := make([]*dataset.Result, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			res, err := s.LoadDataset(gctx, name)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// report wraps data with the provenance of the datasets it was built from.
func report[T any](s *reportService, data T, results []*dataset.Result, display map[string]decimal.Decimal) models.Report[T] {
	r := models.Report[T]{
		Data:     data,
		Currency: s.opts.Currency,
		Sources:  make([]models.SourceInfo, 0, len(results)),
	}
	for _, res := range results {
		r.Sources = append(r.Sources, res.Info())
		if res.Synthetic() {
			r.Synthetic = true
		}
	}
	if len(display) > 0 {
		r.Display = models.FormatAmounts(display, s.opts.Currency)
	}
	return r
}

func (s *reportService) pnlOptions(q PnLQuery) (statements.PnLOptions, error) {
	if !q.Window.Start.IsZero() && !q.Window.End.IsZero() && q.Window.End.Before(q.Window.Start) {
		return statements.PnLOptions{}, fmt.Errorf("%w: %s", ErrInvalidWindow, q.Window)
	}
	sign := q.Sign
	if sign == "" {
		sign = s.opts.Sign
	}
	if !sign.Valid() {
		return statements.PnLOptions{}, fmt.Errorf("%w: %q", ErrInvalidSign, sign)
	}
	return statements.PnLOptions{Sign: sign, Scenario: q.Scenario}, nil
}

func (s *reportService) PnL(ctx context.Context, q PnLQuery) (models.Report[models.PnLComparison], error) {
	var zero models.Report[models.PnLComparison]
	opts, err := s.pnlOptions(q)
	if err != nil {
		return zero, err
	}

	s.log.Info("Building P&L", map[string]interface{}{
		"window":   q.Window.String(),
		"scenario": opts.Scenario,
		"sign":     string(opts.Sign),
	})

	res, err := s.load(ctx, models.DatasetGLTransactions, models.DatasetBudgetMonthly, models.DatasetChartOfAccounts)
	if err != nil {
		return zero, err
	}

	pnl, err := statements.BuildPnL(res[0].Table, res[1].Table, res[2].Table, q.Window, opts)
	if err != nil {
		return zero, fmt.Errorf("failed to build P&L for %s: %w", q.Window, err)
	}
	if !pnl.Unclassified.IsZero() {
		s.log.Warn("P&L has unclassified amounts", map[string]interface{}{
			"amount":   pnl.Unclassified.String(),
			"accounts": pnl.UnclassifiedAccounts,
		})
	}

	return report(s, pnl, res, map[string]decimal.Decimal{
		"revenue":          pnl.Actual.Revenue,
		"gross_profit":     pnl.Actual.GrossProfit,
		"operating_profit": pnl.Actual.OperatingProfit,
		"net_profit":       pnl.Actual.NetProfit,
		"budget_net":       pnl.Budget.NetProfit,
		"net_variance":     pnl.Variance.NetProfit,
	}), nil
}

func (s *reportService) PnLMatrix(ctx context.Context, q PnLQuery, includeBudget bool) (models.Report[models.PnLMatrix], error) {
	var zero models.Report[models.PnLMatrix]
	opts, err := s.pnlOptions(q)
	if err != nil {
		return zero, err
	}

	res, err := s.load(ctx, models.DatasetGLTransactions, models.DatasetBudgetMonthly, models.DatasetChartOfAccounts)
	if err != nil {
		return zero, err
	}

	matrix, err := statements.PnLMatrix(res[0].Table, res[1].Table, res[2].Table, q.Window, opts, includeBudget)
	if err != nil {
		return zero, fmt.Errorf("failed to build P&L matrix for %s: %w", q.Window, err)
	}
	if !includeBudget {
		res = []*dataset.Result{res[0], res[2]}
	}
	return report(s, matrix, res, nil), nil
}

func (s *reportService) PnLTrend(ctx context.Context, q PnLQuery) (models.Report[*table.Table], error) {
	var zero models.Report[*table.Table]
	opts, err := s.pnlOptions(q)
	if err != nil {
		return zero, err
	}

	res, err := s.load(ctx, models.DatasetGLTransactions, models.DatasetChartOfAccounts)
	if err != nil {
		return zero, err
	}

	gl := aggregate.FilterPeriods(res[0].Table, models.ColPeriodLower, q.Window)
	trend, err := statements.PnLTrend(gl, res[1].Table, opts)
	if err != nil {
		return zero, fmt.Errorf("failed to build P&L trend: %w", err)
	}
	return report(s, trend, res, nil), nil
}

func (s *reportService) Cashflow(ctx context.Context, q CashflowQuery) (models.Report[models.CashflowReport], error) {
	var zero models.Report[models.CashflowReport]
	if !q.Window.Start.IsZero() && !q.Window.End.IsZero() && q.Window.End.Before(q.Window.Start) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidWindow, q.Window)
	}

	s.log.Info("Building cashflow", map[string]interface{}{
		"window":          q.Window.String(),
		"lookback":        q.Lookback,
		"burn_adjust_pct": q.BurnAdjustPct,
	})

	res, err := s.load(ctx, models.DatasetCashflowItems)
	if err != nil {
		return zero, err
	}

	stmt, err := statements.BuildCashflow(res[0].Table, q.Window)
	if err != nil {
		return zero, fmt.Errorf("failed to build cashflow for %s: %w", q.Window, err)
	}
	for _, w := range stmt.Warnings {
		s.log.Warn("Cashflow warning", map[string]interface{}{"warning": w})
	}

	runway, err := statements.Runway(stmt, q.Lookback, q.BurnAdjustPct)
	if err != nil {
		return zero, fmt.Errorf("failed to compute runway: %w", err)
	}

	return report(s, models.CashflowReport{Statement: stmt, Runway: runway}, res, map[string]decimal.Decimal{
		"ending_cash":          runway.EndingCash,
		"monthly_net":          runway.MonthlyNet,
		"adjusted_monthly_net": runway.AdjustedMonthlyNet,
	}), nil
}

func (s *reportService) CashPosition(ctx context.Context, through models.Month) (models.Report[models.CashPosition], error) {
	var zero models.Report[models.CashPosition]
	res, err := s.load(ctx, models.DatasetCashflowItems)
	if err != nil {
		return zero, err
	}

	if through.IsZero() {
		periods := aggregate.Periods(res[0].Table, models.ColPeriodLower)
		if len(periods) == 0 {
			return zero, fmt.Errorf("cash position: %w", statements.ErrNoData)
		}
		through = periods[len(periods)-1]
	}

	pos, err := statements.CashPosition(res[0].Table, through)
	if err != nil {
		return zero, fmt.Errorf("failed to compute cash position through %s: %w", through, err)
	}
	return report(s, pos, res, map[string]decimal.Decimal{
		"opening_cash": pos.OpeningCash,
		"other_flows":  pos.OtherFlows,
		"ending_cash":  pos.EndingCash,
	}), nil
}

func (s *reportService) Scenario(ctx context.Context, q ScenarioQuery) (models.Report[models.ScenarioProjection], error) {
	var zero models.Report[models.ScenarioProjection]
	opts, err := s.pnlOptions(PnLQuery{Scenario: q.Scenario})
	if err != nil {
		return zero, err
	}

	res, err := s.load(ctx, models.DatasetGLTransactions, models.DatasetChartOfAccounts, models.DatasetModelAssumptions)
	if err != nil {
		return zero, err
	}

	base, err := statements.BaseActuals(res[0].Table, res[1].Table, q.Through, opts)
	if err != nil {
		return zero, fmt.Errorf("failed to compute base actuals: %w", err)
	}

	in := statements.DefaultScenarioInputs(res[2].Table)
	if q.Growth != nil {
		in.Growth = *q.Growth
	}
	if q.GrossMargin != nil {
		in.GrossMargin = *q.GrossMargin
	}
	if q.OpexPct != nil {
		in.OpexPct = *q.OpexPct
	}

	p := statements.ProjectScenario(base, in)
	s.log.Info("Scenario projected", map[string]interface{}{
		"through":      base.Through.String(),
		"growth":       in.Growth,
		"gross_margin": in.GrossMargin,
		"opex_pct":     in.OpexPct,
	})

	return report(s, p, res, map[string]decimal.Decimal{
		"base_revenue":     base.Revenue,
		"base_ebitda":      base.EBITDA,
		"target_revenue":   p.TargetRevenue,
		"projected_ebitda": p.ProjectedEBITDA,
	}), nil
}

func (s *reportService) ExitValues(ctx context.Context, capRate decimal.Decimal) (models.Report[models.ExitValuation], error) {
	var zero models.Report[models.ExitValuation]
	res, err := s.load(ctx, models.DatasetFinancials, models.DatasetProperties)
	if err != nil {
		return zero, err
	}

	ev, err := statements.ExitValues(res[0].Table, res[1].Table, capRate)
	if err != nil {
		return zero, fmt.Errorf("failed to value exits at cap rate %s: %w", capRate, err)
	}
	return report(s, ev, res, map[string]decimal.Decimal{
		"total_t12_noi":    ev.TotalT12NOI,
		"total_exit_value": ev.TotalExitValue,
	}), nil
}

func (s *reportService) PortfolioOverview(ctx context.Context) (models.Report[models.PortfolioOverview], error) {
	var zero models.Report[models.PortfolioOverview]
	res, err := s.load(ctx, models.DatasetCollections, models.DatasetFinancials, models.DatasetProperties)
	if err != nil {
		return zero, err
	}

	o, err := statements.PortfolioOverview(res[0].Table, res[1].Table, res[2].Table)
	if err != nil {
		return zero, fmt.Errorf("failed to build portfolio overview: %w", err)
	}
	return report(s, o, res, map[string]decimal.Decimal{"latest_noi": o.LatestNOI}), nil
}

func (s *reportService) Collections(ctx context.Context, month models.Month) (models.Report[models.CollectionsSummary], error) {
	var zero models.Report[models.CollectionsSummary]
	res, err := s.load(ctx, models.DatasetCollections)
	if err != nil {
		return zero, err
	}

	c, err := statements.CollectionsSummary(res[0].Table, month)
	if err != nil {
		return zero, fmt.Errorf("failed to summarise collections: %w", err)
	}
	return report(s, c, res, nil), nil
}

func (s *reportService) Financials(ctx context.Context, f statements.FinancialFilter) (models.Report[models.FinancialSummary], error) {
	var zero models.Report[models.FinancialSummary]
	res, err := s.load(ctx, models.DatasetFinancials)
	if err != nil {
		return zero, err
	}

	fs, err := statements.FinancialSummary(res[0].Table, f)
	if err != nil {
		return zero, fmt.Errorf("failed to summarise financials: %w", err)
	}
	return report(s, fs, res, map[string]decimal.Decimal{
		"revenue":      fs.Revenue,
		"opex":         fs.Opex,
		"noi":          fs.NOI,
		"budget_noi":   fs.BudgetNOI,
		"noi_variance": fs.NOIVariance,
	}), nil
}

func (s *reportService) RiskExceptions(ctx context.Context, month models.Month, th statements.RiskThresholds) (models.Report[models.RiskReport], error) {
	var zero models.Report[models.RiskReport]
	res, err := s.load(ctx, models.DatasetCollections)
	if err != nil {
		return zero, err
	}

	r, err := statements.RiskExceptions(res[0].Table, month, th)
	if err != nil {
		return zero, fmt.Errorf("failed to flag risk exceptions: %w", err)
	}
	if len(r.Exceptions) > 0 {
		s.log.Info("Risk exceptions found", map[string]interface{}{
			"as_of": r.AsOf.Format("2006-01-02"),
			"count": len(r.Exceptions),
		})
	}
	return report(s, r, res, nil), nil
}

func (s *reportService) Properties(ctx context.Context) (models.Report[models.PropertiesSummary], error) {
	var zero models.Report[models.PropertiesSummary]
	res, err := s.load(ctx, models.DatasetProperties)
	if err != nil {
		return zero, err
	}
	return report(s, statements.PropertiesSummary(res[0].Table), res, nil), nil
}

func (s *reportService) OperationalKPIs(ctx context.Context, metric string) (models.Report[models.MetricSeries], error) {
	var zero models.Report[models.MetricSeries]
	res, err := s.load(ctx, models.DatasetOperationalKPIs)
	if err != nil {
		return zero, err
	}

	m, err := statements.MetricSeries(res[0].Table, metric)
	if err != nil {
		return zero, fmt.Errorf("failed to load metric %q: %w", metric, err)
	}
	return report(s, m, res, nil), nil
}
