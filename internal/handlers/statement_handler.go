package handlers

import (
	apierrors "github.com/craftbits/executive-portal/internal/errors"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/craftbits/executive-portal/internal/services"
	"github.com/craftbits/executive-portal/internal/statements"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Defaults applied when a statement query omits them.
const (
	DefaultLookback = 3
	DefaultCapRate  = 0.06
)

// StatementHandler serves the financial statements.
type StatementHandler struct {
	service services.ReportService
}

// NewStatementHandler creates a new StatementHandler instance.
func NewStatementHandler(service services.ReportService) *StatementHandler {
	return &StatementHandler{service: service}
}

// PnLRequest represents the query parameters for the P&L endpoints.
type PnLRequest struct {
	WindowRequest
	Scenario string `form:"scenario" binding:"omitempty,max=64"`
	Sign     string `form:"sign" binding:"omitempty,oneof=ledger positive"`
	// Budget toggles the budget columns of the matrix. Defaults to true.
	Budget *bool `form:"budget"`
}

func (r PnLRequest) query() services.PnLQuery {
	return services.PnLQuery{
		Window:   r.Window(),
		Scenario: r.Scenario,
		Sign:     statements.SignConvention(r.Sign),
	}
}

// CashflowRequest represents the query parameters for the cashflow endpoint.
type CashflowRequest struct {
	WindowRequest
	Lookback   int     `form:"lookback" binding:"omitempty,min=1,max=36"`
	BurnAdjust float64 `form:"burn_adjust" binding:"gte=-1,lte=1"`
}

// CashPositionRequest represents the query parameters for the cash position endpoint.
type CashPositionRequest struct {
	Through string `form:"through" binding:"omitempty,datetime=2006-01"`
}

// ScenarioRequest represents the query parameters for the scenario endpoint.
// Omitted ratios come from the model assumptions dataset.
type ScenarioRequest struct {
	Through     string   `form:"through" binding:"omitempty,datetime=2006-01"`
	Scenario    string   `form:"scenario" binding:"omitempty,max=64"`
	Growth      *float64 `form:"growth" binding:"omitempty,gte=-1,lte=10"`
	GrossMargin *float64 `form:"gross_margin" binding:"omitempty,gte=-1,lte=1"`
	OpexPct     *float64 `form:"opex_pct" binding:"omitempty,gte=0,lte=5"`
}

// ExitValueRequest represents the query parameters for the exit value endpoint.
type ExitValueRequest struct {
	CapRate float64 `form:"cap_rate" binding:"omitempty,gt=0,lte=1"`
}

// PnL handles GET /api/v1/statements/pnl.
func (h *StatementHandler) PnL(c *gin.Context) {
	var req PnLRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.PnL(c.Request.Context(), req.query())
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to build P&L")
		return
	}
	writeReport(c, rep)
}

// PnLMatrix handles GET /api/v1/statements/pnl/matrix.
func (h *StatementHandler) PnLMatrix(c *gin.Context) {
	var req PnLRequest
	if !bindQuery(c, &req) {
		return
	}
	includeBudget := req.Budget == nil || *req.Budget

	rep, err := h.service.PnLMatrix(c.Request.Context(), req.query(), includeBudget)
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to build P&L matrix")
		return
	}
	writeReport(c, rep)
}

// PnLTrend handles GET /api/v1/statements/pnl/trend.
func (h *StatementHandler) PnLTrend(c *gin.Context) {
	var req PnLRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.PnLTrend(c.Request.Context(), req.query())
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to build P&L trend")
		return
	}
	writeReport(c, rep)
}

// Cashflow handles GET /api/v1/statements/cashflow.
// It returns the month-by-month cash walk and the runway estimate.
func (h *StatementHandler) Cashflow(c *gin.Context) {
	var req CashflowRequest
	if !bindQuery(c, &req) {
		return
	}
	if req.Lookback == 0 {
		req.Lookback = DefaultLookback
	}

	if log := middleware.GetLogger(c); log != nil {
		log.Debug("Processing cashflow request", map[string]interface{}{
			"start":       req.Start,
			"end":         req.End,
			"lookback":    req.Lookback,
			"burn_adjust": req.BurnAdjust,
		})
	}

	rep, err := h.service.Cashflow(c.Request.Context(), services.CashflowQuery{
		Window:        req.Window(),
		Lookback:      req.Lookback,
		BurnAdjustPct: req.BurnAdjust,
	})
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to build cashflow")
		return
	}
	writeReport(c, rep)
}

// CashPosition handles GET /api/v1/statements/cash-position.
func (h *StatementHandler) CashPosition(c *gin.Context) {
	var req CashPositionRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.CashPosition(c.Request.Context(), month(req.Through))
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to compute cash position")
		return
	}
	writeReport(c, rep)
}

// Scenario handles GET /api/v1/statements/scenario.
func (h *StatementHandler) Scenario(c *gin.Context) {
	var req ScenarioRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.Scenario(c.Request.Context(), services.ScenarioQuery{
		Through:     month(req.Through),
		Scenario:    req.Scenario,
		Growth:      req.Growth,
		GrossMargin: req.GrossMargin,
		OpexPct:     req.OpexPct,
	})
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to project scenario")
		return
	}
	writeReport(c, rep)
}

// ExitValue handles GET /api/v1/statements/exit-value.
func (h *StatementHandler) ExitValue(c *gin.Context) {
	var req ExitValueRequest
	if !bindQuery(c, &req) {
		return
	}
	if req.CapRate == 0 {
		req.CapRate = DefaultCapRate
	}

	rep, err := h.service.ExitValues(c.Request.Context(), decimal.NewFromFloat(req.CapRate))
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to compute exit values")
		return
	}
	writeReport(c, rep)
}
