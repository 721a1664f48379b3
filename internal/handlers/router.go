package handlers

import (
	"github.com/gin-gonic/gin"
)

// Handlers groups the route handlers registered by RegisterRoutes.
type Handlers struct {
	Health     *HealthHandler
	Datasets   *DatasetHandler
	Statements *StatementHandler
	Portfolio  *PortfolioHandler
}

// RegisterRoutes mounts the health probes and the /api/v1 routes on router.
func RegisterRoutes(router *gin.Engine, h Handlers) {
	router.GET("/health", h.Health.Health)
	router.GET("/health/ready", h.Health.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/info", h.Health.Info)
		v1.POST("/cache/purge", h.Datasets.Purge)

		datasets := v1.Group("/datasets")
		{
			datasets.GET("", h.Datasets.List)
			datasets.GET("/:name", h.Datasets.Get)
			datasets.POST("/:name/invalidate", h.Datasets.Invalidate)
		}

		stmts := v1.Group("/statements")
		{
			stmts.GET("/pnl", h.Statements.PnL)
			stmts.GET("/pnl/matrix", h.Statements.PnLMatrix)
			stmts.GET("/pnl/trend", h.Statements.PnLTrend)
			stmts.GET("/cashflow", h.Statements.Cashflow)
			stmts.GET("/cash-position", h.Statements.CashPosition)
			stmts.GET("/scenario", h.Statements.Scenario)
			stmts.GET("/exit-value", h.Statements.ExitValue)
		}

		portfolio := v1.Group("/portfolio")
		{
			portfolio.GET("/overview", h.Portfolio.Overview)
			portfolio.GET("/collections", h.Portfolio.Collections)
			portfolio.GET("/financials", h.Portfolio.Financials)
			portfolio.GET("/risk", h.Portfolio.Risk)
			portfolio.GET("/properties", h.Portfolio.Properties)
		}

		v1.GET("/kpis/operational", h.Portfolio.OperationalKPIs)
	}
}
