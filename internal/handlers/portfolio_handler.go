package handlers

import (
	apierrors "github.com/craftbits/executive-portal/internal/errors"
	"github.com/craftbits/executive-portal/internal/services"
	"github.com/craftbits/executive-portal/internal/statements"
	"github.com/gin-gonic/gin"
)

// PortfolioHandler serves the property portfolio views and operational KPIs.
type PortfolioHandler struct {
	service services.ReportService
}

// NewPortfolioHandler creates a new PortfolioHandler instance.
func NewPortfolioHandler(service services.ReportService) *PortfolioHandler {
	return &PortfolioHandler{service: service}
}

// MonthRequest selects a single month; omitted means the latest.
type MonthRequest struct {
	Month string `form:"month" binding:"omitempty,datetime=2006-01"`
}

// FinancialsRequest represents the query parameters for the financials endpoint.
// Region and property may repeat.
type FinancialsRequest struct {
	MonthRequest
	Regions    []string `form:"region" binding:"omitempty,dive,min=1"`
	Properties []string `form:"property" binding:"omitempty,dive,min=1"`
}

// RiskRequest represents the query parameters for the risk endpoint.
// Omitted thresholds use the defaults.
type RiskRequest struct {
	MonthRequest
	Occupancy  float64 `form:"occupancy" binding:"omitempty,gt=0,lte=1"`
	Collection float64 `form:"collection" binding:"omitempty,gt=0,lte=1"`
	Delta      float64 `form:"delta" binding:"omitempty,gt=0,lt=1"`
}

// KPIRequest represents the query parameters for the operational KPI endpoint.
type KPIRequest struct {
	Metric string `form:"metric" binding:"omitempty,max=128"`
}

// Overview handles GET /api/v1/portfolio/overview.
func (h *PortfolioHandler) Overview(c *gin.Context) {
	rep, err := h.service.PortfolioOverview(c.Request.Context())
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to build portfolio overview")
		return
	}
	writeReport(c, rep)
}

// Collections handles GET /api/v1/portfolio/collections.
func (h *PortfolioHandler) Collections(c *gin.Context) {
	var req MonthRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.Collections(c.Request.Context(), month(req.Month))
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to summarise collections")
		return
	}
	writeReport(c, rep)
}

// Financials handles GET /api/v1/portfolio/financials.
func (h *PortfolioHandler) Financials(c *gin.Context) {
	var req FinancialsRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.Financials(c.Request.Context(), statements.FinancialFilter{
		Month:      month(req.Month),
		Regions:    req.Regions,
		Properties: req.Properties,
	})
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to summarise financials")
		return
	}
	writeReport(c, rep)
}

// Risk handles GET /api/v1/portfolio/risk.
func (h *PortfolioHandler) Risk(c *gin.Context) {
	var req RiskRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.RiskExceptions(c.Request.Context(), month(req.Month), statements.RiskThresholds{
		Occupancy:  req.Occupancy,
		Collection: req.Collection,
		Delta:      req.Delta,
	})
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to flag risk exceptions")
		return
	}
	writeReport(c, rep)
}

// Properties handles GET /api/v1/portfolio/properties.
func (h *PortfolioHandler) Properties(c *gin.Context) {
	rep, err := h.service.Properties(c.Request.Context())
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to summarise properties")
		return
	}
	writeReport(c, rep)
}

// OperationalKPIs handles GET /api/v1/kpis/operational.
func (h *PortfolioHandler) OperationalKPIs(c *gin.Context) {
	var req KPIRequest
	if !bindQuery(c, &req) {
		return
	}

	rep, err := h.service.OperationalKPIs(c.Request.Context(), req.Metric)
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to load operational KPIs")
		return
	}
	writeReport(c, rep)
}
