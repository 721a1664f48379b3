package handlers

import (
	"net/http"

	"github.com/craftbits/executive-portal/internal/cache"
	"github.com/craftbits/executive-portal/internal/dataset"
	apierrors "github.com/craftbits/executive-portal/internal/errors"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/craftbits/executive-portal/internal/models"
	"github.com/craftbits/executive-portal/internal/services"
	"github.com/gin-gonic/gin"
)

// DefaultRowLimit caps the rows returned by the dataset endpoint.
const DefaultRowLimit = 500

// DatasetHandler exposes the loaded datasets and the cache behind them.
type DatasetHandler struct {
	service services.ReportService
}

// NewDatasetHandler creates a new DatasetHandler instance.
func NewDatasetHandler(service services.ReportService) *DatasetHandler {
	return &DatasetHandler{service: service}
}

// DatasetRequest represents the query parameters for the dataset endpoint.
type DatasetRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=10000"`
}

// DatasetListResponse lists the registered datasets.
type DatasetListResponse struct {
	Datasets []models.DatasetStatus `json:"datasets"`
	Cache    cache.Stats            `json:"cache"`
	Count    int                    `json:"count"`
}

// InvalidateResponse confirms a cache invalidation.
type InvalidateResponse struct {
	Invalidated string `json:"invalidated"`
}

// List handles GET /api/v1/datasets.
func (h *DatasetHandler) List(c *gin.Context) {
	list := h.service.ListDatasets(c.Request.Context())
	c.JSON(http.StatusOK, DatasetListResponse{
		Datasets: list,
		Cache:    h.service.CacheStats(),
		Count:    len(list),
	})
}

// Get handles GET /api/v1/datasets/:name.
// It returns the first rows of the dataset with its provenance.
func (h *DatasetHandler) Get(c *gin.Context) {
	var req DatasetRequest
	if !bindQuery(c, &req) {
		return
	}
	if req.Limit == 0 {
		req.Limit = DefaultRowLimit
	}

	name := c.Param("name")
	res, err := h.service.LoadDataset(c.Request.Context(), name)
	if err != nil {
		apierrors.FromServiceError(c, err, "Failed to load dataset")
		return
	}

	rows := res.Table.Len()
	source := dataset.ProvenanceReal
	if res.Synthetic() {
		source = dataset.ProvenanceSynthetic
	}
	c.Header(middleware.DataSourceHeader, source)
	c.JSON(http.StatusOK, models.DatasetView{
		Source:    res.Info(),
		Rows:      rows,
		Truncated: rows > req.Limit,
		Table:     res.Table.Head(req.Limit),
	})
}

// Invalidate handles POST /api/v1/datasets/:name/invalidate.
func (h *DatasetHandler) Invalidate(c *gin.Context) {
	name := c.Param("name")
	h.service.Invalidate(name)
	c.JSON(http.StatusOK, InvalidateResponse{Invalidated: name})
}

// Purge handles POST /api/v1/cache/purge.
func (h *DatasetHandler) Purge(c *gin.Context) {
	h.service.Invalidate("")
	c.JSON(http.StatusOK, InvalidateResponse{Invalidated: "*"})
}
