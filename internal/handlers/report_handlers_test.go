package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/craftbits/executive-portal/internal/cache"
	"github.com/craftbits/executive-portal/internal/dataset"
	apierrors "github.com/craftbits/executive-portal/internal/errors"
	"github.com/craftbits/executive-portal/internal/logger"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/craftbits/executive-portal/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cashflowCSV = `date,period,item_type,amount
2024-01-01,2024-01-01,Opening Cash,100000
2024-01-15,2024-01-01,Operating,-10000
2024-02-15,2024-02-01,Operating,-10000
`

// setupReportRouter serves the full route table over a data directory
// holding files. Datasets without a file resolve to synthetic data.
func setupReportRouter(t *testing.T, files map[string]string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(body), 0o600))
	}

	log := logger.Nop()
	loader := dataset.NewLoader(dataset.DefaultRegistry(), log, []dataset.Source{dataset.NewFileSource(dir, nil)})
	store := cache.New[*dataset.Result](loader.Load, cache.WithFreshness(loader.Freshness))
	service := services.NewReportService(store, loader, services.Options{}, log)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	RegisterRoutes(router, Handlers{
		Health:     NewHealthHandler(nil, service, "test"),
		Datasets:   NewDatasetHandler(service),
		Statements: NewStatementHandler(service),
		Portfolio:  NewPortfolioHandler(service),
	})
	return router
}

func doRequest(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apierrors.ErrorResponse {
	t.Helper()
	var resp apierrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestStatementHandler_Cashflow(t *testing.T) {
	router := setupReportRouter(t, map[string]string{"cashflow_items": cashflowCSV})

	w := doRequest(router, http.MethodGet, "/api/v1/statements/cashflow?lookback=2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, dataset.ProvenanceReal, w.Header().Get(middleware.DataSourceHeader))

	body := decodeBody(t, w)
	assert.Equal(t, false, body["synthetic"])
	assert.Equal(t, "USD", body["currency"])

	data := body["data"].(map[string]interface{})
	runway := data["runway"].(map[string]interface{})
	assert.Equal(t, "80000", runway["ending_cash"])
	assert.Equal(t, "-10000", runway["monthly_net"])
	assert.Equal(t, 8.0, runway["runway_months"])
	assert.Equal(t, false, runway["indefinite"])

	periods := data["statement"].(map[string]interface{})["periods"].([]interface{})
	require.Len(t, periods, 2)
	assert.Equal(t, "2024-01", periods[0].(map[string]interface{})["period"])

	display := body["display"].(map[string]interface{})
	assert.Equal(t, "$80,000.00", display["ending_cash"])
}

func TestStatementHandler_CashflowIndefiniteRunway(t *testing.T) {
	csv := `date,period,item_type,amount
2024-01-01,2024-01-01,Opening Cash,5000
2024-01-20,2024-01-01,Operating,250
`
	router := setupReportRouter(t, map[string]string{"cashflow_items": csv})

	w := doRequest(router, http.MethodGet, "/api/v1/statements/cashflow")
	require.Equal(t, http.StatusOK, w.Code)

	runway := decodeBody(t, w)["data"].(map[string]interface{})["runway"].(map[string]interface{})
	assert.Nil(t, runway["runway_months"])
	assert.Equal(t, true, runway["indefinite"])
}

func TestStatementHandler_Errors(t *testing.T) {
	router := setupReportRouter(t, map[string]string{"cashflow_items": cashflowCSV})

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "window without data",
			target:     "/api/v1/statements/cashflow?start=2031-01",
			wantStatus: http.StatusNotFound,
			wantCode:   apierrors.ErrNoData,
		},
		{
			name:       "malformed month",
			target:     "/api/v1/statements/pnl?start=January",
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.ErrValidation,
		},
		{
			name:       "inverted window",
			target:     "/api/v1/statements/pnl?start=2024-03&end=2024-01",
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.ErrBadRequest,
		},
		{
			name:       "unknown sign convention",
			target:     "/api/v1/statements/pnl?sign=inverted",
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.ErrValidation,
		},
		{
			name:       "lookback out of range",
			target:     "/api/v1/statements/cashflow?lookback=99",
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.ErrValidation,
		},
		{
			name:       "negative cap rate",
			target:     "/api/v1/statements/exit-value?cap_rate=-0.05",
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.ErrValidation,
		},
		{
			name:       "non-numeric lookback",
			target:     "/api/v1/statements/cashflow?lookback=three",
			wantStatus: http.StatusBadRequest,
			wantCode:   apierrors.ErrBadRequest,
		},
		{
			name:       "unknown metric",
			target:     "/api/v1/kpis/operational?metric=Nonexistent",
			wantStatus: http.StatusNotFound,
			wantCode:   apierrors.ErrNoData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.target)

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), resp.Error.RequestID)
		})
	}

	t.Run("validation names the field", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/statements/pnl?start=January")
		resp := decodeError(t, w)
		assert.Equal(t, "Must be a month in YYYY-MM format", resp.Error.Details["Start"])
	})
}

func TestReportRoutes_SyntheticData(t *testing.T) {
	router := setupReportRouter(t, nil)

	targets := []string{
		"/api/v1/statements/pnl",
		"/api/v1/statements/pnl?scenario=Actual&sign=ledger",
		"/api/v1/statements/pnl/matrix?budget=false",
		"/api/v1/statements/pnl/trend",
		"/api/v1/statements/cashflow?burn_adjust=-0.25",
		"/api/v1/statements/cash-position",
		"/api/v1/statements/scenario?growth=0.1",
		"/api/v1/statements/exit-value?cap_rate=0.055",
		"/api/v1/portfolio/overview",
		"/api/v1/portfolio/collections",
		"/api/v1/portfolio/financials?region=Midwest&region=Southeast",
		"/api/v1/portfolio/risk?occupancy=0.95",
		"/api/v1/portfolio/properties",
		"/api/v1/kpis/operational",
	}

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, target)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, dataset.ProvenanceSynthetic, w.Header().Get(middleware.DataSourceHeader))

			body := decodeBody(t, w)
			assert.Equal(t, true, body["synthetic"])
			assert.NotEmpty(t, body["sources"])
			assert.NotNil(t, body["data"])
		})
	}
}

func TestDatasetHandler(t *testing.T) {
	router := setupReportRouter(t, map[string]string{"cashflow_items": cashflowCSV})

	t.Run("list", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/datasets")
		require.Equal(t, http.StatusOK, w.Code)

		var resp DatasetListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 9, resp.Count)
		for _, ds := range resp.Datasets {
			if ds.Name == "cashflow_items" {
				assert.Positive(t, ds.Freshness)
			} else {
				assert.Zero(t, ds.Freshness, ds.Name)
			}
		}
	})

	t.Run("real dataset with limit", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/datasets/cashflow_items?limit=2")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, dataset.ProvenanceReal, w.Header().Get(middleware.DataSourceHeader))

		body := decodeBody(t, w)
		assert.Equal(t, 3.0, body["rows"])
		assert.Equal(t, true, body["truncated"])
		tbl := body["table"].(map[string]interface{})
		assert.Len(t, tbl["rows"], 2)
		assert.Equal(t, []interface{}{"date", "period", "item_type", "amount"}, tbl["columns"])
		assert.Equal(t, dataset.ProvenanceReal, body["source"].(map[string]interface{})["provenance"])
	})

	t.Run("synthetic dataset", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/datasets/collections")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, dataset.ProvenanceSynthetic, w.Header().Get(middleware.DataSourceHeader))

		source := decodeBody(t, w)["source"].(map[string]interface{})
		assert.Equal(t, dataset.ProvenanceSynthetic, source["provenance"])
		assert.NotEmpty(t, source["warnings"])
	})

	t.Run("unknown dataset", func(t *testing.T) {
		w := doRequest(router, http.MethodGet, "/api/v1/datasets/payroll")
		assert.Equal(t, http.StatusNotFound, w.Code)

		resp := decodeError(t, w)
		assert.Equal(t, apierrors.ErrUnknownDataset, resp.Error.Code)
		assert.Equal(t, "payroll", resp.Error.Details["dataset"])
	})

	t.Run("invalidate and purge", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, "/api/v1/datasets/cashflow_items/invalidate")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "cashflow_items", decodeBody(t, w)["invalidated"])

		w = doRequest(router, http.MethodPost, "/api/v1/cache/purge")
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(router, http.MethodGet, "/api/v1/info")
		require.Equal(t, http.StatusOK, w.Code)
		var info InfoResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Zero(t, info.Cache.Size)
	})
}
