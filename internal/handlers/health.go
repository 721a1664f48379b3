package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/craftbits/executive-portal/internal/cache"
	"github.com/craftbits/executive-portal/internal/middleware"
	"github.com/gin-gonic/gin"
)

const (
	// APIVersion is the current version of the API
	APIVersion = "0.3.0"
	// HealthCheckTimeout is the timeout for database health checks
	HealthCheckTimeout = 2 * time.Second
)

// Pinger is the part of the database the readiness check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsProvider reports dataset cache counters.
type StatsProvider interface {
	CacheStats() cache.Stats
}

// HealthHandler handles health check and readiness endpoints.
type HealthHandler struct {
	db        Pinger
	stats     StatsProvider
	startTime time.Time
	env       string
}

// NewHealthHandler creates a new HealthHandler instance. db may be nil when
// the SQL dataset source is disabled.
func NewHealthHandler(db Pinger, stats StatsProvider, env string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		stats:     stats,
		startTime: time.Now(),
		env:       env,
	}
}

// HealthResponse represents the basic health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// InfoResponse represents the API information response.
type InfoResponse struct {
	Version     string      `json:"version"`
	Environment string      `json:"environment"`
	Uptime      string      `json:"uptime"`
	Cache       cache.Stats `json:"cache"`
}

// Health handles GET /health endpoint.
// It never checks dependencies and is used for liveness checks.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
	})
}

// Ready handles GET /health/ready endpoint.
// Reports are always servable from synthetic data, so only a configured
// but unreachable database makes the service not ready.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, ReadyResponse{
			Status:   "ready",
			Database: "disabled",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), HealthCheckTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		if log := middleware.GetLogger(c); log != nil {
			log.Error("Database health check failed", err, map[string]interface{}{
				"timeout": HealthCheckTimeout.String(),
			})
		}

		c.JSON(http.StatusServiceUnavailable, ReadyResponse{
			Status:   "not_ready",
			Database: "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, ReadyResponse{
		Status:   "ready",
		Database: "connected",
	})
}

// Info handles GET /api/v1/info endpoint.
// Returns API metadata including version, environment, uptime and cache counters.
func (h *HealthHandler) Info(c *gin.Context) {
	resp := InfoResponse{
		Version:     APIVersion,
		Environment: h.env,
		Uptime:      formatUptime(time.Since(h.startTime)),
	}
	if h.stats != nil {
		resp.Cache = h.stats.CacheStats()
	}
	c.JSON(http.StatusOK, resp)
}

// formatUptime formats a duration into a human-readable string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
