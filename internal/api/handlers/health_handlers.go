package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/chainvest-service/chainvest_service/internal/infrastructure/cache"
	"github.com/chainvest-service/chainvest_service/internal/infrastructure/database"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	db        *sqlx.DB
	redis     cache.RedisClient
	logger    *logger.Logger
	version   string
	startTime time.Time
}

func NewHealthHandlers(db *sqlx.DB, redis cache.RedisClient, log *logger.Logger, version string) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		redis:     redis,
		logger:    log,
		version:   version,
		startTime: time.Now(),
	}
}

// Health reports overall service health, including database and cache
// connectivity
// GET /health
func (h *HealthHandlers) Health(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if err := database.HealthCheck(h.db); err != nil {
		h.logger.Error("Database health check failed", "error", err)
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if err := h.redis.Ping(ctx); err != nil {
		h.logger.Error("Redis health check failed", "error", err)
		checks["redis"] = "unhealthy"
		healthy = false
	} else {
		checks["redis"] = "healthy"
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    overall,
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// Ready checks if the service is ready to serve traffic
// GET /ready
func (h *HealthHandlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// Live checks if the process is alive
// GET /live
func (h *HealthHandlers) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	})
}

// Version returns the build version
// GET /version
func (h *HealthHandlers) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": h.version})
}
