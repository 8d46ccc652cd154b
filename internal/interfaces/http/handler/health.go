package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/application/pricing"
)

// Pinger checks connectivity to a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler exposes liveness and readiness probes
type HealthHandler struct {
	db        Pinger
	snapshots pricing.SnapshotProvider
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, snapshots pricing.SnapshotProvider) *HealthHandler {
	return &HealthHandler{db: db, snapshots: snapshots}
}

// Register registers the probes on the engine root, outside the API group
func (h *HealthHandler) Register(engine *gin.Engine) {
	engine.GET("/health", h.Health)
	engine.GET("/ready", h.Ready)
}

// Health reports process liveness
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the service can price orders: the database is
// reachable and a configuration snapshot is available
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "database unreachable",
		})
		return
	}

	snap, err := h.snapshots.Current(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "pricing snapshot not loaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"snapshot_built_at": snap.BuiltAt(),
		"config_issues":     len(snap.Issues()),
	})
}
