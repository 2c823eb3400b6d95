package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

type MetricsHandler struct {
	version   string
	startedAt time.Time
}

func NewMetricsHandler(version string) *MetricsHandler {
	return &MetricsHandler{
		version:   version,
		startedAt: time.Now(),
	}
}

// GetMetrics returns basic process metrics for dashboards and uptime checks.
func (h *MetricsHandler) GetMetrics(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	c.JSON(http.StatusOK, gin.H{
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc_mb":  mem.HeapAlloc / 1024 / 1024,
	})
}
