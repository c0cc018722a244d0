// Package handlers serves the core system endpoints that belong to no module
package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mantonx/streamhub/internal/apiroutes"
	"github.com/mantonx/streamhub/internal/modules/modulemanager"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const healthTimeout = 2 * time.Second

// SystemHandler serves /api/health and the /api route index
type SystemHandler struct {
	started time.Time
	ping    func(ctx context.Context) error
	modules func(ctx context.Context) map[string]modulemanager.HealthStatus
}

// NewSystemHandler creates a handler. ping checks the database; modules
// reports module health and may be nil.
func NewSystemHandler(started time.Time, ping func(ctx context.Context) error, modules func(ctx context.Context) map[string]modulemanager.HealthStatus) *SystemHandler {
	return &SystemHandler{started: started, ping: ping, modules: modules}
}

// ResourceUsage is the host and process snapshot reported by the health check
type ResourceUsage struct {
	Goroutines       int     `json:"goroutines"`
	ProcessRSSBytes  uint64  `json:"process_rss_bytes"`
	ProcessCPU       float64 `json:"process_cpu_percent"`
	HostMemoryUsed   float64 `json:"host_memory_used_percent"`
	HostMemoryTotal  uint64  `json:"host_memory_total_bytes"`
	HostCPU          float64 `json:"host_cpu_percent"`
	HostLogicalCores int     `json:"host_logical_cores"`
}

// Health handles GET /api/health. It answers 503 when the database does not
// respond or a module reports itself unhealthy.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := "ok"
	database := gin.H{"status": "connected"}
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			database = gin.H{"status": "error", "error": err.Error()}
			status = "unavailable"
		}
	}

	body := gin.H{
		"service":        "streamhub",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"database":       database,
		"resources":      collectUsage(ctx),
	}

	if h.modules != nil {
		modules := h.modules(ctx)
		for _, health := range modules {
			if health.Status == modulemanager.HealthStateUnhealthy && status == "ok" {
				status = "degraded"
			}
		}
		body["modules"] = modules
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	body["status"] = status
	c.JSON(code, body)
}

// collectUsage gathers what it can; readings unsupported on the host are left
// at zero
func collectUsage(ctx context.Context) ResourceUsage {
	usage := ResourceUsage{Goroutines: runtime.NumGoroutine()}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		usage.HostMemoryUsed = vm.UsedPercent
		usage.HostMemoryTotal = vm.Total
	}
	// interval 0 compares against the previous call
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		usage.HostCPU = percents[0]
	}
	if cores, err := cpu.CountsWithContext(ctx, true); err == nil {
		usage.HostLogicalCores = cores
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
			usage.ProcessRSSBytes = info.RSS
		}
		if percent, err := proc.CPUPercentWithContext(ctx); err == nil {
			usage.ProcessCPU = percent
		}
	}
	return usage
}

// APIRoot handles GET /api with the list of registered routes
func (h *SystemHandler) APIRoot(c *gin.Context) {
	routes := apiroutes.Get()
	c.JSON(http.StatusOK, gin.H{
		"service": "streamhub",
		"routes":  routes,
		"count":   len(routes),
	})
}
