package handlers

import (
	"context"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *pgxpool.Pool and middleware.RateLimiter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnCounter reports open balance feed connections.
type ConnCounter interface {
	Total() int
}

type probe struct {
	name     string
	pinger   Pinger
	critical bool
}

// HealthHandler serves the liveness and readiness probes. The database is
// always critical; extra dependencies are added with AddProbe.
type HealthHandler struct {
	probes  []probe
	hub     ConnCounter
	started time.Time
	version string
}

func NewHealthHandler(db Pinger, hub ConnCounter, version string) *HealthHandler {
	return &HealthHandler{
		probes:  []probe{{name: "database", pinger: db, critical: true}},
		hub:     hub,
		started: time.Now(),
		version: version,
	}
}

// AddProbe registers a dependency. A failing non-critical probe marks the
// service degraded but still ready.
func (h *HealthHandler) AddProbe(name string, p Pinger, critical bool) *HealthHandler {
	h.probes = append(h.probes, probe{name: name, pinger: p, critical: critical})
	return h
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness only proves the process serves HTTP.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness pings every probe and reports runtime counters.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.probes)+3)
	status, code := "healthy", http.StatusOK
	for _, p := range h.probes {
		if err := p.pinger.Ping(ctx); err != nil {
			checks[p.name] = "unhealthy: " + err.Error()
			if p.critical {
				status, code = "unhealthy", http.StatusServiceUnavailable
			} else if status == "healthy" {
				status = "degraded"
			}
			continue
		}
		checks[p.name] = "healthy"
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	checks["memory_alloc_mb"] = strconv.FormatFloat(float64(mem.Alloc)/(1<<20), 'f', 2, 64)
	checks["goroutines"] = strconv.Itoa(runtime.NumGoroutine())
	if h.hub != nil {
		checks["ws_connections"] = strconv.Itoa(h.hub.Total())
	}

	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// Health is the cheap probe: critical dependencies only.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for _, p := range h.probes {
		if !p.critical {
			continue
		}
		if err := p.pinger.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": p.name + " unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
