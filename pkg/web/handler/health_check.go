package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"quick-swgoh/pkg/core/history/repository/dao"
	"quick-swgoh/pkg/core/lookup/backend"
)

type HealthCheckHandler struct {
	api       backend.API
	history   dao.HistoryRepository
	dbEnabled bool
}

func NewHealthCheckHandler(api backend.API, history dao.HistoryRepository, dbEnabled bool) *HealthCheckHandler {
	return &HealthCheckHandler{api: api, history: history, dbEnabled: dbEnabled}
}

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Uptime     string            `json:"uptime"`
	Components []ComponentStatus `json:"components,omitempty"`
}

type ComponentStatus struct {
	Name    string        `json:"name"`
	Status  string        `json:"status"`
	IsCore  bool          `json:"is_core"`
	Latency time.Duration `json:"latency,omitempty"`
	Error   string        `json:"error,omitempty"`
}

var startupTime = time.Now()

// AdvancedHealthCheck 后端不可达只算降级提示，数据库启用时为核心组件
func (h *HealthCheckHandler) AdvancedHealthCheck(ctx context.Context, c *app.RequestContext) {
	components := []ComponentStatus{
		probe(ctx, "backend", false, h.api.Ping),
	}
	if h.dbEnabled {
		components = append(components, probe(ctx, "database", true, h.history.Ping))
	}

	status := HealthStatus{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(startupTime).Round(time.Second).String(),
		Components: components,
	}

	if hasCriticalErrors(status.Components) {
		status.Status = "degraded"
		c.JSON(503, status)
		return
	}

	c.JSON(200, status)
}

func probe(ctx context.Context, name string, core bool, check func(context.Context) error) ComponentStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	comp := ComponentStatus{Name: name, Status: "ok", IsCore: core}
	if err := check(ctx); err != nil {
		comp.Status = "unavailable"
		comp.Error = err.Error()
	}
	comp.Latency = time.Since(start)
	return comp
}

func hasCriticalErrors(components []ComponentStatus) bool {
	for _, comp := range components {
		// 核心组件状态异常或任意组件发生严重错误
		if (comp.IsCore && comp.Status != "ok") || comp.Status == "critical" {
			return true
		}
	}
	return false
}
