package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/api"
	"github.com/taoyao-code/lightmanager-gateway/internal/api/middleware"
	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/health"
	"github.com/taoyao-code/lightmanager-gateway/internal/httpserver"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
)

// AdminDeps 管理接口依赖
type AdminDeps struct {
	Handler   *api.Handler
	Readiness *health.Readiness
	Health    *health.Aggregator
	Registry  *prometheus.Registry
}

// NewHTTPServer 创建管理接口服务并注册指标、健康检查与 /api/v1 路由
func NewHTTPServer(cfg *cfgpkg.Config, deps AdminDeps, log *zap.Logger) *httpserver.Server {
	srv := httpserver.New(cfg.HTTP, log.Named("http"))
	if cfg.Metrics.Enable && deps.Registry != nil {
		srv.MountMetrics(cfg.Metrics.Path, metrics.Handler(deps.Registry))
	}
	health.RegisterHTTPRoutes(srv.Engine(), deps.Readiness, deps.Health)
	api.RegisterRoutes(srv.Engine(), deps.Handler, middleware.NewAuthConfig(cfg.HTTP.APIKeys), log.Named("api"))
	return srv
}
