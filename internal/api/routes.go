// Package api 管理接口路由：命令执行、会话、住宅码、命令日志与 OpenAPI 文档。
package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/api/middleware"
)

//go:embed openapi.json
var openAPISpec []byte

// RegisterRoutes 注册 /api/v1 路由与 Swagger UI
func RegisterRoutes(r *gin.Engine, h *Handler, authCfg middleware.AuthConfig, logger *zap.Logger) {
	if r == nil || h == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPISpec)
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/openapi.json")))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.CORS())
	if authCfg.Enabled {
		v1.Use(middleware.APIKeyAuth(authCfg, logger))
		logger.Info("api authentication enabled", zap.Int("api_keys_count", len(authCfg.APIKeys)))
	} else {
		logger.Warn("api authentication disabled")
	}

	v1.POST("/commands", h.ExecuteCommand)
	v1.GET("/sessions", h.ListSessions)
	v1.GET("/housecode", h.GetHousecode)
	v1.GET("/journal", h.ListJournal)
}
