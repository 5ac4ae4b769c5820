package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterHTTPRoutes 注册健康检查路由：/healthz 存活、/readyz 就绪、/health 详细报告
func RegisterHTTPRoutes(r gin.IRoutes, readiness *Readiness, aggregator *Aggregator) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"alive": true})
	})

	r.GET("/readyz", func(c *gin.Context) {
		ready := readiness == nil || readiness.Ready()
		if ready && aggregator != nil {
			ready = aggregator.Ready(c.Request.Context())
		}
		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "ready": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ready": true})
	})

	r.GET("/health", func(c *gin.Context) {
		if aggregator == nil {
			c.JSON(http.StatusOK, gin.H{"status": StatusHealthy})
			return
		}
		report := aggregator.Report(c.Request.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, report)
	})
}
