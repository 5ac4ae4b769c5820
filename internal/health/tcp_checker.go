package health

import (
	"context"
	"fmt"
	"time"

	"github.com/taoyao-code/lightmanager-gateway/internal/tcpserver"
)

// TCPStats 命令端口统计来源（tcpserver.Server）
type TCPStats interface {
	AdmissionStats() tcpserver.AdmissionStats
}

// TCPChecker 命令端口检查
type TCPChecker struct {
	server TCPStats
}

// NewTCPChecker 创建命令端口检查器
func NewTCPChecker(server TCPStats) *TCPChecker {
	return &TCPChecker{server: server}
}

// Name 检查器名称
func (c *TCPChecker) Name() string { return "tcp" }

// Check 按连接利用率判断：>80% 降级，>95% 不健康
func (c *TCPChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	stats := c.server.AdmissionStats()

	status, message := StatusHealthy, "ok"
	switch {
	case stats.Utilization > 0.95:
		status, message = StatusUnhealthy, "connection limit near exhausted"
	case stats.Utilization > 0.8:
		status, message = StatusDegraded, "high connection usage"
	}
	return CheckResult{
		Status:  status,
		Message: message,
		Details: map[string]any{
			"active_connections": stats.ActiveConnections,
			"max_connections":    stats.MaxConnections,
			"utilization":        fmt.Sprintf("%.1f%%", stats.Utilization*100),
			"rejected_rate":      stats.RejectedRate,
			"rejected_limit":     stats.RejectedLimit,
		},
		Latency: time.Since(start),
	}
}
