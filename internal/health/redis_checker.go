package health

import (
	"context"
	"fmt"
	"time"

	redisstorage "github.com/taoyao-code/lightmanager-gateway/internal/storage/redis"
)

// RedisChecker 事件发布 Redis 检查
type RedisChecker struct {
	client *redisstorage.Client
}

// NewRedisChecker 创建 Redis 检查器
func NewRedisChecker(client *redisstorage.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Name 检查器名称
func (c *RedisChecker) Name() string { return "redis" }

// Check Ping 并附带连接池统计；Redis 只承载事件，不可用算降级
func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	if err := c.client.HealthCheck(ctx); err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("ping failed: %v", err),
			Latency: time.Since(start),
		}
	}

	stats := c.client.PoolStats()
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]any{
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"hits":        stats.Hits,
			"misses":      stats.Misses,
			"timeouts":    stats.Timeouts,
		},
		Latency: time.Since(start),
	}
}
