package health

import (
	"context"
	"time"

	"github.com/taoyao-code/lightmanager-gateway/internal/protocol/lightmanager"
)

// DeviceChecker 设备通道检查：只读取熔断器状态，不向设备发送探测帧
type DeviceChecker struct {
	breaker *lightmanager.Breaker
	driver  string
}

// NewDeviceChecker 创建设备检查器，breaker 为 nil 时总是健康
func NewDeviceChecker(driver string, breaker *lightmanager.Breaker) *DeviceChecker {
	return &DeviceChecker{breaker: breaker, driver: driver}
}

// Name 检查器名称
func (c *DeviceChecker) Name() string { return "device" }

// Check open 为不健康，half_open 为降级
func (c *DeviceChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	details := map[string]any{"driver": c.driver}
	if c.breaker == nil {
		return CheckResult{Status: StatusHealthy, Message: "ok", Details: details, Latency: time.Since(start)}
	}

	stats := c.breaker.Stats()
	details["breaker_state"] = stats.State
	details["consecutive_failures"] = stats.Failures
	details["trip_count"] = stats.TripCount
	if !stats.LastFail.IsZero() {
		details["last_failure"] = stats.LastFail
	}

	status, message := StatusHealthy, "ok"
	switch c.breaker.State() {
	case lightmanager.BreakerOpen:
		status, message = StatusUnhealthy, "device circuit open"
	case lightmanager.BreakerHalfOpen:
		status, message = StatusDegraded, "device recovering"
	}
	return CheckResult{Status: status, Message: message, Details: details, Latency: time.Since(start)}
}
