package lightmanager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/device"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
)

// ErrDeviceIO 重试耗尽后的设备通信错误
var ErrDeviceIO = errors.New("USB communication error")

// RetryPolicy 单相位重试策略
type RetryPolicy struct {
	MaxAttempts int
	Timeout     time.Duration // 单次传输超时
	Wait        time.Duration // 失败后等待
}

// DefaultRetryPolicy 5 次尝试，每次 250ms 超时，失败后等待 250ms
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Timeout: 250 * time.Millisecond, Wait: 250 * time.Millisecond}
}

// Client 设备协议客户端，全进程共享一个实例。
// 只写发送按单次尝试加锁；需要回复的发送从写相位到读相位持有同一把锁，
// 回复不会被其他会话读走。
type Client struct {
	ch      device.Channel
	mu      sync.Mutex
	policy  RetryPolicy
	breaker *Breaker
	logger  *zap.Logger
	metrics *metrics.AppMetrics
	now     func() time.Time
}

// Option 客户端选项
type Option func(*Client)

// WithRetryPolicy 设置重试策略
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		if p.MaxAttempts > 0 {
			c.policy = p
		}
	}
}

// WithBreaker 启用熔断器
func WithBreaker(b *Breaker) Option { return func(c *Client) { c.breaker = b } }

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.AppMetrics) Option { return func(c *Client) { c.metrics = m } }

// WithClock 替换时间源（测试使用）
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// NewClient 创建协议客户端
func NewClient(ch device.Channel, opts ...Option) *Client {
	c := &Client{
		ch:     ch,
		policy: DefaultRetryPolicy(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Breaker 返回熔断器（未启用时为 nil）
func (c *Client) Breaker() *Breaker { return c.breaker }

// Send 发送一帧；expectReply 时在写相位成功后独立重试读相位并返回回复帧
func (c *Client) Send(ctx context.Context, f device.Frame, expectReply bool) (device.Frame, error) {
	if c.breaker == nil {
		return c.exchange(ctx, f, expectReply)
	}
	var reply device.Frame
	err := c.breaker.Call(func() error {
		var err error
		reply, err = c.exchange(ctx, f, expectReply)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrTooManyProbes) {
		if c.metrics != nil {
			c.metrics.DeviceBreakerHit.Inc()
		}
		return device.Frame{}, fmt.Errorf("%w: %w", ErrDeviceIO, err)
	}
	return reply, err
}

func (c *Client) exchange(ctx context.Context, f device.Frame, expectReply bool) (device.Frame, error) {
	if expectReply {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	buf := f
	if err := c.phase(ctx, device.EndpointOut, &buf, !expectReply); err != nil {
		return device.Frame{}, err
	}
	if !expectReply {
		return device.Frame{}, nil
	}
	var reply device.Frame
	if err := c.phase(ctx, device.EndpointIn, &reply, false); err != nil {
		return device.Frame{}, err
	}
	return reply, nil
}

// phase 执行一个相位的重试循环；lockEach 为 true 时每次尝试单独加锁
func (c *Client) phase(ctx context.Context, ep device.Endpoint, buf *device.Frame, lockEach bool) error {
	var last error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if c.metrics != nil {
				c.metrics.DeviceRetry.Inc()
			}
			if err := sleepCtx(ctx, c.policy.Wait); err != nil {
				return err
			}
		}
		last = c.attempt(ctx, ep, buf, lockEach)
		if last == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("device transfer failed",
			zap.Stringer("phase", ep),
			zap.Int("attempt", attempt),
			zap.Stringer("frame", buf),
			zap.Error(last))
	}
	c.logger.Warn("device transfer retries exhausted",
		zap.Stringer("phase", ep),
		zap.Int("attempts", c.policy.MaxAttempts),
		zap.Error(last))
	return fmt.Errorf("%w: %s failed after %d attempts: %v", ErrDeviceIO, ep, c.policy.MaxAttempts, last)
}

func (c *Client) attempt(ctx context.Context, ep device.Endpoint, buf *device.Frame, lock bool) error {
	if lock {
		c.mu.Lock()
		defer c.mu.Unlock()
	}
	start := time.Now()
	err := c.ch.Transfer(ctx, ep, buf, c.policy.Timeout)
	if c.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		c.metrics.DeviceTransfer.WithLabelValues(ep.String(), result).Inc()
		c.metrics.DeviceLatency.Observe(time.Since(start).Seconds())
	}
	if err == nil {
		c.logger.Debug("device transfer", zap.Stringer("phase", ep), zap.Stringer("frame", buf))
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetTime 依次发送时间帧、校正帧、提交帧，任一失败即中止
func (c *Client) SetTime(ctx context.Context, t time.Time) error {
	frames, err := TimeSetFrames(t)
	if err != nil {
		return err
	}
	for i, f := range frames {
		if _, err := c.Send(ctx, f, false); err != nil {
			return fmt.Errorf("set clock step %d: %w", i+1, err)
		}
	}
	c.logger.Info("device clock set", zap.Time("time", t))
	return nil
}

// GetTime 读取设备时钟并按 loc 解释
func (c *Client) GetTime(ctx context.Context, loc *time.Location) (time.Time, error) {
	reply, err := c.Send(ctx, ClockRequest(), true)
	if err != nil {
		return time.Time{}, err
	}
	return DecodeClock(reply, loc)
}

// ReadTemperature 读取温度（°C）
func (c *Client) ReadTemperature(ctx context.Context) (float64, error) {
	reply, err := c.Send(ctx, TemperatureRequest(), true)
	if err != nil {
		return 0, err
	}
	return DecodeTemperature(reply)
}

// AutoCorrectClock 处理固件夏令时缺陷：先设置为当前整点并读回，
// 计算设定小时与读回小时之差（归一化到 [-12,12]），再以当前时间加该差值重新设置。
// 返回最终设置的时间与小时差。
func (c *Client) AutoCorrectClock(ctx context.Context, loc *time.Location) (time.Time, int, error) {
	if loc == nil {
		loc = time.Local
	}
	now := c.now().In(loc)
	top := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, loc)
	if err := c.SetTime(ctx, top); err != nil {
		return time.Time{}, 0, err
	}
	reported, err := c.GetTime(ctx, loc)
	if err != nil {
		return time.Time{}, 0, err
	}
	delta := HourDelta(top.Hour(), reported.Hour())
	target := c.now().In(loc).Add(time.Duration(delta) * time.Hour)
	if delta != 0 {
		c.logger.Info("device clock hour corrected", zap.Int("delta_hours", delta))
	}
	if err := c.SetTime(ctx, target); err != nil {
		return time.Time{}, delta, err
	}
	return target, delta, nil
}

// HourDelta intended-reported 的小时差，归一化到 [-12,12]
func HourDelta(intended, reported int) int {
	d := intended - reported
	for d > 12 {
		d -= 24
	}
	for d < -12 {
		d += 24
	}
	return d
}
