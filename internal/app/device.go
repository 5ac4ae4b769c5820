package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/command"
	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/device"
	"github.com/taoyao-code/lightmanager-gateway/internal/events"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/protocol/lightmanager"
)

// Device 打开的设备通道与其协议客户端
type Device struct {
	Channel  device.Channel
	Client   *lightmanager.Client
	Breaker  *lightmanager.Breaker
	Location *time.Location
}

// Close 关闭设备通道
func (d *Device) Close() error { return d.Channel.Close() }

// OpenDevice 打开设备通道并构建带重试/熔断的协议客户端
func OpenDevice(cfg cfgpkg.DeviceConfig, log *zap.Logger, appm *metrics.AppMetrics) (*Device, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("device.location: %w", err)
	}
	ch, err := device.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open device: %w", err)
	}

	opts := []lightmanager.Option{
		lightmanager.WithRetryPolicy(lightmanager.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Timeout:     cfg.Retry.Timeout,
			Wait:        cfg.Retry.Wait,
		}),
		lightmanager.WithLogger(log.Named("device")),
		lightmanager.WithMetrics(appm),
	}
	var breaker *lightmanager.Breaker
	if cfg.Breaker.Threshold > 0 {
		breaker = lightmanager.NewBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown)
		breaker.SetStateChangeCallback(func(from, to lightmanager.BreakerState) {
			log.Warn("device breaker state changed", zap.Stringer("from", from), zap.Stringer("to", to))
		})
		opts = append(opts, lightmanager.WithBreaker(breaker))
	}

	return &Device{
		Channel:  ch,
		Client:   lightmanager.NewClient(ch, opts...),
		Breaker:  breaker,
		Location: loc,
	}, nil
}

// NewInterpreter 构建命令解释器，住宅码取自配置
func NewInterpreter(cfg *cfgpkg.Config, dev *Device, emitter events.Emitter, log *zap.Logger, appm *metrics.AppMetrics) (*command.Interpreter, error) {
	hc, err := lightmanager.ParseHousecode(cfg.Device.Housecode)
	if err != nil {
		return nil, fmt.Errorf("device.housecode: %w", err)
	}
	opts := []command.Option{
		command.WithInfo(command.Info{Product: cfg.App.Name, Version: cfg.App.Version, Build: cfg.App.Build}),
		command.WithLocation(dev.Location),
		command.WithLogger(log.Named("command")),
		command.WithMetrics(appm),
	}
	if emitter != nil {
		opts = append(opts, command.WithEmitter(emitter))
	}
	return command.New(dev.Client, command.NewHousecode(hc), opts...), nil
}
