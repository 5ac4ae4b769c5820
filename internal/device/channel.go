package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
)

// FrameSize Light Manager 中断传输固定长度
const FrameSize = 8

// Frame 8 字节设备帧，byte0 为操作码
type Frame [FrameSize]byte

// String 以空格分隔的十六进制输出，便于日志
func (f Frame) String() string {
	var b strings.Builder
	for i, v := range f {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02x", v)
	}
	return b.String()
}

// Endpoint 中断端点
type Endpoint uint8

const (
	EndpointOut Endpoint = 0x01 // 主机 -> 设备
	EndpointIn  Endpoint = 0x82 // 设备 -> 主机
)

func (e Endpoint) String() string {
	if e == EndpointIn {
		return "read"
	}
	return "write"
}

var (
	// ErrTimeout 单次传输超时
	ErrTimeout = errors.New("device transfer timeout")
	// ErrClosed 通道已关闭
	ErrClosed = errors.New("device channel closed")
	// ErrShortTransfer 传输字节数不足 8
	ErrShortTransfer = errors.New("device short transfer")
)

// Channel 设备通道：一次阻塞的 8 字节输入/输出交换。
// EndpointOut 时 buf 为待发送帧；EndpointIn 时设备回复写入 buf。
// 实现不要求并发安全，串行化由上层协议客户端负责。
type Channel interface {
	Transfer(ctx context.Context, ep Endpoint, buf *Frame, timeout time.Duration) error
	Close() error
}

// Open 根据配置打开设备通道
func Open(cfg cfgpkg.DeviceConfig, logger *zap.Logger) (Channel, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(cfg.Driver) {
	case "serial":
		ch, err := OpenSerial(cfg.Path, cfg.BaudRate)
		if err != nil {
			return nil, err
		}
		logger.Info("device channel opened", zap.String("driver", "serial"), zap.String("path", cfg.Path), zap.Int("baud", cfg.BaudRate))
		return ch, nil
	case "hidraw":
		ch, err := OpenHidraw(cfg.Path)
		if err != nil {
			return nil, err
		}
		logger.Info("device channel opened", zap.String("driver", "hidraw"), zap.String("path", cfg.Path))
		return ch, nil
	case "sim", "":
		profile := DefaultProfile()
		if cfg.Simulator.Profile != "" {
			p, err := LoadProfile(cfg.Simulator.Profile)
			if err != nil {
				return nil, err
			}
			profile = p
		}
		logger.Info("device channel opened", zap.String("driver", "sim"), zap.String("profile", cfg.Simulator.Profile))
		return NewSimulator(profile), nil
	default:
		return nil, fmt.Errorf("unsupported device driver %q", cfg.Driver)
	}
}
