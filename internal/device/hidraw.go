package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// HidrawChannel 通过 Linux /dev/hidrawN 直接收发 HID 报告。
// 控制器不使用报告编号，写入时需在帧前补 0x00。
type HidrawChannel struct {
	f      *os.File
	closed atomic.Bool
}

// OpenHidraw 打开 hidraw 设备节点
func OpenHidraw(path string) (*HidrawChannel, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open hidraw %s: %w", path, err)
	}
	return &HidrawChannel{f: f}, nil
}

// Transfer 写出或读入一帧
func (c *HidrawChannel) Transfer(ctx context.Context, ep Endpoint, buf *Frame, timeout time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(timeout)

	if ep == EndpointOut {
		var report [FrameSize + 1]byte
		copy(report[1:], buf[:])
		_ = c.f.SetWriteDeadline(deadline)
		n, err := c.f.Write(report[:])
		if err != nil {
			return mapFileErr("hidraw write", err)
		}
		if n != len(report) {
			return ErrShortTransfer
		}
		return nil
	}

	_ = c.f.SetReadDeadline(deadline)
	var in [64]byte
	n, err := c.f.Read(in[:])
	if err != nil {
		return mapFileErr("hidraw read", err)
	}
	if n < FrameSize {
		return ErrShortTransfer
	}
	copy(buf[:], in[:FrameSize])
	return nil
}

// Close 关闭设备节点
func (c *HidrawChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.f.Close()
}

func mapFileErr(op string, err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, os.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%s: %w", op, err)
}
