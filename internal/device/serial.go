package device

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// serialPort go.bug.st/serial 端口所需的最小接口（便于测试替换）
type serialPort interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// SerialChannel 通过 USB 串口桥接访问控制器，每帧固定 8 字节
type SerialChannel struct {
	port   serialPort
	closed atomic.Bool
}

// OpenSerial 打开串口设备通道
func OpenSerial(path string, baud int) (*SerialChannel, error) {
	if baud <= 0 {
		baud = 9600
	}
	port, err := serial.Open(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", path, err)
	}
	return newSerialChannel(port), nil
}

func newSerialChannel(p serialPort) *SerialChannel {
	return &SerialChannel{port: p}
}

// Transfer 写出或读入一帧
func (c *SerialChannel) Transfer(ctx context.Context, ep Endpoint, buf *Frame, timeout time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if ep == EndpointOut {
		// 丢弃上一轮残留的回复字节，避免错位
		_ = c.port.ResetInputBuffer()
		n, err := c.port.Write(buf[:])
		if err != nil {
			return fmt.Errorf("serial write: %w", err)
		}
		if n != FrameSize {
			return ErrShortTransfer
		}
		return nil
	}

	deadline := time.Now().Add(timeout)
	var in Frame
	got := 0
	for got < FrameSize {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if err := c.port.SetReadTimeout(remaining); err != nil {
			return fmt.Errorf("serial set timeout: %w", err)
		}
		n, err := c.port.Read(in[got:])
		if err != nil {
			return fmt.Errorf("serial read: %w", err)
		}
		if n == 0 {
			// go.bug.st/serial 超时返回 0, nil
			return ErrTimeout
		}
		got += n
	}
	*buf = in
	return nil
}

// Close 关闭串口
func (c *SerialChannel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.port.Close()
}
