package device

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
)

// mockSerialPort 内存串口，读操作按块返回预置数据
type mockSerialPort struct {
	mu       sync.Mutex
	written  []byte
	chunks   [][]byte
	resets   int
	closed   bool
	writeErr error
}

func (p *mockSerialPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.chunks) == 0 {
		return 0, nil
	}
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *mockSerialPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.written = append(p.written, b...)
	return len(b), nil
}

func (p *mockSerialPort) Close() error                         { p.closed = true; return nil }
func (p *mockSerialPort) SetReadTimeout(t time.Duration) error { return nil }
func (p *mockSerialPort) ResetInputBuffer() error              { p.resets++; return nil }

func TestFrameString(t *testing.T) {
	f := Frame{0x01, 0xab, 0, 0, 0, 0, 0x03, 0xff}
	assert.Equal(t, "01 ab 00 00 00 00 03 ff", f.String())
	assert.Equal(t, "read", EndpointIn.String())
	assert.Equal(t, "write", EndpointOut.String())
}

func TestSerialChannel(t *testing.T) {
	ctx := context.Background()

	t.Run("写入一帧", func(t *testing.T) {
		port := &mockSerialPort{}
		ch := newSerialChannel(port)
		f := Frame{0x0f, 0x01}
		require.NoError(t, ch.Transfer(ctx, EndpointOut, &f, 10*time.Millisecond))
		assert.Equal(t, f[:], port.written)
		assert.Equal(t, 1, port.resets)
	})

	t.Run("分段读取", func(t *testing.T) {
		port := &mockSerialPort{chunks: [][]byte{{0xfd, 0x2b, 0}, {0, 0, 0, 0, 0}}}
		ch := newSerialChannel(port)
		var f Frame
		require.NoError(t, ch.Transfer(ctx, EndpointIn, &f, 50*time.Millisecond))
		assert.Equal(t, Frame{0xfd, 0x2b}, f)
	})

	t.Run("读超时", func(t *testing.T) {
		port := &mockSerialPort{chunks: [][]byte{{0xfd}}}
		ch := newSerialChannel(port)
		var f Frame
		assert.ErrorIs(t, ch.Transfer(ctx, EndpointIn, &f, 50*time.Millisecond), ErrTimeout)
	})

	t.Run("写错误", func(t *testing.T) {
		port := &mockSerialPort{writeErr: errors.New("unplugged")}
		ch := newSerialChannel(port)
		f := Frame{}
		assert.Error(t, ch.Transfer(ctx, EndpointOut, &f, 10*time.Millisecond))
	})

	t.Run("关闭后拒绝传输", func(t *testing.T) {
		port := &mockSerialPort{}
		ch := newSerialChannel(port)
		require.NoError(t, ch.Close())
		require.NoError(t, ch.Close())
		assert.True(t, port.closed)
		f := Frame{}
		assert.ErrorIs(t, ch.Transfer(ctx, EndpointOut, &f, time.Millisecond), ErrClosed)
	})
}

func TestSimulator(t *testing.T) {
	ctx := context.Background()

	t.Run("无待读回复时超时", func(t *testing.T) {
		s := NewSimulator(DefaultProfile())
		var f Frame
		assert.ErrorIs(t, s.Transfer(ctx, EndpointIn, &f, time.Millisecond), ErrTimeout)
	})

	t.Run("温度回复", func(t *testing.T) {
		s := NewSimulator(Profile{Temperature: 22})
		req := Frame{0x0c}
		require.NoError(t, s.Transfer(ctx, EndpointOut, &req, time.Millisecond))
		var reply Frame
		require.NoError(t, s.Transfer(ctx, EndpointIn, &reply, time.Millisecond))
		assert.Equal(t, Frame{0xfd, 44}, reply)
	})

	t.Run("时钟设置与读取", func(t *testing.T) {
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		s := NewSimulator(DefaultProfile())
		s.SetNow(func() time.Time { return now })

		set := Frame{0x08, 0x05, 0x04, 0x03, 0x02, 0x01, 0x04, 0x26}
		require.NoError(t, s.Transfer(ctx, EndpointOut, &set, time.Millisecond))
		now = now.Add(10 * time.Second)

		req := Frame{0x09}
		require.NoError(t, s.Transfer(ctx, EndpointOut, &req, time.Millisecond))
		var reply Frame
		require.NoError(t, s.Transfer(ctx, EndpointIn, &reply, time.Millisecond))
		// 2026-01-02 03:04:15，星期五
		assert.Equal(t, Frame{15, 4, 3, 2, 1, 5, 26, 0}, reply)
	})

	t.Run("故障注入", func(t *testing.T) {
		s := NewSimulator(Profile{FailFirst: 2})
		f := Frame{0x0f, 1}
		assert.ErrorIs(t, s.Transfer(ctx, EndpointOut, &f, time.Millisecond), ErrInjected)
		assert.ErrorIs(t, s.Transfer(ctx, EndpointOut, &f, time.Millisecond), ErrInjected)
		assert.NoError(t, s.Transfer(ctx, EndpointOut, &f, time.Millisecond))
		assert.Equal(t, 3, s.Transfers())
		assert.Len(t, s.Frames(), 1)
	})

	t.Run("关闭", func(t *testing.T) {
		s := NewSimulator(DefaultProfile())
		require.NoError(t, s.Close())
		f := Frame{}
		assert.ErrorIs(t, s.Transfer(ctx, EndpointOut, &f, time.Millisecond), ErrClosed)
	})
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("temperature: 18.5\nlatency: 5ms\nhourSkew: 1\n"), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.InDelta(t, 18.5, p.Temperature, 0.001)
	assert.Equal(t, 5*time.Millisecond, p.Latency)
	assert.Equal(t, 1, p.HourSkew)

	_, err = LoadProfile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ch, err := Open(cfgpkg.DeviceConfig{Driver: "sim"}, zap.NewNop())
	require.NoError(t, err)
	_, ok := ch.(*Simulator)
	assert.True(t, ok)

	_, err = Open(cfgpkg.DeviceConfig{Driver: "usb-magic"}, nil)
	assert.Error(t, err)

	_, err = Open(cfgpkg.DeviceConfig{Driver: "hidraw", Path: filepath.Join(t.TempDir(), "hidraw9")}, nil)
	assert.Error(t, err)
}
