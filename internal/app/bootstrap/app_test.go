package bootstrap

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
)

func testConfig(t *testing.T) *cfgpkg.Config {
	t.Helper()
	cfg, err := cfgpkg.Load("")
	require.NoError(t, err)
	cfg.Device.Location = "UTC"
	cfg.Device.Retry.Timeout = 10 * time.Millisecond
	cfg.Device.Retry.Wait = 0
	cfg.HTTP.Enable = false
	return cfg
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestExec(t *testing.T) {
	cfg := testConfig(t)

	t.Run("成功输出状态行", func(t *testing.T) {
		var out bytes.Buffer
		err := Exec(context.Background(), cfg, zap.NewNop(), "FS20 1111 ON, GET TEMP", &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "FS20 1111 ON: OK")
		assert.Contains(t, out.String(), "21.5")
	})

	t.Run("子命令失败返回ErrCommandFailed", func(t *testing.T) {
		var out bytes.Buffer
		err := Exec(context.Background(), cfg, zap.NewNop(), "SCENE 0", &out)
		assert.ErrorIs(t, err, ErrCommandFailed)
		assert.Contains(t, out.String(), "SCENE 0: ERROR")
	})

	t.Run("无效住宅码", func(t *testing.T) {
		bad := *cfg
		bad.Device.Housecode = "5555"
		err := Exec(context.Background(), &bad, zap.NewNop(), "HELP", &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestRunExitCommand(t *testing.T) {
	cfg := testConfig(t)
	cfg.TCP.Addr = freeAddr(t)

	done := make(chan error, 1)
	go func() { done <- Run(cfg, zap.NewNop()) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", cfg.TCP.Addr)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 3*time.Second, 20*time.Millisecond)
	defer conn.Close()

	// 先等待 banner，避免被识别为 HTTP 之前抢先发送
	r := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "Linux Lightmanager v2.3")

	_, err = conn.Write([]byte("EXIT\r\n"))
	require.NoError(t, err)

	var rest strings.Builder
	for {
		s, err := r.ReadString('\n')
		rest.WriteString(s)
		if err != nil || strings.Contains(s, "bye") {
			break
		}
	}
	assert.Contains(t, rest.String(), "bye")

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after EXIT")
	}
}
