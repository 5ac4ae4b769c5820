package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/gateway"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/session"
	"github.com/taoyao-code/lightmanager-gateway/internal/tcpserver"
)

// NewTCPServer 创建命令端口服务并挂载会话处理器
func NewTCPServer(cfg cfgpkg.TCPConfig, exec gateway.Executor, sessions *session.Registry, onExit gateway.ExitFunc, log *zap.Logger, appm *metrics.AppMetrics) *tcpserver.Server {
	srv := tcpserver.New(cfg, sessions, log.Named("tcp"), appm)
	srv.SetHandler(gateway.NewConnHandler(exec, cfg, sessions, log.Named("gateway"), appm, onExit))
	return srv
}
