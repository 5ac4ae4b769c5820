// Package gateway 命令端口会话循环：协议识别、逐行执行命令、提示符与断开处理。
package gateway

import (
	"bufio"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/command"
	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/events"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/session"
	"github.com/taoyao-code/lightmanager-gateway/internal/tcpserver"
)

const (
	// Prompt 每行命令处理完成后的提示符
	Prompt = ">"
	// Bye QUIT/EXIT 的告别语
	Bye = "bye\r\n"
	// DefaultLineMaxBytes 单行命令上限
	DefaultLineMaxBytes = 1024

	httpLinger = 500 * time.Millisecond
)

// Executor 命令执行（command.Interpreter）
type Executor interface {
	Execute(ctx context.Context, text string, sess command.Session) command.Outcome
	Info() command.Info
}

// ExitFunc EXIT 回调，触发进程优雅退出
type ExitFunc func(reason string)

// connSession 将连接适配为命令会话
type connSession struct {
	*tcpserver.ConnContext
	command.Modes
	info command.SessionInfo
}

func (s *connSession) Info() command.SessionInfo { return s.info }

// NewConnHandler 构建命令端口连接处理器
func NewConnHandler(
	exec Executor,
	cfg cfgpkg.TCPConfig,
	sessions session.Tracker,
	logger *zap.Logger,
	appm *metrics.AppMetrics,
	onExit ExitFunc,
) tcpserver.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxLine := cfg.LineMaxBytes
	if maxLine <= 0 {
		maxLine = DefaultLineMaxBytes
	}
	banner := exec.Info().VersionLine() + " - type HELP for a list of commands\r\n"

	return func(ctx context.Context, cc *tcpserver.ConnContext) {
		log := logger.With(zap.String("session_id", cc.ID()), zap.String("remote_addr", cc.RemoteAddr()))

		proto, err := tcpserver.Sniff(cc, cfg.SniffTimeout)
		if err != nil {
			log.Debug("connection closed before first line", zap.Error(err))
			return
		}

		sess := &connSession{
			ConnContext: cc,
			info:        command.SessionInfo{ID: cc.ID(), RemoteAddr: cc.RemoteAddr(), Source: events.SourceTCP},
		}
		if proto == tcpserver.ProtoHTTP {
			sess.info.Source = events.SourceHTTP
			if sessions != nil {
				sessions.SetSource(cc.ID(), string(events.SourceHTTP))
			}
		} else if _, err := cc.Write([]byte(banner + Prompt)); err != nil {
			return
		}

		sc := bufio.NewScanner(cc.Reader())
		// 初始容量也计入 Scanner 的单行上限
		sc.Buffer(make([]byte, 0, min(256, maxLine+2)), maxLine+2)
		for sc.Scan() {
			line := sc.Text()
			start := time.Now()
			out := exec.Execute(ctx, line, sess)
			log.Debug("line handled",
				zap.Stringer("result", out.Result),
				zap.Int("commands", len(out.Statuses)),
				zap.Duration("duration", time.Since(start)))

			switch out.Result {
			case command.Continue:
				if _, err := cc.Write([]byte(Prompt)); err != nil {
					return
				}
			case command.Disconnect:
				_, _ = cc.Write([]byte(Bye))
				return
			case command.DisconnectServer:
				_, _ = cc.Write([]byte(Bye))
				log.Info("exit requested by client")
				if onExit != nil {
					onExit("client exit")
				}
				return
			case command.HandledAsHTTP:
				// HTTP 请求内的 EXIT 只结束本次请求
				if out.Exit {
					log.Warn("exit ignored for http request")
				}
				cc.CloseWrite(httpLinger)
				return
			}
		}
		if err := sc.Err(); err != nil {
			if errors.Is(err, bufio.ErrTooLong) {
				if appm != nil {
					appm.TCPRejected.WithLabelValues("line_too_long").Inc()
				}
				log.Warn("line exceeds maximum length, closing session", zap.Int("max_bytes", maxLine))
				return
			}
			log.Debug("session read ended", zap.Error(err))
		}
	}
}
