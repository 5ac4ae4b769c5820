// Package tcpserver 命令端口：监听、接入控制、每连接 goroutine 与优雅关闭。
package tcpserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/session"
)

// Handler 连接处理函数，返回即关闭连接。ctx 在服务关闭时取消。
type Handler func(ctx context.Context, cc *ConnContext)

// Server 命令端口服务器
type Server struct {
	cfg       cfgpkg.TCPConfig
	ln        net.Listener
	wg        sync.WaitGroup
	stopC     chan struct{}
	stopOnce  sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	handler   Handler
	admission *Admission
	sessions  *session.Registry
	logger    *zap.Logger
	metrics   *metrics.AppMetrics
}

// New 创建命令端口服务器
func New(cfg cfgpkg.TCPConfig, sessions *session.Registry, logger *zap.Logger, m *metrics.AppMetrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = session.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		stopC:     make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		admission: NewAdmission(cfg.MaxConnections, cfg.AcquireTimeout, cfg.AcceptRate, cfg.AcceptBurst),
		sessions:  sessions,
		logger:    logger,
		metrics:   m,
	}
}

// SetHandler 设置连接处理函数
func (s *Server) SetHandler(h Handler) { s.handler = h }

// Sessions 活动会话登记表
func (s *Server) Sessions() *session.Registry { return s.sessions }

// Addr 实际监听地址（Start 之后有效）
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ActiveConnections 当前连接数
func (s *Server) ActiveConnections() int { return s.admission.Active() }

// MaxConnections 最大连接数
func (s *Server) MaxConnections() int { return s.admission.MaxConnections() }

// AdmissionStats 接入控制统计
func (s *Server) AdmissionStats() AdmissionStats { return s.admission.Stats() }

// Start 监听并接受连接（非阻塞，内部 goroutine）
func (s *Server) Start() error {
	if s.handler == nil {
		return errors.New("tcpserver: handler not set")
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.logger.Info("tcp server listening", zap.String("addr", ln.Addr().String()))

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		c, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.stopC:
				return
			default:
			}
			s.logger.Warn("accept failed", zap.Error(err))
			// 短暂错误等待后重试
			time.Sleep(50 * time.Millisecond)
			continue
		}

		release, reason, err := s.admission.Admit(s.ctx)
		if err != nil {
			if s.metrics != nil {
				s.metrics.TCPRejected.WithLabelValues(reason).Inc()
			}
			s.logger.Warn("connection rejected",
				zap.String("remote_addr", c.RemoteAddr().String()),
				zap.String("reason", reason),
				zap.Error(err))
			_ = c.Close()
			continue
		}
		if s.metrics != nil {
			s.metrics.TCPAccepted.Inc()
		}

		s.wg.Add(1)
		go s.serve(c, release)
	}
}

func (s *Server) serve(c net.Conn, release func()) {
	defer s.wg.Done()
	defer release()

	cc := newConnContext(c, s.cfg.LineMaxBytes+2, s.cfg.WriteTimeout)
	log := s.logger.With(zap.String("session_id", cc.ID()), zap.String("remote_addr", cc.RemoteAddr()))

	s.sessions.Add(cc.ID(), cc.RemoteAddr(), "tcp", cc)
	stop := context.AfterFunc(s.ctx, func() { _ = cc.Close() })
	defer func() {
		stop()
		s.sessions.Remove(cc.ID())
		_ = cc.Close()
		log.Debug("session closed")
	}()
	defer func() {
		if r := recover(); r != nil {
			log.Error("session panic recovered", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	log.Debug("session opened")
	s.handler(s.ctx, cc)
}

// Shutdown 停止接受新连接，关闭所有会话并等待其退出
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopC)
		if s.ln != nil {
			_ = s.ln.Close()
		}
		s.cancel()
	})
	ch := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(ch)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		s.logger.Info("tcp server stopped")
		return nil
	}
}
