// Package bootstrap 网关启动编排：设备、解释器、事件、TCP 命令端口与管理接口。
package bootstrap

import (
	"context"
	"errors"
	"io"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/api"
	"github.com/taoyao-code/lightmanager-gateway/internal/app"
	"github.com/taoyao-code/lightmanager-gateway/internal/command"
	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/events"
	"github.com/taoyao-code/lightmanager-gateway/internal/health"
	"github.com/taoyao-code/lightmanager-gateway/internal/httpserver"
)

const shutdownTimeout = 10 * time.Second

// ErrExitRequested 客户端发送 EXIT 导致的退出
var ErrExitRequested = errors.New("exit requested by client")

// ErrCommandFailed 单次执行模式下有子命令失败
var ErrCommandFailed = errors.New("command failed")

// Run 统一启动流程：依赖就绪后最后启动 TCP 命令端口，
// 收到 SIGINT/SIGTERM 或客户端 EXIT 后优雅关闭。
func Run(cfg *cfgpkg.Config, log *zap.Logger) error {
	instanceID := app.GenerateInstanceID()
	log.Info("starting lightmanager gateway",
		zap.String("version", cfg.App.Version),
		zap.String("build", cfg.App.Build),
		zap.String("instance_id", instanceID))

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, exit := context.WithCancelCause(sigCtx)
	defer exit(nil)

	// ========== 阶段1: 基础组件 ==========
	reg, appm := app.NewMetrics()
	ready := health.New()
	sessions := app.NewSessionRegistry(appm)

	// ========== 阶段2: 设备通道（失败直接返回）==========
	dev, err := app.OpenDevice(cfg.Device, log, appm)
	if err != nil {
		log.Error("device initialization failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Warn("device close failed", zap.Error(err))
		}
	}()
	ready.SetDeviceReady(true)

	// ========== 阶段3: 可选下游（Redis / MQTT / 命令日志库）==========
	pool, journal, err := app.ConnectJournal(ctx, cfg.Database, log)
	if err != nil {
		log.Error("database initialization failed", zap.Error(err))
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Error("redis initialization failed", zap.Error(err))
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	mqttPub, err := app.ConnectMQTT(cfg.MQTT, instanceID, log)
	if err != nil {
		log.Error("mqtt initialization failed", zap.Error(err))
		return err
	}
	if mqttPub != nil {
		defer mqttPub.Close()
	}

	dispatcher := app.NewDispatcher(cfg, app.EventSinks{Redis: redisClient, Journal: journal, MQTT: mqttPub}, log.Named("events"), appm)
	dispatcher.Start(context.Background())

	// ========== 阶段4: 命令解释器 ==========
	interp, err := app.NewInterpreter(cfg, dev, dispatcher, log, appm)
	if err != nil {
		log.Error("interpreter initialization failed", zap.Error(err))
		return err
	}
	log.Info("interpreter ready",
		zap.String("housecode", interp.Housecode().String()),
		zap.String("location", dev.Location.String()))

	// ========== 阶段5: 管理接口（非阻塞）==========
	healthAgg := app.NewHealthAggregator(cfg.Device.Driver, dev)
	app.AddDatabaseChecker(healthAgg, pool)
	app.AddRedisChecker(healthAgg, redisClient)

	var httpSrv *httpserver.Server
	if cfg.HTTP.Enable {
		var journalReader api.JournalReader
		if journal != nil {
			journalReader = journal
		}
		httpSrv = app.NewHTTPServer(cfg, app.AdminDeps{
			Handler:   api.NewHandler(interp, sessions, journalReader, log.Named("api")),
			Readiness: ready,
			Health:    healthAgg,
			Registry:  reg,
		}, log)
		if err := httpSrv.Start(); err != nil {
			log.Error("http server start failed", zap.Error(err))
			return err
		}
	}

	// ========== 阶段6: 最后启动 TCP 命令端口 ==========
	onExit := func(reason string) {
		log.Info("exit requested", zap.String("reason", reason))
		exit(ErrExitRequested)
	}
	tcpSrv := app.NewTCPServer(cfg.TCP, interp, sessions, onExit, log, appm)
	if err := tcpSrv.Start(); err != nil {
		log.Error("tcp server start failed", zap.Error(err))
		return err
	}
	ready.SetTCPReady(true)
	app.AddTCPChecker(healthAgg, tcpSrv)
	log.Info("all services ready, waiting for connections", zap.String("addr", cfg.TCP.Addr))

	// ========== 阶段7: 等待关闭 ==========
	<-ctx.Done()
	cause := context.Cause(ctx)
	log.Info("shutting down", zap.NamedError("cause", cause))
	ready.SetTCPReady(false)

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := tcpSrv.Shutdown(sctx); err != nil {
		log.Warn("tcp server shutdown incomplete", zap.Error(err))
	}
	log.Info("tcp server stopped")

	if httpSrv != nil {
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Warn("http server shutdown incomplete", zap.Error(err))
		}
		log.Info("http server stopped")
	}

	dispatcher.Close()
	if err := dispatcher.Wait(sctx); err != nil {
		log.Warn("event dispatcher drain incomplete", zap.Error(err))
	}

	log.Info("shutdown complete")
	return nil
}

// Exec 单次执行模式：打开设备，执行一行命令并把输出写到 w。
// 任一子命令失败时返回 ErrCommandFailed。
func Exec(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger, line string, w io.Writer) error {
	_, appm := app.NewMetrics()
	dev, err := app.OpenDevice(cfg.Device, log, appm)
	if err != nil {
		return err
	}
	defer dev.Close()

	interp, err := app.NewInterpreter(cfg, dev, nil, log, appm)
	if err != nil {
		return err
	}
	sess := command.NewBasicSession(w, command.SessionInfo{ID: "exec", Source: events.SourceExec})
	out := interp.Execute(ctx, line, sess)
	for _, st := range out.Statuses {
		if !st.OK() {
			return ErrCommandFailed
		}
	}
	return nil
}
