package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("lightmanager", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "配置文件路径（默认 $LM_CONFIG 或 configs/lightmanager.yaml）")
	execLine := fs.StringP("exec", "e", "", "执行一行命令后退出，输出写到 stdout")
	showVersion := fs.BoolP("version", "v", false, "打印版本后退出")
	fs.String("tcp-addr", "", "覆盖 tcp.addr")
	fs.String("device-driver", "", "覆盖 device.driver (sim|serial|hidraw)")
	fs.String("device-path", "", "覆盖 device.path")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	// 1) 加载配置，命令行参数优先
	v := viper.New()
	for key, flag := range map[string]string{
		"tcp.addr":      "tcp-addr",
		"device.driver": "device-driver",
		"device.path":   "device-path",
	} {
		if f := fs.Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}
	cfg, err := cfgpkg.LoadWith(v, *configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if *showVersion {
		fmt.Printf("%s v%s (build %s)\n", cfg.App.Name, cfg.App.Version, cfg.App.Build)
		return 0
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3) 单次执行或常驻服务
	if *execLine != "" {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := bootstrap.Exec(ctx, cfg, logger, *execLine, os.Stdout); err != nil {
			if !errors.Is(err, bootstrap.ErrCommandFailed) {
				logger.Error("exec failed", zap.Error(err))
			}
			return 1
		}
		return 0
	}

	if err := bootstrap.Run(cfg, logger); err != nil {
		logger.Error("gateway stopped with error", zap.Error(err))
		return 1
	}
	return 0
}
