// lmctl 网关命令端口的交互式控制台
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/taoyao-code/lightmanager-gateway/internal/console"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("lmctl", pflag.ContinueOnError)
	addr := fs.StringP("addr", "a", "127.0.0.1:3456", "网关命令端口地址")
	timeout := fs.Duration("timeout", 5*time.Second, "连接超时")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	c, err := console.Dial(context.Background(), *addr, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect %s: %v\n", *addr, err)
		return 1
	}
	defer c.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "",
		HistoryFile:     historyFile(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create readline: %v\n", err)
		return 1
	}
	defer rl.Close()

	// 服务端关闭连接（QUIT/EXIT）后结束输入循环
	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- c.Pump(rl.Stdout())
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				_ = c.Send("QUIT")
			}
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := c.Send(line); err != nil {
			fmt.Fprintf(os.Stderr, "send: %v\n", err)
			return 1
		}
	}

	select {
	case err := <-pumpDone:
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection: %v\n", err)
			return 1
		}
	case <-time.After(2 * time.Second):
	}
	return 0
}

func historyFile() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return filepath.Join(u.HomeDir, ".lmctl_history")
}
