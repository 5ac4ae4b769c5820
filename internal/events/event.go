// Package events 命令执行事件的异步分发（Redis、MQTT、命令日志）。
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Source 命令来源
type Source string

const (
	SourceTCP   Source = "tcp"
	SourceHTTP  Source = "http"
	SourceAdmin Source = "admin"
	SourceExec  Source = "exec"
)

// Event 单个子命令的执行结果
type Event struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id,omitempty"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	Source     Source    `json:"source"`
	Op         string    `json:"op"`
	Command    string    `json:"command"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// NewEvent 创建带唯一 ID 的事件
func NewEvent(source Source, op, command string, err error, d time.Duration) Event {
	e := Event{
		ID:         uuid.NewString(),
		Source:     source,
		Op:         op,
		Command:    command,
		OK:         err == nil,
		DurationMs: d.Milliseconds(),
		At:         time.Now().UTC(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Publisher 事件下游
type Publisher interface {
	Name() string
	Publish(ctx context.Context, e Event) error
}

// Emitter 事件入口（非阻塞）
type Emitter interface {
	Emit(e Event)
}
