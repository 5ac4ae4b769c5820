package command

import (
	"io"
	"sync/atomic"

	"github.com/taoyao-code/lightmanager-gateway/internal/events"
)

// SessionInfo 事件与日志中的会话标识
type SessionInfo struct {
	ID         string
	RemoteAddr string
	Source     events.Source
}

// Session 命令输出目标，持有会话级的 verbose 标志
type Session interface {
	io.Writer
	Verbose() bool
	SetVerbose(v bool)
	Info() SessionInfo
}

// Modes 会话输出模式
type Modes struct {
	quiet atomic.Bool
}

// Verbose 默认为 true
func (m *Modes) Verbose() bool { return !m.quiet.Load() }

// SetVerbose 切换 VERBOSE/QUIET
func (m *Modes) SetVerbose(v bool) { m.quiet.Store(!v) }

// BasicSession 基于 io.Writer 的会话实现（一次性执行、管理接口）
type BasicSession struct {
	io.Writer
	Modes
	info SessionInfo
}

// NewBasicSession 创建会话，verbose 默认开启
func NewBasicSession(w io.Writer, info SessionInfo) *BasicSession {
	return &BasicSession{Writer: w, info: info}
}

// Info 会话标识
func (s *BasicSession) Info() SessionInfo { return s.info }
