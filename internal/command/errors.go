package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/taoyao-code/lightmanager-gateway/internal/protocol/lightmanager"
)

// ErrorKind 错误分类
type ErrorKind int

const (
	// KindValidation 参数校验失败，未访问设备
	KindValidation ErrorKind = iota + 1
	// KindDeviceIO 设备通信失败（重试耗尽）
	KindDeviceIO
	// KindProtocol 请求格式错误
	KindProtocol
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDeviceIO:
		return "device_io"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Error 子命令错误，文本只在输出时格式化
type Error struct {
	Kind ErrorKind
	Op   Op
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String() + " error"
}

func (e *Error) Unwrap() error { return e.Err }

func invalid(op Op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func deviceError(op Op, err error) *Error {
	if errors.Is(err, lightmanager.ErrOutOfRange) {
		return &Error{Kind: KindValidation, Op: op, Msg: err.Error(), Err: err}
	}
	msg := "USB communication error"
	switch {
	case errors.Is(err, lightmanager.ErrNoReading):
		msg = "no temperature reading available"
	case errors.Is(err, lightmanager.ErrBadReply):
		msg = "invalid device reply"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		msg = "interrupted"
	}
	return &Error{Kind: KindDeviceIO, Op: op, Msg: msg, Err: err}
}

// KindOf 返回错误分类，非 *Error 返回 0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
