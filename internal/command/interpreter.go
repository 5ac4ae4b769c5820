// Package command 文本命令解释器：拆分子命令、校验参数、驱动设备并输出状态行。
package command

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/device"
	"github.com/taoyao-code/lightmanager-gateway/internal/events"
	"github.com/taoyao-code/lightmanager-gateway/internal/httpshim"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/render"
)

// Device 解释器使用的设备操作，由 lightmanager.Client 实现
type Device interface {
	Send(ctx context.Context, f device.Frame, expectReply bool) (device.Frame, error)
	SetTime(ctx context.Context, t time.Time) error
	GetTime(ctx context.Context, loc *time.Location) (time.Time, error)
	ReadTemperature(ctx context.Context) (float64, error)
	AutoCorrectClock(ctx context.Context, loc *time.Location) (time.Time, int, error)
}

// Result 一行命令处理后会话的去向
type Result int

const (
	// Continue 输出提示符，继续读取
	Continue Result = iota
	// Disconnect QUIT：输出 bye 后关闭会话
	Disconnect
	// DisconnectServer EXIT：输出 bye，关闭会话并停止服务
	DisconnectServer
	// HandledAsHTTP 已作为 HTTP 请求应答，直接关闭
	HandledAsHTTP
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Disconnect:
		return "disconnect"
	case DisconnectServer:
		return "disconnect_server"
	case HandledAsHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// Status 单个子命令的执行结果
type Status struct {
	Command string
	Op      Op
	Err     error
}

// OK 是否成功
func (s Status) OK() bool { return s.Err == nil }

// Outcome Execute 的返回
type Outcome struct {
	Result     Result
	Statuses   []Status
	HTTPStatus int  // 仅 HandledAsHTTP
	Exit       bool // 命令中包含 EXIT（含 HTTP 请求）
}

// Interpreter 命令解释器，所有会话共享一个实例
type Interpreter struct {
	dev       Device
	housecode *Housecode
	info      Info
	loc       *time.Location
	shim      *httpshim.Shim
	logger    *zap.Logger
	metrics   *metrics.AppMetrics
	emitter   events.Emitter
	now       func() time.Time
}

// Option 解释器选项
type Option func(*Interpreter)

// WithInfo 产品信息（VERSION、帮助、HTTP Server 头）
func WithInfo(i Info) Option { return func(in *Interpreter) { in.info = i } }

// WithLocation 设备时钟所在时区
func WithLocation(loc *time.Location) Option {
	return func(in *Interpreter) {
		if loc != nil {
			in.loc = loc
		}
	}
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.AppMetrics) Option { return func(in *Interpreter) { in.metrics = m } }

// WithEmitter 设置事件分发
func WithEmitter(e events.Emitter) Option { return func(in *Interpreter) { in.emitter = e } }

// WithClock 替换时间源（测试使用）
func WithClock(now func() time.Time) Option { return func(in *Interpreter) { in.now = now } }

// DefaultInfo 默认产品信息
func DefaultInfo() Info {
	return Info{Product: "Linux Lightmanager", Version: "2.3", Build: "0028"}
}

// New 创建解释器
func New(dev Device, hc *Housecode, opts ...Option) *Interpreter {
	in := &Interpreter{
		dev:       dev,
		housecode: hc,
		info:      DefaultInfo(),
		loc:       time.Local,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	if in.housecode == nil {
		in.housecode = NewHousecode(0)
	}
	for _, o := range opts {
		o(in)
	}
	in.shim = httpshim.New(httpshim.Info{Product: in.info.Product, Version: in.info.Version, Build: in.info.Build},
		in.info.HelpText())
	return in
}

// Housecode 共享住宅码
func (in *Interpreter) Housecode() *Housecode { return in.housecode }

// Info 产品信息
func (in *Interpreter) Info() Info { return in.info }

// Execute 处理一行输入。HTTP 请求行交给 HTTP 处理并写出完整响应；
// 其余按子命令依次执行，输出写入 sess。
func (in *Interpreter) Execute(ctx context.Context, text string, sess Session) Outcome {
	if httpshim.IsRequestLine(text) {
		r := &htmlRunner{in: in, info: sess.Info()}
		r.info.Source = events.SourceHTTP
		exit, status, err := in.shim.Serve(ctx, text, sess, r)
		if err != nil {
			in.logger.Debug("http response write failed", zap.Error(err))
		}
		return Outcome{Result: HandledAsHTTP, Statuses: r.statuses, HTTPStatus: status, Exit: exit}
	}
	p := render.NewText(sess)
	res, statuses := in.run(ctx, text, p, sess, sess.Info())
	return Outcome{Result: res, Statuses: statuses, Exit: res == DisconnectServer}
}

// htmlRunner HTTP 请求的命令执行，输出模式独立于 TCP 会话
type htmlRunner struct {
	in       *Interpreter
	info     SessionInfo
	modes    Modes
	statuses []Status
}

func (r *htmlRunner) RunHTML(ctx context.Context, commands string, p *render.Printer) bool {
	res, statuses := r.in.run(ctx, commands, p, &r.modes, r.info)
	r.statuses = statuses
	return res == DisconnectServer
}

type verbosity interface {
	Verbose() bool
	SetVerbose(v bool)
}

func (in *Interpreter) run(ctx context.Context, text string, p *render.Printer, v verbosity, info SessionInfo) (Result, []Status) {
	subs := SplitCommands(text)
	statuses := make([]Status, 0, len(subs))
	failed := false
	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		tokens := Tokenize(sub)
		if len(tokens) == 0 {
			continue
		}
		op := LookupOp(tokens[0])
		switch op {
		case OpQuit:
			in.observe(info, Status{Command: sub, Op: op}, 0)
			return Disconnect, append(statuses, Status{Command: sub, Op: op})
		case OpExit:
			in.observe(info, Status{Command: sub, Op: op}, 0)
			return DisconnectServer, append(statuses, Status{Command: sub, Op: op})
		}

		start := in.now()
		err := in.dispatch(ctx, op, tokens, p, v)
		st := Status{Command: sub, Op: op, Err: err}
		statuses = append(statuses, st)
		in.observe(info, st, in.now().Sub(start))

		if err != nil {
			failed = true
			p.Status(sub, err)
		} else if v.Verbose() {
			p.Status(sub, nil)
		}
	}
	if !v.Verbose() && !failed && len(statuses) > 0 {
		p.Line("OK")
	}
	return Continue, statuses
}

func (in *Interpreter) observe(info SessionInfo, st Status, d time.Duration) {
	result := "ok"
	if st.Err != nil {
		result = "error"
	}
	if in.metrics != nil {
		in.metrics.CommandTotal.WithLabelValues(st.Op.String(), result).Inc()
	}
	in.logger.Debug("command executed",
		zap.String("session_id", info.ID),
		zap.String("remote_addr", info.RemoteAddr),
		zap.String("command", st.Command),
		zap.Stringer("op", st.Op),
		zap.String("result", result),
		zap.Duration("duration", d),
		zap.Error(st.Err))
	if in.emitter != nil {
		e := events.NewEvent(info.Source, st.Op.String(), st.Command, st.Err, d)
		e.SessionID = info.ID
		e.RemoteAddr = info.RemoteAddr
		in.emitter.Emit(e)
	}
}
