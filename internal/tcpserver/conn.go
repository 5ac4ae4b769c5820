package tcpserver

import (
	"bufio"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrConnClosed 连接已关闭
var ErrConnClosed = errors.New("connection closed")

// ConnContext 单个命令端口连接：带缓冲读取、带写超时的同步写入
type ConnContext struct {
	c       net.Conn
	id      string
	since   time.Time
	r       *bufio.Reader
	wto     time.Duration
	wmu     sync.Mutex
	closed  atomic.Bool
	doneC   chan struct{}
	written atomic.Int64
}

func newConnContext(c net.Conn, readBuf int, writeTimeout time.Duration) *ConnContext {
	if readBuf < 16 {
		readBuf = 16
	}
	cc := &ConnContext{
		c:     c,
		id:    uuid.NewString(),
		since: time.Now(),
		r:     bufio.NewReaderSize(c, readBuf),
		wto:   writeTimeout,
		doneC: make(chan struct{}),
	}
	return cc
}

// ID 会话 ID
func (cc *ConnContext) ID() string { return cc.id }

// Since 建立时间
func (cc *ConnContext) Since() time.Time { return cc.since }

// RemoteAddr 返回远端地址
func (cc *ConnContext) RemoteAddr() string {
	if a := cc.c.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}

// Reader 带缓冲的读端
func (cc *ConnContext) Reader() *bufio.Reader { return cc.r }

// SetReadDeadline 设置读超时，零值取消
func (cc *ConnContext) SetReadDeadline(t time.Time) error { return cc.c.SetReadDeadline(t) }

// Write 同步写入，受写超时约束
func (cc *ConnContext) Write(b []byte) (int, error) {
	if cc.closed.Load() {
		return 0, ErrConnClosed
	}
	cc.wmu.Lock()
	defer cc.wmu.Unlock()
	if cc.wto > 0 {
		_ = cc.c.SetWriteDeadline(time.Now().Add(cc.wto))
	}
	n, err := cc.c.Write(b)
	cc.written.Add(int64(n))
	return n, err
}

// BytesWritten 已写出的字节数
func (cc *ConnContext) BytesWritten() int64 { return cc.written.Load() }

// CloseWrite 半关闭写端后在 linger 内丢弃对端剩余输入，避免未读数据触发 RST
func (cc *ConnContext) CloseWrite(linger time.Duration) {
	if cw, ok := cc.c.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
	_ = cc.c.SetReadDeadline(time.Now().Add(linger))
	_, _ = io.Copy(io.Discard, io.LimitReader(cc.r, 64<<10))
}

// Close 关闭连接，可重复调用
func (cc *ConnContext) Close() error {
	if !cc.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(cc.doneC)
	return cc.c.Close()
}

// Done 返回连接关闭通知通道
func (cc *ConnContext) Done() <-chan struct{} { return cc.doneC }
