package tcpserver

import (
	"bufio"
	"bytes"
	"errors"
	"net"
	"time"
)

// 连接协议标记
const (
	ProtoLine = "line"
	ProtoHTTP = "http"
)

var (
	httpPrefix  = []byte("GET")
	httpVersion = []byte("HTTP/1.")
)

// Sniff 在 timeout 内窥视首行判断连接协议：完整的 "GET <path> HTTP/1.x" 请求行
// （不区分大小写）视为 HTTP，其余按行协议处理。窥视的数据保留在读缓冲中。
func Sniff(cc *ConnContext, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		return ProtoLine, nil
	}
	r := cc.Reader()
	_ = cc.SetReadDeadline(time.Now().Add(timeout))
	pref, err := r.Peek(len(httpPrefix))
	proto := ProtoLine
	if len(pref) == len(httpPrefix) && bytes.EqualFold(pref, httpPrefix) {
		if line := peekLine(r); bytes.Contains(bytes.ToUpper(line), httpVersion) {
			proto = ProtoHTTP
		}
	}
	_ = cc.SetReadDeadline(time.Time{})

	var ne net.Error
	if err != nil && !(errors.As(err, &ne) && ne.Timeout()) && len(pref) == 0 {
		return proto, err
	}
	return proto, nil
}

// peekLine 不消费数据地窥视首行（不含换行），读超时或缓冲满时返回已有部分
func peekLine(r *bufio.Reader) []byte {
	n := r.Buffered()
	for {
		b, _ := r.Peek(n)
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			return b[:i]
		}
		if n >= r.Size() {
			return b
		}
		if _, err := r.Peek(n + 1); err != nil {
			b, _ = r.Peek(r.Buffered())
			return b
		}
		n = r.Buffered()
	}
}
