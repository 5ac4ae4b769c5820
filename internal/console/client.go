// Package console 命令端口的交互式客户端连接
package console

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Client 一条到网关命令端口的连接
type Client struct {
	conn net.Conn
	mu   sync.Mutex
}

// Dial 连接网关
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// New 包装已建立的连接
func New(conn net.Conn) *Client { return &Client{conn: conn} }

// Send 发送一行命令（补 CRLF）
func (c *Client) Send(line string) error {
	line = strings.TrimRight(line, "\r\n")
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.conn, line+"\r\n")
	return err
}

// Pump 将服务端输出去掉 CR 后写到 w，直到连接关闭；正常关闭返回 nil
func (c *Client) Pump(w io.Writer) error {
	r := bufio.NewReader(c.conn)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out := strings.ReplaceAll(string(buf[:n]), "\r", "")
			if _, werr := io.WriteString(w, out); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Close 关闭连接
func (c *Client) Close() error { return c.conn.Close() }
