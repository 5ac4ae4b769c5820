// Package httpshim 在命令端口上处理单次 HTTP GET 请求：
// GET /cmd=<urlencoded 命令列表> HTTP/1.x，以 HTML 返回结果后关闭连接。
package httpshim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/taoyao-code/lightmanager-gateway/internal/render"
)

const cmdMarker = "/cmd="

var (
	// ErrNotHTTP 不是 HTTP 请求行
	ErrNotHTTP = errors.New("not an HTTP request line")
	// ErrBadRequest 请求行中没有可解码的 /cmd=
	ErrBadRequest = errors.New("bad request")
)

// IsRequestLine 判断是否为 "GET <path> HTTP/1.x"（不区分大小写）
func IsRequestLine(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 3 || !strings.EqualFold(line[:3], "GET") {
		return false
	}
	return strings.Contains(strings.ToUpper(line), "HTTP/1.")
}

// RequestPath 提取请求行中的路径部分
func RequestPath(line string) (string, error) {
	if !IsRequestLine(line) {
		return "", ErrNotHTTP
	}
	line = strings.TrimSpace(line)
	end := strings.Index(strings.ToUpper(line), "HTTP/1.")
	path := strings.TrimSpace(line[3:end])
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: path %q", ErrBadRequest, path)
	}
	return path, nil
}

// ExtractCommands 取出 /cmd= 之后的部分并做百分号解码（'+' 解码为空格）
func ExtractCommands(line string) (string, error) {
	path, err := RequestPath(line)
	if err != nil {
		return "", err
	}
	i := strings.Index(strings.ToLower(path), cmdMarker)
	if i < 0 {
		return "", fmt.Errorf("%w: missing %s", ErrBadRequest, cmdMarker)
	}
	cmds, err := url.QueryUnescape(path[i+len(cmdMarker):])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return cmds, nil
}

// Runner 执行解码后的命令列表并以 HTML 输出；返回 true 表示请求了 EXIT
type Runner interface {
	RunHTML(ctx context.Context, commands string, p *render.Printer) bool
}

// Info 响应头中的产品信息
type Info struct {
	Product string
	Version string
	Build   string
}

// Shim HTTP 请求处理器
type Shim struct {
	info Info
	help string
	now  func() time.Time
}

// New 创建 Shim，help 为 400 响应附带的帮助文本
func New(info Info, help string) *Shim {
	return &Shim{info: info, help: help, now: time.Now}
}

// Serve 处理一条请求行，向 w 写出完整响应。
// 返回 exit 表示命令中包含 EXIT。
func (s *Shim) Serve(ctx context.Context, line string, w io.Writer, run Runner) (exit bool, status int, err error) {
	var body bytes.Buffer
	p := render.NewHTML(&body)

	status = http.StatusOK
	cmds, perr := ExtractCommands(line)
	if perr != nil {
		status = http.StatusBadRequest
		p.Raw(htmlHeader("Error 400 - Bad Request"))
		s.writeUsage(p)
	} else {
		p.Raw(htmlHeader("Lightmanager"))
		exit = run.RunHTML(ctx, cmds, p)
	}
	p.Raw(htmlFooter)

	resp := &http.Response{
		StatusCode:    status,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        s.header(),
		Body:          io.NopCloser(&body),
		ContentLength: int64(body.Len()),
		Close:         true,
	}
	return exit, status, resp.Write(w)
}

func (s *Shim) header() http.Header {
	now := s.now().UTC().Format(http.TimeFormat)
	h := make(http.Header)
	h.Set("Date", now)
	h.Set("Last-Modified", now)
	h.Set("Server", fmt.Sprintf("%s WEB %s (build %s)", s.info.Product, s.info.Version, s.info.Build))
	h.Set("Content-Language", "en")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, post-check=0, pre-check=0")
	h.Set("Pragma", "no-cache")
	h.Set("Connection", "close")
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Access-Control-Allow-Origin", "*")
	return h
}

func (s *Shim) writeUsage(p *render.Printer) {
	p.Raw("<h1>Error 400 - Bad Request</h1>" + render.LineBreak)
	p.Raw("The request cannot be fulfilled due to bad syntax.<br />" + render.LineBreak)
	p.Raw("Usage&colon; <pre>http&colon;//&lt;server&gt;/cmd=<span style=\"color:blue;\">command</span>" +
		"[&amp;<span style=\"color:blue;\">command</span>[...]]</pre>" + render.LineBreak)
	p.Raw("For possible commands see help below" + render.LineBreak)
	p.Pre(s.help)
}

func htmlHeader(title string) string {
	return "<!DOCTYPE HTML PUBLIC \"-//W3C//DTD HTML 4.01 Transitional//EN\"\r\n" +
		"       \"http://www.w3.org/TR/html4/loose.dtd\">\r\n" +
		"<html>\r\n<head>\r\n<title>" + title + "</title>\r\n</head>\r\n<body>\r\n"
}

const htmlFooter = "</body>\r\n</html>\r\n"
