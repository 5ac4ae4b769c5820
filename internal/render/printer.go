// Package render 命令输出渲染：纯文本（TCP 会话）与 HTML（HTTP 请求）两种模式。
package render

import (
	"fmt"
	"html"
	"io"
	"strings"
)

// LineBreak 协议换行
const LineBreak = "\r\n"

// Printer 命令输出。HTML 模式下转义文本并将换行替换为 <br />，预格式化块包在 <pre> 中。
// 首次写错误后停止输出，错误由 Err 返回。
type Printer struct {
	w    io.Writer
	html bool
	err  error
}

// NewText 纯文本输出
func NewText(w io.Writer) *Printer { return &Printer{w: w} }

// NewHTML HTML 输出
func NewHTML(w io.Writer) *Printer { return &Printer{w: w, html: true} }

// HTML 是否为 HTML 模式
func (p *Printer) HTML() bool { return p.html }

// Err 第一个写错误
func (p *Printer) Err() error { return p.err }

func (p *Printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// Printf 格式化输出
func (p *Printer) Printf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if p.html {
		s = strings.ReplaceAll(html.EscapeString(s), LineBreak, "<br />"+LineBreak)
	}
	p.write(s)
}

// Line 输出一行
func (p *Printer) Line(s string) { p.Printf("%s%s", s, LineBreak) }

// Pre 输出预格式化块（帮助文本）
func (p *Printer) Pre(text string) {
	if p.html {
		p.write("<pre>" + html.EscapeString(text) + "</pre>" + LineBreak)
		return
	}
	p.write(text)
}

// Raw 原样输出（HTTP 头与文档包装）
func (p *Printer) Raw(s string) { p.write(s) }

// Status 子命令状态行："<cmd>: OK" 或 "<cmd>: ERROR - <reason>"
func (p *Printer) Status(cmd string, err error) {
	p.Line(StatusLine(cmd, err))
}

// StatusLine 状态行文本（不含换行）
func StatusLine(cmd string, err error) string {
	if cmd == "" {
		cmd = "<unknown>"
	}
	if err == nil {
		return cmd + ": OK"
	}
	return cmd + ": ERROR - " + err.Error()
}
