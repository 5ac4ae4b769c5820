package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewText(&buf)
	p.Line("21.5")
	p.Status("scene 3", nil)
	p.Status("fs20 9999 on", errors.New("wrong <addr> parameter"))
	p.Pre("help\r\n")

	assert.False(t, p.HTML())
	assert.Equal(t, "21.5\r\nscene 3: OK\r\nfs20 9999 on: ERROR - wrong <addr> parameter\r\nhelp\r\n", buf.String())
}

func TestHTMLPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewHTML(&buf)
	p.Status("fs20 9999 on", errors.New("wrong <addr> parameter"))
	p.Pre("a <b>\r\n")
	p.Raw("</body>")

	assert.True(t, p.HTML())
	assert.Equal(t,
		"fs20 9999 on: ERROR - wrong &lt;addr&gt; parameter<br />\r\n<pre>a &lt;b&gt;\r\n</pre>\r\n</body>",
		buf.String())
}

type failWriter struct{ n int }

func (w *failWriter) Write(b []byte) (int, error) {
	w.n++
	return 0, errors.New("broken pipe")
}

func TestPrinterStopsAfterError(t *testing.T) {
	w := &failWriter{}
	p := NewText(w)
	p.Line("one")
	p.Line("two")
	assert.Error(t, p.Err())
	assert.Equal(t, 1, w.n)
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "<unknown>: OK", StatusLine("", nil))
}
