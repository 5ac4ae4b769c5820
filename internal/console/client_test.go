package console

import (
	"bufio"
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	server, conn := net.Pipe()
	c := New(conn)

	pumped := make(chan error, 1)
	var out bytes.Buffer
	go func() { pumped <- c.Pump(&out) }()

	t.Run("发送补CRLF", func(t *testing.T) {
		go func() { _ = c.Send("GET TEMP\n") }()
		line, err := bufio.NewReader(server).ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "GET TEMP\r\n", line)
	})

	t.Run("输出去掉CR", func(t *testing.T) {
		_, err := server.Write([]byte("21.5\r\nGET TEMP: OK\r\n>"))
		require.NoError(t, err)
		require.NoError(t, server.Close())
		require.NoError(t, <-pumped)
		assert.Equal(t, "21.5\nGET TEMP: OK\n>", out.String())
	})
}
