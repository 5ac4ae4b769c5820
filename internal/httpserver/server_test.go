package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	appmetrics "github.com/taoyao-code/lightmanager-gateway/internal/metrics"
)

func TestMetricsAndRoutes(t *testing.T) {
	cfg := cfgpkg.HTTPConfig{Addr: "127.0.0.1:0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	m := appmetrics.NewAppMetrics(reg)
	m.TCPAccepted.Inc()

	srv := New(cfg, nil)
	srv.MountMetrics("", appmetrics.Handler(reg))
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "tcp_accept_total")

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, "pong", rr.Body.String())
}

func TestStartShutdown(t *testing.T) {
	srv := New(cfgpkg.HTTPConfig{Addr: "127.0.0.1:0"}, nil)
	srv.Engine().GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	require.NoError(t, srv.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}

func TestStartInvalidAddr(t *testing.T) {
	srv := New(cfgpkg.HTTPConfig{Addr: "256.0.0.1:bad"}, nil)
	assert.Error(t, srv.Start())
}
