package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/api/middleware"
	"github.com/taoyao-code/lightmanager-gateway/internal/command"
	"github.com/taoyao-code/lightmanager-gateway/internal/device"
	"github.com/taoyao-code/lightmanager-gateway/internal/protocol/lightmanager"
	"github.com/taoyao-code/lightmanager-gateway/internal/session"
	"github.com/taoyao-code/lightmanager-gateway/internal/storage/models"
)

type fakeJournal struct {
	records []models.CommandRecord
	err     error
	limit   int
}

func (f *fakeJournal) Recent(_ context.Context, limit int) ([]models.CommandRecord, error) {
	f.limit = limit
	return f.records, f.err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type apiFixture struct {
	sim      *device.Simulator
	sessions *session.Registry
	engine   *gin.Engine
}

func newAPIFixture(t *testing.T, journal JournalReader, keys []string) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sim := device.NewSimulator(device.DefaultProfile())
	client := lightmanager.NewClient(sim,
		lightmanager.WithRetryPolicy(lightmanager.RetryPolicy{MaxAttempts: 3, Timeout: 10 * time.Millisecond}))
	interp := command.New(client, command.NewHousecode(0x1b1b), command.WithLocation(time.UTC))
	reg := session.New()

	r := gin.New()
	RegisterRoutes(r, NewHandler(interp, reg, journal, zap.NewNop()), middleware.NewAuthConfig(keys), zap.NewNop())
	return &apiFixture{sim: sim, sessions: reg, engine: r}
}

func (f *apiFixture) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestExecuteCommand(t *testing.T) {
	f := newAPIFixture(t, nil, nil)

	t.Run("执行FS20并返回状态", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/commands", `{"line":"FS20 1111 ON, SCENE 0"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp CommandResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "continue", resp.Result)
		require.Len(t, resp.Statuses, 2)
		assert.True(t, resp.Statuses[0].OK)
		assert.Equal(t, "FS20", resp.Statuses[0].Op)
		assert.False(t, resp.Statuses[1].OK)
		assert.Equal(t, "validation", resp.Statuses[1].Kind)
		assert.Contains(t, resp.Output, "FS20 1111 ON: OK")

		frames := f.sim.Frames()
		require.NotEmpty(t, frames)
		assert.Equal(t, device.Frame{0x01, 0x1b, 0x1b, 0x00, 0x11, 0x00, 0x03, 0x00}, frames[0])
	})

	t.Run("EXIT只报告不退出", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/commands", `{"line":"EXIT"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp CommandResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "disconnect_server", resp.Result)
	})

	t.Run("缺少line返回400", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/commands", `{}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("拒绝HTTP请求行", func(t *testing.T) {
		w := f.do(http.MethodPost, "/api/v1/commands", `{"line":"GET /cmd=HELP HTTP/1.1"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReadEndpoints(t *testing.T) {
	journal := &fakeJournal{records: []models.CommandRecord{{Op: "FS20", Command: "FS20 1111 ON", OK: true}}}
	f := newAPIFixture(t, journal, nil)

	t.Run("会话列表", func(t *testing.T) {
		f.sessions.Add("c1", "10.0.0.1:1234", "tcp", nopCloser{})
		defer f.sessions.Remove("c1")

		w := f.do(http.MethodGet, "/api/v1/sessions", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Count    int            `json:"count"`
			Sessions []session.Info `json:"sessions"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, "10.0.0.1:1234", body.Sessions[0].RemoteAddr)
	})

	t.Run("住宅码", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/housecode", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"housecode":"12341234"`)
	})

	t.Run("命令日志", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/journal?limit=5", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, journal.limit)
		assert.Contains(t, w.Body.String(), "FS20 1111 ON")
	})

	t.Run("limit非法返回400", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/v1/journal?limit=x", "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("查询失败返回500", func(t *testing.T) {
		journal.err = errors.New("db down")
		defer func() { journal.err = nil }()
		w := f.do(http.MethodGet, "/api/v1/journal", "", nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("OpenAPI文档", func(t *testing.T) {
		w := f.do(http.MethodGet, "/openapi.json", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, json.Valid(w.Body.Bytes()))
		assert.Contains(t, w.Body.String(), "/api/v1/commands")
	})
}

func TestJournalDisabled(t *testing.T) {
	f := newAPIFixture(t, nil, nil)
	w := f.do(http.MethodGet, "/api/v1/journal", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoutesRequireKey(t *testing.T) {
	f := newAPIFixture(t, nil, []string{"k-0123456789"})

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/housecode", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/housecode", "", map[string]string{"X-API-Key": "k-0123456789"}).Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/openapi.json", "", nil).Code)
}
