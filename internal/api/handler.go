package api

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/command"
	"github.com/taoyao-code/lightmanager-gateway/internal/events"
	"github.com/taoyao-code/lightmanager-gateway/internal/httpshim"
	"github.com/taoyao-code/lightmanager-gateway/internal/session"
	"github.com/taoyao-code/lightmanager-gateway/internal/storage/models"
)

// Executor 命令执行（command.Interpreter）
type Executor interface {
	Execute(ctx context.Context, text string, sess command.Session) command.Outcome
	Housecode() *command.Housecode
}

// JournalReader 命令日志查询（gormrepo.Repository）
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]models.CommandRecord, error)
}

// Handler 管理接口处理器
type Handler struct {
	exec     Executor
	sessions session.Tracker
	journal  JournalReader
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHandler 创建处理器，journal 为 nil 时日志查询返回 404
func NewHandler(exec Executor, sessions session.Tracker, journal JournalReader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{exec: exec, sessions: sessions, journal: journal, timeout: 5 * time.Minute, logger: logger}
}

// CommandRequest 命令执行请求
type CommandRequest struct {
	Line string `json:"line" binding:"required"`
}

// StatusView 子命令结果
type StatusView struct {
	Command string `json:"command"`
	Op      string `json:"op"`
	OK      bool   `json:"ok"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CommandResponse 命令执行结果
type CommandResponse struct {
	Result   string       `json:"result"`
	Output   string       `json:"output"`
	Statuses []StatusView `json:"statuses"`
}

// ExecuteCommand 执行命令行
// @Summary 执行命令行
// @Description 在独立的 verbose 会话中执行一行命令；EXIT 只报告，不停止服务
// @Tags 命令
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body CommandRequest true "命令行"
// @Success 200 {object} CommandResponse
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/commands [post]
func (h *Handler) ExecuteCommand(c *gin.Context) {
	var req CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	if httpshim.IsRequestLine(req.Line) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "http request lines are not accepted"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var out bytes.Buffer
	sess := command.NewBasicSession(&out, command.SessionInfo{
		ID:         "admin-" + strconv.FormatInt(time.Now().UnixNano(), 36),
		RemoteAddr: c.ClientIP(),
		Source:     events.SourceAdmin,
	})
	res := h.exec.Execute(ctx, req.Line, sess)
	if res.Exit {
		h.logger.Info("exit requested via admin api, ignored", zap.String("client_ip", c.ClientIP()))
	}

	resp := CommandResponse{Result: res.Result.String(), Output: out.String(), Statuses: make([]StatusView, 0, len(res.Statuses))}
	for _, st := range res.Statuses {
		v := StatusView{Command: st.Command, Op: st.Op.String(), OK: st.OK()}
		if st.Err != nil {
			v.Error = st.Err.Error()
			if k := command.KindOf(st.Err); k != 0 {
				v.Kind = k.String()
			}
		}
		resp.Statuses = append(resp.Statuses, v)
	}
	c.JSON(http.StatusOK, resp)
}

// ListSessions 活动会话
// @Summary 活动会话列表
// @Tags 会话
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/sessions [get]
func (h *Handler) ListSessions(c *gin.Context) {
	list := []session.Info{}
	if h.sessions != nil {
		list = h.sessions.Snapshot()
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "sessions": list})
}

// GetHousecode 当前 FS20 住宅码
// @Summary 当前 FS20 住宅码
// @Tags 设备
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/housecode [get]
func (h *Handler) GetHousecode(c *gin.Context) {
	hc := h.exec.Housecode()
	c.JSON(http.StatusOK, gin.H{"housecode": hc.String(), "value": hc.Get()})
}

// ListJournal 最近的命令日志
// @Summary 最近的命令日志
// @Tags 命令
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "条数(默认50，最大500)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "未启用命令日志"
// @Router /api/v1/journal [get]
func (h *Handler) ListJournal(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "command journal disabled"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	records, err := h.journal.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("journal query failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "records": records})
}
