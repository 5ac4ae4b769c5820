package app

import (
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/session"
)

// NewSessionRegistry 创建会话登记表，会话数同步到 sessions_active 指标
func NewSessionRegistry(appm *metrics.AppMetrics) *session.Registry {
	reg := session.New()
	if appm != nil {
		reg.OnCountChange(func(n int) { appm.SessionsActive.Set(float64(n)) })
	}
	return reg
}
