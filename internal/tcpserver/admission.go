package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited 接入速率超限
	ErrRateLimited = errors.New("accept rate exceeded")
	// ErrTooManyConnections 并发连接数超限
	ErrTooManyConnections = errors.New("connection limit exceeded")
)

// 拒绝原因（指标标签）
const (
	RejectRate  = "rate"
	RejectLimit = "limit"
)

// Admission 连接接入控制：令牌桶限速 + 并发上限（Semaphore）
type Admission struct {
	limiter *rate.Limiter // nil 表示不限速
	rate    int
	burst   int

	sem     chan struct{}
	timeout time.Duration
	maxConn int

	active        atomic.Int64
	admitted      atomic.Int64
	rejectedRate  atomic.Int64
	rejectedLimit atomic.Int64
}

// NewAdmission 创建接入控制
// maxConn: 最大并发连接数，<=0 默认 256
// acquireTimeout: 等待连接许可的超时，<=0 默认 1s
// ratePerSec/burst: 每秒接入数与突发容量，ratePerSec<=0 时不限速
func NewAdmission(maxConn int, acquireTimeout time.Duration, ratePerSec, burst int) *Admission {
	if maxConn <= 0 {
		maxConn = 256
	}
	if acquireTimeout <= 0 {
		acquireTimeout = time.Second
	}
	a := &Admission{
		sem:     make(chan struct{}, maxConn),
		timeout: acquireTimeout,
		maxConn: maxConn,
	}
	if ratePerSec > 0 {
		if burst <= 0 {
			burst = ratePerSec * 2
		}
		a.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
		a.rate, a.burst = ratePerSec, burst
	}
	return a
}

// Admit 申请接入。成功时返回的 release 必须调用一次；失败时 reason 为拒绝原因。
func (a *Admission) Admit(ctx context.Context) (release func(), reason string, err error) {
	if a.limiter != nil && !a.limiter.Allow() {
		a.rejectedRate.Add(1)
		return nil, RejectRate, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	select {
	case a.sem <- struct{}{}:
	case <-ctx.Done():
		a.rejectedLimit.Add(1)
		return nil, RejectLimit, fmt.Errorf("%w: max=%d", ErrTooManyConnections, a.maxConn)
	}

	a.active.Add(1)
	a.admitted.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			<-a.sem
			a.active.Add(-1)
		}
	}, "", nil
}

// Active 当前活跃连接数
func (a *Admission) Active() int { return int(a.active.Load()) }

// MaxConnections 最大连接数
func (a *Admission) MaxConnections() int { return a.maxConn }

// Stats 统计信息
func (a *Admission) Stats() AdmissionStats {
	return AdmissionStats{
		MaxConnections:    a.maxConn,
		ActiveConnections: a.Active(),
		AdmittedTotal:     a.admitted.Load(),
		RejectedRate:      a.rejectedRate.Load(),
		RejectedLimit:     a.rejectedLimit.Load(),
		RatePerSecond:     a.rate,
		Burst:             a.burst,
		Utilization:       float64(a.Active()) / float64(a.maxConn),
	}
}

// AdmissionStats 接入控制统计
type AdmissionStats struct {
	MaxConnections    int     `json:"max_connections"`
	ActiveConnections int     `json:"active_connections"`
	AdmittedTotal     int64   `json:"admitted_total"`
	RejectedRate      int64   `json:"rejected_rate"`
	RejectedLimit     int64   `json:"rejected_limit"`
	RatePerSecond     int     `json:"rate_per_second"`
	Burst             int     `json:"burst"`
	Utilization       float64 `json:"utilization"` // 0.0 - 1.0
}
