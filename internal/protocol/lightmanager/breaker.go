package lightmanager

import (
	"errors"
	"sync"
	"time"
)

// BreakerState 熔断器状态
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常，允许发送
	BreakerOpen                         // 熔断，直接失败
	BreakerHalfOpen                     // 半开，允许试探
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	// ErrCircuitOpen 设备连续失败，熔断期内拒绝发送
	ErrCircuitOpen = errors.New("device circuit breaker is open")
	// ErrTooManyProbes 半开状态试探请求过多
	ErrTooManyProbes = errors.New("too many probes in half-open state")
)

// Breaker 设备熔断器：连续 threshold 次发送失败后在 cooldown 内快速失败
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	probes       int
	lastFailTime time.Time
	tripCount    int64

	threshold   int
	cooldown    time.Duration
	halfOpenMax int
	now         func() time.Time

	onStateChange func(from, to BreakerState)
}

// NewBreaker 创建熔断器，threshold<=0 时默认 10 次，cooldown<=0 时默认 30s
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 10
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{
		state:       BreakerClosed,
		threshold:   threshold,
		cooldown:    cooldown,
		halfOpenMax: 2,
		now:         time.Now,
	}
}

// Call 在熔断器保护下执行 fn
func (b *Breaker) Call(fn func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := fn()
	b.after(err)
	return err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.now().Sub(b.lastFailTime) < b.cooldown {
			return ErrCircuitOpen
		}
		b.transitionTo(BreakerHalfOpen)
		b.probes = 0
		fallthrough
	case BreakerHalfOpen:
		if b.probes >= b.halfOpenMax {
			return ErrTooManyProbes
		}
		b.probes++
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailTime = b.now()
		if b.state == BreakerHalfOpen || b.failures >= b.threshold {
			if b.state != BreakerOpen {
				b.tripCount++
			}
			b.transitionTo(BreakerOpen)
		}
		return
	}

	b.failures = 0
	if b.state == BreakerHalfOpen {
		b.transitionTo(BreakerClosed)
	}
}

func (b *Breaker) transitionTo(s BreakerState) {
	if b.state == s {
		return
	}
	from := b.state
	b.state = s
	if b.onStateChange != nil {
		go b.onStateChange(from, s)
	}
}

// State 当前状态
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats 统计信息
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BreakerStats{
		State:     b.state.String(),
		Failures:  b.failures,
		TripCount: b.tripCount,
		LastFail:  b.lastFailTime,
	}
}

// SetStateChangeCallback 设置状态变化回调（异步触发）
func (b *Breaker) SetStateChangeCallback(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Reset 手动恢复
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionTo(BreakerClosed)
	b.failures = 0
}

// BreakerStats 熔断器统计
type BreakerStats struct {
	State     string    `json:"state"`
	Failures  int       `json:"failures"`
	TripCount int64     `json:"trip_count"`
	LastFail  time.Time `json:"last_fail"`
}
