package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
)

const publishTimeout = 5 * time.Second

// Dispatcher 有界队列 + 单 worker 的事件分发器；队列满时丢弃并计数
type Dispatcher struct {
	queue   chan Event
	sinks   []Publisher
	logger  *zap.Logger
	metrics *metrics.AppMetrics

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	started bool
}

// NewDispatcher 创建分发器
func NewDispatcher(size int, logger *zap.Logger, m *metrics.AppMetrics, sinks ...Publisher) *Dispatcher {
	if size <= 0 {
		size = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   make(chan Event, size),
		sinks:   sinks,
		logger:  logger,
		metrics: m,
		done:    make(chan struct{}),
	}
}

// Sinks 已注册的下游名称
func (d *Dispatcher) Sinks() []string {
	names := make([]string, 0, len(d.sinks))
	for _, s := range d.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Emit 入队事件，不阻塞调用方
func (d *Dispatcher) Emit(e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed || len(d.sinks) == 0 {
		return
	}
	select {
	case d.queue <- e:
	default:
		if d.metrics != nil {
			d.metrics.EventDropped.Inc()
		}
		d.logger.Warn("event queue full, dropping event", zap.String("event_id", e.ID), zap.String("op", e.Op))
	}
}

// Start 启动 worker，ctx 取消或 Close 后排空队列退出
func (d *Dispatcher) Start(ctx context.Context) {
	d.started = true
	go func() {
		defer close(d.done)
		for {
			select {
			case e, ok := <-d.queue:
				if !ok {
					return
				}
				d.deliver(e)
			case <-ctx.Done():
				d.Close()
				for e := range d.queue {
					d.deliver(e)
				}
				return
			}
		}
	}()
}

func (d *Dispatcher) deliver(e Event) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := s.Publish(ctx, e); err != nil {
			d.logger.Warn("event publish failed",
				zap.String("sink", s.Name()),
				zap.String("event_id", e.ID),
				zap.Error(err))
		}
		cancel()
	}
}

// Close 停止接收新事件
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

// Wait 等待 worker 排空退出
func (d *Dispatcher) Wait(ctx context.Context) error {
	if !d.started {
		return nil
	}
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
