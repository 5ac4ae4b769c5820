package session

import (
	"io"
	"sort"
	"sync"
	"time"
)

type entry struct {
	info   Info
	closer io.Closer
}

// Registry 活动会话登记表（内存）
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
	onCount func(n int)
}

// New 创建登记表
func New() *Registry {
	return &Registry{entries: make(map[string]*entry), now: time.Now}
}

// OnCountChange 会话数变化回调（在锁内同步调用，需保持轻量）
func (r *Registry) OnCountChange(fn func(n int)) {
	r.mu.Lock()
	r.onCount = fn
	r.mu.Unlock()
}

// Add 登记新会话
func (r *Registry) Add(id, remoteAddr, source string, c io.Closer) {
	r.mu.Lock()
	r.entries[id] = &entry{
		info:   Info{ID: id, RemoteAddr: remoteAddr, Source: source, Since: r.now()},
		closer: c,
	}
	r.notify()
	r.mu.Unlock()
}

// Remove 注销会话
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	r.notify()
	return true
}

func (r *Registry) notify() {
	if r.onCount != nil {
		r.onCount(len(r.entries))
	}
}

// SetSource 更新会话来源（协议识别后）
func (r *Registry) SetSource(id, source string) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.info.Source = source
	}
	r.mu.Unlock()
}

// Count 活动会话数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Snapshot 按建立时间排序的会话列表
func (r *Registry) Snapshot() []Info {
	r.mu.RLock()
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		info := e.info
		if bc, ok := e.closer.(byteCounter); ok {
			info.BytesOut = bc.BytesWritten()
		}
		out = append(out, info)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Since.Equal(out[j].Since) {
			return out[i].ID < out[j].ID
		}
		return out[i].Since.Before(out[j].Since)
	})
	return out
}

// CloseAll 关闭所有会话连接。会话自行注销，这里只触发关闭。
func (r *Registry) CloseAll() int {
	r.mu.RLock()
	closers := make([]io.Closer, 0, len(r.entries))
	for _, e := range r.entries {
		if e.closer != nil {
			closers = append(closers, e.closer)
		}
	}
	r.mu.RUnlock()
	for _, c := range closers {
		_ = c.Close()
	}
	return len(closers)
}
