package command

import (
	"sync"

	"github.com/taoyao-code/lightmanager-gateway/internal/protocol/lightmanager"
)

// Housecode 进程共享的 FS20 住宅码
type Housecode struct {
	mu sync.RWMutex
	v  uint16
}

// NewHousecode 以初始值创建
func NewHousecode(v uint16) *Housecode { return &Housecode{v: v} }

// Get 当前值
func (h *Housecode) Get() uint16 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.v
}

// Set 覆盖当前值
func (h *Housecode) Set(v uint16) {
	h.mu.Lock()
	h.v = v
	h.mu.Unlock()
}

// String 8 位四进制格式
func (h *Housecode) String() string { return lightmanager.FormatHousecode(h.Get()) }
