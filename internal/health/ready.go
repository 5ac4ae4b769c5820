package health

import "sync/atomic"

// Readiness 启动阶段就绪标记（设备通道、命令端口）
type Readiness struct {
	deviceReady atomic.Bool
	tcpReady    atomic.Bool
}

// New 创建就绪标记
func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetDeviceReady(v bool) { r.deviceReady.Store(v) }
func (r *Readiness) SetTCPReady(v bool)    { r.tcpReady.Store(v) }

// Ready 设备通道已打开且命令端口在监听
func (r *Readiness) Ready() bool {
	return r.deviceReady.Load() && r.tcpReady.Load()
}
