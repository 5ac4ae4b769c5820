package session

import (
	"io"
	"time"
)

// Tracker 活动会话登记接口
type Tracker interface {
	// Add 登记新会话，重复 ID 覆盖
	Add(id, remoteAddr, source string, c io.Closer)

	// Remove 注销会话，返回是否存在
	Remove(id string) bool

	// SetSource 更新会话来源
	SetSource(id, source string)

	// Count 活动会话数量
	Count() int

	// Snapshot 按建立时间排序的会话列表
	Snapshot() []Info

	// CloseAll 关闭所有会话，返回关闭数量
	CloseAll() int
}

// Info 会话快照
type Info struct {
	ID         string    `json:"id"`
	RemoteAddr string    `json:"remote_addr"`
	Source     string    `json:"source"`
	Since      time.Time `json:"since"`
	BytesOut   int64     `json:"bytes_out"`
}

// byteCounter 连接可选实现，用于快照中的已发送字节数
type byteCounter interface {
	BytesWritten() int64
}
