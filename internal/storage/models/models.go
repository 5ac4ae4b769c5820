package models

import (
	"time"
)

// 不使用 gorm.Model，显式声明每个字段，避免隐式 DeletedAt

// CommandRecord 映射 command_records 表：每个已执行子命令一行
type CommandRecord struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID    string    `gorm:"column:event_id;type:uuid;not null;uniqueIndex"`
	SessionID  *string   `gorm:"column:session_id;type:text"`
	RemoteAddr *string   `gorm:"column:remote_addr;type:text"`
	Source     string    `gorm:"column:source;type:varchar(16);not null"`
	Op         string    `gorm:"column:op;type:varchar(32);not null;index"`
	Command    string    `gorm:"column:command;type:text;not null"`
	OK         bool      `gorm:"column:ok;not null"`
	Error      *string   `gorm:"column:error;type:text"`
	DurationMs int64     `gorm:"column:duration_ms;not null;default:0"`
	ExecutedAt time.Time `gorm:"column:executed_at;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (CommandRecord) TableName() string { return "command_records" }
