package events

import (
	"context"

	"github.com/taoyao-code/lightmanager-gateway/internal/storage/models"
)

// CommandStore 命令日志存储
type CommandStore interface {
	InsertCommand(ctx context.Context, rec *models.CommandRecord) error
}

// JournalSink 将事件写入命令日志表
type JournalSink struct {
	store CommandStore
}

// NewJournalSink 创建命令日志下游
func NewJournalSink(store CommandStore) *JournalSink { return &JournalSink{store: store} }

// Name 实现 Publisher
func (s *JournalSink) Name() string { return "journal" }

// Publish 实现 Publisher
func (s *JournalSink) Publish(ctx context.Context, e Event) error {
	return s.store.InsertCommand(ctx, Record(e))
}

// Record 事件转命令记录
func Record(e Event) *models.CommandRecord {
	rec := &models.CommandRecord{
		EventID:    e.ID,
		Source:     string(e.Source),
		Op:         e.Op,
		Command:    e.Command,
		OK:         e.OK,
		DurationMs: e.DurationMs,
		ExecutedAt: e.At,
	}
	if e.SessionID != "" {
		rec.SessionID = &e.SessionID
	}
	if e.RemoteAddr != "" {
		rec.RemoteAddr = &e.RemoteAddr
	}
	if e.Error != "" {
		rec.Error = &e.Error
	}
	return rec
}
