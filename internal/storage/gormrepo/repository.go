package gormrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/taoyao-code/lightmanager-gateway/internal/storage/models"
)

const maxRecentLimit = 500

// Open 基于已建立的 pgx 连接池打开 GORM
func Open(pool *pgxpool.Pool) (*gorm.DB, error) {
	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		Conn: stdlib.OpenDBFromPool(pool),
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return db, nil
}

// Repository 命令日志仓储
type Repository struct {
	db *gorm.DB
}

// New 返回一个使用给定 *gorm.DB 的命令日志仓储。
func New(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertCommand 写入一条命令记录，event_id 冲突时忽略（事件重投递幂等）。
func (r *Repository) InsertCommand(ctx context.Context, rec *models.CommandRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(rec).Error
}

// Recent 按执行时间倒序返回最近的命令记录
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.CommandRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	var out []models.CommandRecord
	err := r.db.WithContext(ctx).
		Order("executed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Ping 数据库探活
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
