package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/migrate"
	"github.com/taoyao-code/lightmanager-gateway/internal/storage/gormrepo"
	pgstorage "github.com/taoyao-code/lightmanager-gateway/internal/storage/pg"
)

// ConnectJournal 建立命令日志库连接并执行内置 SQL 迁移。
// 未启用时返回 nil, nil, nil。
func ConnectJournal(ctx context.Context, cfg cfgpkg.DatabaseConfig, log *zap.Logger) (*pgxpool.Pool, *gormrepo.Repository, error) {
	if !cfg.Enabled {
		log.Info("command journal is disabled, skipping database")
		return nil, nil, nil
	}
	pool, err := pgstorage.NewPool(ctx, cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect: %w", err)
	}
	db, err := gormrepo.Open(pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("gorm open: %w", err)
	}
	applied, err := migrate.Runner{FS: pgstorage.Migrations}.Up(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("db migrate: %w", err)
	}
	if applied > 0 {
		log.Info("db migrations applied", zap.Int("count", applied))
	}
	repo := gormrepo.New(db)
	log.Info("command journal ready", zap.String("dsn", pgstorage.MaskDSN(cfg.DSN)))
	return pool, repo, nil
}
