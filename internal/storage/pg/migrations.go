package pg

import "embed"

// Migrations 命令日志库的 SQL 迁移（NNNN_name_up.sql）
//
//go:embed migrations/*.sql
var Migrations embed.FS
