package app

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/lightmanager-gateway/internal/health"
	redisstorage "github.com/taoyao-code/lightmanager-gateway/internal/storage/redis"
	"github.com/taoyao-code/lightmanager-gateway/internal/tcpserver"
)

// NewHealthAggregator 创建健康检查聚合器，初始只有设备检查器
func NewHealthAggregator(driver string, dev *Device) *health.Aggregator {
	return health.NewAggregator(health.NewDeviceChecker(driver, dev.Breaker))
}

// AddDatabaseChecker 启用命令日志时添加数据库检查器
func AddDatabaseChecker(aggregator *health.Aggregator, pool *pgxpool.Pool) {
	if pool != nil {
		aggregator.AddChecker(health.NewDatabaseChecker(pool))
	}
}

// AddRedisChecker 启用 Redis 时添加检查器
func AddRedisChecker(aggregator *health.Aggregator, redisClient *redisstorage.Client) {
	if redisClient != nil {
		aggregator.AddChecker(health.NewRedisChecker(redisClient))
	}
}

// AddTCPChecker TCP 启动后添加检查器
func AddTCPChecker(aggregator *health.Aggregator, tcpServer *tcpserver.Server) {
	aggregator.AddChecker(health.NewTCPChecker(tcpServer))
}
