package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
	"github.com/taoyao-code/lightmanager-gateway/internal/events"
	"github.com/taoyao-code/lightmanager-gateway/internal/metrics"
	"github.com/taoyao-code/lightmanager-gateway/internal/storage/gormrepo"
	redisstorage "github.com/taoyao-code/lightmanager-gateway/internal/storage/redis"
)

// EventSinks 命令事件下游
type EventSinks struct {
	Redis   *redisstorage.Client
	Journal *gormrepo.Repository
	MQTT    *events.MQTTPublisher
}

// ConnectMQTT 按配置连接 MQTT broker，未启用时返回 nil, nil
func ConnectMQTT(cfg cfgpkg.MQTTConfig, instanceID string, log *zap.Logger) (*events.MQTTPublisher, error) {
	if !cfg.Enabled {
		log.Info("mqtt is disabled, skipping initialization")
		return nil, nil
	}
	if cfg.ClientID == "" {
		cfg.ClientID = instanceID
	}
	p, err := events.ConnectMQTT(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("mqtt connected", zap.String("broker", cfg.Broker), zap.String("client_id", cfg.ClientID))
	return p, nil
}

// NewDispatcher 按已启用的下游组装事件分发器；没有下游时 Emit 为空操作
func NewDispatcher(cfg *cfgpkg.Config, sinks EventSinks, log *zap.Logger, appm *metrics.AppMetrics) *events.Dispatcher {
	var pubs []events.Publisher
	if sinks.Redis != nil {
		pubs = append(pubs, events.NewRedisPublisher(sinks.Redis.Client, cfg.Redis.Channel, cfg.Redis.Stream, cfg.Redis.StreamMaxLen))
	}
	if sinks.MQTT != nil {
		pubs = append(pubs, sinks.MQTT)
	}
	if sinks.Journal != nil {
		pubs = append(pubs, events.NewJournalSink(sinks.Journal))
	}
	d := events.NewDispatcher(cfg.Events.QueueSize, log, appm, pubs...)
	log.Info("event dispatcher initialized", zap.Strings("sinks", d.Sinks()))
	return d
}
