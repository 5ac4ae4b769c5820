package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	cfgpkg "github.com/taoyao-code/lightmanager-gateway/internal/config"
)

var (
	// ErrMQTTConnect 初始连接失败
	ErrMQTTConnect = errors.New("mqtt connect failed")
	// ErrMQTTPublish 发布失败或超时
	ErrMQTTPublish = errors.New("mqtt publish failed")
)

// MQTTPublisher 将事件发布到 <prefix>/events/<op>，在线状态保留在 <prefix>/status
type MQTTPublisher struct {
	client  pahomqtt.Client
	prefix  string
	qos     byte
	timeout time.Duration
}

func buildMQTTOptions(cfg cfgpkg.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(cfg.Timeout)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetWill(statusTopic(cfg.TopicPrefix), "offline", 1, true)
	return opts
}

// ConnectMQTT 连接 broker 并发布在线状态
func ConnectMQTT(cfg cfgpkg.MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	client := pahomqtt.NewClient(buildMQTTOptions(cfg))
	token := client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrMQTTConnect, cfg.Timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMQTTConnect, err)
	}
	p := NewMQTTPublisher(client, cfg.TopicPrefix, byte(cfg.QoS), cfg.Timeout)
	client.Publish(statusTopic(cfg.TopicPrefix), 1, true, "online")
	return p, nil
}

// NewMQTTPublisher 使用已有的 paho 客户端
func NewMQTTPublisher(client pahomqtt.Client, prefix string, qos byte, timeout time.Duration) *MQTTPublisher {
	if qos > 2 {
		qos = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTPublisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos, timeout: timeout}
}

// Name 实现 Publisher
func (p *MQTTPublisher) Name() string { return "mqtt" }

// Topic 事件主题
func (p *MQTTPublisher) Topic(e Event) string {
	op := strings.ToLower(e.Op)
	if op == "" {
		op = "unknown"
	}
	return p.prefix + "/events/" + op
}

func statusTopic(prefix string) string { return strings.TrimSuffix(prefix, "/") + "/status" }

// Publish 实现 Publisher
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	token := p.client.Publish(p.Topic(e), p.qos, false, data)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.timeout):
		return fmt.Errorf("%w: timeout after %v", ErrMQTTPublish, p.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrMQTTPublish, err)
	}
	return nil
}

// Close 发布离线状态并断开
func (p *MQTTPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Publish(statusTopic(p.prefix), 1, true, "offline").WaitTimeout(p.timeout)
	}
	p.client.Disconnect(250)
}
