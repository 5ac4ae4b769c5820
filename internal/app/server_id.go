package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// GenerateInstanceID 生成网关实例ID
// 优先使用环境变量 LM_INSTANCE_ID，否则由主机名与短 UUID 组成
func GenerateInstanceID() string {
	if id := os.Getenv("LM_INSTANCE_ID"); id != "" {
		return id
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("lightmanager-%s-%s", hostname, uuid.New().String()[:8])
}
