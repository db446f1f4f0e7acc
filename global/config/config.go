package config

import (
	"os"

	mongoutil "PPStore/data/database/mgo/mongoutil"
	"PPStore/logger"
	"PPStore/service/natsx"
	redis "PPStore/service/storage"
	"PPStore/tools/ids"

	"gopkg.in/yaml.v3"
)

// AppConfig 单进程全部配置；yaml 文件可覆盖默认值（见 Load）。
type AppConfig struct {
	NodeID    int64  `yaml:"node_id"`    // 雪花ID节点号
	GatewayID string `yaml:"gateway_id"` // 网关节点ID（NATS 转发 subject 用）
	Port      int    `yaml:"port"`       // HTTP/WS 端口

	JwtSecret string `yaml:"jwt_secret"` // 会话 token 校验密钥
	ServerKey string `yaml:"server_key"` // 服务端特权调用 key（X-Server-Key）

	Mongo mongoutil.Config  `yaml:"mongo"`
	Redis redis.Config      `yaml:"redis"`
	Nats  natsx.NatsxConfig `yaml:"nats"` // Servers 为空 = 单机部署不启用
}

var Global = AppConfig{
	NodeID:    100,
	GatewayID: "gateway_01",
	Port:      8080,
	JwtSecret: "mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=",
	ServerKey: "defaultserverkey",
	Mongo: mongoutil.Config{
		Address:  []string{"127.0.0.1:27017"},
		Database: "ppstore",
	},
	Redis: redis.Config{
		Addr: "127.0.0.1:6379", DB: 0,
	},
}

// Load 从 yaml 文件加载；文件不存在时沿用默认值。
func Load(path string) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("[Config] %s not found, using defaults", path)
			return nil
		}
		return err
	}
	return yaml.Unmarshal(b, &Global)
}

func GetJwtSecret() []byte {
	return []byte(Global.JwtSecret)
}

func ConfigIds() {
	logger.Infof("[Config] snowflake node=%d", Global.NodeID)
	ids.SetNodeID(Global.NodeID)
}

func ConfigRedis() error {
	return redis.InitRedis(Global.Redis)
}

// ConfigNats 未配置 servers 时跳过（单机无跨网关转发）。
func ConfigNats() error {
	if len(Global.Nats.Servers) == 0 {
		logger.Infof("[Config] nats disabled")
		return nil
	}
	if Global.Nats.Name == "" {
		Global.Nats.Name = Global.GatewayID
	}
	return natsx.StartNats(Global.Nats)
}
