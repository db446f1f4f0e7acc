package natsx

import (
	"errors"
	"sync"
)

var (
	mu        sync.Mutex
	globalCli *NatsxClient
)

// StartNats 启动全局 NATS（只会执行一次）；失败返回错误由上层决定是否致命。
func StartNats(cfg NatsxConfig) error {
	mu.Lock()
	defer mu.Unlock()
	if globalCli != nil {
		return nil
	}
	cli, err := NewNatsxClient(cfg)
	if err != nil {
		return err
	}
	globalCli = cli
	return nil
}

// Started 是否已启动（未配置 NATS 的单机部署返回 false）
func Started() bool {
	mu.Lock()
	defer mu.Unlock()
	return globalCli != nil
}

// Publish 对外发布消息（需要已启动）
func Publish(subject string, data []byte, hdr map[string]string) error {
	mu.Lock()
	c := globalCli
	mu.Unlock()
	if c == nil {
		return errors.New("nats not started")
	}
	return c.Publish(subject, data, hdr)
}

// Subscribe 对外订阅（需要已启动）
func Subscribe(subject string, h func(data []byte, hdr map[string]string)) error {
	mu.Lock()
	c := globalCli
	mu.Unlock()
	if c == nil {
		return errors.New("nats not started")
	}
	return c.Subscribe(subject, h)
}

// StopNats 优雅关闭（可选）
func StopNats() error {
	mu.Lock()
	defer mu.Unlock()
	if globalCli == nil {
		return nil
	}
	err := globalCli.Close()
	globalCli = nil
	return err
}
