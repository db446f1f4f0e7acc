package natsx

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsxConfig 客户端配置
type NatsxConfig struct {
	Servers       []string
	Name          string
	Username      string
	Password      string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// NatsxClient 统一客户端（Core 模式；通知中继不需要持久化，
// 持久侧由 Ledger 负责，这里只做网关间转发）
type NatsxClient struct {
	cfg NatsxConfig
	nc  *nats.Conn

	mu   sync.Mutex
	subs map[string]*nats.Subscription // subject -> sub
}

// NewNatsxClient 连接 NATS
func NewNatsxClient(cfg NatsxConfig) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	if cfg.Username != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	return &NatsxClient{
		cfg:  cfg,
		nc:   nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish 发布到 subject（附带可选 header）
func (c *NatsxClient) Publish(subject string, data []byte, hdr map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Add(k, v)
	}
	return c.nc.PublishMsg(msg)
}

// Subscribe 订阅 subject；同一 subject 重复订阅幂等
func (c *NatsxClient) Subscribe(subject string, h func(data []byte, hdr map[string]string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[subject]; ok {
		return nil
	}
	sub, err := c.nc.Subscribe(subject, func(m *nats.Msg) {
		hdr := make(map[string]string, len(m.Header))
		for k := range m.Header {
			hdr[k] = m.Header.Get(k)
		}
		h(m.Data, hdr)
	})
	if err != nil {
		return err
	}
	c.subs[subject] = sub
	return nil
}

// Close 优雅关闭
func (c *NatsxClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for s, sub := range c.subs {
		_ = sub.Drain()
		delete(c.subs, s)
	}
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}
