package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ===== 配置 =====

type ManagerConf struct {
	UnauthTTL     time.Duration    // 未授权连接的 TTL（如 60s）
	AuthTTL       time.Duration    // 已授权连接的 TTL（如 2h）
	SweepEvery    time.Duration    // 清理周期（如 10s）
	MaxPerUser    int              // 每用户最大连接数（<=0 不限制），超限淘汰最老
	SendQueueSize int              // 每连接发送队列容量
	PingEvery     time.Duration    // writePump 心跳间隔
	Clock         func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func (c *ManagerConf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.SweepEvery <= 0 {
		c.SweepEvery = 10 * time.Second
	}
	if c.UnauthTTL <= 0 {
		c.UnauthTTL = 60 * time.Second
	}
	if c.AuthTTL <= 0 {
		c.AuthTTL = 2 * time.Hour
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.PingEvery <= 0 {
		c.PingEvery = 30 * time.Second
	}
}

// ===== 管理器 =====

// ConnManager 本网关在线会话索引。
// 实现通知路由的 Pusher 口：PushUser 只入队不等待。
type ConnManager struct {
	mu     sync.RWMutex
	byConn map[string]*Client            // 主索引：connID -> client
	byUser map[string]map[string]*Client // 辅助索引：userID -> (connID -> client)

	conf     ManagerConf
	fan      *Fanout
	stopOnce sync.Once
	stopCh   chan struct{}
	gwID     string // 节点ID
}

func NewConnManager(conf ManagerConf, gwID string) *ConnManager {
	conf.norm()
	m := &ConnManager{
		byConn: make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
		conf:   conf,
		fan:    NewFanout(4, 1024),
		stopCh: make(chan struct{}),
		gwID:   gwID,
	}
	go m.sweeper()
	return m
}

func (m *ConnManager) GatewayID() string { return m.gwID }

func (m *ConnManager) Close() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.fan.Stop()
	})
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byConn {
		closeQuiet(c)
	}
	m.byConn = map[string]*Client{}
	m.byUser = map[string]map[string]*Client{}
}

// AddUnauth 新连接（未授权）登记并启动写协程。
func (m *ConnManager) AddUnauth(connID string, ws *websocket.Conn) (*Client, error) {
	if connID == "" || ws == nil {
		return nil, errors.New("connID/ws empty")
	}
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byConn[connID]; exists {
		return nil, errors.New("connID exists")
	}
	c := &Client{
		ConnID:    connID,
		WS:        ws,
		Send:      make(chan []byte, m.conf.SendQueueSize),
		CreatedAt: now,
		TTL:       m.conf.UnauthTTL,
		ExpireAt:  now.Add(m.conf.UnauthTTL),
		Heartbeat: now,
	}
	m.byConn[connID] = c
	go c.writePump(m.conf.PingEvery)
	return c, nil
}

// BindUser 将未授权连接绑定到 user；切到 AuthTTL；超限先淘汰最老。
func (m *ConnManager) BindUser(connID, user string) error {
	if connID == "" || user == "" {
		return errors.New("connID/user empty")
	}
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.byConn[connID]
	if !ok {
		return errors.New("connID not found")
	}
	if c.Authorized && c.UserID != "" && c.UserID != user {
		m.unlinkUserLocked(c)
	}
	if m.conf.MaxPerUser > 0 {
		m.ensureRoomForUserLocked(user)
	}
	if m.byUser[user] == nil {
		m.byUser[user] = make(map[string]*Client)
	}
	m.byUser[user][connID] = c

	c.UserID = user
	c.Authorized = true
	c.TTL = m.conf.AuthTTL
	c.ExpireAt = now.Add(c.TTL)
	c.Heartbeat = now
	return nil
}

// Heartbeat 刷新心跳与到期时间（未授权/已授权都可调）。
func (m *ConnManager) Heartbeat(connID string) {
	now := m.conf.Clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.byConn[connID]; ok {
		c.Heartbeat = now
		c.ExpireAt = now.Add(c.TTL)
	}
}

// Remove 关闭并移除连接；返回绑定的 userID 以及是否是该用户本网关最后一条。
func (m *ConnManager) Remove(connID string) (user string, last bool) {
	m.mu.Lock()
	c, ok := m.byConn[connID]
	if !ok {
		m.mu.Unlock()
		return "", false
	}
	delete(m.byConn, connID)
	user = c.UserID
	if c.Authorized && user != "" {
		m.unlinkUserLocked(c)
		last = len(m.byUser[user]) == 0
	}
	m.mu.Unlock()

	closeQuiet(c)
	return user, last
}

// PushUser 向该用户本网关所有在线会话投一帧。
// 只入队（经 fanout 非阻塞转发）；返回是否存在在线会话。
func (m *ConnManager) PushUser(user string, payload []byte) bool {
	m.mu.RLock()
	mm := m.byUser[user]
	conns := make([]*Client, 0, len(mm))
	for _, c := range mm {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	if len(conns) == 0 {
		return false
	}
	m.fan.Broadcast(conns, payload)
	return true
}

// OnlineLocal 本网关是否有该用户的在线会话。
func (m *ConnManager) OnlineLocal(user string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[user]) > 0
}

// ===== 内部 =====

// 需要在持锁状态下调用
func (m *ConnManager) unlinkUserLocked(c *Client) {
	if mm := m.byUser[c.UserID]; mm != nil {
		delete(mm, c.ConnID)
		if len(mm) == 0 {
			delete(m.byUser, c.UserID)
		}
	}
}

// 需要在持锁状态下调用；淘汰最老的一条为新连接腾位
func (m *ConnManager) ensureRoomForUserLocked(user string) {
	mm := m.byUser[user]
	if len(mm) < m.conf.MaxPerUser {
		return
	}
	var oldest *Client
	for _, c := range mm {
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	if oldest != nil {
		delete(mm, oldest.ConnID)
		delete(m.byConn, oldest.ConnID)
		go closeQuiet(oldest) // 解锁后关闭
	}
}

// ===== 清理协程 =====

func (m *ConnManager) sweeper() {
	t := time.NewTicker(m.conf.SweepEvery)
	defer t.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case now := <-t.C:
			m.sweepOnce(now)
		}
	}
}

func (m *ConnManager) sweepOnce(now time.Time) {
	var expired []*Client

	m.mu.Lock()
	for id, c := range m.byConn {
		if now.After(c.ExpireAt) {
			// 收集后统一关闭，避免持锁期间关闭 socket
			expired = append(expired, c)
			delete(m.byConn, id)
			if c.Authorized && c.UserID != "" {
				m.unlinkUserLocked(c)
			}
		}
	}
	m.mu.Unlock()

	for _, c := range expired {
		closeQuiet(c)
	}
}

func closeQuiet(c *Client) {
	if c == nil {
		return
	}
	if c.WS != nil {
		_ = c.WS.Close()
	}
}
