package gateway

import (
	"fmt"
	"testing"
	"time"
)

// 直接把 client 塞进索引，绕开 AddUnauth（不起 writePump，WS 留 nil）。
func injectConn(m *ConnManager, connID string, created time.Time, queue int) *Client {
	c := &Client{
		ConnID:    connID,
		Send:      make(chan []byte, queue),
		CreatedAt: created,
		TTL:       m.conf.UnauthTTL,
		ExpireAt:  created.Add(m.conf.UnauthTTL),
		Heartbeat: created,
	}
	m.mu.Lock()
	m.byConn[connID] = c
	m.mu.Unlock()
	return c
}

func recvFrame(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case p := <-c.Send:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no frame within 2s")
		return nil
	}
}

func TestBindUserAndPushUser(t *testing.T) {
	now := time.Now()
	m := NewConnManager(ManagerConf{Clock: func() time.Time { return now }}, "gw_test")
	defer m.Close()

	c := injectConn(m, "conn1", now, 8)
	if err := m.BindUser("conn1", "u1"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !c.Authorized || c.TTL != m.conf.AuthTTL {
		t.Fatal("bind must authorize and switch to auth TTL")
	}
	if !m.OnlineLocal("u1") {
		t.Fatal("u1 must be online after bind")
	}

	if !m.PushUser("u1", []byte(`{"type":"notifications"}`)) {
		t.Fatal("PushUser must report an existing session")
	}
	if got := string(recvFrame(t, c)); got != `{"type":"notifications"}` {
		t.Fatalf("frame=%q", got)
	}

	if m.PushUser("nobody", []byte("x")) {
		t.Fatal("PushUser to unknown user must be false")
	}
}

func TestRemoveReportsLastSession(t *testing.T) {
	now := time.Now()
	m := NewConnManager(ManagerConf{Clock: func() time.Time { return now }}, "gw_test")
	defer m.Close()

	injectConn(m, "c1", now, 1)
	injectConn(m, "c2", now, 1)
	if err := m.BindUser("c1", "u1"); err != nil {
		t.Fatalf("bind c1: %v", err)
	}
	if err := m.BindUser("c2", "u1"); err != nil {
		t.Fatalf("bind c2: %v", err)
	}

	user, last := m.Remove("c1")
	if user != "u1" || last {
		t.Fatalf("first remove: user=%q last=%v", user, last)
	}
	user, last = m.Remove("c2")
	if user != "u1" || !last {
		t.Fatalf("second remove: user=%q last=%v", user, last)
	}
	if m.OnlineLocal("u1") {
		t.Fatal("u1 must be offline after removing all sessions")
	}

	if user, last = m.Remove("missing"); user != "" || last {
		t.Fatal("removing unknown conn must be a no-op")
	}
}

func TestSweepExpiresStaleConns(t *testing.T) {
	now := time.Now()
	m := NewConnManager(ManagerConf{UnauthTTL: time.Minute, AuthTTL: time.Minute, Clock: func() time.Time { return now }}, "gw_test")
	defer m.Close()

	injectConn(m, "stale", now, 1)
	injectConn(m, "fresh", now.Add(50*time.Second), 1)
	if err := m.BindUser("stale", "u1"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	// stale 到期（now+60s），fresh（now+110s）还没到
	m.sweepOnce(now.Add(61 * time.Second))
	m.mu.RLock()
	_, staleAlive := m.byConn["stale"]
	_, freshAlive := m.byConn["fresh"]
	m.mu.RUnlock()
	if staleAlive {
		t.Fatal("expired conn must be swept")
	}
	if !freshAlive {
		t.Fatal("conn within TTL must survive the sweep")
	}
	if m.OnlineLocal("u1") {
		t.Fatal("sweep must also unlink the user index")
	}
}

func TestHeartbeatExtendsExpiry(t *testing.T) {
	now := time.Now()
	cur := now
	m := NewConnManager(ManagerConf{UnauthTTL: time.Minute, Clock: func() time.Time { return cur }}, "gw_test")
	defer m.Close()

	injectConn(m, "c1", now, 1)
	cur = now.Add(50 * time.Second)
	m.Heartbeat("c1")

	// 原 TTL 已过，但心跳续期后仍应存活
	m.sweepOnce(now.Add(90 * time.Second))
	m.mu.RLock()
	_, alive := m.byConn["c1"]
	m.mu.RUnlock()
	if !alive {
		t.Fatal("heartbeat must extend the expiry")
	}
}

func TestMaxPerUserEvictsOldest(t *testing.T) {
	now := time.Now()
	m := NewConnManager(ManagerConf{MaxPerUser: 2, Clock: func() time.Time { return now }}, "gw_test")
	defer m.Close()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("c%d", i)
		injectConn(m, id, now.Add(time.Duration(i)*time.Second), 1)
		if err := m.BindUser(id, "u1"); err != nil {
			t.Fatalf("bind %s: %v", id, err)
		}
	}

	m.mu.RLock()
	_, oldestAlive := m.byConn["c0"]
	n := len(m.byUser["u1"])
	m.mu.RUnlock()
	if oldestAlive {
		t.Fatal("oldest session must be evicted at the cap")
	}
	if n != 2 {
		t.Fatalf("sessions=%d want 2", n)
	}
}

func TestFanoutStopTerminatesWorkers(t *testing.T) {
	f := NewFanout(1, 1)
	c := &Client{ConnID: "c", Send: make(chan []byte, 1)}
	f.Broadcast([]*Client{c}, []byte("x"))
	if got := string(recvFrame(t, c)); got != "x" {
		t.Fatalf("got %q", got)
	}

	f.Stop()
	f.Stop() // 幂等

	// worker 已退出：队列满时 Broadcast 也立即返回，不会阻塞发起方
	f.jobs <- fanoutJob{conns: []*Client{c}, payload: []byte("fill")}
	done := make(chan struct{})
	go func() {
		f.Broadcast([]*Client{c}, []byte("after-stop"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast must not block after Stop")
	}
}

func TestCloseStopsFanout(t *testing.T) {
	m := NewConnManager(ManagerConf{}, "gw_test")
	m.Close()
	select {
	case <-m.fan.stop:
	case <-time.After(2 * time.Second):
		t.Fatal("Close must stop the fanout workers")
	}
}

func TestFanoutDropsSlowClient(t *testing.T) {
	f := NewFanout(1, 4) // 单 worker：按 conns 顺序依次入队，便于断言
	slow := &Client{ConnID: "slow", Send: make(chan []byte, 1)}
	slow.Send <- []byte("backlog") // 队列占满
	fast := &Client{ConnID: "fast", Send: make(chan []byte, 8)}

	f.Broadcast([]*Client{slow, fast}, []byte("frame"))

	// slow 在 fast 之前处理：fast 收到帧时 slow 的丢帧已发生
	if got := string(recvFrame(t, fast)); got != "frame" {
		t.Fatalf("fast got %q", got)
	}
	if got := string(<-slow.Send); got != "backlog" {
		t.Fatalf("slow queue head=%q, dropped frame must not replace it", got)
	}
	select {
	case extra := <-slow.Send:
		t.Fatalf("slow client must not receive the dropped frame, got %q", extra)
	default:
	}
}
