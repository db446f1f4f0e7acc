package gateway

import (
	"time"

	"PPStore/logger"

	"github.com/gorilla/websocket"
)

// Client represents a user session connected to the gateway.
// A single user may have multiple devices/connections, each maintained separately.
type Client struct {
	ConnID     string // 本网关内唯一的连接ID（雪花）
	UserID     string // 鉴权后确定
	Authorized bool
	WS         *websocket.Conn
	Send       chan []byte // 每连接独立发送队列（单写协程消费）

	CreatedAt time.Time
	TTL       time.Duration // 随授权态切换
	ExpireAt  time.Time     // 过期由 sweeper 清理
	Heartbeat time.Time
}

const writeDeadline = 5 * time.Second

// writePump 唯一写者：慢客户端只影响自己这条连接。
// Send 关闭或写失败即退出，连接由 sweeper/Remove 收尾。
func (c *Client) writePump(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				return
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("[Gateway] write failed, stop pump")
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
