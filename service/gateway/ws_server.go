package gateway

import (
	"context"
	"net"
	"net/http"
	"time"

	"PPStore/logger"
	midsec "PPStore/middleware/security"
	online "PPStore/service/storage"
	"PPStore/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// presence TTL：ping 续期；连接悄然死亡时由 Redis 过期兜底
const presenceTTL = 5 * time.Minute

// Server 网关 WS 入口。
type Server struct {
	mgr *ConnManager
}

func NewServer(mgr *ConnManager) *Server { return &Server{mgr: mgr} }

func (s *Server) Manager() *ConnManager { return s.mgr }

// HandleWS ===== WebSocket 处理 =====
//
// 未授权连接只接受 auth 帧；鉴权成功后登记在线（本地索引 + Redis
// presence），此后 ping 帧续期两边 TTL。读循环只读不写，下发全部
// 走每连接的写协程。
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 常见：非 WebSocket 请求/握手失败
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	connID := ids.GenerateString()
	cli, err := s.mgr.AddUnauth(connID, ws)
	if err != nil {
		logger.Infof("[HandleWS] register conn error: %v", err)
		_ = ws.Close()
		return
	}
	defer s.cleanup(connID)

	cli.Send <- BuildConnAck(connID, s.mgr.GatewayID())

	ws.SetPongHandler(func(string) error {
		s.mgr.Heartbeat(connID)
		return nil
	})

	// ---- 读循环：只读，不写；出错即退出（写协程自行收尾） ----
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[HandleWS] peer closed connID=%s", connID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[HandleWS] read timeout connID=%s err=%v", connID, rerr)
			} else {
				logger.Infof("[HandleWS] read err connID=%s err=%v", connID, rerr)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrameJSON(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[HandleWS] bad frame connID=%s err=%v sample=%q", connID, perr, sample)
			continue
		}

		switch frame.Type {
		case FrameAuth:
			s.handleAuth(c.Request.Context(), cli, frame)
		case FramePing:
			s.mgr.Heartbeat(connID)
			if cli.Authorized {
				_ = online.PresenceRenew(c.Request.Context(), cli.UserID, presenceTTL)
			}
			select {
			case cli.Send <- BuildPong():
			default:
			}
		default:
			logger.Infof("[HandleWS] no handler for frame type=%s", frame.Type)
		}
	}
}

func (s *Server) handleAuth(ctx context.Context, cli *Client, frame *Frame) {
	payload, err := ExtractAuthPayload(frame)
	if err != nil {
		logger.Infof("[HandleWS] auth payload err connID=%s err=%v", cli.ConnID, err)
		return
	}
	uid, err := midsec.ParseUserToken(payload.Token)
	if err != nil {
		logger.Infof("[HandleWS] auth rejected connID=%s err=%v", cli.ConnID, err)
		return
	}
	if err := s.mgr.BindUser(cli.ConnID, uid); err != nil {
		logger.Infof("[HandleWS] bind user err connID=%s err=%v", cli.ConnID, err)
		return
	}
	if err := online.PresenceOnline(ctx, uid, s.mgr.GatewayID(), presenceTTL); err != nil {
		logger.Warnf("[HandleWS] presence online user=%s err=%v", uid, err)
	}
	select {
	case cli.Send <- BuildAuthAck(uid):
	default:
	}
	logger.Infof("[HandleWS] authorized connID=%s user=%s", cli.ConnID, uid)
}

// cleanup 连接收尾：移除本地索引 + 最后一条连接时下线 presence。
func (s *Server) cleanup(connID string) {
	user, last := s.mgr.Remove(connID)
	if user != "" && last {
		if err := online.PresenceOffline(context.Background(), user); err != nil {
			logger.Warnf("[HandleWS] presence offline user=%s err=%v", user, err)
		}
	}
}
