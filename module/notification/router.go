package notification

import (
	"context"
	"encoding/json"
	"time"

	"PPStore/logger"
	"PPStore/module/notification/model"
	"PPStore/service/natsx"
	storagesrv "PPStore/service/storage"
	"PPStore/tools/errs"
	"PPStore/tools/ids"
)

const MaxSendBatch = 128

// relaySubjectPrefix + 网关ID = 跨网关推送的 NATS subject
const relaySubjectPrefix = "ppstore.notify."

func RelaySubject(gatewayID string) string { return relaySubjectPrefix + gatewayID }

// Appender 账本的追加口（路由只依赖这一点，便于替换与单测）。
type Appender interface {
	Append(ctx context.Context, n *model.Notification) (int64, error)
}

// Pusher 本地在线会话的推送口，由网关实现。
// 返回 false 表示该用户在本网关没有在线会话（或全部入队失败）。
// 实现必须只做入队，不得阻塞调用方。
type Pusher interface {
	GatewayID() string
	PushUser(userID string, payload []byte) bool
}

// SendOp 一条发送请求。
type SendOp struct {
	UserID     string `json:"user_id"`
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	Code       int32  `json:"code"`
	Persistent bool   `json:"persistent"`
}

// Router 通知路由。无持久状态：持久侧交给 Ledger，
// 在线投递完成（或放弃）后即遗忘。
type Router struct {
	ledger Appender
	pusher Pusher
}

func NewRouter(ledger Appender, pusher Pusher) *Router {
	return &Router{ledger: ledger, pusher: pusher}
}

// pushFrame 下发给客户端的分组帧：同一接收者一帧多条，保持入参顺序。
type pushFrame struct {
	Type          string                `json:"type"`
	Notifications []*model.Notification `json:"notifications"`
}

// relayEnvelope 跨网关转发的载荷。
type relayEnvelope struct {
	UserID string          `json:"user_id"`
	Frame  json.RawMessage `json:"frame"`
}

// Send 批量发送。
//
//  1. 校验：应用来源的负数码一律 InvalidArgument；
//  2. persistent 的先落账本（先持久再投递）；
//  3. 按接收者分组后向在线会话推一帧（尽力而为：入队失败、无在线
//     会话、跨网关转发失败都只记日志，不影响本调用的结果）。
//     非持久通知没赶上在线会话就永久丢失，这是设计行为。
func (r *Router) Send(ctx context.Context, ops []SendOp, senderID string, privileged bool) error {
	if len(ops) == 0 {
		return errs.ErrInvalidArgument.WrapMsg("empty send batch")
	}
	if len(ops) > MaxSendBatch {
		return errs.ErrInvalidArgument.WrapMsg("send batch too large", "size", len(ops), "max", MaxSendBatch)
	}

	// —— 校验阶段 —— //
	for i := range ops {
		op := &ops[i]
		if op.UserID == "" {
			return errs.ErrInvalidArgument.WrapMsg("empty recipient", "index", i)
		}
		if !model.ValidSubject(op.Subject) {
			return errs.ErrInvalidArgument.WrapMsg("bad subject", "index", i)
		}
		if !model.ValidContent(op.Content) {
			return errs.ErrInvalidArgument.WrapMsg("content is not a JSON object or too large", "index", i)
		}
		if !ValidCode(op.Code, privileged) {
			return errs.ErrInvalidArgument.WrapMsg("negative code reserved for system", "index", i, "code", op.Code)
		}
	}

	// —— 持久阶段 —— //
	// ID 与创建时间在发送时统一分配：非持久通知也要带唯一ID与时间，
	// 客户端才能对在线推送去重、排序。
	now := time.Now().UnixMilli()
	built := make([]*model.Notification, 0, len(ops))
	for i := range ops {
		op := &ops[i]
		n := &model.Notification{
			ID:         ids.Generate(),
			UserID:     op.UserID,
			SenderID:   senderID,
			Subject:    op.Subject,
			Content:    op.Content,
			Code:       op.Code,
			Persistent: op.Persistent,
			CreateTime: now,
		}
		if op.Persistent {
			if _, err := r.ledger.Append(ctx, n); err != nil {
				return err
			}
		}
		built = append(built, n)
	}

	// —— 投递阶段（尽力而为）—— //
	r.deliver(ctx, built)
	return nil
}

// deliver 分组推送；performance contract：同一接收者的多条合并为一帧。
func (r *Router) deliver(ctx context.Context, ns []*model.Notification) {
	if r.pusher == nil {
		return
	}
	order := make([]string, 0, len(ns))
	grouped := make(map[string][]*model.Notification, len(ns))
	for _, n := range ns {
		if _, ok := grouped[n.UserID]; !ok {
			order = append(order, n.UserID)
		}
		grouped[n.UserID] = append(grouped[n.UserID], n)
	}

	for _, uid := range order {
		frame, err := json.Marshal(pushFrame{Type: "notifications", Notifications: grouped[uid]})
		if err != nil {
			logger.Errorf("[NotifyRouter] marshal frame user=%s err=%v", uid, err)
			continue
		}
		if r.pusher.PushUser(uid, frame) {
			continue
		}
		// 本地无会话：查在线表，在别的网关则经 NATS 转发
		r.relay(ctx, uid, frame)
	}
}

func (r *Router) relay(ctx context.Context, uid string, frame []byte) {
	if !natsx.Started() {
		return
	}
	gwID, online, err := storagesrv.PresenceLookup(ctx, uid)
	if err != nil {
		logger.Warnf("[NotifyRouter] presence lookup user=%s err=%v", uid, err)
		return
	}
	if !online || gwID == r.pusher.GatewayID() {
		return
	}
	env, _ := json.Marshal(relayEnvelope{UserID: uid, Frame: frame})
	if err := natsx.Publish(RelaySubject(gwID), env, nil); err != nil {
		logger.Warnf("[NotifyRouter] relay user=%s gw=%s err=%v", uid, gwID, err)
	}
}

// SubscribeRelay 订阅本网关的转发 subject，收到即投给本地会话。
// 未配置 NATS 的单机部署为空操作。
func SubscribeRelay(p Pusher) error {
	if !natsx.Started() {
		return nil
	}
	return natsx.Subscribe(RelaySubject(p.GatewayID()), func(data []byte, _ map[string]string) {
		var env relayEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warnf("[NotifyRouter] bad relay envelope err=%v", err)
			return
		}
		if !p.PushUser(env.UserID, env.Frame) {
			logger.Debug("[NotifyRouter] relayed user offline locally")
		}
	})
}
