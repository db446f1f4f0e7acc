package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"PPStore/module/notification/model"
	"PPStore/tools/errs"
)

type fakeLedger struct {
	appended []*model.Notification
	fail     bool
}

func (f *fakeLedger) Append(_ context.Context, n *model.Notification) (int64, error) {
	if f.fail {
		return 0, errs.ErrUnavailable.WrapMsg("ledger down")
	}
	if n.ID == 0 {
		n.ID = int64(len(f.appended) + 1)
	}
	f.appended = append(f.appended, n)
	return n.ID, nil
}

type fakePusher struct {
	online map[string]bool
	frames map[string][][]byte
}

func newFakePusher(online ...string) *fakePusher {
	p := &fakePusher{online: map[string]bool{}, frames: map[string][][]byte{}}
	for _, u := range online {
		p.online[u] = true
	}
	return p
}

func (p *fakePusher) GatewayID() string { return "gw_test" }

func (p *fakePusher) PushUser(uid string, payload []byte) bool {
	if !p.online[uid] {
		return false
	}
	p.frames[uid] = append(p.frames[uid], payload)
	return true
}

func op(uid, subject string, code int32, persistent bool) SendOp {
	return SendOp{UserID: uid, Subject: subject, Content: `{"k":1}`, Code: code, Persistent: persistent}
}

func TestSendRejectsNegativeCodeFromApp(t *testing.T) {
	led := &fakeLedger{}
	r := NewRouter(led, newFakePusher("u1"))
	err := r.Send(context.Background(), []SendOp{op("u1", "s", -1, true)}, "u2", false)
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("want InvalidArgument, got %v", err)
	}
	if len(led.appended) != 0 {
		t.Fatal("rejected send must not persist anything")
	}
}

func TestSendSystemCodePrivileged(t *testing.T) {
	led := &fakeLedger{}
	r := NewRouter(led, newFakePusher())
	err := r.Send(context.Background(), []SendOp{op("u1", "friend", int32(CodeFriendRequest), true)}, "", true)
	if err != nil {
		t.Fatalf("privileged system code send: %v", err)
	}
	if len(led.appended) != 1 || led.appended[0].Code != int32(CodeFriendRequest) {
		t.Fatal("system notification must be persisted")
	}
}

func TestSendPersistsBeforeDelivery(t *testing.T) {
	led := &fakeLedger{}
	// 接收者不在线：persistent 照样落账本，send 仍然成功
	r := NewRouter(led, newFakePusher())
	if err := r.Send(context.Background(), []SendOp{op("u1", "hello", 5, true)}, "u2", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(led.appended) != 1 {
		t.Fatalf("appended=%d want 1", len(led.appended))
	}
	n := led.appended[0]
	if n.UserID != "u1" || n.SenderID != "u2" || n.Code != 5 || !n.Persistent {
		t.Fatalf("bad persisted notification: %+v", n)
	}
}

func TestSendNonPersistentNeverLedgered(t *testing.T) {
	led := &fakeLedger{}
	p := newFakePusher("u1")
	r := NewRouter(led, p)
	if err := r.Send(context.Background(), []SendOp{op("u1", "ephemeral", 0, false)}, "u2", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(led.appended) != 0 {
		t.Fatal("non-persistent notification must not reach the ledger")
	}
	if len(p.frames["u1"]) != 1 {
		t.Fatal("live session must still receive the push")
	}
}

func TestSendAssignsIdentityToEphemeral(t *testing.T) {
	led := &fakeLedger{}
	p := newFakePusher("u1")
	r := NewRouter(led, p)
	ops := []SendOp{
		op("u1", "first", 0, false),
		op("u1", "second", 0, false),
	}
	if err := r.Send(context.Background(), ops, "u2", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	var f pushFrame
	if err := json.Unmarshal(p.frames["u1"][0], &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if len(f.Notifications) != 2 {
		t.Fatalf("notifications=%d want 2", len(f.Notifications))
	}
	// 非持久通知也带唯一ID与创建时间，客户端据此去重、排序
	for i, n := range f.Notifications {
		if n.ID == 0 {
			t.Fatalf("notification %d has no id", i)
		}
		if n.CreateTime == 0 {
			t.Fatalf("notification %d has no create time", i)
		}
	}
	if f.Notifications[0].ID >= f.Notifications[1].ID {
		t.Fatalf("ids must be monotonic: %d then %d", f.Notifications[0].ID, f.Notifications[1].ID)
	}
}

func TestSendPersistentKeepsAssignedID(t *testing.T) {
	led := &fakeLedger{}
	p := newFakePusher("u1")
	r := NewRouter(led, p)
	if err := r.Send(context.Background(), []SendOp{op("u1", "s", 0, true)}, "u2", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(led.appended) != 1 || led.appended[0].ID == 0 {
		t.Fatalf("ledger entry must keep the send-time id: %+v", led.appended)
	}
	var f pushFrame
	if err := json.Unmarshal(p.frames["u1"][0], &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	// 推送帧与账本是同一条记录
	if f.Notifications[0].ID != led.appended[0].ID {
		t.Fatalf("pushed id %d != ledgered id %d", f.Notifications[0].ID, led.appended[0].ID)
	}
}

func TestSendGroupsPerRecipient(t *testing.T) {
	led := &fakeLedger{}
	p := newFakePusher("u1", "u2")
	r := NewRouter(led, p)
	ops := []SendOp{
		op("u1", "first", 1, false),
		op("u2", "other", 2, false),
		op("u1", "second", 3, false),
	}
	if err := r.Send(context.Background(), ops, "u3", false); err != nil {
		t.Fatalf("send: %v", err)
	}
	// 同一接收者一帧多条，保持入参顺序
	if got := len(p.frames["u1"]); got != 1 {
		t.Fatalf("u1 frames=%d want 1", got)
	}
	var f pushFrame
	if err := json.Unmarshal(p.frames["u1"][0], &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if f.Type != "notifications" || len(f.Notifications) != 2 {
		t.Fatalf("bad frame: %+v", f)
	}
	if f.Notifications[0].Subject != "first" || f.Notifications[1].Subject != "second" {
		t.Fatal("input order must be preserved within the grouped frame")
	}
	if len(p.frames["u2"]) != 1 {
		t.Fatal("u2 must get its own frame")
	}
}

func TestSendOfflineNonPersistentLost(t *testing.T) {
	led := &fakeLedger{}
	p := newFakePusher() // 无人在线
	r := NewRouter(led, p)
	if err := r.Send(context.Background(), []SendOp{op("u1", "gone", 0, false)}, "u2", false); err != nil {
		t.Fatalf("best-effort push must not fail the send: %v", err)
	}
	if len(led.appended) != 0 || len(p.frames) != 0 {
		t.Fatal("notification must be lost entirely")
	}
}

func TestSendBatchValidation(t *testing.T) {
	r := NewRouter(&fakeLedger{}, newFakePusher())
	if err := r.Send(context.Background(), nil, "u1", false); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("empty batch: want InvalidArgument, got %v", err)
	}
	big := make([]SendOp, MaxSendBatch+1)
	for i := range big {
		big[i] = op("u1", "s", 0, false)
	}
	if err := r.Send(context.Background(), big, "u1", false); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("oversized batch: want InvalidArgument, got %v", err)
	}
	bad := []SendOp{{UserID: "u1", Subject: "s", Content: `[]`, Code: 0}}
	if err := r.Send(context.Background(), bad, "u1", false); !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("non-object content: want InvalidArgument, got %v", err)
	}
}

func TestSendLedgerFailureFailsCall(t *testing.T) {
	led := &fakeLedger{fail: true}
	r := NewRouter(led, newFakePusher("u1"))
	err := r.Send(context.Background(), []SendOp{op("u1", "s", 0, true)}, "u2", false)
	if !errors.Is(err, errs.ErrUnavailable) {
		t.Fatalf("persist failure must surface: %v", err)
	}
}
