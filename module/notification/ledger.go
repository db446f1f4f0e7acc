package notification

import (
	"context"
	"time"

	mgo "PPStore/data/database/mgo/mongoutil"
	"PPStore/module/notification/model"
	"PPStore/module/storage"
	"PPStore/tools/errs"
	"PPStore/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
	MaxDeleteBatch   = 128
)

// Ledger 按接收人追加的持久通知账本。
// 写 majority：Append 返回成功即可在重启后恢复（崩溃安全）。
type Ledger struct {
	coll *mongo.Collection
}

func NewLedger(cli *mgo.Client) *Ledger {
	coll := cli.GetDB().Collection(model.NotificationTableName,
		options.Collection().SetWriteConcern(writeconcern.Majority()))
	return &Ledger{coll: coll}
}

// EnsureIndexes 启动时调用；(user_id,_id) 支撑按人顺序扫描。
func (l *Ledger) EnsureIndexes(ctx context.Context) error {
	_, err := l.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("user_scan"),
	})
	return err
}

// Append 落一条持久通知，返回其ID。每次发送都是新记录，不做幂等。
func (l *Ledger) Append(ctx context.Context, n *model.Notification) (int64, error) {
	if n.ID == 0 {
		n.ID = ids.Generate()
	}
	if n.CreateTime == 0 {
		n.CreateTime = time.Now().UnixMilli()
	}
	n.Persistent = true
	if _, err := l.coll.InsertOne(ctx, n); err != nil {
		return 0, errs.ErrUnavailable.WrapMsg("notification append", "err", err)
	}
	return n.ID, nil
}

// List 列取接收人自己的通知，时间序（ID 即时间序，同刻由序列位定序）。
//
// 第二个返回值是 cacheableCursor：**总是**返回——它的契约是“下次从这
// 里继续”，与对象列表 nextCursor 的“还有下一页”不同。空结果也会返回
// 等于调用方上次位置的游标，拿同一游标轮询是安全的、不会重复。
func (l *Ledger) List(ctx context.Context, userID string, limit int, cursor string) ([]*model.Notification, string, error) {
	if userID == "" {
		return nil, "", errs.ErrInvalidArgument.WrapMsg("empty user id")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	scope := storage.NotificationScope(userID)
	var lastID int64
	if cursor != "" {
		var err error
		lastID, err = storage.DecodeCursor(scope, cursor)
		if err != nil {
			return nil, "", err
		}
	}

	filter := bson.M{"user_id": userID}
	if lastID > 0 {
		filter["_id"] = bson.M{"$gt": lastID}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := l.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", errs.ErrUnavailable.WrapMsg("notification list", "err", err)
	}
	defer cur.Close(ctx)

	out := make([]*model.Notification, 0, limit)
	for cur.Next(ctx) {
		var n model.Notification
		if err := cur.Decode(&n); err != nil {
			return nil, "", errs.ErrUnavailable.WrapMsg("notification list decode", "err", err)
		}
		nn := n
		out = append(out, &nn)
	}
	if err := cur.Err(); err != nil {
		return nil, "", errs.ErrUnavailable.WrapMsg("notification list", "err", err)
	}

	pos := lastID
	if len(out) > 0 {
		pos = out[len(out)-1].ID
	}
	return out, storage.EncodeCursor(scope, pos), nil
}

// DeleteFailure 单条删除失败的报告。
type DeleteFailure struct {
	ID   int64 `json:"id"`
	Code int   `json:"code"` // errs.CodeNotFound / errs.CodePermissionDenied
}

// Delete 删除属主自己的若干通知。逐条报告：他人的记录报 PermissionDenied、
// 不存在的报 NotFound，但都不影响同批其余ID的删除（刻意弱于对象存储
// 的整批原子——通知之间没有一致性约束）。
func (l *Ledger) Delete(ctx context.Context, userID string, notifIDs []int64) ([]DeleteFailure, error) {
	if userID == "" {
		return nil, errs.ErrInvalidArgument.WrapMsg("empty user id")
	}
	if len(notifIDs) == 0 {
		return nil, errs.ErrInvalidArgument.WrapMsg("empty delete batch")
	}
	if len(notifIDs) > MaxDeleteBatch {
		return nil, errs.ErrInvalidArgument.WrapMsg("delete batch too large", "size", len(notifIDs), "max", MaxDeleteBatch)
	}

	cur, err := l.coll.Find(ctx, bson.M{"_id": bson.M{"$in": notifIDs}})
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("notification delete scan", "err", err)
	}
	owner := make(map[int64]string, len(notifIDs))
	for cur.Next(ctx) {
		var n model.Notification
		if err := cur.Decode(&n); err != nil {
			cur.Close(ctx)
			return nil, errs.ErrUnavailable.WrapMsg("notification delete decode", "err", err)
		}
		owner[n.ID] = n.UserID
	}
	cur.Close(ctx)
	if err := cur.Err(); err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("notification delete scan", "err", err)
	}

	var failures []DeleteFailure
	deletable := make([]int64, 0, len(notifIDs))
	seen := make(map[int64]struct{}, len(notifIDs))
	for _, id := range notifIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		u, ok := owner[id]
		switch {
		case !ok:
			failures = append(failures, DeleteFailure{ID: id, Code: errs.CodeNotFound})
		case u != userID:
			failures = append(failures, DeleteFailure{ID: id, Code: errs.CodePermissionDenied})
		default:
			deletable = append(deletable, id)
		}
	}

	if len(deletable) > 0 {
		// user_id 再约束一次，扫描与删除之间的并发变更不会误删他人记录
		if _, err := l.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": deletable}, "user_id": userID}); err != nil {
			return nil, errs.ErrUnavailable.WrapMsg("notification delete", "err", err)
		}
	}
	return failures, nil
}
