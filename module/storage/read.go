package storage

import (
	"context"

	"PPStore/module/storage/model"
	"PPStore/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Read 按身份三元组批量读。缺失的对象直接省略；读权限不足的也省略
// 而不是报错——存在性本身不能被探测。
func (s *Store) Read(ctx context.Context, objIDs []model.ObjectID, callerID string, privileged bool) ([]*model.StorageObject, error) {
	if len(objIDs) == 0 {
		return nil, nil
	}
	if len(objIDs) > MaxReadBatch {
		return nil, errs.ErrInvalidArgument.WrapMsg("read batch too large", "size", len(objIDs), "max", MaxReadBatch)
	}
	for i, id := range objIDs {
		if !model.ValidName(id.Collection) || !model.ValidName(id.Key) {
			return nil, errs.ErrInvalidArgument.WrapMsg("bad collection/key", "index", i)
		}
	}

	found, err := s.loadTriples(ctx, objIDs)
	if err != nil {
		return nil, errs.ErrUnavailable.WrapMsg("storage read", "err", err)
	}

	// 按请求顺序输出，重复三元组只出一次
	out := make([]*model.StorageObject, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, id := range objIDs {
		k := id.TripleKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		obj, ok := found[k]
		if !ok {
			continue
		}
		if privileged || CanRead(obj, callerID) {
			out = append(out, obj)
		}
	}
	return out, nil
}

// List 按集合（可选属主）分页列取调用方可读的对象。
// 全序排序键为对象创建时分配的 seq：游标在并发插删下既不会重放
// 已见对象，也不会跳过排序键意义上未见的对象。
// limit<=0 取默认 10，超过 100 静默收敛；页未满时不返回 nextCursor。
func (s *Store) List(ctx context.Context, collection, owner string, limit int, cursor string, callerID string, privileged bool) ([]*model.StorageObject, string, error) {
	if !model.ValidName(collection) {
		return nil, "", errs.ErrInvalidArgument.WrapMsg("bad collection")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	scope := ObjectScope(collection, owner)
	var lastSeq int64
	if cursor != "" {
		var err error
		lastSeq, err = DecodeCursor(scope, cursor)
		if err != nil {
			return nil, "", err
		}
	}

	filter := bson.M{"collection": collection, "owner": owner}
	if lastSeq > 0 {
		filter["seq"] = bson.M{"$gt": lastSeq}
	}
	if !privileged {
		// 读过滤下推到查询：公开读，或属主读且属主是调用方。
		// 过滤在分页之前发生，页容量只计可读对象。
		readable := []bson.M{{"permission_read": model.PublicRead}}
		if callerID != "" {
			readable = append(readable, bson.M{"permission_read": model.OwnerRead, "owner": callerID})
		}
		filter["$or"] = readable
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetLimit(int64(limit))
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, "", errs.ErrUnavailable.WrapMsg("storage list", "err", err)
	}
	defer cur.Close(ctx)

	out := make([]*model.StorageObject, 0, limit)
	for cur.Next(ctx) {
		var obj model.StorageObject
		if err := cur.Decode(&obj); err != nil {
			return nil, "", errs.ErrUnavailable.WrapMsg("storage list decode", "err", err)
		}
		o := obj
		out = append(out, &o)
	}
	if err := cur.Err(); err != nil {
		return nil, "", errs.ErrUnavailable.WrapMsg("storage list", "err", err)
	}

	next := ""
	if len(out) == limit {
		next = EncodeCursor(scope, out[len(out)-1].Seq)
	}
	return out, next, nil
}
