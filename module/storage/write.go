package storage

import (
	"context"
	"errors"
	"time"

	"PPStore/module/storage/model"
	"PPStore/tools/errs"
	"PPStore/tools/ids"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Write 批量写。整批在一个事务内执行：要么全部落库要么全部回滚。
//
// 契约（先查后改，check-all-then-apply-all）：所有条目先对批前快照完成
// 条件版本与权限校验，再统一施加变更；任一条失败即整批中止，错误里带
// 失败条目的下标与原因。
func (s *Store) Write(ctx context.Context, ops []model.WriteOp, callerID string, privileged bool) ([]model.Ack, error) {
	if len(ops) == 0 {
		return nil, errs.ErrInvalidArgument.WrapMsg("empty write batch")
	}
	if len(ops) > MaxWriteBatch {
		return nil, errs.ErrInvalidArgument.WrapMsg("write batch too large", "size", len(ops), "max", MaxWriteBatch)
	}

	// 入参整形：归一化属主并做静态校验，事务外完成
	triples := make([]model.ObjectID, 0, len(ops))
	for i := range ops {
		op := &ops[i]
		if !model.ValidName(op.Collection) || !model.ValidName(op.Key) {
			return nil, errs.ErrInvalidArgument.WrapMsg("bad collection/key", "index", i)
		}
		if !model.ValidValue(op.Value) {
			return nil, errs.ErrInvalidArgument.WrapMsg("value is not a JSON object or too large", "index", i, "collection", op.Collection, "key", op.Key)
		}
		if op.PermissionRead != nil && !model.ValidPermissionRead(*op.PermissionRead) {
			return nil, errs.ErrInvalidArgument.WrapMsg("bad read permission", "index", i)
		}
		if op.PermissionWrite != nil && !model.ValidPermissionWrite(*op.PermissionWrite) {
			return nil, errs.ErrInvalidArgument.WrapMsg("bad write permission", "index", i)
		}
		if !privileged {
			// 非特权只能写自己名下；显式指定他人或全局一律拒绝
			if op.Owner != "" && op.Owner != callerID {
				return nil, errs.ErrPermissionDenied.WrapMsg("cannot write to another owner", "index", i)
			}
			op.Owner = callerID
			if op.Owner == "" {
				return nil, errs.ErrPermissionDenied.WrapMsg("unauthenticated write", "index", i)
			}
		}
		triples = append(triples, model.ObjectID{Collection: op.Collection, Key: op.Key, Owner: op.Owner})
	}

	res, err := s.cli.WithTx(ctx, func(sc mongo.SessionContext) (any, error) {
		existing, err := s.loadTriples(sc, triples)
		if err != nil {
			return nil, err
		}

		// —— 校验阶段：全部条目对批前快照检查 —— //
		for i := range ops {
			op := &ops[i]
			cur := existing[triples[i].TripleKey()]
			switch {
			case op.ExpectedVersion == "":
				// 无条件：存在则覆盖，不存在则创建
			case op.ExpectedVersion == model.MustNotExist:
				if cur != nil {
					return nil, errs.ErrVersionConflict.WrapMsg("object already exists", "index", i, "collection", op.Collection, "key", op.Key)
				}
			default:
				if cur == nil || cur.Version != op.ExpectedVersion {
					return nil, errs.ErrVersionConflict.WrapMsg("expected version does not match", "index", i, "collection", op.Collection, "key", op.Key)
				}
			}
			if !privileged && !CanWrite(cur, callerID) {
				return nil, errs.ErrPermissionDenied.WrapMsg("write denied", "index", i, "collection", op.Collection, "key", op.Key)
			}
		}

		// —— 施加阶段 —— //
		now := time.Now().UnixMilli()
		acks := make([]model.Ack, 0, len(ops))
		for i := range ops {
			op := &ops[i]
			version := model.ComputeVersion(op.Value)
			cur := existing[triples[i].TripleKey()]
			if cur == nil {
				obj := model.StorageObject{
					Collection:      op.Collection,
					Key:             op.Key,
					Owner:           op.Owner,
					Value:           op.Value,
					Version:         version,
					PermissionRead:  model.OwnerRead,
					PermissionWrite: model.OwnerWrite,
					Seq:             ids.Generate(),
					CreateTime:      now,
					UpdateTime:      now,
				}
				if op.PermissionRead != nil {
					obj.PermissionRead = *op.PermissionRead
				}
				if op.PermissionWrite != nil {
					obj.PermissionWrite = *op.PermissionWrite
				}
				if _, err := s.coll.InsertOne(sc, obj); err != nil {
					return nil, err
				}
				// 同批后续条目可见本条（批内自见，批外不可见）
				o := obj
				existing[o.TripleKey()] = &o
			} else {
				set := bson.M{"value": op.Value, "version": version, "update_time": now}
				if op.PermissionRead != nil {
					set["permission_read"] = *op.PermissionRead
				}
				if op.PermissionWrite != nil {
					set["permission_write"] = *op.PermissionWrite
				}
				if _, err := s.coll.UpdateOne(sc,
					tripleFilter(op.Collection, op.Key, op.Owner),
					bson.M{"$set": set},
				); err != nil {
					return nil, err
				}
				cur.Value, cur.Version, cur.UpdateTime = op.Value, version, now
			}
			acks = append(acks, model.Ack{Collection: op.Collection, Key: op.Key, Version: version})
		}
		return acks, nil
	})
	if err != nil {
		return nil, wrapTxErr(err, "storage write")
	}
	return res.([]model.Ack), nil
}

// wrapTxErr 业务错误原样返回，底层事务故障归一为 Unavailable。
func wrapTxErr(err error, op string) error {
	var ce *errs.CodeError
	if errors.As(err, &ce) {
		return err
	}
	return errs.ErrUnavailable.WrapMsg(op, "err", err)
}
