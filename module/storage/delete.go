package storage

import (
	"context"

	"PPStore/module/storage/model"
	"PPStore/tools/errs"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Delete 批量删，条件与权限语义同 Write，整批一个事务。
// 目标不存在按 NotFound 中止整批（与通知删除的“逐条报告”刻意不同：
// 对象间可能有一致性关系，通知之间没有）。
func (s *Store) Delete(ctx context.Context, ops []model.DeleteOp, callerID string, privileged bool) error {
	if len(ops) == 0 {
		return errs.ErrInvalidArgument.WrapMsg("empty delete batch")
	}
	if len(ops) > MaxDeleteBatch {
		return errs.ErrInvalidArgument.WrapMsg("delete batch too large", "size", len(ops), "max", MaxDeleteBatch)
	}

	triples := make([]model.ObjectID, 0, len(ops))
	for i := range ops {
		op := &ops[i]
		if !model.ValidName(op.Collection) || !model.ValidName(op.Key) {
			return errs.ErrInvalidArgument.WrapMsg("bad collection/key", "index", i)
		}
		if !privileged {
			if op.Owner != "" && op.Owner != callerID {
				return errs.ErrPermissionDenied.WrapMsg("cannot delete another owner", "index", i)
			}
			op.Owner = callerID
			if op.Owner == "" {
				return errs.ErrPermissionDenied.WrapMsg("unauthenticated delete", "index", i)
			}
		}
		triples = append(triples, model.ObjectID{Collection: op.Collection, Key: op.Key, Owner: op.Owner})
	}

	_, err := s.cli.WithTx(ctx, func(sc mongo.SessionContext) (any, error) {
		existing, err := s.loadTriples(sc, triples)
		if err != nil {
			return nil, err
		}

		// 校验阶段
		for i := range ops {
			op := &ops[i]
			cur := existing[triples[i].TripleKey()]
			if cur == nil {
				return nil, errs.ErrNotFound.WrapMsg("delete target absent", "index", i, "collection", op.Collection, "key", op.Key)
			}
			if op.ExpectedVersion != "" && cur.Version != op.ExpectedVersion {
				return nil, errs.ErrVersionConflict.WrapMsg("expected version does not match", "index", i, "collection", op.Collection, "key", op.Key)
			}
			if !privileged && !CanDelete(cur, callerID) {
				return nil, errs.ErrPermissionDenied.WrapMsg("delete denied", "index", i, "collection", op.Collection, "key", op.Key)
			}
		}

		// 施加阶段
		or := make([]bson.M, 0, len(triples))
		for _, t := range triples {
			or = append(or, tripleFilter(t.Collection, t.Key, t.Owner))
		}
		if _, err := s.coll.DeleteMany(sc, bson.M{"$or": or}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return wrapTxErr(err, "storage delete")
	}
	return nil
}
