package storage

import (
	"context"

	mgo "PPStore/data/database/mgo/mongoutil"
	"PPStore/module/storage/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ===== 批量上限与分页档位 =====
const (
	MaxWriteBatch  = 128
	MaxDeleteBatch = 128
	MaxReadBatch   = 256

	DefaultListLimit = 10
	MaxListLimit     = 100 // 超出静默收敛到 100（见设计记录）
)

// Store 对象存储引擎；所有变更走单事务，确保批量 all-or-nothing
// 与条件版本检查的读-比-写原子性。
type Store struct {
	cli  *mgo.Client
	coll *mongo.Collection
}

func NewStore(cli *mgo.Client) *Store {
	return &Store{
		cli:  cli,
		coll: cli.GetDB().Collection(model.ObjectTableName),
	}
}

// EnsureIndexes 启动时调用；唯一键 + 列表扫描键。
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "collection", Value: 1}, {Key: "key", Value: 1}, {Key: "owner", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_triple"),
		},
		{
			Keys:    bson.D{{Key: "collection", Value: 1}, {Key: "owner", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetName("list_scan"),
		},
	})
	return err
}

// tripleFilter 按 (collection,key,owner) 精确匹配。
func tripleFilter(collection, key, owner string) bson.M {
	return bson.M{"collection": collection, "key": key, "owner": owner}
}

// loadTriples 一次取回一批三元组对应的现存对象，key 为 TripleKey。
func (s *Store) loadTriples(ctx context.Context, ids []model.ObjectID) (map[string]*model.StorageObject, error) {
	if len(ids) == 0 {
		return map[string]*model.StorageObject{}, nil
	}
	or := make([]bson.M, 0, len(ids))
	for _, id := range ids {
		or = append(or, tripleFilter(id.Collection, id.Key, id.Owner))
	}
	cur, err := s.coll.Find(ctx, bson.M{"$or": or})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]*model.StorageObject, len(ids))
	for cur.Next(ctx) {
		var obj model.StorageObject
		if err := cur.Decode(&obj); err != nil {
			return nil, err
		}
		o := obj
		out[o.TripleKey()] = &o
	}
	return out, cur.Err()
}
