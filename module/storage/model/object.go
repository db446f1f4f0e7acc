package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"unicode/utf8"
)

// ===== 权限常量 =====
//
// 读权限三态、写权限两态；2=公开读 仅读侧存在。
// 0 档位（NO_READ/NO_WRITE）用于服务端托管的记录：客户端完全不可见/只读。
const (
	OwnerNoRead  int32 = 0 // 仅服务端（特权调用方）可读
	OwnerRead    int32 = 1 // 仅属主可读
	PublicRead   int32 = 2 // 任何人可读
	OwnerNoWrite int32 = 0 // 仅服务端可写
	OwnerWrite   int32 = 1 // 属主可写
)

const ObjectTableName = "storage_object"

// StorageObject 一条对象存储记录。
// 唯一键：(collection, key, owner)；owner 为空串表示全局/无主对象。
// seq 在创建时分配且终身不变，作为列表的全序排序键（与内容无关，
// 游标按它恢复，不受并发插入/删除影响）。
// db.storage_object.createIndex({collection:1, key:1, owner:1}, {unique:true})
// db.storage_object.createIndex({collection:1, owner:1, seq:1})
type StorageObject struct {
	Collection string `bson:"collection" json:"collection"`
	Key        string `bson:"key"        json:"key"`
	Owner      string `bson:"owner"      json:"owner,omitempty"`

	Value   string `bson:"value"   json:"value"`   // JSON 文本原样保存
	Version string `bson:"version" json:"version"` // 内容指纹（sha256 hex），每次成功写入重算

	PermissionRead  int32 `bson:"permission_read"  json:"permission_read"`
	PermissionWrite int32 `bson:"permission_write" json:"permission_write"`

	Seq        int64 `bson:"seq"         json:"-"`           // 创建时分配的雪花序号，列表排序键
	CreateTime int64 `bson:"create_time" json:"create_time"` // Unix ms
	UpdateTime int64 `bson:"update_time" json:"update_time"` // Unix ms
}

// ObjectID 读/删请求的身份三元组。
type ObjectID struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Owner      string `json:"owner,omitempty"` // 空串 = 全局/无主
}

// WriteOp 单条写请求。
// ExpectedVersion 三态：空串=无条件覆盖或创建；"*"=必须不存在；
// 具体 token=与当前存储版本逐字节一致。
type WriteOp struct {
	Collection      string `json:"collection"`
	Key             string `json:"key"`
	Owner           string `json:"owner,omitempty"` // 仅特权调用方可指定他人/全局
	Value           string `json:"value"`
	ExpectedVersion string `json:"expected_version,omitempty"`

	// 创建时缺省 OwnerRead/OwnerWrite；更新时 nil 表示保留原值
	PermissionRead  *int32 `json:"permission_read,omitempty"`
	PermissionWrite *int32 `json:"permission_write,omitempty"`
}

// DeleteOp 单条删请求，条件语义与 WriteOp 一致（无 "*"）。
type DeleteOp struct {
	Collection      string `json:"collection"`
	Key             string `json:"key"`
	Owner           string `json:"owner,omitempty"`
	ExpectedVersion string `json:"expected_version,omitempty"`
}

// Ack 写回执。
type Ack struct {
	Collection string `json:"collection"`
	Key        string `json:"key"`
	Version    string `json:"version"`
}

const (
	maxNameLen    = 128
	maxValueBytes = 1 << 20 // 1MB
)

// MustNotExist 条件创建标记。
const MustNotExist = "*"

// ComputeVersion 由存储内容确定性重算版本号：内容相同则相同、不同必不同。
func ComputeVersion(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// ValidName 校验 collection/key：非空、合法 UTF-8、长度受限。
func ValidName(s string) bool {
	return s != "" && len(s) <= maxNameLen && utf8.ValidString(s)
}

// ValidValue 值必须是 JSON 对象文档。
func ValidValue(v string) bool {
	if len(v) == 0 || len(v) > maxValueBytes {
		return false
	}
	var m map[string]json.RawMessage
	return json.Unmarshal([]byte(v), &m) == nil
}

// ValidPermissionRead / ValidPermissionWrite 档位校验。
func ValidPermissionRead(p int32) bool  { return p >= OwnerNoRead && p <= PublicRead }
func ValidPermissionWrite(p int32) bool { return p == OwnerNoWrite || p == OwnerWrite }

// TripleKey 批内去重/定位用的复合键。
func (id ObjectID) TripleKey() string {
	return id.Collection + "\x00" + id.Key + "\x00" + id.Owner
}

func (o *StorageObject) TripleKey() string {
	return o.Collection + "\x00" + o.Key + "\x00" + o.Owner
}
