package storage

import (
	"encoding/base64"
	"encoding/json"
	"hash/fnv"

	"PPStore/tools/errs"
)

// ===== 游标编解码 =====
//
// 无状态可恢复迭代：游标只包含（作用域指纹，最后排序键），
// 由数据本身推导，跨进程重启有效，不暴露集合名/用户名原文。
// 对象列表与通知列表共用本编解码，作用域串前缀区分。

type cursorToken struct {
	S uint32 `json:"s"` // 作用域指纹（fnv32a）
	K int64  `json:"k"` // 最后一条的排序键
}

func scopeHash(scope string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(scope))
	return h.Sum32()
}

// ObjectScope 对象列表作用域：集合 + 属主过滤。
func ObjectScope(collection, owner string) string {
	return "col:" + collection + "/" + owner
}

// NotificationScope 通知列表作用域：接收人。
func NotificationScope(userID string) string {
	return "ntf:" + userID
}

// EncodeCursor 生成不透明游标。
func EncodeCursor(scope string, lastKey int64) string {
	b, _ := json.Marshal(cursorToken{S: scopeHash(scope), K: lastKey})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor 解析游标并校验作用域；格式错误或作用域不符都是 InvalidCursor，
// 不允许 A 集合的游标静默续接到 B 集合。
func DecodeCursor(scope, raw string) (int64, error) {
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return 0, errs.ErrInvalidCursor.WrapMsg("decode base64", "err", err)
	}
	var tok cursorToken
	if err := json.Unmarshal(b, &tok); err != nil {
		return 0, errs.ErrInvalidCursor.WrapMsg("decode token", "err", err)
	}
	if tok.S != scopeHash(scope) {
		return 0, errs.ErrInvalidCursor.WrapMsg("cursor scope mismatch")
	}
	if tok.K < 0 {
		return 0, errs.ErrInvalidCursor.WrapMsg("negative ordering key")
	}
	return tok.K, nil
}
