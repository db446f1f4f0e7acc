package storage

import (
	"PPStore/module/storage/model"
)

// ===== 访问控制评估器 =====
//
// 纯函数，无副作用；false 由调用方翻译为 PermissionDenied。
// 特权（服务端）调用不会走到这里——存储层在调用前已放行，
// 那是独立的信任层级，不是权限档位。

// CanRead 公开读任何人；属主读仅属主；NO_READ 一律拒绝。
func CanRead(obj *model.StorageObject, userID string) bool {
	if obj == nil {
		return false
	}
	switch obj.PermissionRead {
	case model.PublicRead:
		return true
	case model.OwnerRead:
		return obj.Owner != "" && obj.Owner == userID
	default:
		return false
	}
}

// CanWrite 仅 OwnerWrite 且调用方即属主；无主对象对非特权调用一律只读。
// obj 为 nil 表示目标尚不存在（创建路径）：属主即调用方，放行，
// 写权限档位在创建后才生效。
func CanWrite(obj *model.StorageObject, userID string) bool {
	if obj == nil {
		return userID != ""
	}
	if obj.Owner == "" {
		return false
	}
	return obj.PermissionWrite == model.OwnerWrite && obj.Owner == userID
}

// CanDelete 与写同判。
func CanDelete(obj *model.StorageObject, userID string) bool {
	if obj == nil {
		return false
	}
	return CanWrite(obj, userID)
}
