package model

import (
	"encoding/json"
)

const NotificationTableName = "notification"

// Notification 一条持久通知。创建后不再变更，直到属主删除或运维清理。
// _id 用雪花ID：全局唯一且随创建时间单调，列表排序与游标推导共用它
// （时间序，同毫秒由序列位定序）。
// db.notification.createIndex({user_id:1, _id:1})
type Notification struct {
	ID       int64  `bson:"_id"                 json:"id"`
	UserID   string `bson:"user_id"             json:"-"`
	SenderID string `bson:"sender_id,omitempty" json:"sender_id,omitempty"` // 空串 = 系统发出
	Subject  string `bson:"subject"             json:"subject"`
	Content  string `bson:"content"             json:"content"` // JSON 文本
	Code     int32  `bson:"code"                json:"code"`
	// persistent=false 的通知不会出现在本集合：只做在线投递，错过即丢
	Persistent bool  `bson:"persistent"  json:"persistent"`
	CreateTime int64 `bson:"create_time" json:"create_time"` // Unix ms
}

const (
	maxSubjectLen   = 256
	maxContentBytes = 64 << 10
)

// ValidSubject 主题非空且长度受限。
func ValidSubject(s string) bool {
	return s != "" && len(s) <= maxSubjectLen
}

// ValidContent 内容必须是 JSON 对象文档。
func ValidContent(c string) bool {
	if len(c) == 0 || len(c) > maxContentBytes {
		return false
	}
	var m map[string]json.RawMessage
	return json.Unmarshal([]byte(c), &m) == nil
}
