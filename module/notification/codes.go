package notification

// ===== 通知码空间 =====
//
// 负数码为系统内部事件专用的封闭枚举；应用侧发送请求出现负数码
// 一律按 InvalidArgument 拒绝（不做矫正），0 与正数归应用自定义。
// 两个空间在边界处校验，不依赖约定。
type SystemCode int32

const (
	CodeChatMessageOffline SystemCode = -1 // 离线期间的会话消息提醒
	CodeFriendRequest      SystemCode = -2 // 好友申请
	CodeFriendAccept       SystemCode = -3 // 好友通过
	CodeGroupInvite        SystemCode = -4 // 群组邀请
	CodeGroupAdd           SystemCode = -5 // 被拉入群组
	CodeSessionKick        SystemCode = -6 // 单端互踢下线
)

// knownSystemCodes 封闭集合；特权调用也只能用登记过的负数码。
var knownSystemCodes = map[SystemCode]struct{}{
	CodeChatMessageOffline: {},
	CodeFriendRequest:      {},
	CodeFriendAccept:       {},
	CodeGroupInvite:        {},
	CodeGroupAdd:           {},
	CodeSessionKick:        {},
}

// ValidCode 校验通知码：
// 应用来源 code>=0；系统来源还可用已登记的负数码。
func ValidCode(code int32, privileged bool) bool {
	if code >= 0 {
		return true
	}
	if !privileged {
		return false
	}
	_, ok := knownSystemCodes[SystemCode(code)]
	return ok
}
