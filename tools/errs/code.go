package errs

// ===== 业务错误码 =====
//
// 13xx 存储/通用，14xx 通知，15xx 鉴权。
// 传输层按码映射 HTTP 状态；核心层只返回 CodeError，不感知 HTTP。
const (
	CodeInvalidArgument  = 1301 // 参数非法/批量超限/负数通知码
	CodePermissionDenied = 1302 // 权限校验拒绝
	CodeVersionConflict  = 1303 // 乐观锁校验失败，读取最新版本后重试
	CodeNotFound         = 1304 // 删除目标不存在
	CodeUnavailable      = 1305 // 底层事务未能完成，可整批重试
	CodeInvalidCursor    = 1306 // 游标格式错误或作用域不匹配

	CodeTokenInvalid = 1501 // token 缺失/解析失败
	CodeTokenExpired = 1502
)

var (
	ErrInvalidArgument  = NewCodeError(CodeInvalidArgument, "invalid argument")
	ErrPermissionDenied = NewCodeError(CodePermissionDenied, "permission denied")
	ErrVersionConflict  = NewCodeError(CodeVersionConflict, "version conflict")
	ErrNotFound         = NewCodeError(CodeNotFound, "not found")
	ErrUnavailable      = NewCodeError(CodeUnavailable, "storage unavailable")
	ErrInvalidCursor    = NewCodeError(CodeInvalidCursor, "invalid cursor")

	ErrTokenInvalid = NewCodeError(CodeTokenInvalid, "token invalid")
	ErrTokenExpired = NewCodeError(CodeTokenExpired, "token expired")
)
