package errs

import "net/http"

// HTTPStatus 业务码 → HTTP 状态。核心层不感知 HTTP，只有传输层调用。
func HTTPStatus(code int) int {
	switch code {
	case CodeInvalidArgument, CodeInvalidCursor:
		return http.StatusBadRequest
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeVersionConflict:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeTokenInvalid, CodeTokenExpired:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
