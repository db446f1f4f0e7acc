package errs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	pkgerr "github.com/pkg/errors"
)

// CodeError 携带业务错误码的错误。
// Code 用于传输层映射；Detail 追加上下文（kv 形式），不参与 Is 判定。
type CodeError struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Detail string `json:"detail,omitempty"`
}

func NewCodeError(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (e *CodeError) clone() *CodeError {
	return &CodeError{Code: e.Code, Msg: e.Msg, Detail: e.Detail}
}

func (e *CodeError) Error() string {
	v := make([]string, 0, 3)
	v = append(v, strconv.Itoa(e.Code), e.Msg)
	if e.Detail != "" {
		v = append(v, e.Detail)
	}
	return strings.Join(v, " ")
}

// WithDetail 返回带附加上下文的副本（原错误不变）。
func (e *CodeError) WithDetail(detail string) *CodeError {
	r := e.clone()
	if r.Detail == "" {
		r.Detail = detail
	} else {
		r.Detail += ", " + detail
	}
	return r
}

// Wrap 附加调用栈后返回。
func (e *CodeError) Wrap() error {
	return pkgerr.WithStack(e.clone())
}

// WrapMsg 追加 msg 与 kv 上下文并附加调用栈。
func (e *CodeError) WrapMsg(msg string, kv ...any) error {
	r := e.clone()
	if msg != "" || len(kv) > 0 {
		d := toString(msg, kv)
		if r.Detail == "" {
			r.Detail = d
		} else {
			r.Detail += ", " + d
		}
	}
	return pkgerr.WithStack(r)
}

// Is 按 Code 判定，支持 errors.Is(err, ErrXxx)。
func (e *CodeError) Is(err error) bool {
	var ce *CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return e.Code == ce.Code
}

// Code 提取错误链中的业务码；无 CodeError 时返回 0。
func Code(err error) int {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// Detail 提取错误链中 CodeError 的对外描述：基础 msg 加上下文明细，
// 没有明细时也有 msg 兜底；无 CodeError 则返回错误串本身。
func Detail(err error) string {
	var ce *CodeError
	if errors.As(err, &ce) {
		if ce.Detail == "" {
			return ce.Msg
		}
		return ce.Msg + ": " + ce.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// New 普通错误（无业务码），带 kv 上下文与调用栈。
func New(msg string, kv ...any) error {
	return pkgerr.New(toString(msg, kv))
}

// Wrap 为任意错误附加调用栈。
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	return pkgerr.WithStack(err)
}

// WrapMsg 为任意错误附加消息与调用栈。
func WrapMsg(err error, msg string, kv ...any) error {
	if err == nil {
		return nil
	}
	return pkgerr.Wrap(err, toString(msg, kv))
}

func toString(msg string, kv []any) string {
	var sb strings.Builder
	sb.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%v=%v", kv[i], kv[i+1])
	}
	return sb.String()
}
