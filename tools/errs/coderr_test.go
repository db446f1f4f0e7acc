package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestIsByCode(t *testing.T) {
	err := ErrVersionConflict.WrapMsg("stale", "key", "k1")
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatal("wrapped error must match its sentinel by code")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("must not match a different code")
	}
	if errors.Is(errors.New("plain"), ErrNotFound) {
		t.Fatal("plain error must not match any sentinel")
	}
}

func TestCodeAndDetail(t *testing.T) {
	err := ErrPermissionDenied.WrapMsg("write denied", "owner", "u1", "caller", "u2")
	if Code(err) != CodePermissionDenied {
		t.Fatalf("Code=%d want %d", Code(err), CodePermissionDenied)
	}
	d := Detail(err)
	// 对外描述 = 基础 msg + kv 上下文
	if !strings.Contains(d, "permission denied") || !strings.Contains(d, "write denied") ||
		!strings.Contains(d, "owner=u1") || !strings.Contains(d, "caller=u2") {
		t.Fatalf("Detail=%q", d)
	}
	// 无上下文时也不会是空串
	if Detail(ErrVersionConflict.Wrap()) != "version conflict" {
		t.Fatalf("Detail=%q want base msg", Detail(ErrVersionConflict.Wrap()))
	}

	if Code(errors.New("plain")) != 0 {
		t.Fatal("plain error must yield code 0")
	}
	if Code(nil) != 0 || Detail(nil) != "" {
		t.Fatal("nil error must yield zero values")
	}
}

func TestWrapPreservesSentinel(t *testing.T) {
	// 外层再包一次消息，链上仍能取到码
	err := WrapMsg(ErrInvalidCursor.Wrap(), "decode list cursor")
	if Code(err) != CodeInvalidCursor {
		t.Fatalf("Code=%d want %d", Code(err), CodeInvalidCursor)
	}
	if !errors.Is(err, ErrInvalidCursor) {
		t.Fatal("outer wrap must not hide the sentinel")
	}
}

func TestWithDetailIsCopy(t *testing.T) {
	base := NewCodeError(9999, "base")
	d := base.WithDetail("ctx")
	if base.Detail != "" {
		t.Fatal("WithDetail must not mutate the original")
	}
	if d.Detail != "ctx" || d.Code != 9999 {
		t.Fatalf("copy=%+v", d)
	}
	d2 := d.WithDetail("more")
	if d2.Detail != "ctx, more" {
		t.Fatalf("Detail=%q", d2.Detail)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil) != nil || WrapMsg(nil, "x") != nil {
		t.Fatal("wrapping nil must stay nil")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code int
		want int
	}{
		{CodeInvalidArgument, 400},
		{CodePermissionDenied, 403},
		{CodeVersionConflict, 409},
		{CodeNotFound, 404},
		{CodeUnavailable, 503},
		{CodeInvalidCursor, 400},
		{CodeTokenInvalid, 401},
		{CodeTokenExpired, 401},
		{0, 500},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.code); got != c.want {
			t.Fatalf("HTTPStatus(%d)=%d want %d", c.code, got, c.want)
		}
	}
}
