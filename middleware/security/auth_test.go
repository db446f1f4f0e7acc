package security

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PPStore/global/config"
	"PPStore/tools/errs"

	"github.com/gin-gonic/gin"
)

func TestTokenRoundTrip(t *testing.T) {
	tk, err := IssueUserToken("u1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	uid, err := ParseUserToken(tk)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if uid != "u1" {
		t.Fatalf("uid=%q want u1", uid)
	}
}

func TestTokenExpired(t *testing.T) {
	tk, err := IssueUserToken("u1", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err = ParseUserToken(tk); !errors.Is(err, errs.ErrTokenExpired) {
		t.Fatalf("want TokenExpired, got %v", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	for _, tk := range []string{"", "not.a.jwt", "aaaa.bbbb.cccc"} {
		if _, err := ParseUserToken(tk); !errors.Is(err, errs.ErrTokenInvalid) {
			t.Fatalf("token %q: want TokenInvalid, got %v", tk, err)
		}
	}
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/t", Middleware(), func(c *gin.Context) {
		uid, priv := Caller(c)
		c.JSON(http.StatusOK, gin.H{"uid": uid, "privileged": priv})
	})
	return r
}

func TestMiddlewareBearer(t *testing.T) {
	r := newAuthRouter()
	tk, err := IssueUserToken("u1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/t", nil)
	req.Header.Set("Authorization", "Bearer "+tk)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestMiddlewareMissingToken(t *testing.T) {
	r := newAuthRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/t", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", w.Code)
	}
}

func TestMiddlewareServerKey(t *testing.T) {
	old := config.Global.ServerKey
	config.Global.ServerKey = "sk_test"
	defer func() { config.Global.ServerKey = old }()

	r := newAuthRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/t", nil)
	req.Header.Set(PrivilegedHeader, "sk_test")
	req.Header.Set("X-Act-As", "u9")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if body != `{"privileged":true,"uid":"u9"}` {
		t.Fatalf("body=%s", body)
	}

	// 错误的 server key 直接拒绝，不回退到 Bearer 流程
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/t", nil)
	req.Header.Set(PrivilegedHeader, "wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad key status=%d want 401", w.Code)
	}
}
