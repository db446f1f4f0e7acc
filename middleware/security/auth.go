package security

import (
	"net/http"
	"strings"
	"time"

	"PPStore/global/config"
	"PPStore/tools/errs"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// —— context key ——
// 后续 handler 统一用这俩 key 读取
const (
	CtxUserIDKey     = "callerUserId" // string
	CtxPrivilegedKey = "privileged"   // bool
)

// PrivilegedHeader 服务端特权调用凭据头。鉴权层只负责把请求标记为
// 特权/普通并给出 callerUserId，核心层对此输入完全信任。
const PrivilegedHeader = "X-Server-Key"

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// ParseUserToken 校验会话 token 并取出 userID。
func ParseUserToken(token string) (string, error) {
	claims := &Claims{}
	tk, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrTokenInvalid.WrapMsg("unexpected signing method")
		}
		return config.GetJwtSecret(), nil
	})
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return "", errs.ErrTokenExpired.Wrap()
		}
		return "", errs.ErrTokenInvalid.WrapMsg("parse", "err", err)
	}
	if !tk.Valid || claims.UserID == "" {
		return "", errs.ErrTokenInvalid.Wrap()
	}
	return claims.UserID, nil
}

// IssueUserToken 签发会话 token（运维/联调入口用；正式签发在账号服务）。
func IssueUserToken(userID string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.GetJwtSecret())
}

// Middleware 鉴权中间件：
//   - X-Server-Key 匹配 → 特权调用，uid 取自 X-Act-As（可为空）；
//   - 否则要求 Authorization: Bearer <jwt>。
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := strings.TrimSpace(c.GetHeader(PrivilegedHeader)); key != "" {
			if key != config.Global.ServerKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": errs.CodeTokenInvalid, "msg": "bad server key"})
				return
			}
			c.Set(CtxPrivilegedKey, true)
			c.Set(CtxUserIDKey, strings.TrimSpace(c.GetHeader("X-Act-As")))
			c.Next()
			return
		}

		var token string
		if authz := strings.TrimSpace(c.GetHeader("Authorization")); authz != "" {
			if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				token = strings.TrimSpace(authz[len("bearer "):])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": errs.CodeTokenInvalid, "msg": "missing token"})
			return
		}
		uid, err := ParseUserToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": errs.Code(err), "msg": "unauthorized"})
			return
		}
		c.Set(CtxPrivilegedKey, false)
		c.Set(CtxUserIDKey, uid)
		c.Next()
	}
}

// Caller 从 gin context 取出 (uid, privileged)。
func Caller(c *gin.Context) (string, bool) {
	uid := c.GetString(CtxUserIDKey)
	priv := c.GetBool(CtxPrivilegedKey)
	return uid, priv
}
