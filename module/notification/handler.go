package notification

import (
	"net/http"
	"strconv"

	midsec "PPStore/middleware/security"
	"PPStore/tools/errs"

	"github.com/gin-gonic/gin"
)

// Handler 通知 REST 入口。
type Handler struct {
	L *Ledger
	R *Router
}

func NewHandler(l *Ledger, r *Router) *Handler { return &Handler{L: l, R: r} }

func replyErr(c *gin.Context, err error) {
	code := errs.Code(err)
	c.JSON(errs.HTTPStatus(code), gin.H{"code": code, "msg": errs.Detail(err)})
}

// HandleList GET /v1/notifications?limit=&cursor=
// 返回的 cursor 是 cacheableCursor：空结果也会带，下次轮询原样带回。
func (h *Handler) HandleList(c *gin.Context) {
	uid, _ := midsec.Caller(c)
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			replyErr(c, errs.ErrInvalidArgument.WrapMsg("bad limit"))
			return
		}
		limit = n
	}
	ns, cursor, err := h.L.List(c.Request.Context(), uid, limit, c.Query("cursor"))
	if err != nil {
		replyErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": ns, "cursor": cursor})
}

type deleteReq struct {
	IDs []int64 `json:"ids"`
}

// HandleDelete POST /v1/notifications/delete
// 逐条结果：failures 里报告没删掉的ID与原因，其余都已删除。
func (h *Handler) HandleDelete(c *gin.Context) {
	var req deleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, errs.ErrInvalidArgument.WrapMsg("bad body", "err", err))
		return
	}
	uid, _ := midsec.Caller(c)
	failures, err := h.L.Delete(c.Request.Context(), uid, req.IDs)
	if err != nil {
		replyErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"failures": failures})
}

type sendReq struct {
	Notifications []SendOp `json:"notifications"`
}

// HandleSend POST /v1/notifications/send
// 应用调用与服务端特权调用共用入口；负数码只有特权调用放行。
func (h *Handler) HandleSend(c *gin.Context) {
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, errs.ErrInvalidArgument.WrapMsg("bad body", "err", err))
		return
	}
	uid, priv := midsec.Caller(c)
	if err := h.R.Send(c.Request.Context(), req.Notifications, uid, priv); err != nil {
		replyErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}
