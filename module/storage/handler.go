package storage

import (
	"net/http"
	"strconv"

	midsec "PPStore/middleware/security"
	"PPStore/module/storage/model"
	"PPStore/tools/errs"

	"github.com/gin-gonic/gin"
)

// Handler 存储 REST 入口：只做绑定与错误映射，语义全在 Store。
type Handler struct {
	S *Store
}

func NewHandler(s *Store) *Handler { return &Handler{S: s} }

func replyErr(c *gin.Context, err error) {
	code := errs.Code(err)
	c.JSON(errs.HTTPStatus(code), gin.H{"code": code, "msg": errs.Detail(err)})
}

type writeReq struct {
	Objects []model.WriteOp `json:"objects"`
}

func (h *Handler) HandleWrite(c *gin.Context) {
	var req writeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, errs.ErrInvalidArgument.WrapMsg("bad body", "err", err))
		return
	}
	uid, priv := midsec.Caller(c)
	acks, err := h.S.Write(c.Request.Context(), req.Objects, uid, priv)
	if err != nil {
		replyErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"acks": acks})
}

type readReq struct {
	ObjectIDs []model.ObjectID `json:"object_ids"`
}

func (h *Handler) HandleRead(c *gin.Context) {
	var req readReq
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, errs.ErrInvalidArgument.WrapMsg("bad body", "err", err))
		return
	}
	uid, priv := midsec.Caller(c)
	objs, err := h.S.Read(c.Request.Context(), req.ObjectIDs, uid, priv)
	if err != nil {
		replyErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"objects": objs})
}

type deleteReq struct {
	ObjectIDs []model.DeleteOp `json:"object_ids"`
}

func (h *Handler) HandleDelete(c *gin.Context) {
	var req deleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		replyErr(c, errs.ErrInvalidArgument.WrapMsg("bad body", "err", err))
		return
	}
	uid, priv := midsec.Caller(c)
	if err := h.S.Delete(c.Request.Context(), req.ObjectIDs, uid, priv); err != nil {
		replyErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// HandleList GET /v1/storage/:collection?owner=&limit=&cursor=
func (h *Handler) HandleList(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			replyErr(c, errs.ErrInvalidArgument.WrapMsg("bad limit"))
			return
		}
		limit = n
	}
	uid, priv := midsec.Caller(c)
	objs, next, err := h.S.List(c.Request.Context(),
		c.Param("collection"), c.Query("owner"), limit, c.Query("cursor"), uid, priv)
	if err != nil {
		replyErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"objects": objs, "cursor": next})
}
