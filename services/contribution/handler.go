package contribution

import (
	"net/http"
	"strconv"

	"kudos-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/identities", h.registerIdentity)
	r.GET("/identities/:handle", h.resolve)

	g := r.Group("/contributions/:id")
	g.GET("", h.get)
	g.POST("/approve", h.approve)
	g.GET("/eligibility", h.canClaim)
	g.POST("/claim", h.claim)
	g.GET("/check", h.check)
	g.GET("/contributor", h.contributor)

	r.GET("/reward", h.reward)
	r.GET("/owner", h.owner)
	r.PUT("/owner", h.transferOwnership)
}

type handleRequest struct {
	Handle string `json:"handle" binding:"required"`
}

type ownerRequest struct {
	Account string `json:"account"`
}

func contributionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 63)
	if err != nil {
		_ = c.Error(errutil.BadRequest("invalid contribution id", err,
			errutil.WithDetails(errutil.Detail{Field: "id", Message: "must be a non-negative integer"})))
		return 0, false
	}
	return id, true
}

func (h *Handler) registerIdentity(c *gin.Context) {
	var req handleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	if err := h.svc.RegisterIdentity(c.Request.Context(), req.Handle); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) resolve(c *gin.Context) {
	handle := c.Param("handle")
	account, ok, err := h.svc.Resolve(c.Request.Context(), handle)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(errutil.NotFound("identity not found", nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"handle": handle, "account": account})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}
	record, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (h *Handler) approve(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}
	var req handleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	if err := h.svc.Approve(c.Request.Context(), id, req.Handle); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) canClaim(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}
	if err := h.svc.CanClaim(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eligible": true})
}

func (h *Handler) claim(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}
	receipt, err := h.svc.Claim(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *Handler) check(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}
	isContributor, err := h.svc.Check(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_contributor": isContributor})
}

func (h *Handler) contributor(c *gin.Context) {
	id, ok := contributionID(c)
	if !ok {
		return
	}
	account, err := h.svc.GetContributor(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contribution_id": id, "contributor": account})
}

func (h *Handler) reward(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reward": h.svc.Reward()})
}

func (h *Handler) owner(c *gin.Context) {
	owner, err := h.svc.Owner(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": owner})
}

func (h *Handler) transferOwnership(c *gin.Context) {
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	if err := h.svc.TransferOwnership(c.Request.Context(), req.Account); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
