package treasury

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRouter) {
	g := r.Group("/treasury/accounts/:account")
	g.GET("/balance", h.getBalance)
	g.GET("/entries", h.listEntries)
	g.GET("/verify", h.verifyChain)
}

func (h *Handler) getBalance(c *gin.Context) {
	balance, err := h.svc.GetBalance(c.Request.Context(), c.Param("account"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *Handler) listEntries(c *gin.Context) {
	entries, err := h.svc.ListEntries(c.Request.Context(), c.Param("account"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *Handler) verifyChain(c *gin.Context) {
	res, err := h.svc.VerifyChain(c.Request.Context(), c.Param("account"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}
