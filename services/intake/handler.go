package intake

import (
	"net/http"

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
	r.POST("/intake/issues", h.submit)
}

func (h *Handler) submit(c *gin.Context) {
	var issue Issue
	if err := c.ShouldBindJSON(&issue); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), issue)
	if err != nil {
		_ = c.Error(err)
		return
	}

	status := http.StatusOK
	if res.Approved {
		status = http.StatusCreated
	}
	c.JSON(status, res)
}
