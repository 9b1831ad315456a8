package notification

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
	r.GET("/events", h.listEvents)
}

// listEvents accepts ?after= as an alias of ?cursor=.
func (h *Handler) listEvents(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query", err))
		return
	}
	if after := c.Query("after"); after != "" {
		req.Cursor = after
	}

	events, page, err := h.svc.ListEvents(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events, "page_info": page})
}
