package intake

import (
	"kudos-controlplane/services/contribution"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("intake",
	fx.Provide(
		newApprover,
		NewService,
		NewHandler,
	),
	fx.Invoke(registerRoutes),
)

func newApprover(svc *contribution.Service) Approver {
	return svc
}

func registerRoutes(r *gin.Engine, h *Handler) {
	h.Register(r.Group("/v1"))
}
