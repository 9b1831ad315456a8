package ownership

import (
	"kudos-controlplane/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("ownership.service",
	fx.Provide(
		NewService,
		db.AsModels(Models),
	),
)

func Models() []any {
	return []any{&Owner{}}
}
