package identity

import (
	"kudos-controlplane/pkg/db"

	"go.uber.org/fx"
)

var Module = fx.Module("identity.service",
	fx.Provide(
		NewCache,
		NewService,
		db.AsModels(Models),
	),
)

func Models() []any {
	return []any{&Identity{}}
}
