package engine

import (
	"chronovault/internal/modules/engine/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			service.New,
		),
	)
}
