package params

import (
	"chronovault/internal/modules/params/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("params",
		fx.Provide(
			service.New,
		),
	)
}
