package vault

import (
	"chronovault/internal/modules/vault/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("vault",
		fx.Provide(
			service.New,
		),
	)
}
