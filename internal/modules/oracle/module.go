package oracle

import (
	"chronovault/internal/modules/oracle/service"
	paramssvc "chronovault/internal/modules/params/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("oracle",
		fx.Provide(
			func(p *paramssvc.Params) *service.Oracle {
				return service.New(p)
			},
		),
	)
}
