package stream

import (
	"context"
	"net/http"

	"chronovault/internal/events"
	"chronovault/internal/modules/config"
	"chronovault/internal/modules/stream/service"
	"chronovault/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("stream",
		fx.Provide(
			service.New,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, b *service.Broadcaster, sink *events.Fanout) {
			if cfg.Stream.Addr == "" {
				return
			}
			sink.Add(b)

			mux := http.NewServeMux()
			mux.Handle("/events", b)
			srv := &http.Server{Addr: cfg.Stream.Addr, Handler: mux}

			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						logger.Info("event stream listening on %s", cfg.Stream.Addr)
						if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
							logger.Error("event stream server: %v", err)
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					b.Close()
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}
