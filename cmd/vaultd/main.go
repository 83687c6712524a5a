package main

import (
	"context"
	"log"

	"chronovault/internal/contract"
	"chronovault/internal/events"
	"chronovault/internal/modules/config"
	"chronovault/internal/modules/engine"
	enginesvc "chronovault/internal/modules/engine/service"
	"chronovault/internal/modules/oracle"
	oraclesvc "chronovault/internal/modules/oracle/service"
	"chronovault/internal/modules/params"
	paramssvc "chronovault/internal/modules/params/service"
	"chronovault/internal/modules/store"
	"chronovault/internal/modules/strategy"
	strategysvc "chronovault/internal/modules/strategy/service"
	"chronovault/internal/modules/stream"
	"chronovault/internal/modules/vault"
	vaultsvc "chronovault/internal/modules/vault/service"
	"chronovault/internal/notify"
	"chronovault/internal/sched"
	"chronovault/internal/storage"
	"chronovault/pkg/logger"
	"chronovault/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("vaultd")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		store.Module(),
		params.Module(),
		vault.Module(),
		oracle.Module(),
		strategy.Module(),
		engine.Module(),
		stream.Module(),
		fx.Provide(
			newSchedConfig,
			newDispatcher,
			func(d *sched.Dispatcher) sched.Scheduler { return d },
			newSink,
			func(f *events.Fanout) events.Sink { return f },
			newNotifier,
			newContract,
		),
		fx.Invoke(registerHooks),
	)
	app.Run()
}

func newSchedConfig(cfg *config.Config) sched.Config {
	c := sched.DefaultConfig()
	if cfg.SlotMs > 0 {
		c.SlotMs = cfg.SlotMs
	}
	if cfg.WindowSlots > 0 {
		c.WindowSlots = cfg.WindowSlots
	}
	return c
}

func newDispatcher(txr storage.TxRunner) *sched.Dispatcher {
	// The invoker is wired in registerHooks once the contract exists.
	return sched.NewDispatcher(txr, nil)
}

func newSink() *events.Fanout {
	return events.NewFanout(events.NewZapSink(logger.InfoLogger))
}

func newNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Telegram.Token != "" {
		t, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err == nil {
			return t
		}
		logger.Error("telegram notifier unavailable, falling back to stdout: %v", err)
	}
	return notify.NewStdout()
}

func newContract(
	cfg *config.Config,
	txr storage.TxRunner,
	p *paramssvc.Params,
	v *vaultsvc.Ledger,
	st *strategysvc.Store,
	e *enginesvc.Engine,
	o *oraclesvc.Oracle,
	sink events.Sink,
) *contract.Contract {
	return contract.New(txr, p, v, st, e, o, sink, cfg.SelfAddress)
}

func registerHooks(
	lc fx.Lifecycle,
	ctx context.Context,
	cfg *config.Config,
	c *contract.Contract,
	d *sched.Dispatcher,
	fan *events.Fanout,
	n notify.Notifier,
) {
	fan.Add(notify.NewDemotionAlerter(n))

	var closeTracer func()
	if cfg.Jaeger.Host != "" {
		tracing.SetServiceName("vaultd")
		_, closer, err := tracing.InitTracer(tracing.Config{
			Host: cfg.Jaeger.Host,
			Port: cfg.Jaeger.Port,
		})
		if err != nil {
			logger.Error("jaeger tracer unavailable: %v", err)
		} else {
			closeTracer = closer
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := c.EnsureInit(ctx, contract.Genesis{
				Admin:     cfg.AdminAddress,
				MinAmount: cfg.MinAmount,
				MaxAmount: cfg.MaxAmount,
			}); err != nil {
				return err
			}
			d.SetInvoke(c.Invoke)
			return d.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			d.Stop()
			if closeTracer != nil {
				closeTracer()
			}
			return nil
		},
	})
}
