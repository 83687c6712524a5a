// vaultctl is the deploy/interact companion for the vault contract.
// It talks to the core in-process against the configured store; it
// holds no invariants of its own.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"chronovault/internal/contract"
	"chronovault/internal/events"
	enginesvc "chronovault/internal/modules/engine/service"
	oraclesvc "chronovault/internal/modules/oracle/service"
	paramssvc "chronovault/internal/modules/params/service"
	strategysvc "chronovault/internal/modules/strategy/service"
	vaultsvc "chronovault/internal/modules/vault/service"
	"chronovault/internal/sched"
	"chronovault/internal/storage"
	"chronovault/pkg/args"
	"chronovault/pkg/db"
	"chronovault/pkg/logger"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const usage = `usage: vaultctl <command> [args]

commands:
  deploy                                      initialize with the configured admin
  deposit <amount>                            deposit coins into the caller vault
  balance                                     print the caller vault balance
  create-strategy <amount> <freq_ms> <token> <next_exec_ms>
  set-price <token> <price>                   admin-only price update
  execute <strategy_id>                       manual execution
  enable-auto <strategy_id>
  disable-auto <strategy_id>
  deactivate <strategy_id>
  strategy <strategy_id>                      print the strategy summary
`

func main() {
	logger.InitDevelopment()
	logger.SetServiceName("vaultctl")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(context.Background(), os.Args[1], os.Args[2:]); err != nil {
		logger.Fatal("%v", err)
	}
}

func loadConfig() {
	viper.SetConfigName(".vaultctl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // optional, env/defaults cover the rest

	viper.SetDefault("caller", "local-caller")
	viper.SetDefault("admin", "local-admin")
	viper.SetDefault("self", "chronovault")
	_ = viper.BindEnv("dsn", "DATABASE_DSN")
	_ = viper.BindEnv("caller", "VAULTCTL_CALLER")
}

func run(ctx context.Context, command string, argv []string) error {
	loadConfig()

	c, err := buildContract(ctx)
	if err != nil {
		return err
	}

	call := contract.Call{
		Caller: viper.GetString("caller"),
		NowMs:  uint64(time.Now().UnixMilli()),
	}

	switch command {
	case "deploy":
		blob := args.NewWriter().AddString(viper.GetString("admin")).Bytes()
		if err := c.Init(ctx, call, blob); err != nil {
			return err
		}
		fmt.Println("initialized")
		return nil

	case "deposit":
		amount, err := u64Arg(argv, 0, "amount")
		if err != nil {
			return err
		}
		call.Coins = amount
		out, err := c.DepositToVault(ctx, call)
		return print(out, err)

	case "balance":
		out, err := c.GetVaultBalance(ctx, call)
		return print(out, err)

	case "create-strategy":
		amount, err := u64Arg(argv, 0, "amount")
		if err != nil {
			return err
		}
		freq, err := u64Arg(argv, 1, "freq_ms")
		if err != nil {
			return err
		}
		token, err := strArg(argv, 2, "token")
		if err != nil {
			return err
		}
		next, err := u64Arg(argv, 3, "next_exec_ms")
		if err != nil {
			return err
		}
		blob := args.NewWriter().AddU64(amount).AddU64(freq).AddString(token).AddU64(next).Bytes()
		out, err := c.CreateStrategy(ctx, call, blob)
		return print(out, err)

	case "set-price":
		token, err := strArg(argv, 0, "token")
		if err != nil {
			return err
		}
		price, err := u64Arg(argv, 1, "price")
		if err != nil {
			return err
		}
		blob := args.NewWriter().AddString(token).AddU64(price).Bytes()
		out, err := c.UpdatePrice(ctx, call, blob)
		return print(out, err)

	case "execute":
		return idCommand(ctx, c, call, argv, c.ExecuteDCA)
	case "enable-auto":
		return idCommand(ctx, c, call, argv, c.EnableAutonomousExecution)
	case "disable-auto":
		return idCommand(ctx, c, call, argv, c.DisableAutonomousExecution)
	case "deactivate":
		return idCommand(ctx, c, call, argv, c.DeactivateStrategy)
	case "strategy":
		return idCommand(ctx, c, call, argv, c.GetStrategy)
	}

	fmt.Fprint(os.Stderr, usage)
	return errors.Errorf("unknown command %q", command)
}

// buildContract assembles the core directly, without fx. The CLI is a
// short-lived process: armed calls persist but only fire under vaultd.
func buildContract(ctx context.Context) (*contract.Contract, error) {
	var txr storage.TxRunner
	if dsn := viper.GetString("dsn"); dsn != "" {
		pool, err := db.NewPool(ctx, db.PoolConfig{DSN: dsn})
		if err != nil {
			return nil, errors.Wrap(err, "create pool")
		}
		pg := storage.NewPG(db.NewPgTxManager(pool))
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		txr = pg
	} else {
		txr = storage.NewMemory()
	}

	p := paramssvc.New()
	ledger := vaultsvc.New()
	oracle := oraclesvc.New(p)
	strategies := strategysvc.New(p, ledger)

	dispatcher := sched.NewDispatcher(txr, nil)
	engine := enginesvc.New(ledger, oracle, strategies, dispatcher, sched.DefaultConfig())

	sink := events.NewFanout(events.NewZapSink(logger.InfoLogger))
	c := contract.New(txr, p, ledger, strategies, engine, oracle, sink, viper.GetString("self"))
	dispatcher.SetInvoke(c.Invoke)
	return c, nil
}

func idCommand(
	ctx context.Context,
	c *contract.Contract,
	call contract.Call,
	argv []string,
	fn func(context.Context, contract.Call, []byte) ([]byte, error),
) error {
	id, err := strArg(argv, 0, "strategy_id")
	if err != nil {
		return err
	}
	out, err := fn(ctx, call, args.NewWriter().AddString(id).Bytes())
	return print(out, err)
}

func u64Arg(argv []string, i int, name string) (uint64, error) {
	s, err := strArg(argv, i, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "argument %s", name)
	}
	return v, nil
}

func strArg(argv []string, i int, name string) (string, error) {
	if i >= len(argv) {
		return "", errors.Errorf("missing argument %s", name)
	}
	return argv[i], nil
}

func print(out []byte, err error) error {
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
