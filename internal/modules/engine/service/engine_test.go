package service

import (
	"context"
	"testing"

	"chronovault/internal/errs"
	"chronovault/internal/models"
	oraclesvc "chronovault/internal/modules/oracle/service"
	paramssvc "chronovault/internal/modules/params/service"
	strategysvc "chronovault/internal/modules/strategy/service"
	vaultsvc "chronovault/internal/modules/vault/service"
	"chronovault/internal/sched"
	"chronovault/internal/storage"
	"chronovault/pkg/args"

	"github.com/pkg/errors"
)

const hourMs = models.MinFrequencyMs

type fixture struct {
	m        *storage.Memory
	params   *paramssvc.Params
	vault    *vaultsvc.Ledger
	oracle   *oraclesvc.Oracle
	store    *strategysvc.Store
	recorder *sched.Recorder
	engine   *Engine
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		m:        storage.NewMemory(),
		params:   paramssvc.New(),
		vault:    vaultsvc.New(),
		recorder: &sched.Recorder{},
	}
	f.oracle = oraclesvc.New(f.params)
	f.store = strategysvc.New(f.params, f.vault)
	f.engine = New(f.vault, f.oracle, f.store, f.recorder, sched.DefaultConfig())

	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		if err := f.params.Init(ctx, s, "admin", 10, 1000); err != nil {
			return err
		}
		if _, err := f.vault.Deposit(ctx, s, "alice", 100); err != nil {
			return err
		}
		return f.oracle.SetPrice(ctx, s, "admin", "USDC", 2)
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

// create books alice_<n> with amount 10, hourly frequency, due at 5000.
func (f *fixture) create(t *testing.T, amount uint64) string {
	t.Helper()
	var id string
	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		rec, err := f.store.Create(ctx, s, "alice", amount, hourMs, "USDC", 5000)
		if err != nil {
			return err
		}
		id = rec.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *fixture) balance(t *testing.T, owner string) uint64 {
	t.Helper()
	var bal uint64
	_ = f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		bal, _ = f.vault.BalanceOf(ctx, s, owner)
		return nil
	})
	return bal
}

func TestManualExecutionFloorsAndAccumulates(t *testing.T) {
	f := setup(t)
	id := f.create(t, 11) // price 2 -> floor(11/2) = 5

	for i := 1; i <= 3; i++ {
		err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
			res, err := f.engine.ExecuteManual(ctx, s, "alice", id, 10_000)
			if err != nil {
				return err
			}
			if res.Tokens != 5 {
				t.Errorf("run %d: tokens = %d, want 5", i, res.Tokens)
			}
			if res.Strategy.Executions != uint64(i) {
				t.Errorf("run %d: executions = %d", i, res.Strategy.Executions)
			}
			if res.Strategy.TotalTokens != uint64(i*5) {
				t.Errorf("run %d: totalTokens = %d", i, res.Strategy.TotalTokens)
			}
			if res.Strategy.TotalInvested != uint64(i)*11 {
				t.Errorf("run %d: totalInvested = %d", i, res.Strategy.TotalInvested)
			}
			if res.Strategy.NextExecution != 10_000+hourMs {
				t.Errorf("run %d: nextExecution = %d", i, res.Strategy.NextExecution)
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestManualExecutionDoesNotTouchVault(t *testing.T) {
	f := setup(t)
	id := f.create(t, 10) // creation locks 10, leaving 90

	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		_, err := f.engine.ExecuteManual(ctx, s, "alice", id, 10_000)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if bal := f.balance(t, "alice"); bal != 90 {
		t.Errorf("manual execution moved the vault: balance = %d, want 90", bal)
	}
}

func TestManualExecutionOwnerGated(t *testing.T) {
	f := setup(t)
	id := f.create(t, 10)

	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		_, err := f.engine.ExecuteManual(ctx, s, "mallory", id, 10_000)
		return err
	})
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestManualExecutionNeedsPrice(t *testing.T) {
	f := setup(t)
	var id string
	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		rec, err := f.store.Create(ctx, s, "alice", 10, hourMs, "NOPRICE", 5000)
		if err != nil {
			return err
		}
		id = rec.ID
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	err = f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		_, err := f.engine.ExecuteManual(ctx, s, "alice", id, 10_000)
		return err
	})
	if !errors.Is(err, errs.ErrPriceUnavailable) {
		t.Fatalf("expected PriceUnavailable, got %v", err)
	}
}

func TestEnableAutonomousArmsFirstCall(t *testing.T) {
	f := setup(t)
	id := f.create(t, 10)

	now := uint64(1_000_000)
	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		_, err := f.engine.EnableAutonomous(ctx, s, "alice", id, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	call, ok := f.recorder.Last()
	if !ok {
		t.Fatal("no call armed")
	}
	if call.Target != sched.TargetAutonomousExecute {
		t.Errorf("target = %q", call.Target)
	}
	gotID, err := args.NewReader(call.Args).NextString()
	if err != nil || gotID != id {
		t.Errorf("args decode: %q, %v", gotID, err)
	}
	// Due time 5000 was in the past, so enable advanced it to
	// now+frequency; the hourly delay divides the 500ms slot exactly.
	if call.NotBefore != now+hourMs {
		t.Errorf("notBefore = %d, want %d", call.NotBefore, now+hourMs)
	}
	if call.NotAfter != call.NotBefore+20*500 {
		t.Errorf("notAfter = %d", call.NotAfter)
	}
}

func TestAutonomousTooEarly(t *testing.T) {
	f := setup(t)
	id := f.create(t, 10)
	f.enable(t, id, 1_000_000)

	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		_, err := f.engine.ExecuteAutonomous(ctx, s, id, 1_000_001)
		return err
	})
	if !errors.Is(err, errs.ErrTooEarly) {
		t.Fatalf("expected TooEarly, got %v", err)
	}
}

func TestAutonomousRequiresFlag(t *testing.T) {
	f := setup(t)
	id := f.create(t, 10)

	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		_, err := f.engine.ExecuteAutonomous(ctx, s, id, 10_000)
		return err
	})
	if !errors.Is(err, errs.ErrStrategyInactive) {
		t.Fatalf("expected StrategyInactive for manual-mode strategy, got %v", err)
	}
}

func TestAutonomousSuccessDebitsAndRearms(t *testing.T) {
	f := setup(t)
	id := f.create(t, 10) // balance now 90
	now := uint64(1_000_000)
	f.enable(t, id, now)
	armed := len(f.recorder.Calls)

	due := now + hourMs
	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		res, err := f.engine.ExecuteAutonomous(ctx, s, id, due)
		if err != nil {
			return err
		}
		if res.Demoted {
			t.Fatal("unexpected demotion")
		}
		if res.Tokens != 5 {
			t.Errorf("tokens = %d, want 5", res.Tokens)
		}
		if res.Strategy.NextExecution != due+hourMs {
			t.Errorf("nextExecution = %d", res.Strategy.NextExecution)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if bal := f.balance(t, "alice"); bal != 80 {
		t.Errorf("autonomous run must debit one amount: balance = %d, want 80", bal)
	}
	if len(f.recorder.Calls) != armed+1 {
		t.Errorf("expected re-arm, have %d calls", len(f.recorder.Calls))
	}
	next, _ := f.recorder.Last()
	if next.NotBefore != due+hourMs {
		t.Errorf("re-armed notBefore = %d, want %d", next.NotBefore, due+hourMs)
	}
}

func TestAutonomousLowBalanceDemotesSoftly(t *testing.T) {
	f := setup(t)
	id := f.create(t, 100) // locks the full deposit, balance now 0
	now := uint64(1_000_000)
	f.enable(t, id, now)
	armed := len(f.recorder.Calls)

	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		res, err := f.engine.ExecuteAutonomous(ctx, s, id, now+hourMs)
		if err != nil {
			return err
		}
		if !res.Demoted {
			t.Fatal("expected demotion")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("soft failure must not abort: %v", err)
	}

	_ = f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		rec, err := f.store.Get(ctx, s, id)
		if err != nil {
			return err
		}
		if rec.Autonomous {
			t.Error("demotion not persisted")
		}
		if !rec.Active {
			t.Error("demotion must not deactivate")
		}
		if rec.Executions != 0 || rec.TotalInvested != 0 || rec.TotalTokens != 0 {
			t.Error("stats changed on demoted run")
		}
		return nil
	})
	if len(f.recorder.Calls) != armed {
		t.Error("demoted run must not re-arm")
	}
}

func TestDisableOnlyFlipsFlag(t *testing.T) {
	f := setup(t)
	id := f.create(t, 10)
	f.enable(t, id, 1_000_000)
	armed := len(f.recorder.Calls)

	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		rec, err := f.engine.DisableAutonomous(ctx, s, "alice", id, 1_000_001)
		if err != nil {
			return err
		}
		if rec.Autonomous {
			t.Error("flag still set")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	// No unscheduling: the already-armed call is left in place.
	if len(f.recorder.Calls) != armed {
		t.Errorf("disable changed the armed calls: %d", len(f.recorder.Calls))
	}
}

func (f *fixture) enable(t *testing.T, id string, now uint64) {
	t.Helper()
	err := f.m.RunInTx(context.Background(), func(ctx context.Context, s storage.Store) error {
		_, err := f.engine.EnableAutonomous(ctx, s, "alice", id, now)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}
