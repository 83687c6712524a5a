package contract

import (
	"context"
	"strings"
	"testing"

	"chronovault/internal/errs"
	"chronovault/internal/events"
	"chronovault/internal/models"
	enginesvc "chronovault/internal/modules/engine/service"
	oraclesvc "chronovault/internal/modules/oracle/service"
	paramssvc "chronovault/internal/modules/params/service"
	strategysvc "chronovault/internal/modules/strategy/service"
	vaultsvc "chronovault/internal/modules/vault/service"
	"chronovault/internal/sched"
	"chronovault/internal/storage"
	"chronovault/pkg/args"

	"github.com/pkg/errors"
)

const (
	self   = "chronovault"
	hourMs = 3_600_000
)

type harness struct {
	m        *storage.Memory
	recorder *sched.Recorder
	sink     *events.Collector
	c        *Contract
}

func deploy(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		m:        storage.NewMemory(),
		recorder: &sched.Recorder{},
		sink:     &events.Collector{},
	}
	params := paramssvc.New()
	vault := vaultsvc.New()
	oracle := oraclesvc.New(params)
	strategies := strategysvc.New(params, vault)
	engine := enginesvc.New(vault, oracle, strategies, h.recorder, sched.DefaultConfig())
	h.c = New(h.m, params, vault, strategies, engine, oracle, h.sink, self)

	err := h.c.InitGenesis(context.Background(), Genesis{
		Admin:     "admin",
		MinAmount: 10,
		MaxAmount: 1000,
	})
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func at(caller string, nowMs uint64) Call {
	return Call{Caller: caller, NowMs: nowMs}
}

func strArg(s string) []byte {
	return args.NewWriter().AddString(s).Bytes()
}

// deposit 100, price 2, create amount=10 hourly USDC strategy.
func (h *harness) seedAlice(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	if _, err := h.c.DepositToVault(ctx, Call{Caller: "alice", Coins: 100}); err != nil {
		t.Fatal(err)
	}
	blob := args.NewWriter().AddString("USDC").AddU64(2).Bytes()
	if _, err := h.c.UpdatePrice(ctx, at("admin", 0), blob); err != nil {
		t.Fatal(err)
	}
	out, err := h.c.CreateStrategy(ctx, at("alice", 1000), args.NewWriter().
		AddU64(10).
		AddU64(hourMs).
		AddString("USDC").
		AddU64(5000).
		Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestManualExecutionEndToEnd(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()
	id := h.seedAlice(t)
	if id != "alice_0" {
		t.Fatalf("id = %q", id)
	}

	out, err := h.c.ExecuteDCA(ctx, at("alice", 10_000), strArg(id))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Executed: 10 -> 5 tokens" {
		t.Errorf("out = %q", out)
	}

	// Creation locked one amount; manual runs spend the reservation.
	bal, err := h.c.GetVaultBalance(ctx, at("alice", 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(bal) != "90" {
		t.Errorf("balance = %q, want 90", bal)
	}

	summary, err := h.c.GetStrategy(ctx, at("alice", 0), strArg(id))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Invested: 10", "Tokens: 5", "Executions: 1"} {
		if !strings.Contains(string(summary), want) {
			t.Errorf("summary missing %q: %s", want, summary)
		}
	}
}

func TestCreateRejectsBadFrequencyAtomically(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()
	h.seedAlice(t) // alice_0 exists, counter is 1

	_, err := h.c.CreateStrategy(ctx, at("alice", 1000), args.NewWriter().
		AddU64(10).
		AddU64(1000).
		AddString("USDC").
		AddU64(0).
		Bytes())
	if !errors.Is(err, errs.ErrFrequencyOutOfRange) {
		t.Fatalf("expected FrequencyOutOfRange, got %v", err)
	}

	// The failed create must not burn an ordinal: the next create
	// still gets alice_1.
	out, err := h.c.CreateStrategy(ctx, at("alice", 1000), args.NewWriter().
		AddU64(10).
		AddU64(hourMs).
		AddString("USDC").
		AddU64(5000).
		Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "alice_1" {
		t.Errorf("id after failed create = %q, want alice_1", out)
	}
}

func TestAutonomousLoopEndToEnd(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()
	id := h.seedAlice(t)

	now := uint64(1_000_000)
	if _, err := h.c.EnableAutonomousExecution(ctx, at("alice", now), strArg(id)); err != nil {
		t.Fatal(err)
	}
	armed, ok := h.recorder.Last()
	if !ok || armed.Target != sched.TargetAutonomousExecute {
		t.Fatalf("no autonomous call armed: %+v", armed)
	}

	out, err := h.c.AutonomousExecuteDCA(ctx, at(self, armed.NotBefore), armed.Args)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Executed: 10 -> 5 tokens" {
		t.Errorf("out = %q", out)
	}

	// The autonomous run debits one more amount and re-arms itself.
	bal, _ := h.c.GetVaultBalance(ctx, at("alice", 0))
	if string(bal) != "80" {
		t.Errorf("balance = %q, want 80", bal)
	}
	next, _ := h.recorder.Last()
	if next.ID == armed.ID {
		t.Error("execution did not re-arm")
	}
}

func TestAutonomousCallerMustBeSelf(t *testing.T) {
	h := deploy(t)
	id := h.seedAlice(t)

	_, err := h.c.AutonomousExecuteDCA(context.Background(), at("alice", 1_000_000), strArg(id))
	if !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}

func TestAutonomousDemotionReturnsFailureShape(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()
	id := h.seedAlice(t)

	now := uint64(1_000_000)
	if _, err := h.c.EnableAutonomousExecution(ctx, at("alice", now), strArg(id)); err != nil {
		t.Fatal(err)
	}

	// Drain the vault down to 5 with a second strategy so the
	// scheduled run finds less than one amount.
	if _, err := h.c.CreateStrategy(ctx, at("alice", now), args.NewWriter().
		AddU64(85).
		AddU64(hourMs).
		AddString("USDC").
		AddU64(0).
		Bytes()); err != nil {
		t.Fatal(err)
	}

	armed := firstCall(t, h.recorder)
	out, err := h.c.AutonomousExecuteDCA(ctx, at(self, armed.NotBefore), armed.Args)
	if err != nil {
		t.Fatalf("demotion must commit, not abort: %v", err)
	}
	if string(out) != "Execution skipped: insufficient balance, autonomous mode disabled" {
		t.Errorf("out = %q", out)
	}

	var demoted *events.AutonomousDemoted
	for _, e := range h.sink.Events {
		if d, ok := e.(events.AutonomousDemoted); ok {
			demoted = &d
		}
	}
	if demoted == nil {
		t.Fatalf("no demotion event, got %v", h.sink.Names())
	}
	if demoted.Balance != 5 || demoted.Required != 10 {
		t.Errorf("demotion event balance=%d required=%d, want 5 and 10", demoted.Balance, demoted.Required)
	}

	// The flip persisted: a rerun reports the flag as off.
	_, err = h.c.AutonomousExecuteDCA(ctx, at(self, armed.NotBefore+1), armed.Args)
	if !errors.Is(err, errs.ErrStrategyInactive) {
		t.Fatalf("expected StrategyInactive after demotion, got %v", err)
	}
}

func TestEventsFollowCommits(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()
	h.seedAlice(t)

	// A rejected create emits nothing.
	before := len(h.sink.Events)
	_, err := h.c.CreateStrategy(ctx, at("alice", 0), args.NewWriter().
		AddU64(5).
		AddU64(hourMs).
		AddString("USDC").
		AddU64(0).
		Bytes())
	if !errors.Is(err, errs.ErrAmountOutOfRange) {
		t.Fatalf("expected AmountOutOfRange, got %v", err)
	}
	if len(h.sink.Events) != before {
		t.Errorf("failed call emitted events: %v", h.sink.Names())
	}

	want := []string{"initialized", "deposited", "price_updated", "strategy_created"}
	got := h.sink.Names()
	if len(got) < len(want) {
		t.Fatalf("events = %v", got)
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("event[%d] = %q, want %q", i, got[i], name)
		}
	}
}

func TestSetPausedAdminGate(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()

	if err := h.c.SetPaused(ctx, at("mallory", 0), true); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if err := h.c.SetPaused(ctx, at("admin", 0), true); err != nil {
		t.Fatal(err)
	}

	h.seedAliceFunds(t)
	_, err := h.c.CreateStrategy(ctx, at("alice", 0), args.NewWriter().
		AddU64(10).
		AddU64(hourMs).
		AddString("USDC").
		AddU64(0).
		Bytes())
	if !errors.Is(err, errs.ErrContractPaused) {
		t.Fatalf("expected ContractPaused, got %v", err)
	}
}

func TestDeactivateStopsExecution(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()
	id := h.seedAlice(t)

	if _, err := h.c.DeactivateStrategy(ctx, at("alice", 0), strArg(id)); err != nil {
		t.Fatal(err)
	}
	_, err := h.c.ExecuteDCA(ctx, at("alice", 10_000), strArg(id))
	if !errors.Is(err, errs.ErrStrategyInactive) {
		t.Fatalf("expected StrategyInactive, got %v", err)
	}
}

func TestInitRunsOnlyOnce(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()
	id := h.seedAlice(t)

	// A second genesis must not replace the admin or reset the
	// strategy counter.
	err := h.c.Init(ctx, at("mallory", 0), strArg("mallory"))
	if !errors.Is(err, errs.ErrAlreadyInitialized) {
		t.Fatalf("expected AlreadyInitialized, got %v", err)
	}
	if err := h.c.SetPaused(ctx, at("mallory", 0), true); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for the re-init admin, got %v", err)
	}

	// With the counter intact the next create gets a fresh ordinal
	// instead of clobbering alice_0.
	out, err := h.c.CreateStrategy(ctx, at("alice", 1000), args.NewWriter().
		AddU64(10).
		AddU64(hourMs).
		AddString("ETH").
		AddU64(5000).
		Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "alice_1" {
		t.Errorf("id after re-init attempt = %q, want alice_1", out)
	}

	summary, err := h.c.GetStrategy(ctx, at("alice", 0), strArg(id))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(summary), "Target: USDC") {
		t.Errorf("original record clobbered: %s", summary)
	}
}

func TestEnsureInitIsIdempotent(t *testing.T) {
	h := deploy(t)
	ctx := context.Background()

	// Second genesis with a different admin must not take over.
	err := h.c.EnsureInit(ctx, Genesis{Admin: "usurper"})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.c.SetPaused(ctx, at("usurper", 0), true); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for the late admin, got %v", err)
	}
	if err := h.c.SetPaused(ctx, at("admin", 0), true); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) seedAliceFunds(t *testing.T) {
	t.Helper()
	if _, err := h.c.DepositToVault(context.Background(), Call{Caller: "alice", Coins: 100}); err != nil {
		t.Fatal(err)
	}
}

func firstCall(t *testing.T, r *sched.Recorder) models.PendingCall {
	t.Helper()
	if len(r.Calls) == 0 {
		t.Fatal("nothing armed")
	}
	return r.Calls[0]
}
