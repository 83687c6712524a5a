// Package events defines the typed events emitted by the contract
// surface. The human-readable string is derived formatting; the typed
// value is the primary signal.
package events

import "fmt"

type Event interface {
	Name() string
	String() string
}

type Initialized struct {
	Admin string
}

func (e Initialized) Name() string { return "initialized" }
func (e Initialized) String() string {
	return fmt.Sprintf("ChronoVault DCA contract initialized with admin: %s", e.Admin)
}

type Deposited struct {
	Owner  string
	Amount uint64
}

func (e Deposited) Name() string { return "deposited" }
func (e Deposited) String() string {
	return fmt.Sprintf("Deposited %d to vault for %s", e.Amount, e.Owner)
}

type StrategyCreated struct {
	ID    string
	Owner string
}

func (e StrategyCreated) Name() string { return "strategy_created" }
func (e StrategyCreated) String() string {
	return fmt.Sprintf("DCA strategy created: %s", e.ID)
}

type PriceUpdated struct {
	Token string
	Price uint64
}

func (e PriceUpdated) Name() string { return "price_updated" }
func (e PriceUpdated) String() string {
	return fmt.Sprintf("Price updated for %s: %d", e.Token, e.Price)
}

type Executed struct {
	ID         string
	Amount     uint64
	Tokens     uint64
	Token      string
	Autonomous bool
}

func (e Executed) Name() string {
	if e.Autonomous {
		return "autonomous_executed"
	}
	return "executed"
}
func (e Executed) String() string {
	return fmt.Sprintf("DCA executed for %s: %d -> %d %s", e.ID, e.Amount, e.Tokens, e.Token)
}

type AutonomousEnabled struct {
	ID            string
	NextExecution uint64
}

func (e AutonomousEnabled) Name() string { return "autonomous_enabled" }
func (e AutonomousEnabled) String() string {
	return fmt.Sprintf("Autonomous execution enabled for %s, next run at %d", e.ID, e.NextExecution)
}

type AutonomousDisabled struct {
	ID string
}

func (e AutonomousDisabled) Name() string { return "autonomous_disabled" }
func (e AutonomousDisabled) String() string {
	return fmt.Sprintf("Autonomous execution disabled for %s", e.ID)
}

// AutonomousDemoted is the one soft-failure event: the run found the
// vault short and flipped the strategy back to manual.
type AutonomousDemoted struct {
	ID       string
	Owner    string
	Balance  uint64
	Required uint64
}

func (e AutonomousDemoted) Name() string { return "autonomous_demoted" }
func (e AutonomousDemoted) String() string {
	return fmt.Sprintf("Autonomous execution demoted to manual for %s: balance %d < required %d", e.ID, e.Balance, e.Required)
}

type StrategyDeactivated struct {
	ID string
}

func (e StrategyDeactivated) Name() string { return "strategy_deactivated" }
func (e StrategyDeactivated) String() string {
	return fmt.Sprintf("Strategy deactivated: %s", e.ID)
}

type PauseChanged struct {
	Paused bool
}

func (e PauseChanged) Name() string { return "pause_changed" }
func (e PauseChanged) String() string {
	if e.Paused {
		return "Contract paused"
	}
	return "Contract unpaused"
}
