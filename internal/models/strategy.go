package models

import "fmt"

// Frequency and scheduling bounds, in milliseconds.
const (
	MinFrequencyMs uint64 = 3_600_000     // 1 hour
	MaxFrequencyMs uint64 = 2_592_000_000 // 30 days

	MinSchedDelayMs uint64 = 60_000        // 1 minute
	MaxSchedDelayMs uint64 = 2_592_000_000 // 30 days
)

// Genesis defaults for the per-execution spend bounds, in the smallest
// currency unit.
const (
	DefaultMinAmount uint64 = 1_000_000
	DefaultMaxAmount uint64 = 1_000_000_000
)

// Strategy is one owner's recurring-purchase plan. The stored record
// is the source of truth; this struct only carries it between a read
// and the response encoding within a single invocation.
type Strategy struct {
	ID            string
	Owner         string
	Amount        uint64
	Frequency     uint64
	TargetToken   string
	NextExecution uint64
	Active        bool
	Autonomous    bool
	TotalInvested uint64
	TotalTokens   uint64
	Executions    uint64
}

// StrategyID derives the composite identifier from the creating
// identity and the counter value at creation time.
func StrategyID(owner string, ordinal uint64) string {
	return fmt.Sprintf("%s_%d", owner, ordinal)
}

// Summary renders the human-readable form returned by getStrategy.
func (s *Strategy) Summary() string {
	return fmt.Sprintf(
		"Strategy: %s, Owner: %s, Amount: %d, Frequency: %d, Target: %s, Invested: %d, Tokens: %d, Executions: %d, Next: %d, Active: %t, Autonomous: %t",
		s.ID, s.Owner, s.Amount, s.Frequency, s.TargetToken,
		s.TotalInvested, s.TotalTokens, s.Executions,
		s.NextExecution, s.Active, s.Autonomous,
	)
}
