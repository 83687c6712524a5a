package contract

import (
	"context"
	"time"

	"chronovault/internal/sched"

	"github.com/pkg/errors"
)

// Invoke submits a scheduled self-call as a fresh invocation under the
// contract's own identity. This is the dispatcher's entry into the
// surface; it is how a strategy re-triggers itself.
func (c *Contract) Invoke(ctx context.Context, target string, blob []byte) error {
	call := Call{
		Caller: c.self,
		NowMs:  uint64(time.Now().UnixMilli()),
	}
	switch target {
	case sched.TargetAutonomousExecute:
		_, err := c.AutonomousExecuteDCA(ctx, call, blob)
		return err
	}
	return errors.Errorf("unknown scheduled target %q", target)
}
