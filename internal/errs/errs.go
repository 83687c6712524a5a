// Package errs defines the contract error taxonomy. Every sentinel
// except the autonomous low-balance demotion aborts the whole
// transaction: the storage overlay is rolled back and nothing persists.
package errs

import "github.com/pkg/errors"

var (
	ErrAlreadyInitialized      = errors.New("already initialized")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrContractPaused          = errors.New("contract paused")
	ErrAmountOutOfRange        = errors.New("amount out of range")
	ErrFrequencyOutOfRange     = errors.New("frequency out of range")
	ErrInsufficientFunds       = errors.New("insufficient vault balance")
	ErrStrategyNotFound        = errors.New("strategy not found")
	ErrStrategyInactive        = errors.New("strategy not active")
	ErrPriceUnavailable        = errors.New("price not available")
	ErrInvalidPrice            = errors.New("price must be positive")
	ErrTooEarly                = errors.New("execution not due yet")
	ErrSchedulingWindowInvalid = errors.New("scheduling delay out of bounds")
)
