package safe

import (
	"math"

	"github.com/pkg/errors"
)

// ErrOverflow is returned when a u64 operation would wrap.
var ErrOverflow = errors.New("u64 overflow")

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// Sub returns a-b or ErrOverflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// Div returns floor(a/b). Division by zero is a programming error here,
// callers validate prices before dividing.
func Div(a, b uint64) uint64 {
	if b == 0 {
		panic("safe: division by zero")
	}
	return a / b
}
