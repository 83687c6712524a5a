package storage

import (
	"chronovault/pkg/keys"

	"github.com/pkg/errors"
)

// ErrCorrupt means a stored value does not match its expected
// encoding. This never happens through the typed helpers; it signals
// an out-of-band write or a codec change.
var ErrCorrupt = errors.New("storage: corrupt value")

func errCorrupt(k keys.Key) error {
	return errors.Wrap(ErrCorrupt, k.String())
}
