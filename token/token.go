// SPDX-License-Identifier: GPL-3.0-or-later
package token

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

var counter uint64

// New returns an opaque correlation token that is unique for the lifetime of
// the process. The random prefix keeps tokens from colliding across
// restarts, the counter rules out collisions within one process. Tokens
// contain no whitespace or quotes so they are safe inside an IMAP search
// criterion.
func New() string {
	n := atomic.AddUint64(&counter, 1)
	return fmt.Sprintf("%s-%d", uuid.New().String()[:8], n)
}
