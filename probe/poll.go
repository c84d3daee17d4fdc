// SPDX-License-Identifier: GPL-3.0-or-later
package probe

import (
	"fmt"
	"time"

	"github.com/mezorian/mail-health-exporter/domain"
)

// pollUntilFound checks the mailbox for the token until the probe timeout,
// measured from sentAt, runs out. Transient query errors keep the loop alive
// because the mail may still arrive on a later poll; when the deadline
// passes the last query error wins over a plain timeout so the failure is
// classified by its real cause.
func (p *RoundTripProbe) pollUntilFound(mailbox domain.Mailbox, sender, token string, sentAt time.Time) (bool, error) {
	deadline := sentAt.Add(p.configuration.timeout)

	var lastErr error
	for {
		found, err := mailbox.FindAndDelete(sender, token)
		if found {
			return true, err
		}
		if err != nil {
			lastErr = err
		}

		remaining := deadline.Sub(p.configuration.now())
		if remaining <= 0 {
			break
		}

		wait := p.configuration.pollInterval
		if wait > remaining {
			wait = remaining
		}
		p.configuration.sleep(wait)
	}

	if lastErr != nil {
		return false, lastErr
	}

	return false, fmt.Errorf("mail not found within timeout: %w", domain.ErrTimeout)
}
