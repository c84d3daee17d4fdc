// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "errors"

// Sentinels for the failure classes a probe attempt can end in. Adapters
// attach them with fmt.Errorf("...: %w: %w", sentinel, cause) so callers can
// classify wrapped errors with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrConnection     = errors.New("connection failed")
	ErrTimeout        = errors.New("timed out")
	ErrScrape         = errors.New("scrape failed")
)

type FailureKind string

const (
	FailureNone           = FailureKind("")
	FailureAuthentication = FailureKind("authentication")
	FailureConnection     = FailureKind("connection")
	FailureTimeout        = FailureKind("timeout")
	FailureScrape         = FailureKind("scrape")
)

// KindOf classifies err by its sentinel. Anything unclassified counts as a
// connection-level failure.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrAuthentication):
		return FailureAuthentication
	case errors.Is(err, ErrTimeout):
		return FailureTimeout
	case errors.Is(err, ErrScrape):
		return FailureScrape
	default:
		return FailureConnection
	}
}
