// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

//go:generate mockgen -destination=mocks/probe.go -package=mocks . MailSender,Mailbox,ScoreFetcher,RoundTripProber,SpamScorer
type Direction string

const (
	InternalToExternal = Direction("internal_to_external")
	ExternalToInternal = Direction("external_to_internal")
)

// ProbeMail is a fully built probe message together with its envelope.
// Token is repeated in the subject so the receiving side can search for it.
type ProbeMail struct {
	From  string
	To    string
	Token string
	Raw   []byte
}

// ProbeAttempt is the outcome of one directional send/poll/delete cycle.
// Polled is false when the send failed and the mailbox was never queried.
type ProbeAttempt struct {
	Direction Direction
	Token     string
	SendOK    bool
	ReceiveOK bool
	Polled    bool
	Kind      FailureKind
	Err       error
	Duration  time.Duration
}

func (a *ProbeAttempt) Success() bool {
	return a.SendOK && a.ReceiveOK
}

// RoundTripResult aggregates the attempts of both directions of one
// round-trip check. Duration is the sum of both attempts' durations.
type RoundTripResult struct {
	Attempts []*ProbeAttempt
	Duration time.Duration
}

type SpamScoreOutcome string

const (
	SpamScoreChecked = SpamScoreOutcome("checked")
	SpamScoreSkipped = SpamScoreOutcome("skipped")
	SpamScoreFailed  = SpamScoreOutcome("failed")
)

// SpamScoreResult is the outcome of one spam-score check. Score is only
// meaningful when Outcome is SpamScoreChecked, CheckedAt is set for every
// outcome and marks when the attempt ran.
type SpamScoreResult struct {
	Outcome   SpamScoreOutcome
	Score     float64
	SourceURL string
	CheckedAt time.Time
	Err       error
}

type MailSender interface {
	Send(m *ProbeMail) error
}

// Mailbox searches a single inbox for a probe mail carrying the given token
// and deletes it when found. Found-but-with-error means the mail was
// observed but could not be cleaned up.
type Mailbox interface {
	FindAndDelete(sender, token string) (bool, error)
}

type ScoreFetcher interface {
	FetchScore(url string) (float64, error)
}

// RoundTripProber runs one full bidirectional delivery check.
type RoundTripProber interface {
	Run() *RoundTripResult
}

// SpamScorer attempts one spam-score check. Implementations skip the check
// without any network I/O when lastCheckedAt is too recent.
type SpamScorer interface {
	Attempt(lastCheckedAt time.Time) *SpamScoreResult
}
