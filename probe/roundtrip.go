// SPDX-License-Identifier: GPL-3.0-or-later

// Package probe drives the actual health checks: the two-direction mail
// round trip and the externally scored spam test. Probes report outcomes,
// folding them into metrics is the scheduler's job.
package probe

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mezorian/mail-health-exporter/domain"
	"github.com/mezorian/mail-health-exporter/log"
	"github.com/mezorian/mail-health-exporter/mail"
	"github.com/mezorian/mail-health-exporter/token"
)

// Endpoint bundles one side of the round trip: the mail address, the way
// to send as that address and the inbox where its mails are received.
type Endpoint struct {
	Address string
	Sender  domain.MailSender
	Mailbox domain.Mailbox
}

type RoundTripProbe struct {
	internal Endpoint
	external Endpoint

	configuration *configuration

	l *logrus.Logger
}

func NewRoundTripProbe(internal Endpoint, external Endpoint, configFunc ...ConfigFunc) (*RoundTripProbe, error) {
	config, err := newConfiguration(configFunc...)
	if err != nil {
		return nil, err
	}

	return &RoundTripProbe{
		internal:      internal,
		external:      external,
		configuration: config,
		l:             log.Logger(log.LOG_PROBE),
	}, nil
}

// Run sends one probe mail in each direction and waits for both to arrive.
// The directions run sequentially and independently, a failure in one never
// costs the other its attempt. The result duration is the sum of both
// directions.
func (p *RoundTripProbe) Run() *domain.RoundTripResult {
	attempts := []*domain.ProbeAttempt{
		p.probeDirection(domain.InternalToExternal, p.internal, p.external),
		p.probeDirection(domain.ExternalToInternal, p.external, p.internal),
	}

	total := time.Duration(0)
	for _, attempt := range attempts {
		total += attempt.Duration
	}

	return &domain.RoundTripResult{Attempts: attempts, Duration: total}
}

func (p *RoundTripProbe) probeDirection(direction domain.Direction, from Endpoint, to Endpoint) *domain.ProbeAttempt {
	attempt := &domain.ProbeAttempt{Direction: direction, Token: token.New()}

	baseLogger := p.l.WithFields(logrus.Fields{"direction": direction, "token": attempt.Token})

	probeMail, err := mail.NewProbeMail(from.Address, to.Address, attempt.Token, p.configuration.now())
	if err != nil {
		attempt.Err = err
		attempt.Kind = domain.KindOf(err)
		baseLogger.WithField("error", err).Error("Could not build probe mail")
		return attempt
	}

	err = from.Sender.Send(probeMail)
	if err != nil {
		// Nothing is in flight, polling would only burn the timeout.
		attempt.Err = err
		attempt.Kind = domain.KindOf(err)
		baseLogger.WithField("error", err).Error("Could not send probe mail")
		return attempt
	}
	attempt.SendOK = true
	baseLogger.Debug("Probe mail sent, polling for arrival")

	// The delivery window opens once the send has returned. The poll
	// deadline and the reported duration both measure from this instant,
	// time spent in the smtp conversation is not part of either.
	sentAt := p.configuration.now()
	defer func() {
		attempt.Duration = p.configuration.now().Sub(sentAt)
	}()

	attempt.Polled = true
	found, err := p.pollUntilFound(to.Mailbox, from.Address, attempt.Token, sentAt)
	if found {
		attempt.ReceiveOK = true
		if err != nil {
			baseLogger.WithField("error", err).Warn("Probe mail arrived but could not be cleaned up")
		} else {
			baseLogger.Debug("Probe mail arrived and was cleaned up")
		}
		return attempt
	}

	attempt.Err = err
	attempt.Kind = domain.KindOf(err)
	baseLogger.WithField("error", err).Error("Probe mail did not arrive")
	return attempt
}
