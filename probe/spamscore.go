// SPDX-License-Identifier: GPL-3.0-or-later
package probe

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mezorian/mail-health-exporter/domain"
	"github.com/mezorian/mail-health-exporter/log"
	"github.com/mezorian/mail-health-exporter/mail"
	"github.com/mezorian/mail-health-exporter/token"
)

// SpamScoreProbe sends a probe mail to an external scoring address and
// reads the resulting score back from the provider's result page.
type SpamScoreProbe struct {
	sender      domain.MailSender
	fetcher     domain.ScoreFetcher
	fromAddress string
	testAddress string
	resultURL   string

	configuration *configuration

	l *logrus.Logger
}

func NewSpamScoreProbe(sender domain.MailSender, fetcher domain.ScoreFetcher, fromAddress string, testAddress string, resultURL string, configFunc ...ConfigFunc) (*SpamScoreProbe, error) {
	config, err := newConfiguration(configFunc...)
	if err != nil {
		return nil, err
	}

	return &SpamScoreProbe{
		sender:        sender,
		fetcher:       fetcher,
		fromAddress:   fromAddress,
		testAddress:   testAddress,
		resultURL:     resultURL,
		configuration: config,
		l:             log.Logger(log.LOG_SPAMTEST),
	}, nil
}

// Attempt runs one spam-score check unless the previous one is too recent.
// A skipped attempt performs no network I/O at all, that restraint is what
// protects the third-party scoring service from excess load. The caller
// tracks lastCheckedAt and passes it back in, a probe never remembers its
// own history.
func (p *SpamScoreProbe) Attempt(lastCheckedAt time.Time) *domain.SpamScoreResult {
	now := p.configuration.now()
	if now.Sub(lastCheckedAt) < p.configuration.minScoreInterval {
		return &domain.SpamScoreResult{Outcome: domain.SpamScoreSkipped, SourceURL: p.resultURL, CheckedAt: now}
	}

	probeMail, err := mail.NewProbeMail(p.fromAddress, p.testAddress, token.New(), now)
	if err != nil {
		p.l.WithField("error", err).Error("Could not build spam test mail")
		return &domain.SpamScoreResult{Outcome: domain.SpamScoreFailed, SourceURL: p.resultURL, CheckedAt: now, Err: err}
	}

	err = p.sender.Send(probeMail)
	if err != nil {
		p.l.WithField("error", err).Error("Could not send spam test mail")
		return &domain.SpamScoreResult{Outcome: domain.SpamScoreFailed, SourceURL: p.resultURL, CheckedAt: now, Err: err}
	}

	score, err := p.fetcher.FetchScore(p.resultURL)
	if err != nil {
		p.l.WithField("error", err).Error("Could not read spam score")
		return &domain.SpamScoreResult{Outcome: domain.SpamScoreFailed, SourceURL: p.resultURL, CheckedAt: now, Err: err}
	}

	p.l.WithFields(logrus.Fields{"score": score}).Info("Spam score checked")
	return &domain.SpamScoreResult{Outcome: domain.SpamScoreChecked, Score: score, SourceURL: p.resultURL, CheckedAt: now}
}
