// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler drives the two health checks on independent periodic
// loops and folds their outcomes into the metrics registry. A crashing
// check is recorded as a failure, it never takes its loop down.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/mezorian/mail-health-exporter/domain"
	"github.com/mezorian/mail-health-exporter/log"
	"github.com/mezorian/mail-health-exporter/metrics"

	"github.com/sirupsen/logrus"
)

// Scheduler owns the check cadence and the spam-score gate state. Ticks of
// the same check never overlap, the next tick is armed only after the
// previous one finished.
type Scheduler struct {
	roundTrip domain.RoundTripProber
	spamScore domain.SpamScorer
	registry  *metrics.Registry

	checkInterval time.Duration

	// lastSpamCheck is only touched from the spam-score loop goroutine.
	lastSpamCheck time.Time

	now func() time.Time

	l *logrus.Logger
}

func NewScheduler(roundTrip domain.RoundTripProber, spamScore domain.SpamScorer, registry *metrics.Registry, checkInterval time.Duration) *Scheduler {
	return &Scheduler{
		roundTrip:     roundTrip,
		spamScore:     spamScore,
		registry:      registry,
		checkInterval: checkInterval,
		now:           time.Now,
		l:             log.Logger(log.LOG_SCHEDULER),
	}
}

// Run blocks until ctx is cancelled. Both checks fire immediately on start
// and then every checkInterval. An in-flight check finishes its attempt
// before the loop exits, aborting mid-conversation would leave probe mails
// behind on the servers.
func (s *Scheduler) Run(ctx context.Context) {
	s.l.WithField("interval", s.checkInterval).Info("Starting check loops")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.loop(ctx, s.runRoundTripCheck)
	}()
	go func() {
		defer wg.Done()
		s.loop(ctx, s.runSpamScoreCheck)
	}()
	wg.Wait()

	s.l.Info("Check loops stopped")
}

func (s *Scheduler) loop(ctx context.Context, tick func()) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			tick()
			timer.Reset(s.checkInterval)
		}
	}
}

func (s *Scheduler) runRoundTripCheck() {
	defer func() {
		if v := recover(); v != nil {
			s.l.WithField("panic", v).Error("Round-trip check crashed")
			s.recordRoundTripCrash()
		}
	}()

	s.recordRoundTrip(s.roundTrip.Run())
}

// recordRoundTrip folds one round-trip result into the registry. The
// working gauges require both directions' latest attempt to have succeeded.
func (s *Scheduler) recordRoundTrip(result *domain.RoundTripResult) {
	sendingOK := true
	receivingOK := true
	for _, attempt := range result.Attempts {
		s.registry.Increment(metrics.SendCounter(attempt.Direction, attempt.SendOK))
		if attempt.Polled {
			s.registry.Increment(metrics.ReceiveCounter(attempt.Direction, attempt.ReceiveOK))
		}
		sendingOK = sendingOK && attempt.SendOK
		receivingOK = receivingOK && attempt.Success()
	}

	s.registry.SetGauge(metrics.SendingMailsWorking, gaugeValue(sendingOK))
	s.registry.SetGauge(metrics.ReceivingMailsWorking, gaugeValue(receivingOK))
	s.registry.SetGaugePair(metrics.RoundtripDurationSeconds, result.Duration.Seconds(), metrics.LastSendReceiveCheckTimestamp, s.now())

	s.l.WithFields(logrus.Fields{"sending": sendingOK, "receiving": receivingOK, "duration": result.Duration}).Info("Round-trip check finished")
}

// recordRoundTripCrash marks a check that died before producing a result.
// Neither direction completed, so both count as failed sends.
func (s *Scheduler) recordRoundTripCrash() {
	s.registry.Increment(metrics.SendInternalToExternalFailuresTotal)
	s.registry.Increment(metrics.SendExternalToInternalFailuresTotal)
	s.registry.SetGauge(metrics.SendingMailsWorking, 0)
	s.registry.SetGauge(metrics.ReceivingMailsWorking, 0)
	s.registry.SetGauge(metrics.LastSendReceiveCheckTimestamp, metrics.UnixSeconds(s.now()))
}

func (s *Scheduler) runSpamScoreCheck() {
	defer func() {
		if v := recover(); v != nil {
			s.l.WithField("panic", v).Error("Spam-score check crashed")
		}
	}()

	result := s.spamScore.Attempt(s.lastSpamCheck)
	switch result.Outcome {
	case domain.SpamScoreSkipped:
		s.l.WithField("lastCheck", s.lastSpamCheck).Debug("Spam-score check skipped, minimum interval not reached")
	case domain.SpamScoreChecked:
		s.lastSpamCheck = result.CheckedAt
		s.registry.SetGaugePair(metrics.SpamScore, result.Score, metrics.LastSpamScoreCheckTimestamp, result.CheckedAt)
	case domain.SpamScoreFailed:
		// The gate still advances so a broken scoring service is not
		// hammered every tick. The previous score stays on the page.
		s.lastSpamCheck = result.CheckedAt
		s.l.WithField("error", result.Err).Warn("Spam-score check failed, keeping previous score")
	}
}

func gaugeValue(ok bool) float64 {
	if ok {
		return 1
	}

	return 0
}
