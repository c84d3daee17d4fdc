// SPDX-License-Identifier: GPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/mezorian/mail-health-exporter/config"
	"github.com/mezorian/mail-health-exporter/httpapi"
	"github.com/mezorian/mail-health-exporter/imapconnection"
	"github.com/mezorian/mail-health-exporter/log"
	"github.com/mezorian/mail-health-exporter/metrics"
	"github.com/mezorian/mail-health-exporter/probe"
	"github.com/mezorian/mail-health-exporter/scheduler"
	"github.com/mezorian/mail-health-exporter/smtpconnection"
	"github.com/mezorian/mail-health-exporter/spamtest"
	"github.com/mezorian/mail-health-exporter/status"
)

func endpoint(account config.MailAccount, timeout time.Duration) probe.Endpoint {
	return probe.Endpoint{
		Address: account.Address,
		Sender:  smtpconnection.NewSmtpConnection(account.SmtpHost, account.SmtpPort, account.SmtpUseTLS, account.Address, account.Password, timeout),
		Mailbox: imapconnection.NewImapConnection(account.ImapHost, account.ImapPort, account.ImapUseSSL, account.Address, account.Password, timeout),
	}
}

func main() {
	log.InitLogging("info")
	logger := log.Logger(log.LOG_MAIN)

	configFile := flag.String("config", "", "optional toml configuration file")
	flag.Parse()

	conf, err := config.ReadConfig(*configFile)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load config")
	}

	if conf.Loglevel != nil {
		log.SetLogLevel(*conf.Loglevel)
	}

	internal := endpoint(conf.Internal, conf.Timeout())
	external := endpoint(conf.External, conf.Timeout())

	roundTrip, err := probe.NewRoundTripProbe(
		internal,
		external,
		probe.Timeout(conf.Timeout()),
		probe.PollInterval(conf.PollInterval()),
	)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not build round-trip probe")
	}

	spamScore, err := probe.NewSpamScoreProbe(
		internal.Sender,
		spamtest.NewScoreFetcher(),
		conf.Internal.Address,
		conf.SpamTestAddress,
		conf.SpamTestURL,
		probe.MinScoreInterval(conf.SpamScoreMinInterval()),
	)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not build spam-score probe")
	}

	renderer, err := status.NewRenderer(conf.StatusHTMLFile, conf.SpamTestURL)
	if err != nil {
		logger.WithField("error", err).Fatal("Could not load status template")
	}

	registry := metrics.NewRegistry(time.Now())
	checks := scheduler.NewScheduler(roundTrip, spamScore, registry, conf.CheckInterval())
	server := httpapi.NewServer(conf.HTTPPort, registry, renderer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			logger.WithField("error", err).Warn("Could not shut down http server cleanly")
		}
	}()

	checksDone := make(chan struct{})
	go func() {
		defer close(checksDone)
		checks.Run(ctx)
	}()

	err = server.Run()
	if err != nil {
		logger.WithField("error", err).Fatal("Could not serve http")
	}

	// In-flight checks finish their attempt so no probe mails are left
	// behind on the servers.
	<-checksDone
	logger.Info("Shutdown complete")
}
