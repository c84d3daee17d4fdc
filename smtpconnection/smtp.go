// SPDX-License-Identifier: GPL-3.0-or-later

// Package smtpconnection submits probe mails. Every send opens a fresh
// session so a wedged connection from an earlier check cannot poison
// later ones.
package smtpconnection

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/sirupsen/logrus"

	"github.com/mezorian/mail-health-exporter/domain"
	"github.com/mezorian/mail-health-exporter/log"
)

type SmtpConnection struct {
	host     string
	port     int
	useTls   bool
	user     string
	password string
	timeout  time.Duration

	l *logrus.Logger
}

func NewSmtpConnection(host string, port int, useTls bool, user string, password string, timeout time.Duration) *SmtpConnection {
	return &SmtpConnection{
		host:     host,
		port:     port,
		useTls:   useTls,
		user:     user,
		password: password,
		timeout:  timeout,
		l:        log.Logger(log.LOG_SMTP),
	}
}

// Send submits the probe mail and closes the session again. Port 465 with
// tls enabled means implicit tls, any other port upgrades via starttls.
func (sc *SmtpConnection) Send(probeMail *domain.ProbeMail) error {
	address := net.JoinHostPort(sc.host, strconv.Itoa(sc.port))
	dialer := &net.Dialer{Timeout: sc.timeout}

	var conn net.Conn
	var err error
	if sc.useTls && sc.port == 465 {
		conn, err = tls.DialWithDialer(dialer, "tcp", address, nil)
	} else {
		conn, err = dialer.Dial("tcp", address)
	}
	if err != nil {
		return fmt.Errorf("could not dial to smtp: %w: %w", domain.ErrConnection, err)
	}

	// The deadline caps the whole smtp conversation, not just the dial.
	err = conn.SetDeadline(time.Now().Add(sc.timeout))
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not set smtp deadline: %w: %w", domain.ErrConnection, err)
	}

	smtpClient, err := smtp.NewClient(conn, sc.host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("could not create smtp client: %w: %w", domain.ErrConnection, err)
	}
	defer smtpClient.Close()

	if sc.useTls && sc.port != 465 {
		err = smtpClient.StartTLS(&tls.Config{ServerName: sc.host})
		if err != nil {
			return fmt.Errorf("could not upgrade to starttls: %w: %w", domain.ErrConnection, err)
		}
	}

	err = smtpClient.Auth(sasl.NewPlainClient("", sc.user, sc.password))
	if err != nil {
		return fmt.Errorf("could not login to smtp: %w: %w", domain.ErrAuthentication, err)
	}

	err = smtpClient.Mail(probeMail.From, nil)
	if err != nil {
		return fmt.Errorf("could not set sender: %w: %w", domain.ErrConnection, err)
	}
	err = smtpClient.Rcpt(probeMail.To)
	if err != nil {
		return fmt.Errorf("could not set recipient: %w: %w", domain.ErrConnection, err)
	}

	writer, err := smtpClient.Data()
	if err != nil {
		return fmt.Errorf("could not open mail data: %w: %w", domain.ErrConnection, err)
	}
	_, err = writer.Write(probeMail.Raw)
	if err != nil {
		writer.Close()
		return fmt.Errorf("could not write mail data: %w: %w", domain.ErrConnection, err)
	}
	err = writer.Close()
	if err != nil {
		return fmt.Errorf("could not finish mail data: %w: %w", domain.ErrConnection, err)
	}

	err = smtpClient.Quit()
	if err != nil {
		return fmt.Errorf("could not quit smtp session: %w: %w", domain.ErrConnection, err)
	}

	sc.l.WithFields(logrus.Fields{"to": probeMail.To, "token": probeMail.Token}).Debug("Probe mail submitted")
	return nil
}
