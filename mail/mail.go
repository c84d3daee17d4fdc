// SPDX-License-Identifier: GPL-3.0-or-later

// Package mail builds the probe mails that travel through the monitored
// servers and decodes headers of mails found while polling.
package mail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	stdmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/mezorian/mail-health-exporter/domain"
)

const subjectPrefix = "Mail Health Exporter - "

const bodyTemplate = `This is an automated test email from the mail health exporter service.

Test ID: %s
Timestamp: %s

This email should be automatically processed and deleted.`

// Subject returns the subject line carrying the correlation token. The
// receiving side searches for exactly this string, so it must stay free of
// characters that would need quoting in an IMAP search.
func Subject(token string) string {
	return subjectPrefix + token
}

// NewProbeMail assembles a complete rfc822 message around the token so the
// receiving side can find it again via a subject search.
func NewProbeMail(from, to, token string, at time.Time) (*domain.ProbeMail, error) {
	buffer := &bytes.Buffer{}

	header := mail.Header{}
	header.SetDate(at)
	header.SetAddressList("From", []*mail.Address{{Address: from}})
	header.SetAddressList("To", []*mail.Address{{Address: to}})
	header.SetSubject(Subject(token))
	header.Set("Message-Id", messageId(from, token, at))
	header.Set("X-Mailer", "mail-health-exporter")

	mailWriter, err := mail.CreateWriter(buffer, header)
	if err != nil {
		return nil, fmt.Errorf("could not create mail writer: %w", err)
	}

	textPart, err := mailWriter.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("could not create mail text part: %w", err)
	}
	inlineHeader := mail.InlineHeader{}
	inlineHeader.Set("Content-Type", "text/plain; charset=utf-8")
	textPartWriter, err := textPart.CreatePart(inlineHeader)
	if err != nil {
		return nil, fmt.Errorf("could not create text part: %w", err)
	}
	_, err = io.WriteString(textPartWriter, fmt.Sprintf(bodyTemplate, token, at.Format(time.RFC3339)))
	if err != nil {
		return nil, fmt.Errorf("could not write text part: %w", err)
	}
	err = textPartWriter.Close()
	if err != nil {
		return nil, fmt.Errorf("could not close text part writer: %w", err)
	}
	err = textPart.Close()
	if err != nil {
		return nil, fmt.Errorf("could not close text part: %w", err)
	}

	err = mailWriter.Close()
	if err != nil {
		return nil, fmt.Errorf("could not close mail writer: %w", err)
	}

	return &domain.ProbeMail{From: from, To: to, Token: token, Raw: buffer.Bytes()}, nil
}

// DecodeSubject extracts and mime-decodes the subject from a raw mail or a
// fetched header section.
func DecodeSubject(rawMail []byte) (string, error) {
	msg, err := stdmail.ReadMessage(bytes.NewReader(rawMail))
	if err != nil {
		return "", fmt.Errorf("could not parse mail: %w", err)
	}

	dec := &mime.WordDecoder{
		CharsetReader: charset.Reader,
	}
	subject, err := dec.DecodeHeader(msg.Header.Get("Subject"))
	if err != nil {
		return "", fmt.Errorf("could not decode subject header: %w", err)
	}

	return subject, nil
}

func messageId(from, token string, at time.Time) string {
	host := "localhost"
	if i := strings.LastIndex(from, "@"); i >= 0 && i+1 < len(from) {
		host = from[i+1:]
	}

	return fmt.Sprintf("<%s.%d@%s>", token, at.Unix(), host)
}
