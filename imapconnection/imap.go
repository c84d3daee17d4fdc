// SPDX-License-Identifier: GPL-3.0-or-later

// Package imapconnection looks up probe mails on the receiving side and
// cleans them up again. Every poll opens a fresh session, mirroring how a
// mail client would check the inbox and keeping a wedged session from one
// check out of the next.
package imapconnection

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap-uidplus"
	"github.com/emersion/go-imap/client"
	"github.com/sirupsen/logrus"

	"github.com/mezorian/mail-health-exporter/domain"
	"github.com/mezorian/mail-health-exporter/log"
	"github.com/mezorian/mail-health-exporter/mail"
)

const inboxFolder = "INBOX"

type ImapConnection struct {
	host     string
	port     int
	useSsl   bool
	user     string
	password string
	timeout  time.Duration

	l *logrus.Logger
}

func NewImapConnection(host string, port int, useSsl bool, user string, password string, timeout time.Duration) *ImapConnection {
	return &ImapConnection{
		host:     host,
		port:     port,
		useSsl:   useSsl,
		user:     user,
		password: password,
		timeout:  timeout,
		l:        log.Logger(log.LOG_IMAP),
	}
}

// FindAndDelete searches the inbox for a probe mail from sender carrying
// token in its subject and deletes every match. It reports whether a match
// was found. A found mail that could not be cleaned up still counts as
// found, the caller decides how loud to be about the leftover.
func (ic *ImapConnection) FindAndDelete(sender, token string) (bool, error) {
	session, err := ic.connect()
	if err != nil {
		return false, err
	}
	defer session.close()

	uids, err := session.searchToken(sender, token)
	if err != nil {
		return false, err
	}
	if len(uids) == 0 {
		return false, nil
	}

	matched, err := session.matchingSubjects(uids, token)
	if err != nil {
		return false, err
	}
	if len(matched) == 0 {
		return false, nil
	}

	err = session.mailDeleter.delete(matched)
	if err != nil {
		return true, fmt.Errorf("could not clean up probe mail: %w", err)
	}

	ic.l.WithFields(logrus.Fields{"token": token, "mails": len(matched)}).Debug("Probe mail found and deleted")
	return true, nil
}

// liveSession is one logged-in, inbox-selected imap conversation.
type liveSession struct {
	connection  *client.Client
	uidPlus     *uidplus.Client
	mailDeleter deleter

	l *logrus.Logger
}

func (ic *ImapConnection) connect() (*liveSession, error) {
	address := net.JoinHostPort(ic.host, strconv.Itoa(ic.port))

	var imapClient *client.Client
	var err error
	if ic.useSsl {
		imapClient, err = client.DialTLS(address, nil)
	} else {
		imapClient, err = client.Dial(address)
	}
	if err != nil {
		return nil, fmt.Errorf("could not dial to imap: %w: %w", domain.ErrConnection, err)
	}

	imapClient.Timeout = ic.timeout

	err = imapClient.Login(ic.user, ic.password)
	if err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("could not login to imap: %w: %w", domain.ErrAuthentication, err)
	}

	_, err = imapClient.Select(inboxFolder, false)
	if err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("could not select folder: %w: %w", domain.ErrConnection, err)
	}

	session := &liveSession{
		connection: imapClient,
		l:          ic.l,
	}

	uidPlusClient := uidplus.NewClient(imapClient)
	uidPlusSupported, err := uidPlusClient.SupportUidPlus()
	if err != nil {
		imapClient.Logout()
		return nil, fmt.Errorf("could not check for UIDPLUS support: %w: %w", domain.ErrConnection, err)
	}

	if uidPlusSupported {
		ic.l.WithField("server", ic.host).Debug("UIDPLUS supported on server, using UID expunge")
		session.uidPlus = uidPlusClient
		session.mailDeleter = &uidPlusDeleter{imapConn: session}
	} else {
		ic.l.WithField("server", ic.host).Debug("UIDPLUS not supported on server, falling back to flag&expunge")
		session.mailDeleter = &compatibilityDeleter{imapConn: session}
	}

	return session, nil
}

func (s *liveSession) searchToken(sender, token string) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("From", sender)
	criteria.Header.Add("Subject", mail.Subject(token))

	uids, err := s.connection.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("could not search for probe mail: %w: %w", domain.ErrConnection, err)
	}

	return uids, nil
}

// matchingSubjects fetches the headers of the search hits and keeps only
// those whose decoded subject really carries the token. Server-side SUBJECT
// search is a substring match over the encoded form, so this re-check is
// what makes the correlation exact.
func (s *liveSession) matchingSubjects(uids []uint32, token string) ([]uint32, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{
			Specifier: imap.HeaderSpecifier,
			Fields:    []string{"Subject"},
		},
		Peek: true,
	}
	fetchItems := []imap.FetchItem{section.FetchItem()}

	out := make(chan *imap.Message)
	done := make(chan error, 1)
	go func() {
		done <- s.connection.UidFetch(seqset, fetchItems, out)
	}()

	matched, matchErr := collectTokenMatches(out, section, token, s.l)

	err := <-done
	if err != nil {
		return nil, fmt.Errorf("could not fetch mail headers: %w: %w", domain.ErrConnection, err)
	}
	if matchErr != nil {
		return nil, matchErr
	}

	return matched, nil
}

// collectTokenMatches consumes the fetched messages and keeps the uids whose
// subject carries the token. The channel is always drained to the end, even
// past a read error, so the fetch goroutine never blocks on a handed-over
// message.
func collectTokenMatches(out <-chan *imap.Message, section *imap.BodySectionName, token string, l *logrus.Logger) ([]uint32, error) {
	matched := []uint32{}
	var readErr error
	for msg := range out {
		r := msg.GetBody(section)
		if r == nil {
			continue
		}
		rawHeader, err := io.ReadAll(r)
		if err != nil {
			if readErr == nil {
				readErr = err
			}
			continue
		}

		ok, err := subjectMatchesToken(rawHeader, token)
		if err != nil {
			l.WithFields(logrus.Fields{"uid": msg.Uid, "error": err}).Warn("Skipping mail with unparseable header")
			continue
		}
		if ok {
			matched = append(matched, msg.Uid)
		}
	}

	if readErr != nil {
		return nil, fmt.Errorf("could not read mail header: %w: %w", domain.ErrConnection, readErr)
	}

	return matched, nil
}

func subjectMatchesToken(rawHeader []byte, token string) (bool, error) {
	subject, err := mail.DecodeSubject(rawHeader)
	if err != nil {
		return false, err
	}

	return strings.Contains(subject, token), nil
}

func (s *liveSession) flagDeleted(uids []uint32) (*imap.SeqSet, error) {
	seqset := &imap.SeqSet{}
	seqset.AddNum(uids...)
	err := s.connection.UidStore(seqset, imap.FormatFlagsOp(imap.AddFlags, true), []interface{}{imap.DeletedFlag}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not set deleted flag: %w", err)
	}

	return seqset, nil
}

func (s *liveSession) UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error {
	return s.uidPlus.UidExpunge(seqSet, ch)
}

func (s *liveSession) Expunge(ch chan uint32) error {
	return s.connection.Expunge(ch)
}

func (s *liveSession) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	return s.connection.UidSearch(criteria)
}

func (s *liveSession) close() {
	err := s.connection.Logout()
	if err != nil {
		s.l.WithField("error", err).Debug("Could not log out cleanly")
	}
}
