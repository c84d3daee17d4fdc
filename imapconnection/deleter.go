// SPDX-License-Identifier: GPL-3.0-or-later
package imapconnection

//go:generate mockgen -destination=deleter_mocks_test.go -package=imapconnection -source deleter.go
import (
	"fmt"

	"github.com/emersion/go-imap"
)

type deleter interface {
	delete(uids []uint32) error
}

type deletedFlagger interface {
	flagDeleted(uids []uint32) (*imap.SeqSet, error)
}

type deletedFlaggerAndUidExpunger interface {
	deletedFlagger
	UidExpunge(seqSet *imap.SeqSet, ch chan uint32) error
}

// uidPlusDeleter expunges exactly the flagged uids via UIDPLUS.
type uidPlusDeleter struct {
	imapConn deletedFlaggerAndUidExpunger
}

func (u *uidPlusDeleter) delete(uids []uint32) error {
	seqset, err := u.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not flag items as deleted: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- u.imapConn.UidExpunge(seqset, out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}

type deleteFlaggerAndExpunger interface {
	deletedFlagger
	Expunge(ch chan uint32) error
	UidSearch(criteria *imap.SearchCriteria) (uids []uint32, err error)
}

// ErrStaleDeletedItems means a plain EXPUNGE would also remove mails this
// exporter never touched.
var ErrStaleDeletedItems = fmt.Errorf("mailbox has previous items with the deleted flag set")

// compatibilityDeleter works without UIDPLUS. EXPUNGE removes everything
// carrying the deleted flag, so it refuses to run when the mailbox already
// holds flagged items that are not ours.
type compatibilityDeleter struct {
	imapConn deleteFlaggerAndExpunger
}

func (c *compatibilityDeleter) delete(uids []uint32) error {
	criteria := imap.NewSearchCriteria()
	criteria.WithFlags = []string{imap.DeletedFlag}
	stale, err := c.imapConn.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("could not search for deleted items: %w", err)
	}
	if len(stale) > 0 {
		return ErrStaleDeletedItems
	}

	_, err = c.imapConn.flagDeleted(uids)
	if err != nil {
		return fmt.Errorf("could not set deleted flag: %w", err)
	}

	out := make(chan uint32)
	done := make(chan error, 1)
	go func() {
		done <- c.imapConn.Expunge(out)
	}()

	expunged := []uint32{}
	for uid := range out {
		expunged = append(expunged, uid)
	}

	err = <-done
	if err != nil {
		return fmt.Errorf("could not expunge mails: %w", err)
	}

	if len(expunged) != len(uids) {
		return fmt.Errorf("unexpected number of expunges, expected %d got %d", len(uids), len(expunged))
	}

	return nil
}
