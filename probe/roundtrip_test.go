// SPDX-License-Identifier: GPL-3.0-or-later
package probe

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/mezorian/mail-health-exporter/domain"
	"github.com/mezorian/mail-health-exporter/domain/mocks"
	"github.com/mezorian/mail-health-exporter/log"
)

const (
	internalAddress = "probe@internal.example"
	externalAddress = "probe@external.example"
)

// fakeClock advances only while sleeping, so poll loops run instantly and
// still observe exact timings.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Sleep(d time.Duration) {
	f.now = f.now.Add(d)
}

func nullLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupRoundTrip(t *testing.T, timeout, pollInterval time.Duration) (*gomock.Controller, *RoundTripProbe, *fakeClock, *mocks.MockMailSender, *mocks.MockMailSender, *mocks.MockMailbox, *mocks.MockMailbox) {
	ctrl := gomock.NewController(t)

	internalSender := mocks.NewMockMailSender(ctrl)
	externalSender := mocks.NewMockMailSender(ctrl)
	internalBox := mocks.NewMockMailbox(ctrl)
	externalBox := mocks.NewMockMailbox(ctrl)

	clock := &fakeClock{now: time.Date(2024, 5, 4, 12, 0, 0, 0, time.UTC)}

	prober := &RoundTripProbe{
		internal: Endpoint{Address: internalAddress, Sender: internalSender, Mailbox: internalBox},
		external: Endpoint{Address: externalAddress, Sender: externalSender, Mailbox: externalBox},
		configuration: &configuration{
			timeout:      timeout,
			pollInterval: pollInterval,
			now:          clock.Now,
			sleep:        clock.Sleep,
		},
		l: nullLogger(),
	}

	return ctrl, prober, clock, internalSender, externalSender, internalBox, externalBox
}

func TestNewRoundTripProbe(t *testing.T) {
	log.InitLogging("error")
	tests := []struct {
		name string
		cfgs []ConfigFunc
		err  string
	}{
		{"ok", []ConfigFunc{}, ""},
		{"badtimeout", []ConfigFunc{Timeout(0)}, "error applying configuration: Timeout must be positive"},
		{"badpollinterval", []ConfigFunc{PollInterval(-time.Second)}, "error applying configuration: PollInterval must be positive"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prober, err := NewRoundTripProbe(Endpoint{}, Endpoint{}, tc.cfgs...)
			if len(tc.err) == 0 {
				assert.NotNil(t, prober)
				assert.NoError(t, err)
			} else {
				assert.Nil(t, prober)
				assert.EqualError(t, err, tc.err)
			}
		})
	}
}

func TestRoundTripProbe_Run_BothDirectionsSucceed(t *testing.T) {
	ctrl, prober, _, internalSender, externalSender, internalBox, externalBox := setupRoundTrip(t, 60*time.Second, time.Second)
	defer ctrl.Finish()

	var internalToken, externalToken string
	internalSender.EXPECT().
		Send(gomock.Any()).
		DoAndReturn(func(m *domain.ProbeMail) error {
			assert.Equal(t, internalAddress, m.From)
			assert.Equal(t, externalAddress, m.To)
			internalToken = m.Token
			return nil
		})
	externalSender.EXPECT().
		Send(gomock.Any()).
		DoAndReturn(func(m *domain.ProbeMail) error {
			assert.Equal(t, externalAddress, m.From)
			assert.Equal(t, internalAddress, m.To)
			externalToken = m.Token
			return nil
		})

	// The internal->external mail shows up on the third poll, two seconds
	// in. The reverse direction takes one poll longer.
	externalPolls := 0
	externalBox.EXPECT().
		FindAndDelete(gomock.Eq(internalAddress), gomock.Any()).
		DoAndReturn(func(sender, token string) (bool, error) {
			assert.Equal(t, internalToken, token)
			externalPolls++
			return externalPolls == 3, nil
		}).
		Times(3)

	internalPolls := 0
	internalBox.EXPECT().
		FindAndDelete(gomock.Eq(externalAddress), gomock.Any()).
		DoAndReturn(func(sender, token string) (bool, error) {
			assert.Equal(t, externalToken, token)
			internalPolls++
			return internalPolls == 4, nil
		}).
		Times(4)

	result := prober.Run()

	assert.Len(t, result.Attempts, 2)

	first := result.Attempts[0]
	assert.Equal(t, domain.InternalToExternal, first.Direction)
	assert.True(t, first.Success())
	assert.True(t, first.SendOK)
	assert.True(t, first.ReceiveOK)
	assert.True(t, first.Polled)
	assert.NoError(t, first.Err)
	assert.Equal(t, 2*time.Second, first.Duration)

	second := result.Attempts[1]
	assert.Equal(t, domain.ExternalToInternal, second.Direction)
	assert.True(t, second.Success())
	assert.Equal(t, 3*time.Second, second.Duration)

	assert.Equal(t, 5*time.Second, result.Duration)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestRoundTripProbe_Run_DurationStartsAtSendCompletion(t *testing.T) {
	ctrl, prober, clock, internalSender, externalSender, internalBox, externalBox := setupRoundTrip(t, 60*time.Second, 10*time.Second)
	defer ctrl.Finish()

	// The smtp conversation takes 30 seconds. Neither the delivery window
	// nor the reported duration may include that time.
	internalSender.EXPECT().
		Send(gomock.Any()).
		DoAndReturn(func(m *domain.ProbeMail) error {
			clock.Sleep(30 * time.Second)
			return nil
		})
	externalSender.EXPECT().Send(gomock.Any()).Return(nil)

	// Found on the fifth poll, 40 seconds after the send returned.
	externalPolls := 0
	externalBox.EXPECT().
		FindAndDelete(gomock.Eq(internalAddress), gomock.Any()).
		DoAndReturn(func(sender, token string) (bool, error) {
			externalPolls++
			return externalPolls == 5, nil
		}).
		Times(5)

	internalBox.EXPECT().
		FindAndDelete(gomock.Eq(externalAddress), gomock.Any()).
		Return(true, nil)

	result := prober.Run()

	first := result.Attempts[0]
	assert.True(t, first.Success())
	assert.Equal(t, 40*time.Second, first.Duration)
	assert.LessOrEqual(t, first.Duration, 60*time.Second)

	second := result.Attempts[1]
	assert.True(t, second.Success())
	assert.Equal(t, time.Duration(0), second.Duration)

	assert.Equal(t, 40*time.Second, result.Duration)
}

func TestRoundTripProbe_Run_SendFailureSkipsPolling(t *testing.T) {
	ctrl, prober, _, internalSender, externalSender, internalBox, _ := setupRoundTrip(t, 60*time.Second, time.Second)
	defer ctrl.Finish()

	internalSender.EXPECT().
		Send(gomock.Any()).
		Return(fmt.Errorf("could not login to smtp: %w", domain.ErrAuthentication))

	externalSender.EXPECT().Send(gomock.Any()).Return(nil)
	internalBox.EXPECT().
		FindAndDelete(gomock.Eq(externalAddress), gomock.Any()).
		Return(true, nil)

	result := prober.Run()

	first := result.Attempts[0]
	assert.False(t, first.SendOK)
	assert.False(t, first.Polled)
	assert.False(t, first.Success())
	assert.Equal(t, domain.FailureAuthentication, first.Kind)
	assert.ErrorIs(t, first.Err, domain.ErrAuthentication)

	second := result.Attempts[1]
	assert.True(t, second.Success())
}

func TestRoundTripProbe_Run_Timeout(t *testing.T) {
	ctrl, prober, _, internalSender, externalSender, internalBox, externalBox := setupRoundTrip(t, 60*time.Second, 10*time.Second)
	defer ctrl.Finish()

	internalSender.EXPECT().Send(gomock.Any()).Return(nil)
	externalSender.EXPECT().Send(gomock.Any()).Return(nil)

	// Polled at 0s, 10s, ..., 60s, then the deadline cuts the loop.
	externalBox.EXPECT().
		FindAndDelete(gomock.Eq(internalAddress), gomock.Any()).
		Return(false, nil).
		Times(7)

	internalBox.EXPECT().
		FindAndDelete(gomock.Eq(externalAddress), gomock.Any()).
		Return(true, nil)

	result := prober.Run()

	first := result.Attempts[0]
	assert.True(t, first.SendOK)
	assert.True(t, first.Polled)
	assert.False(t, first.ReceiveOK)
	assert.Equal(t, domain.FailureTimeout, first.Kind)
	assert.ErrorIs(t, first.Err, domain.ErrTimeout)
	assert.Equal(t, 60*time.Second, first.Duration)

	assert.True(t, result.Attempts[1].Success())
}

func TestRoundTripProbe_Run_QueryErrorBeatsTimeout(t *testing.T) {
	ctrl, prober, _, internalSender, externalSender, internalBox, externalBox := setupRoundTrip(t, 20*time.Second, 10*time.Second)
	defer ctrl.Finish()

	internalSender.EXPECT().Send(gomock.Any()).Return(nil)
	externalSender.EXPECT().Send(gomock.Any()).Return(nil)

	externalBox.EXPECT().
		FindAndDelete(gomock.Eq(internalAddress), gomock.Any()).
		Return(false, fmt.Errorf("could not dial to imap: %w", domain.ErrConnection)).
		Times(3)

	internalBox.EXPECT().
		FindAndDelete(gomock.Eq(externalAddress), gomock.Any()).
		Return(true, nil)

	result := prober.Run()

	first := result.Attempts[0]
	assert.False(t, first.Success())
	assert.Equal(t, domain.FailureConnection, first.Kind)
	assert.ErrorIs(t, first.Err, domain.ErrConnection)
}

func TestRoundTripProbe_Run_CleanupFailureStillCountsAsReceived(t *testing.T) {
	ctrl, prober, _, internalSender, externalSender, internalBox, externalBox := setupRoundTrip(t, 60*time.Second, time.Second)
	defer ctrl.Finish()

	internalSender.EXPECT().Send(gomock.Any()).Return(nil)
	externalSender.EXPECT().Send(gomock.Any()).Return(nil)

	externalBox.EXPECT().
		FindAndDelete(gomock.Eq(internalAddress), gomock.Any()).
		Return(true, fmt.Errorf("could not clean up probe mail: mailbox has previous items with the deleted flag set"))

	internalBox.EXPECT().
		FindAndDelete(gomock.Eq(externalAddress), gomock.Any()).
		Return(true, nil)

	result := prober.Run()

	first := result.Attempts[0]
	assert.True(t, first.SendOK)
	assert.True(t, first.ReceiveOK)
	assert.True(t, first.Success())
	assert.NoError(t, first.Err)
	assert.Equal(t, domain.FailureNone, first.Kind)
}
