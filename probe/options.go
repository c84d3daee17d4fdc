// SPDX-License-Identifier: GPL-3.0-or-later
package probe

import (
	"fmt"
	"time"
)

const (
	DefaultTimeout          = 60 * time.Second
	DefaultPollInterval     = 10 * time.Second
	DefaultMinScoreInterval = 8 * time.Hour
)

type ConfigFunc func(c *configuration) error

// Timeout caps how long a direction waits for its probe mail to arrive.
func Timeout(timeout time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if timeout <= 0 {
			return fmt.Errorf("Timeout must be positive")
		}

		c.timeout = timeout
		return nil
	}
}

// PollInterval sets the pause between inbox polls while waiting.
func PollInterval(interval time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if interval <= 0 {
			return fmt.Errorf("PollInterval must be positive")
		}

		c.pollInterval = interval
		return nil
	}
}

// MinScoreInterval sets the minimum distance between two spam-score checks.
func MinScoreInterval(interval time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if interval <= 0 {
			return fmt.Errorf("MinScoreInterval must be positive")
		}

		c.minScoreInterval = interval
		return nil
	}
}

// Clock replaces the time source, used by tests to run poll loops instantly.
func Clock(now func() time.Time, sleep func(d time.Duration)) ConfigFunc {
	return func(c *configuration) error {
		if now == nil || sleep == nil {
			return fmt.Errorf("Clock functions cannot be null")
		}

		c.now = now
		c.sleep = sleep
		return nil
	}
}

type configuration struct {
	timeout          time.Duration
	pollInterval     time.Duration
	minScoreInterval time.Duration

	now   func() time.Time
	sleep func(d time.Duration)
}

func newConfiguration(configFunc ...ConfigFunc) (*configuration, error) {
	config := &configuration{
		timeout:          DefaultTimeout,
		pollInterval:     DefaultPollInterval,
		minScoreInterval: DefaultMinScoreInterval,
		now:              time.Now,
		sleep:            time.Sleep,
	}
	for _, f := range configFunc {
		err := f(config)
		if err != nil {
			return nil, fmt.Errorf("error applying configuration: %w", err)
		}
	}

	return config, nil
}
