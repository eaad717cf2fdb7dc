package store

import (
	"errors"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// busySchedule bounds how long a reader or deleter waits out SQLITE_BUSY.
// busy_timeout already absorbs short contention, so this only covers a
// writer holding the database across several timeouts.
func busySchedule() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	b.RandomizationFactor = 0.2
	return b
}

// retryBusy runs op until it succeeds, fails with anything but a busy
// database, or the schedule is exhausted.
func retryBusy(op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, busySchedule())
}

// isBusy matches modernc.org/sqlite lock contention errors by message.
func isBusy(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidName) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
