package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Retry policy for writes contending on the single database file. Message
// sends and receipt upserts from concurrent sessions are short transactions,
// so a few attempts with doubled backoff clear a transient SQLITE_BUSY.
const (
	writeRetryAttempts = 3
	writeRetryBackoff  = 50 * time.Millisecond
)

// TransactionWithRetry runs fn in a transaction, retrying busy-database
// failures. Zero or negative maxAttempts and baseBackoff select the write
// retry defaults.
func (db *DB) TransactionWithRetry(ctx context.Context, maxAttempts int, baseBackoff time.Duration, fn func(*sql.Tx) error) error {
	if maxAttempts <= 0 {
		maxAttempts = writeRetryAttempts
	}
	backoff := baseBackoff
	if backoff <= 0 {
		backoff = writeRetryBackoff
	}

	for attempt := 1; ; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := db.Transaction(ctx, fn)
		if err == nil || !isBusyError(err) || attempt >= maxAttempts {
			return err
		}

		db.logger.Debug().
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("database busy, retrying transaction")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	message := strings.ToLower(err.Error())
	return strings.Contains(message, "database is locked") ||
		strings.Contains(message, "database is busy") ||
		strings.Contains(message, "sqlite_busy")
}
