package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"tracksync/internal/services"
)

const (
	sqliteBusyCode          = 5
	sqliteLockedCode        = 6
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		code := coder.Code() & 0xff
		if code == sqliteBusyCode || code == sqliteLockedCode {
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// classifyBusy tags persistent lock contention as a recoverable locked-catalog error.
func classifyBusy(err error, operation string) error {
	if err == nil || !isSQLiteBusy(err) {
		return err
	}
	return services.Wrap(services.ErrLockedCatalog, operation, "sqlite", "catalog file is locked by another process", err)
}

// withTx runs fn inside a transaction, retrying the whole transaction on
// SQLITE_BUSY. The staleness snapshot is refreshed after a successful commit
// so local writes are not mistaken for external ones.
func (c *Catalog) withTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	ctx = ensureContext(ctx)
	db, err := c.conn()
	if err != nil {
		return err
	}
	err = retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return classifyBusy(err, operation)
	}
	c.recordSnapshot()
	return nil
}
