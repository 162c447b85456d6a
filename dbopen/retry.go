package dbopen

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// A concurrent writer holds the SQLite write lock for milliseconds at a
// time; three linearly spaced retries outlast an append burst from the
// history sink.
const busyRetries = 3

// IsBusy reports whether err indicates an SQLite BUSY condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	for _, marker := range []string{
		"SQLITE_BUSY",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(err.Error(), marker) {
			return true
		}
	}
	return false
}

// RunTx executes fn inside a transaction, retrying the whole transaction
// on SQLITE_BUSY. fn must be safe to re-run.
func RunTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if attempt > 0 {
			if werr := waitBackoff(ctx, attempt); werr != nil {
				return werr
			}
		}
		if err = runTxOnce(ctx, db, fn); err == nil || !IsBusy(err) {
			return err
		}
	}
	return fmt.Errorf("dbopen: tx still busy after %d attempts: %w", busyRetries, err)
}

func runTxOnce(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("dbopen: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("dbopen: commit: %w", err)
	}
	return nil
}

// Exec executes a single statement, retrying on SQLITE_BUSY.
func Exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if attempt > 0 {
			if werr := waitBackoff(ctx, attempt); werr != nil {
				return nil, werr
			}
		}
		var res sql.Result
		if res, err = db.ExecContext(ctx, query, args...); err == nil || !IsBusy(err) {
			return res, err
		}
	}
	return nil, fmt.Errorf("dbopen: exec still busy after %d attempts: %w", busyRetries, err)
}

// waitBackoff sleeps 100/200/300 ms for attempts 1/2/3, honoring ctx.
func waitBackoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * 100 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("dbopen: cancelled during busy retry: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
