package browser

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// CheckDatabase inspects the structural health of one SQLite database
// belonging to the profile: main file size, write-ahead-log sidecar size,
// and the result of PRAGMA quick_check. A database held locked by another
// process is reported via the Locked flag rather than as an error, since a
// locked-but-live database is a diagnostic signal, not a probe failure.
//
// A missing database reports zero sizes and a passing check.
func (t *Telemetry) CheckDatabase(ctx context.Context, path string) (DBStatus, error) {
	status := DBStatus{Path: path, QuickCheckOK: true}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return status, nil
		}
		return status, fmt.Errorf("stat database %s: %w", path, err)
	}
	status.SizeBytes = info.Size()

	if walInfo, err := os.Stat(path + "-wal"); err == nil {
		status.WALBytes = walInfo.Size()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		status.QuickCheckOK = false
		return status, nil
	}
	defer db.Close()

	// One connection, short busy wait: we only peek, never hold the file.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 1500"); err != nil {
		status.QuickCheckOK = false
		return status, nil
	}

	var result string
	err = db.QueryRowContext(ctx, "PRAGMA quick_check(1)").Scan(&result)
	switch {
	case err == nil:
		status.QuickCheckOK = strings.EqualFold(result, "ok")
	case isLockedErr(err):
		status.Locked = true
	default:
		status.QuickCheckOK = false
	}
	return status, nil
}

// isLockedErr matches the SQLITE_BUSY / SQLITE_LOCKED error text produced
// by the driver when another process holds the database.
func isLockedErr(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "sqlite_locked")
}
