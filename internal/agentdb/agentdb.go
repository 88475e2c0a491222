// Package agentdb reads health, transaction and shift state from a cash
// register's embedded database.
//
// The database belongs to a live agent process that may hold a write lock at
// any moment. The reader therefore opens it read-only, waits a bounded time
// for locks, retries the whole read on contention, and closes the file as
// soon as a batch of queries is done. It never writes and never returns an
// error: every failure degrades to the documented defaults.
package agentdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/regdesk/regctl/internal/logging"
	"github.com/regdesk/regctl/internal/util"
)

// DefaultFile is the database file name inside an instance directory.
const DefaultFile = "agent.db"

// Unknown is shown for fields that could not be read.
const Unknown = "Unknown"

// Health is the database self-consistency classification.
type Health string

const (
	HealthOK  Health = "OK"
	HealthBad Health = "BAD"
)

// TransStatus summarises every recorded transaction status.
type TransStatus string

const (
	// TransEmpty means no transaction has been recorded.
	TransEmpty TransStatus = "EMPTY"
	// TransDone means every transaction completed.
	TransDone TransStatus = "DONE"
	// TransPending means at least one transaction is still in flight.
	TransPending TransStatus = "PENDING"
	// TransError means a transaction failed or the table could not be read.
	TransError TransStatus = "ERROR"
)

// Shift statuses the reader itself produces. Any other value comes verbatim
// (uppercased) from the newest shift row.
const (
	ShiftOpened = "OPENED"
	ShiftClosed = "CLOSED"
)

// Record is the health snapshot of one instance database.
type Record struct {
	Health       Health      `json:"health"`
	TransStatus  TransStatus `json:"trans_status"`
	ShiftStatus  string      `json:"shift_status"`
	FiscalNumber string      `json:"fiscal_number"`
}

// DefaultRecord is what an unreadable database reports.
func DefaultRecord() Record {
	return Record{
		Health:       HealthBad,
		TransStatus:  TransError,
		ShiftStatus:  ShiftOpened,
		FiscalNumber: Unknown,
	}
}

// Queries against the agent schema.
const (
	integrityQuery   = "PRAGMA integrity_check"
	transStatusQuery = "SELECT DISTINCT status FROM transactions"
	lastShiftQuery   = "SELECT status FROM shifts ORDER BY id DESC LIMIT 1"
	fiscalQuery      = "SELECT fiscal_number FROM fiscal LIMIT 1"
)

// Options tunes the reader. Zero fields take the defaults shown.
type Options struct {
	// File is the database file name inside the instance directory (agent.db).
	File string
	// LockWait bounds how long one query waits for a lock (5s).
	LockWait time.Duration
	// Attempts is the number of full read attempts on lock contention (3).
	Attempts int
	// RetryDelay is the fixed pause between attempts (1s).
	RetryDelay time.Duration
	// ReleaseDelay is slept after closing so the OS releases file handles
	// before anyone retries (200ms).
	ReleaseDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.File == "" {
		o.File = DefaultFile
	}
	if o.LockWait <= 0 {
		o.LockWait = 5 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	} else if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
	if o.ReleaseDelay < 0 {
		o.ReleaseDelay = 0
	} else if o.ReleaseDelay == 0 {
		o.ReleaseDelay = 200 * time.Millisecond
	}
	return o
}

// Reader reads instance databases.
type Reader struct {
	opts  Options
	retry util.RetryConfig
	log   zerolog.Logger

	integrityQuery string
}

// NewReader returns a Reader using opts.
func NewReader(opts Options, log zerolog.Logger) *Reader {
	opts = opts.withDefaults()
	r := &Reader{
		opts:           opts,
		log:            logging.Component(log, "agentdb"),
		integrityQuery: integrityQuery,
	}
	r.retry = util.RetryConfig{
		MaxAttempts: opts.Attempts,
		Delay:       opts.RetryDelay,
		IsRetryable: IsLocked,
		OnRetry: func(attempt int, err error) {
			r.log.Debug().Int("attempt", attempt).Err(err).Msg("database locked, retrying")
		},
	}
	return r
}

// Path returns the database path for an instance directory.
func (r *Reader) Path(instanceDir string) string {
	return filepath.Join(instanceDir, r.opts.File)
}

// Read returns the health record for the instance in instanceDir.
func (r *Reader) Read(ctx context.Context, instanceDir string) Record {
	rec := DefaultRecord()
	dbPath := r.Path(instanceDir)
	log := r.log.With().Str("db", dbPath).Logger()

	if _, err := os.Stat(dbPath); err != nil {
		log.Debug().Err(err).Msg("database not present")
		return rec
	}

	st, err := util.Retry(ctx, r.retry, func() (state, error) {
		return r.readState(ctx, dbPath)
	})
	locked := IsLocked(err)
	switch {
	case err != nil:
		if locked {
			log.Warn().Err(err).Int("attempts", r.opts.Attempts).Msg("database stayed locked")
		} else {
			log.Debug().Err(err).Msg("reading database state")
		}
	case !st.intact:
		log.Warn().Strs("integrity", st.integrity).Msg("integrity check failed")
	default:
		rec.Health = HealthOK
		rec.TransStatus = st.trans
		rec.ShiftStatus = st.shift
	}

	// The fiscal number does not depend on the integrity check. It shares the
	// lock budget with the state read.
	if locked {
		return rec
	}
	fiscal, err := util.Retry(ctx, r.retry, func() (string, error) {
		return r.readFiscal(ctx, dbPath)
	})
	if err != nil {
		log.Debug().Err(err).Msg("reading fiscal number")
	} else if fiscal != "" {
		rec.FiscalNumber = fiscal
	}

	return rec
}

// state is the outcome of one read-and-integrity-check attempt.
type state struct {
	intact    bool
	integrity []string
	trans     TransStatus
	shift     string
}

func (r *Reader) readState(ctx context.Context, dbPath string) (state, error) {
	var st state

	db, closeDB, err := r.open(dbPath)
	if err != nil {
		return st, err
	}
	defer closeDB()

	st.integrity, err = queryStrings(ctx, db, r.integrityQuery)
	if err != nil {
		return st, fmt.Errorf("integrity check: %w", err)
	}
	st.intact = len(st.integrity) == 1 && st.integrity[0] == "ok"
	if !st.intact {
		return st, nil
	}

	statuses, err := queryStrings(ctx, db, transStatusQuery)
	if err != nil {
		return st, fmt.Errorf("reading transactions: %w", err)
	}
	st.trans = summarizeTransactions(statuses)

	var shift sql.NullString
	switch err := db.QueryRowContext(ctx, lastShiftQuery).Scan(&shift); {
	case errors.Is(err, sql.ErrNoRows):
		st.shift = ShiftClosed
	case err != nil:
		return st, fmt.Errorf("reading shifts: %w", err)
	case strings.TrimSpace(shift.String) == "":
		st.shift = ShiftOpened
	default:
		st.shift = strings.ToUpper(strings.TrimSpace(shift.String))
	}

	return st, nil
}

func (r *Reader) readFiscal(ctx context.Context, dbPath string) (string, error) {
	db, closeDB, err := r.open(dbPath)
	if err != nil {
		return "", err
	}
	defer closeDB()

	var fiscal sql.NullString
	err = db.QueryRowContext(ctx, fiscalQuery).Scan(&fiscal)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(fiscal.String), nil
}

// open returns a single-connection read-only handle and the function that
// closes it. The close function pauses afterwards so a retry does not race
// the OS releasing the file.
func (r *Reader) open(dbPath string) (*sql.DB, func(), error) {
	db, err := sql.Open("sqlite", readOnlyDSN(dbPath, r.opts.LockWait))
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	closeDB := func() {
		if err := db.Close(); err != nil {
			r.log.Debug().Err(err).Msg("closing database")
		}
		if r.opts.ReleaseDelay > 0 {
			time.Sleep(r.opts.ReleaseDelay)
		}
	}
	return db, closeDB, nil
}

// readOnlyDSN builds a URI that forbids writes and bounds lock waits.
func readOnlyDSN(dbPath string, lockWait time.Duration) string {
	p := filepath.ToSlash(dbPath)
	if filepath.VolumeName(dbPath) != "" {
		p = "/" + p
	}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", lockWait.Milliseconds()))
	q.Add("_pragma", "query_only(1)")
	u := url.URL{Scheme: "file", Path: p, RawQuery: q.Encode()}
	return u.String()
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v.String)
	}
	return out, rows.Err()
}

// summarizeTransactions folds the distinct transaction statuses into one:
// ERROR beats PENDING beats DONE; no statuses at all is EMPTY.
func summarizeTransactions(statuses []string) TransStatus {
	if len(statuses) == 0 {
		return TransEmpty
	}
	var pending bool
	for _, s := range statuses {
		switch TransStatus(strings.ToUpper(strings.TrimSpace(s))) {
		case TransError:
			return TransError
		case TransPending:
			pending = true
		}
	}
	if pending {
		return TransPending
	}
	return TransDone
}

// IsLocked reports whether err is SQLite lock contention.
func IsLocked(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return util.IsLockContention(err)
}
