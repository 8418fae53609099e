package sqlstore

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/postflow/internal/errors"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// sqliteDefaults are added to SQLite DSNs that do not set them. Immediate
// transactions take the write lock at BEGIN so concurrent commands
// serialize instead of failing on lock upgrade.
var sqliteDefaults = map[string]string{
	"_busy_timeout": "5000",
	"_journal_mode": "WAL",
	"_txlock":       "immediate",
	"_foreign_keys": "1",
}

// SQLiteDSN returns a DSN for the database file at path with the options
// the store relies on.
func SQLiteDSN(path string) string {
	return withSQLiteDefaults(path)
}

func withSQLiteDefaults(dsn string) string {
	base, rawQuery, _ := strings.Cut(dsn, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		q = url.Values{}
	}
	for k, v := range sqliteDefaults {
		if q.Get(k) == "" {
			q.Set(k, v)
		}
	}
	return base + "?" + q.Encode()
}

type dialect struct {
	driver    string
	timestamp string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite:
		return dialect{driver: driver, timestamp: "TIMESTAMP"}, nil
	case DriverPostgres:
		return dialect{driver: driver, timestamp: "TIMESTAMPTZ"}, nil
	default:
		return dialect{}, errors.NewValidationError("unsupported database driver").WithField("driver").WithValue(driver)
	}
}

// rebind rewrites ? placeholders to $n for PostgreSQL. Queries in this
// package never contain a literal question mark.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (d dialect) txOptions() *sql.TxOptions {
	if d.driver == DriverPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// mapError converts driver errors that signal a concurrent writer into a
// retryable ConflictError and wraps everything else with op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return errors.NewConflictError(op, err)
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return errors.NewConflictError(op, err)
		}
	}
	var pfErr errors.PostflowError
	if errors.As(err, &pfErr) {
		return err
	}
	return errors.Wrap(err, op)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds a queryer to a dialect.
type conn struct {
	q queryer
	d dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

// dbTime normalizes t for storage. Stored times are UTC with microsecond
// precision so values round-trip identically on both drivers.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: dbTime(*t), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
