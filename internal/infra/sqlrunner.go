package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLExecutor is what repositories need to run marked SQL.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// ErrSQLMarker is returned for statements without a valid "--sql <uuid>" first line.
var ErrSQLMarker = errors.New("sql marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// SQLRunner strips the audit marker from each statement and logs it with
// timing. *pgxpool.Pool satisfies the pool argument.
type SQLRunner struct {
	pool   SQLExecutor
	logger zerolog.Logger
	now    func() time.Time
}

func NewSQLRunner(pool SQLExecutor, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{pool: pool, logger: logger, now: time.Now}
}

func (r *SQLRunner) event(level zerolog.Level, marker, op string, start time.Time) *zerolog.Event {
	return r.logger.WithLevel(level).
		Str("sql", marker).
		Str("op", op).
		Dur("took", r.now().Sub(start))
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := r.now()
	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		r.event(zerolog.ErrorLevel, marker, "exec", start).Err(err).Msg("sql failed")
		return tag, err
	}
	r.event(zerolog.DebugLevel, marker, "exec", start).Int64("rows", tag.RowsAffected()).Msg("sql ok")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return loggingRow{
		row:    r.pool.QueryRow(ctx, stmt, args...),
		runner: r,
		marker: marker,
		start:  r.now(),
	}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	start := r.now()
	rows, err := r.pool.Query(ctx, stmt, args...)
	if err != nil {
		r.event(zerolog.ErrorLevel, marker, "query", start).Err(err).Msg("sql failed")
		return nil, err
	}
	return &loggingRows{Rows: rows, runner: r, marker: marker, start: start}, nil
}

// loggingRow logs once the row is scanned. An empty result is not an error.
type loggingRow struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	switch {
	case err == nil:
		l.runner.event(zerolog.DebugLevel, l.marker, "query_row", l.start).Msg("sql ok")
	case errors.Is(err, pgx.ErrNoRows):
		l.runner.event(zerolog.DebugLevel, l.marker, "query_row", l.start).Msg("sql no rows")
	default:
		l.runner.event(zerolog.ErrorLevel, l.marker, "query_row", l.start).Err(err).Msg("sql failed")
	}
	return err
}

type loggingRows struct {
	pgx.Rows
	runner *SQLRunner
	marker string
	start  time.Time
	closed bool
}

func (l *loggingRows) Close() {
	l.Rows.Close()
	if l.closed {
		return
	}
	l.closed = true
	if err := l.Rows.Err(); err != nil {
		l.runner.event(zerolog.ErrorLevel, l.marker, "query", l.start).Err(err).Msg("sql failed")
		return
	}
	l.runner.event(zerolog.DebugLevel, l.marker, "query", l.start).Msg("sql ok")
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(dest ...any) error {
	return e.err
}

// extractMarker splits the marker id from the statement body.
func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	first, rest, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return "", "", ErrSQLMarker
	}
	return strings.TrimPrefix(first, "--sql "), strings.TrimSpace(rest), nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
