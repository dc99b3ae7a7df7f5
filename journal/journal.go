// Package journal keeps a bounded, in-memory record of recent script
// executions for diagnosis.
//
// Entries live in an in-memory SQLite database private to the Journal.
// Nothing is written to disk and nothing survives process exit.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DefaultCapacity is the number of entries kept when Config.Capacity is
// zero.
const DefaultCapacity = 500

// ErrClosed is returned after Close.
var ErrClosed = errors.New("journal: closed")

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Entry is one recorded execution.
type Entry struct {
	ID          string
	Template    string
	Target      string
	Mutating    bool
	Started     time.Time
	Duration    time.Duration
	ExitCode    int
	Kind        string
	Code        string
	Message     string
	ScriptBytes int

	// Script is the rendered script. Only failures keep it.
	Script string
}

// Failed reports whether the entry records anything but success.
func (e Entry) Failed() bool { return e.Kind != "" && e.Kind != "success" }

// Filter narrows Recent.
type Filter struct {
	Template     string
	Kind         string
	FailuresOnly bool
	Since        time.Time

	// Limit caps the result. Zero returns up to 50 entries.
	Limit int
}

// TemplateSummary aggregates the entries of one template.
type TemplateSummary struct {
	Template    string
	Count       int
	Failures    int
	AvgDuration time.Duration
	MaxDuration time.Duration
}

// Summary aggregates every retained entry.
type Summary struct {
	Total      int
	ByKind     map[string]int
	ByTemplate []TemplateSummary
}

// Config configures a Journal.
type Config struct {
	// Capacity bounds retained entries; the oldest are dropped first.
	Capacity int
}

// Journal is safe for concurrent use.
type Journal struct {
	db       *sql.DB
	capacity int
}

// New opens an empty journal.
func New(cfg Config) (*Journal, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}

	dsn := fmt.Sprintf("file:journal-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}
	// The database lives only as long as a connection holds it.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	j := &Journal{db: db, capacity: cfg.Capacity}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS executions (
			seq          INTEGER PRIMARY KEY AUTOINCREMENT,
			id           TEXT NOT NULL,
			template     TEXT NOT NULL,
			target       TEXT NOT NULL,
			mutating     INTEGER NOT NULL DEFAULT 0,
			started_ns   INTEGER NOT NULL,
			duration_ns  INTEGER NOT NULL,
			exit_code    INTEGER NOT NULL,
			kind         TEXT NOT NULL,
			code         TEXT NOT NULL DEFAULT '',
			message      TEXT NOT NULL DEFAULT '',
			script_bytes INTEGER NOT NULL DEFAULT 0,
			script       TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_executions_template ON executions(template);
		CREATE INDEX IF NOT EXISTS idx_executions_kind ON executions(kind);
	`)
	return err
}

// Close releases the database. The journal's contents are gone after it.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores e and drops entries beyond capacity. A missing ID is
// generated; scripts of successful executions are not kept.
func (j *Journal) Record(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if !e.Failed() {
		e.Script = ""
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", wrapErr("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO executions (id, template, target, mutating, started_ns, duration_ns,
			exit_code, kind, code, message, script_bytes, script)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Template, e.Target, boolInt(e.Mutating), e.Started.UnixNano(), int64(e.Duration),
		e.ExitCode, e.Kind, e.Code, e.Message, e.ScriptBytes, e.Script,
	)
	if err != nil {
		return "", wrapErr("insert", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return "", wrapErr("insert", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM executions WHERE seq <= ?`, seq-int64(j.capacity)); err != nil {
		return "", wrapErr("trim", err)
	}
	if err := tx.Commit(); err != nil {
		return "", wrapErr("commit", err)
	}
	return e.ID, nil
}

// Recent returns matching entries, newest first.
func (j *Journal) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		where []string
		args  []any
	)
	if f.Template != "" {
		where = append(where, "template = ?")
		args = append(args, f.Template)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.FailuresOnly {
		where = append(where, "kind != 'success'")
	}
	if !f.Since.IsZero() {
		where = append(where, "started_ns >= ?")
		args = append(args, f.Since.UnixNano())
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, template, target, mutating, started_ns, duration_ns, exit_code,
		kind, code, message, script_bytes, script FROM executions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("query", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                   Entry
			mutating            int
			startedNs, duration int64
		)
		if err := rows.Scan(&e.ID, &e.Template, &e.Target, &mutating, &startedNs, &duration,
			&e.ExitCode, &e.Kind, &e.Code, &e.Message, &e.ScriptBytes, &e.Script); err != nil {
			return nil, wrapErr("scan", err)
		}
		e.Mutating = mutating != 0
		e.Started = time.Unix(0, startedNs)
		e.Duration = time.Duration(duration)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("query", err)
	}
	return out, nil
}

// Summary aggregates the retained entries.
func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	s := Summary{ByKind: make(map[string]int)}

	rows, err := j.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM executions GROUP BY kind`)
	if err != nil {
		return s, wrapErr("summary", err)
	}
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			_ = rows.Close()
			return s, wrapErr("summary", err)
		}
		s.ByKind[kind] = n
		s.Total += n
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return s, wrapErr("summary", err)
	}

	rows, err = j.db.QueryContext(ctx, `
		SELECT template, COUNT(*),
			SUM(CASE WHEN kind != 'success' THEN 1 ELSE 0 END),
			CAST(AVG(duration_ns) AS INTEGER), MAX(duration_ns)
		FROM executions GROUP BY template ORDER BY COUNT(*) DESC, template`)
	if err != nil {
		return s, wrapErr("summary", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			ts       TemplateSummary
			avg, top int64
		)
		if err := rows.Scan(&ts.Template, &ts.Count, &ts.Failures, &avg, &top); err != nil {
			return s, wrapErr("summary", err)
		}
		ts.AvgDuration = time.Duration(avg)
		ts.MaxDuration = time.Duration(top)
		s.ByTemplate = append(s.ByTemplate, ts)
	}
	return s, wrapErr("summary", rows.Err())
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	return fmt.Errorf("journal: %s: %w", op, err)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
