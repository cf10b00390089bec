package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const dateColumnLayout = "2006-01-02"

const schema = `
	CREATE TABLE IF NOT EXISTS series (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		kind             TEXT NOT NULL,
		sample           INTEGER NOT NULL,
		start_date       TEXT NOT NULL,
		end_date         TEXT NOT NULL,
		max_items        INTEGER NOT NULL,
		interval_minutes INTEGER NOT NULL,
		path             TEXT NOT NULL,
		archived         INTEGER NOT NULL DEFAULT 0,
		updated_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_series_key ON series(max_items, interval_minutes, archived);

	CREATE TABLE IF NOT EXISTS runs (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		mode             TEXT NOT NULL,
		rule             TEXT NOT NULL,
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		max_items        INTEGER NOT NULL,
		interval_minutes INTEGER NOT NULL,
		request_count    INTEGER NOT NULL,
		intervals        INTEGER NOT NULL,
		outcome          TEXT NOT NULL,
		error            TEXT NOT NULL DEFAULT '',
		started_at       TEXT NOT NULL,
		finished_at      TEXT NOT NULL
	);
`

// entry is one row of the series table
type entry struct {
	rowID    int64
	id       Identity
	path     string
	archived bool
}

// RunRecord is the provenance of one collection run
type RunRecord struct {
	ID              int64     `json:"id"`
	Mode            string    `json:"mode"`
	Rule            string    `json:"rule"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	MaxItems        int       `json:"max_items"`
	IntervalMinutes int       `json:"interval_minutes"`
	RequestCount    int       `json:"request_count"`
	Intervals       int       `json:"intervals"`
	Outcome         string    `json:"outcome"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

func openIndex(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return db, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func countSeries(q queryer) (int, error) {
	rows, err := q.Query("SELECT COUNT(*) FROM series")
	if err != nil {
		return 0, fmt.Errorf("counting series: %w", err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scanning count: %w", err)
		}
	}
	return n, rows.Err()
}

func insertEntry(q queryer, id Identity, path string, archived bool, now time.Time) error {
	_, err := q.Exec(`
		INSERT INTO series (kind, sample, start_date, end_date, max_items, interval_minutes, path, archived, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, string(id.Kind), boolInt(id.Sample), id.StartDate.Format(dateColumnLayout), id.EndDate.Format(dateColumnLayout),
		id.MaxItems, id.IntervalMinutes, path, boolInt(archived), now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting series %s: %w", id, err)
	}
	return nil
}

// findActive returns active entries for (max, interval), optionally narrowed by
// kind and sample when kind is non-empty.
func findActive(q queryer, kind Kind, sample bool, maxItems, interval int) ([]entry, error) {
	query := `
		SELECT id, kind, sample, start_date, end_date, max_items, interval_minutes, path, archived
		FROM series
		WHERE archived = 0 AND max_items = ? AND interval_minutes = ?`
	args := []interface{}{maxItems, interval}
	if kind != "" {
		query += " AND kind = ? AND sample = ?"
		args = append(args, string(kind), boolInt(sample))
	}
	query += " ORDER BY id"

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var (
			e          entry
			kindStr    string
			sampleInt  int
			startStr   string
			endStr     string
			archivedIn int
		)
		if err := rows.Scan(&e.rowID, &kindStr, &sampleInt, &startStr, &endStr,
			&e.id.MaxItems, &e.id.IntervalMinutes, &e.path, &archivedIn); err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		e.id.Kind = Kind(kindStr)
		e.id.Sample = sampleInt != 0
		e.archived = archivedIn != 0
		if e.id.StartDate, err = time.Parse(dateColumnLayout, startStr); err != nil {
			return nil, fmt.Errorf("parsing start date %q: %w", startStr, err)
		}
		if e.id.EndDate, err = time.Parse(dateColumnLayout, endStr); err != nil {
			return nil, fmt.Errorf("parsing end date %q: %w", endStr, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func updateEntryEnd(q queryer, rowID int64, id Identity, path string, now time.Time) error {
	_, err := q.Exec(`UPDATE series SET end_date = ?, path = ?, updated_at = ? WHERE id = ?`,
		id.EndDate.Format(dateColumnLayout), path, now.UTC().Format(time.RFC3339), rowID)
	if err != nil {
		return fmt.Errorf("updating series %d: %w", rowID, err)
	}
	return nil
}

func markArchived(q queryer, rowID int64, path string, now time.Time) error {
	// An older archive with the same name is replaced on disk, so drop its row too.
	if _, err := q.Exec(`DELETE FROM series WHERE archived = 1 AND path = ?`, path); err != nil {
		return fmt.Errorf("removing stale archive entry: %w", err)
	}
	_, err := q.Exec(`UPDATE series SET archived = 1, path = ?, updated_at = ? WHERE id = ?`,
		path, now.UTC().Format(time.RFC3339), rowID)
	if err != nil {
		return fmt.Errorf("archiving series %d: %w", rowID, err)
	}
	return nil
}

func insertRun(q queryer, r RunRecord) (int64, error) {
	res, err := q.Exec(`
		INSERT INTO runs (mode, rule, start_time, end_time, max_items, interval_minutes,
			request_count, intervals, outcome, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Mode, r.Rule, formatTime(r.Start), formatTime(r.End), r.MaxItems, r.IntervalMinutes,
		r.RequestCount, r.Intervals, r.Outcome, r.Error, formatTime(r.StartedAt), formatTime(r.FinishedAt))
	if err != nil {
		return 0, fmt.Errorf("recording run: %w", err)
	}
	return res.LastInsertId()
}

func listRuns(q queryer, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(fmt.Sprintf(`
		SELECT id, mode, rule, start_time, end_time, max_items, interval_minutes,
			request_count, intervals, outcome, error, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT %d`, limit))
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			r                                 RunRecord
			start, end, startedAt, finishedAt string
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.Rule, &start, &end, &r.MaxItems, &r.IntervalMinutes,
			&r.RequestCount, &r.Intervals, &r.Outcome, &r.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Start = parseTime(start)
		r.End = parseTime(end)
		r.StartedAt = parseTime(startedAt)
		r.FinishedAt = parseTime(finishedAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
