package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/reconscan/internal/value"
)

// DefaultFileName is the database file created inside the database directory.
const DefaultFileName = "reconscan.db"

// ResultDB provides SQLite-based storage for runs and discovered values.
type ResultDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResultDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a ResultDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*ResultDB, error) {
	dbPath := filepath.Join(dbDir, DefaultFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResultDB{
		db:     db,
		dbPath: dbPath,
	}

	// Other processes may hold the write lock, e.g. a second run with --save.
	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ResultDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ResultDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResultDB) createTables() error {
	schema := `
	-- One row per run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started TEXT NOT NULL,
		finished TEXT,
		status TEXT NOT NULL,
		roots TEXT NOT NULL,
		workers TEXT NOT NULL,
		discovered INTEGER DEFAULT 0,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);

	-- Accepted values of a run, in acceptance order
	CREATE TABLE IF NOT EXISTS run_values (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		kind TEXT NOT NULL,
		value_key TEXT NOT NULL,
		record TEXT NOT NULL,
		depth INTEGER NOT NULL,
		origin TEXT,
		parent_key TEXT,
		UNIQUE(run_id, value_key)
	);

	CREATE INDEX IF NOT EXISTS idx_values_run ON run_values(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_values_kind ON run_values(kind);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunStatus is the state of a stored run.
type RunStatus string

// Run states. A run left in StatusRunning was interrupted before it could
// be finished.
const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusCancelled RunStatus = "cancelled"
)

// Run is a stored run.
type Run struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Status   RunStatus

	// Roots are the root values in their human readable form.
	Roots []string

	// Workers are the ids of the workers the run used.
	Workers []string

	// Discovered is the number of accepted values, roots included.
	Discovered int

	// Counts holds summary counters such as "completed", "failed" and
	// "duplicates".
	Counts map[string]int
}

// BeginRun stores a new run in the running state and returns it.
func (rdb *ResultDB) BeginRun(ctx context.Context, roots []value.Value, workers []string) (*Run, error) {
	run := &Run{
		ID:      uuid.NewString(),
		Started: time.Now().UTC(),
		Status:  StatusRunning,
		Roots:   make([]string, len(roots)),
		Workers: workers,
		Counts:  map[string]int{},
	}
	for i, r := range roots {
		run.Roots[i] = r.String()
	}

	rootsJSON, err := json.Marshal(run.Roots)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize roots: %w", err)
	}
	workersJSON, err := json.Marshal(run.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workers: %w", err)
	}

	query := `
	INSERT INTO runs (id, started, status, roots, workers)
	VALUES (?, ?, ?, ?, ?)
	`
	if _, err := rdb.db.ExecContext(ctx, query,
		run.ID, run.Started.Format(storedTimeLayout), string(run.Status),
		string(rootsJSON), string(workersJSON),
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}
	return run, nil
}

// StoredValue is a value of a stored run.
type StoredValue struct {
	Value  value.Value
	Depth  int
	Origin string
}

// SaveValue stores an accepted value of a run. seq orders the values of a
// run. A value already stored for the run is ignored.
func (rdb *ResultDB) SaveValue(ctx context.Context, runID string, seq int, v StoredValue, parent value.Value) error {
	if v.Value == nil {
		return errNilValue
	}
	record, err := value.Marshal(v.Value)
	if err != nil {
		return err
	}
	var parentKey sql.NullString
	if parent != nil {
		parentKey = sql.NullString{String: parent.Key(), Valid: true}
	}

	query := `
	INSERT INTO run_values (run_id, seq, kind, value_key, record, depth, origin, parent_key)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, value_key) DO NOTHING
	`
	if _, err := rdb.db.ExecContext(ctx, query,
		runID, seq, v.Value.Kind().String(), v.Value.Key(), string(record),
		v.Depth, v.Origin, parentKey,
	); err != nil {
		return fmt.Errorf("failed to insert value: %w", err)
	}
	return nil
}

// FinishRun records the end of a run.
func (rdb *ResultDB) FinishRun(ctx context.Context, runID string, status RunStatus, discovered int, counts map[string]int) error {
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("failed to serialize summary: %w", err)
	}

	query := `
	UPDATE runs SET finished = ?, status = ?, discovered = ?, summary = ?
	WHERE id = ?
	`
	res, err := rdb.db.ExecContext(ctx, query,
		time.Now().UTC().Format(storedTimeLayout), string(status), discovered, string(countsJSON), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (rdb *ResultDB) ListRuns(ctx context.Context) ([]Run, error) {
	query := `
	SELECT id, started, finished, status, roots, workers, discovered, summary
	FROM runs
	ORDER BY started DESC
	`
	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRun returns the run whose id is id or starts with id.
func (rdb *ResultDB) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}

	query := `
	SELECT id, started, finished, status, roots, workers, discovered, summary
	FROM runs
	WHERE id = ? OR id LIKE ? ESCAPE '\'
	LIMIT 2
	`
	rows, err := rdb.db.QueryContext(ctx, query, id, escapeLike(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRunID, id)
	}
}

// LoadValues returns the values of a run in acceptance order.
func (rdb *ResultDB) LoadValues(ctx context.Context, runID string) ([]StoredValue, error) {
	query := `
	SELECT record, depth, origin
	FROM run_values
	WHERE run_id = ?
	ORDER BY seq
	`
	rows, err := rdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load values: %w", err)
	}
	defer rows.Close()

	var values []StoredValue
	for rows.Next() {
		var (
			record string
			sv     StoredValue
			origin sql.NullString
		)
		if err := rows.Scan(&record, &sv.Depth, &origin); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		if sv.Value, err = value.Unmarshal([]byte(record)); err != nil {
			return nil, fmt.Errorf("failed to parse stored value: %w", err)
		}
		sv.Origin = origin.String
		values = append(values, sv)
	}
	return values, rows.Err()
}

// Diff is the difference between the values of two runs.
type Diff struct {
	// Added are values of the newer run missing from the older one.
	Added []value.Value

	// Removed are values of the older run missing from the newer one.
	Removed []value.Value

	// Unchanged counts values present in both runs.
	Unchanged int
}

// CompareRuns compares the values of two runs by strict identity.
func (rdb *ResultDB) CompareRuns(ctx context.Context, olderID, newerID string) (*Diff, error) {
	older, err := rdb.LoadValues(ctx, olderID)
	if err != nil {
		return nil, err
	}
	newer, err := rdb.LoadValues(ctx, newerID)
	if err != nil {
		return nil, err
	}

	oldKeys := make(map[string]bool, len(older))
	for _, sv := range older {
		oldKeys[sv.Value.Key()] = true
	}
	newKeys := make(map[string]bool, len(newer))

	diff := &Diff{}
	for _, sv := range newer {
		k := sv.Value.Key()
		newKeys[k] = true
		if oldKeys[k] {
			diff.Unchanged++
		} else {
			diff.Added = append(diff.Added, sv.Value)
		}
	}
	for _, sv := range older {
		if !newKeys[sv.Value.Key()] {
			diff.Removed = append(diff.Removed, sv.Value)
		}
	}
	return diff, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(rows rowScanner) (*Run, error) {
	var (
		run                 Run
		started, status     string
		finished, summary   sql.NullString
		rootsJSON, wrksJSON string
	)
	if err := rows.Scan(&run.ID, &started, &finished, &status, &rootsJSON, &wrksJSON, &run.Discovered, &summary); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	run.Started = parseTimestamp(started)
	if finished.Valid {
		run.Finished = parseTimestamp(finished.String)
	}
	run.Status = RunStatus(status)

	if err := json.Unmarshal([]byte(rootsJSON), &run.Roots); err != nil {
		return nil, fmt.Errorf("failed to parse roots: %w", err)
	}
	if err := json.Unmarshal([]byte(wrksJSON), &run.Workers); err != nil {
		return nil, fmt.Errorf("failed to parse workers: %w", err)
	}
	run.Counts = make(map[string]int)
	if summary.Valid && summary.String != "" {
		if err := json.Unmarshal([]byte(summary.String), &run.Counts); err != nil {
			return nil, fmt.Errorf("failed to parse summary: %w", err)
		}
	}
	return &run, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// storedTimeLayout has a fixed width so stored timestamps sort lexically.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
