package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/aiscout/internal/model"
)

// FileName is the archive database file name inside the data directory.
const FileName = "aiscout_history.db"

// Archive provides SQLite-based storage for raw probe observations and
// worker cycle summaries.
//
// Design decision: We use a single database file for the whole fleet rather
// than one per worker. Cross-worker queries (who probed what, fleet-wide
// totals) are what reports need, and a single writer connection serializes
// worker inserts without extra coordination.
type Archive struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Archive behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default archive options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history archive in the given directory.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned; the status command uses this to distinguish "no history yet"
// from an empty archive.
func Open(dir string, opts Options) (*Archive, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history archive not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check archive path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history archive: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY under concurrent worker inserts.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	a := &Archive{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := a.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return a, nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// createTables creates the archive schema if it doesn't exist.
func (a *Archive) createTables() error {
	schema := `
	-- Probes store individual probe observations before merging
	CREATE TABLE IF NOT EXISTS probes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		worker_id TEXT NOT NULL,
		url TEXT NOT NULL,
		classification TEXT,
		detected_model TEXT,
		response_quality REAL,
		restriction_level REAL,
		latency_score REAL,
		accessibility_score REAL,
		availability REAL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_probes_worker ON probes(worker_id);
	CREATE INDEX IF NOT EXISTS idx_probes_url ON probes(url);
	CREATE INDEX IF NOT EXISTS idx_probes_timestamp ON probes(timestamp);

	-- Cycle summaries store one row per completed worker cycle
	CREATE TABLE IF NOT EXISTS cycles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		worker_id TEXT NOT NULL,
		cycle INTEGER NOT NULL,
		targets_probed INTEGER DEFAULT 0,
		discoveries INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_cycles_worker ON cycles(worker_id);
	CREATE INDEX IF NOT EXISTS idx_cycles_timestamp ON cycles(timestamp);
	`

	_, err := a.db.ExecContext(context.Background(), schema)
	return err
}

// ProbeEntry represents one archived probe observation.
type ProbeEntry struct {
	ID             int64
	WorkerID       string
	URL            string
	Classification string
	DetectedModel  string
	Metrics        model.QualityMetrics
	Availability   float64
	Timestamp      time.Time
}

// CycleSummary represents one completed worker cycle.
type CycleSummary struct {
	WorkerID      string
	Cycle         int
	TargetsProbed int
	Discoveries   int
	Failures      int
}

// InsertProbe archives one probe observation for a worker.
func (a *Archive) InsertProbe(ctx context.Context, workerID string, res *model.ProbeResult) (int64, error) {
	query := `
	INSERT INTO probes (worker_id, url, classification, detected_model,
		response_quality, restriction_level, latency_score, accessibility_score,
		availability)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := a.db.ExecContext(ctx, query,
		workerID,
		res.URL,
		res.Classification,
		res.DetectedModel,
		res.Metrics.ResponseQuality,
		res.Metrics.RestrictionLevel,
		res.Metrics.LatencyScore,
		res.Metrics.AccessibilityScore,
		res.Availability,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert probe: %w", err)
	}

	return result.LastInsertId()
}

// InsertCycleSummary archives one completed worker cycle.
func (a *Archive) InsertCycleSummary(ctx context.Context, sum *CycleSummary) error {
	query := `
	INSERT INTO cycles (worker_id, cycle, targets_probed, discoveries, failures)
	VALUES (?, ?, ?, ?, ?)
	`

	_, err := a.db.ExecContext(ctx, query,
		sum.WorkerID,
		sum.Cycle,
		sum.TargetsProbed,
		sum.Discoveries,
		sum.Failures,
	)
	if err != nil {
		return fmt.Errorf("failed to insert cycle summary: %w", err)
	}

	return nil
}

// ProbeCount returns the total number of archived probes.
func (a *Archive) ProbeCount(ctx context.Context) (int64, error) {
	var count int64
	if err := a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM probes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count probes: %w", err)
	}
	return count, nil
}

// ProbeCountByWorker returns archived probe counts keyed by worker identity.
func (a *Archive) ProbeCountByWorker(ctx context.Context) (map[string]int64, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT worker_id, COUNT(*) FROM probes GROUP BY worker_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count probes by worker: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int64)
	for rows.Next() {
		var workerID string
		var count int64
		if err := rows.Scan(&workerID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan probe count: %w", err)
		}
		counts[workerID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate probe counts: %w", err)
	}

	return counts, nil
}

// RecentProbes returns the newest archived probes for a worker, most recent
// first. An empty workerID returns probes from the whole fleet.
func (a *Archive) RecentProbes(ctx context.Context, workerID string, limit int) ([]ProbeEntry, error) {
	query := `
	SELECT id, worker_id, url, classification, detected_model,
		response_quality, restriction_level, latency_score, accessibility_score,
		availability, timestamp
	FROM probes
	`
	args := make([]any, 0, 2)
	if workerID != "" {
		query += " WHERE worker_id = ?"
		args = append(args, workerID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent probes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]ProbeEntry, 0, limit)
	for rows.Next() {
		var entry ProbeEntry
		var timestamp string
		if err := rows.Scan(
			&entry.ID,
			&entry.WorkerID,
			&entry.URL,
			&entry.Classification,
			&entry.DetectedModel,
			&entry.Metrics.ResponseQuality,
			&entry.Metrics.RestrictionLevel,
			&entry.Metrics.LatencyScore,
			&entry.Metrics.AccessibilityScore,
			&entry.Availability,
			&timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan probe entry: %w", err)
		}
		entry.Timestamp = parseTimestamp(timestamp)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate probe entries: %w", err)
	}

	return entries, nil
}

// Compact removes the oldest probes so that at most keep rows remain, then
// reclaims file space. The maintenance loop calls this once the archive
// grows past the configured threshold. It returns how many rows were
// removed.
func (a *Archive) Compact(ctx context.Context, keep int64) (int64, error) {
	query := `
	DELETE FROM probes
	WHERE id NOT IN (SELECT id FROM probes ORDER BY id DESC LIMIT ?)
	`

	result, err := a.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to compact probes: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read compaction result: %w", err)
	}

	if removed > 0 {
		// VACUUM cannot run inside a transaction; Exec runs it standalone.
		if _, err := a.db.ExecContext(ctx, "VACUUM"); err != nil {
			return removed, fmt.Errorf("failed to vacuum archive: %w", err)
		}
	}

	return removed, nil
}

// timestampFormats are the formats SQLite may hand back depending on how a
// timestamp column was populated.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats, returning zero time when none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
