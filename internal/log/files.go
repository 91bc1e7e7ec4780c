package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// logFilePerm is the permission for worker log files.
const logFilePerm = 0o600

// WorkerLogFile opens (creating if necessary) the log file for a worker in
// dir. Files are date-stamped so a long-lived operation produces one file
// per worker per day, which keeps retention pruning simple.
//
// The returned file is opened in append mode; the caller owns closing it.
func WorkerLogFile(dir, workerID string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.log", sanitizeFileName(workerID), now.Format("20060102"))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm) //nolint:gosec // Path is built from a sanitized worker ID
	if err != nil {
		return nil, fmt.Errorf("failed to open worker log file: %w", err)
	}
	return f, nil
}

// PruneOldLogs removes .log files in dir whose modification time is older
// than retention. It returns the number of files removed. Missing
// directories are not an error; there is simply nothing to prune.
func PruneOldLogs(dir string, retention time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := now.Add(-retention)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove expired log file: %w", err)
		}
		removed++
	}
	return removed, nil
}

// sanitizeFileName replaces path separators and other unsafe characters in
// a worker ID so it can be embedded in a file name.
func sanitizeFileName(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	return replacer.Replace(s)
}
