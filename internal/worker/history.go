package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// historyDirName is the subdirectory of the data directory that holds
// per-worker history files.
const historyDirName = "workers"

// privateHistory is the worker's own exploration journal, kept separate
// from the collective memory. It records what this identity has done, not
// what the fleet knows.
//
// Only the owning worker goroutine touches it, so no locking is needed.
type privateHistory struct {
	// path is the backing file, empty when no data directory is set.
	path string

	doc historyDocument
}

// historyDocument is the persisted shape of a worker's private history.
type historyDocument struct {
	// WorkerID is the owning identity.
	WorkerID string `json:"worker_id"`

	// Created is when the history file was first written.
	Created time.Time `json:"created"`

	// Updated is the last flush time.
	Updated time.Time `json:"updated"`

	// Cycles is the number of completed exploration cycles.
	Cycles int `json:"cycles"`

	// ProbesAttempted counts every probe this worker issued.
	ProbesAttempted int `json:"probes_attempted"`

	// ProbesSucceeded counts probes that detected a chat interface.
	ProbesSucceeded int `json:"probes_succeeded"`

	// UniqueDiscoveries lists targets this worker was first to record.
	UniqueDiscoveries []string `json:"unique_discoveries"`

	// Explored maps target URLs to how often this worker probed them.
	Explored map[string]int `json:"explored"`
}

// loadPrivateHistory reads the worker's history file or starts a fresh one.
// Loading never fails: a missing or corrupt file yields an empty history,
// matching the fail-open posture of the collective memory.
func loadPrivateHistory(dataDir, workerID string) *privateHistory {
	h := &privateHistory{
		doc: historyDocument{
			WorkerID: workerID,
			Created:  time.Now(),
			Explored: make(map[string]int),
		},
	}
	if dataDir == "" {
		return h
	}
	h.path = filepath.Join(dataDir, historyDirName, workerID+".json")

	data, err := os.ReadFile(h.path)
	if err != nil {
		return h
	}
	var doc historyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return h
	}
	if doc.Explored == nil {
		doc.Explored = make(map[string]int)
	}
	doc.WorkerID = workerID
	h.doc = doc
	return h
}

// recordProbe notes one probe attempt against a target.
func (h *privateHistory) recordProbe(url string, success bool) {
	h.doc.ProbesAttempted++
	if success {
		h.doc.ProbesSucceeded++
	}
	h.doc.Explored[url]++
}

// recordDiscovery notes that this worker was first to record the target.
func (h *privateHistory) recordDiscovery(url string) {
	for _, known := range h.doc.UniqueDiscoveries {
		if known == url {
			return
		}
	}
	h.doc.UniqueDiscoveries = append(h.doc.UniqueDiscoveries, url)
}

// recordCycle notes one completed exploration cycle.
func (h *privateHistory) recordCycle() {
	h.doc.Cycles++
}

// flush writes the history to disk via a temp file and atomic rename, the
// same pattern the collective memory uses. A no-op when no path is set.
func (h *privateHistory) flush() error {
	if h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o750); err != nil {
		return err
	}

	h.doc.Updated = time.Now()
	data, err := json.MarshalIndent(&h.doc, "", "  ")
	if err != nil {
		return err
	}

	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, h.path)
}

// flushHistory persists the private history, logging instead of failing.
// History is an observability artifact; losing a flush must never stop
// exploration.
func (w *Worker) flushHistory() {
	if err := w.hist.flush(); err != nil {
		w.logger.Warn("failed to flush private history", "error", err)
	}
}
