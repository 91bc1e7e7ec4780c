package memory

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nao1215/aiscout/internal/model"
)

// FileName is the collective memory file name inside the data directory.
const FileName = "collective_memory.json"

// schemaVersion identifies the persisted document layout.
const schemaVersion = "1.0"

// Tunables for the knowledge policies. Callers override them through
// Options; the defaults match long-running fleet operation.
const (
	// DefaultMergeWeight is the weight given to an incoming observation
	// when merging quality metrics into an existing record.
	DefaultMergeWeight = 0.3

	// DefaultRecentCap bounds the recent-discoveries ring.
	DefaultRecentCap = 50

	// DefaultRecencyWindow is both the staleness horizon for seed
	// re-verification and the reporting window for limitations.
	DefaultRecencyWindow = 24 * time.Hour

	// DefaultMinVerifiers is how many distinct workers must confirm a
	// seed target before it stops being prioritized.
	DefaultMinVerifiers = 3

	// snapshotDiscoveries is how many ring entries a snapshot exposes.
	snapshotDiscoveries = 10
)

// Options configures Store behavior.
type Options struct {
	// MergeWeight is the incoming-observation weight for metric merges.
	MergeWeight float64

	// RecentCap bounds the recent-discoveries ring.
	RecentCap int

	// RecencyWindow is the staleness and limitation-reporting horizon.
	RecencyWindow time.Duration

	// MinVerifiers is the verifier quorum for seed targets.
	MinVerifiers int

	// Logger receives store diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		MergeWeight:   DefaultMergeWeight,
		RecentCap:     DefaultRecentCap,
		RecencyWindow: DefaultRecencyWindow,
		MinVerifiers:  DefaultMinVerifiers,
	}
}

// metadata describes the persisted document itself.
type metadata struct {
	// Version is the document schema version.
	Version string `json:"version"`

	// CreatedAt is when the store file was first created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time of the last successful mutation.
	UpdatedAt time.Time `json:"updated_at"`

	// UpdateCount counts successful mutations since creation.
	UpdateCount int `json:"update_count"`
}

// document is the full persisted collective memory.
type document struct {
	Metadata          metadata                            `json:"metadata"`
	Targets           map[string]*model.TargetRecord      `json:"targets"`
	Limitations       map[string][]model.LimitationRecord `json:"limitations"`
	StrategyScores    map[string]float64                  `json:"strategy_scores"`
	WorkerStatus      map[string]*model.WorkerStatus      `json:"worker_status"`
	RecentDiscoveries []model.DiscoveryEvent              `json:"recent_discoveries"`
	SeedTargets       []string                            `json:"seed_targets"`
}

// Store is the shared knowledge store. One instance serves the whole fleet.
//
// Design decision: The document is held in memory and flushed to disk after
// every mutation instead of being re-read per operation. The store is the
// single writer of its file, so the cached copy is authoritative, and
// workers get microsecond reads instead of disk round-trips on every cycle.
type Store struct {
	// mu guards doc and the file behind it.
	mu sync.Mutex

	// path is the collective memory file location.
	path string

	// doc is the in-memory authoritative document.
	doc *document

	// opts holds the policy tunables.
	opts Options

	// logger receives diagnostics, never probe payloads.
	logger *slog.Logger

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// Open loads or creates the collective memory at dir/collective_memory.json.
// The seed list is stored in the document so that the prioritization policy
// and the status command see the same seeds the fleet was started with.
//
// A corrupt or unreadable existing file is logged and replaced by a fresh
// document on the next successful write; Open itself never fails on bad
// content, only on an unusable directory.
func Open(dir string, seeds []string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if opts.MergeWeight <= 0 || opts.MergeWeight >= 1 {
		opts.MergeWeight = DefaultMergeWeight
	}
	if opts.RecentCap <= 0 {
		opts.RecentCap = DefaultRecentCap
	}
	if opts.RecencyWindow <= 0 {
		opts.RecencyWindow = DefaultRecencyWindow
	}
	if opts.MinVerifiers <= 0 {
		opts.MinVerifiers = DefaultMinVerifiers
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		path:   filepath.Join(dir, FileName),
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
	}
	s.doc = s.load(seeds)
	return s, nil
}

// Path returns the collective memory file location.
func (s *Store) Path() string {
	return s.path
}

// load reads the document from disk, falling back to a fresh document when
// the file is missing or corrupt. The fleet must keep operating after state
// loss, so bad content is a log line, not an error.
func (s *Store) load(seeds []string) *document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("collective memory unreadable, starting fresh",
				"path", s.path, "error", err)
		}
		return s.freshDocument(seeds)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("collective memory corrupt, starting fresh",
			"path", s.path, "error", err)
		return s.freshDocument(seeds)
	}

	// Maps may be absent in hand-edited or truncated files.
	if doc.Targets == nil {
		doc.Targets = make(map[string]*model.TargetRecord)
	}
	if doc.Limitations == nil {
		doc.Limitations = make(map[string][]model.LimitationRecord)
	}
	if doc.StrategyScores == nil {
		doc.StrategyScores = make(map[string]float64)
	}
	if doc.WorkerStatus == nil {
		doc.WorkerStatus = make(map[string]*model.WorkerStatus)
	}
	if len(seeds) > 0 {
		doc.SeedTargets = append([]string(nil), seeds...)
	}
	return &doc
}

// freshDocument builds an empty document seeded with the configured targets
// and the default limitation vocabulary.
func (s *Store) freshDocument(seeds []string) *document {
	now := s.now()
	doc := &document{
		Metadata: metadata{
			Version:   schemaVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Targets:        make(map[string]*model.TargetRecord),
		Limitations:    make(map[string][]model.LimitationRecord),
		StrategyScores: make(map[string]float64),
		WorkerStatus:   make(map[string]*model.WorkerStatus),
		SeedTargets:    append([]string(nil), seeds...),
	}
	for _, category := range model.DefaultLimitationCategories() {
		doc.Limitations[category] = []model.LimitationRecord{}
	}
	return doc
}

// persist writes the document to disk atomically. It returns false on
// failure after logging; the in-memory document stays mutated, so the next
// successful persist carries the change.
func (s *Store) persist() bool {
	s.doc.Metadata.UpdatedAt = s.now()
	s.doc.Metadata.UpdateCount++

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode collective memory", "error", err)
		return false
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		s.logger.Error("failed to write collective memory", "path", tmp, "error", err)
		return false
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("failed to replace collective memory", "path", s.path, "error", err)
		return false
	}
	return true
}

// Targets returns a copy of every target record ordered by discovery time.
// Reports iterate this instead of the internal map so rendering is
// deterministic.
func (s *Store) Targets() []model.TargetRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]model.TargetRecord, 0, len(s.doc.Targets))
	for _, rec := range s.doc.Targets {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].FirstDiscovered.Equal(records[j].FirstDiscovered) {
			return records[i].URL < records[j].URL
		}
		return records[i].FirstDiscovered.Before(records[j].FirstDiscovered)
	})
	return records
}

// WorkerStatuses returns a copy of the per-worker status map.
func (s *Store) WorkerStatuses() map[string]model.WorkerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make(map[string]model.WorkerStatus, len(s.doc.WorkerStatus))
	for id, st := range s.doc.WorkerStatus {
		statuses[id] = *st
	}
	return statuses
}

// Limitations returns a copy of all limitation records keyed by category.
func (s *Store) Limitations() map[string][]model.LimitationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]model.LimitationRecord, len(s.doc.Limitations))
	for category, records := range s.doc.Limitations {
		out[category] = append([]model.LimitationRecord(nil), records...)
	}
	return out
}

// StrategyScores returns a copy of the strategy effectiveness map.
func (s *Store) StrategyScores() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := make(map[string]float64, len(s.doc.StrategyScores))
	for name, score := range s.doc.StrategyScores {
		scores[name] = score
	}
	return scores
}
