package model

import (
	"errors"
	"time"
)

// Metric bounds for the four quality metrics.
// Scores are continuous values on a 0-10 scale; probers that score on a
// 1-10 integer scale fit inside the same bounds.
const (
	// MetricMin is the lowest permitted quality metric value.
	MetricMin = 0.0

	// MetricMax is the highest permitted quality metric value.
	MetricMax = 10.0

	// LowQualityThreshold marks targets whose response quality is poor
	// enough that they qualify for re-verification regardless of how
	// recently they were probed.
	LowQualityThreshold = 5.0
)

// ErrInvalidMetrics is returned when a quality metric falls outside [0, 10].
var ErrInvalidMetrics = errors.New("quality metric outside valid range [0, 10]")

// ErrMissingURL is returned when a record has no identifier.
var ErrMissingURL = errors.New("target record has no URL")

// QualityMetrics groups the four quality scores tracked per target.
//
// Design decision: We keep the metrics in a dedicated struct rather than
// as loose fields on TargetRecord because the merge rule applies to exactly
// these four values and nothing else. Grouping them makes the merge a single
// well-tested operation instead of four copy-pasted lines.
type QualityMetrics struct {
	// ResponseQuality scores how useful the endpoint's responses are (0-10).
	ResponseQuality float64 `json:"response_quality"`

	// RestrictionLevel scores how heavily the endpoint filters or refuses
	// requests (0-10, higher means more restricted).
	RestrictionLevel float64 `json:"restriction_level"`

	// LatencyScore scores response speed (0-10, higher is faster).
	LatencyScore float64 `json:"latency_score"`

	// AccessibilityScore scores how easy the endpoint is to reach and use
	// without authentication or other hurdles (0-10).
	AccessibilityScore float64 `json:"accessibility_score"`
}

// Merge combines an incoming observation into the existing metrics using a
// fixed-weight average: merged = existing*(1-w) + incoming*w.
//
// The weighting dampens noisy single observations while letting the stored
// value trend toward recent reality. The weight is supplied by the caller
// (the knowledge store owns the merge policy).
func (m QualityMetrics) Merge(incoming QualityMetrics, w float64) QualityMetrics {
	return QualityMetrics{
		ResponseQuality:    m.ResponseQuality*(1-w) + incoming.ResponseQuality*w,
		RestrictionLevel:   m.RestrictionLevel*(1-w) + incoming.RestrictionLevel*w,
		LatencyScore:       m.LatencyScore*(1-w) + incoming.LatencyScore*w,
		AccessibilityScore: m.AccessibilityScore*(1-w) + incoming.AccessibilityScore*w,
	}
}

// Valid reports whether every metric lies inside [MetricMin, MetricMax].
func (m QualityMetrics) Valid() bool {
	for _, v := range []float64{m.ResponseQuality, m.RestrictionLevel, m.LatencyScore, m.AccessibilityScore} {
		if v < MetricMin || v > MetricMax {
			return false
		}
	}
	return true
}

// TargetRecord is everything the fleet knows about one probed endpoint.
// The URL is the globally unique key in the collective memory; the
// verification count is monotonically non-decreasing, and the quality
// metrics are only ever merged, never overwritten outright.
type TargetRecord struct {
	// URL uniquely identifies the target across the store.
	URL string `json:"url"`

	// Name is a human-readable label for the endpoint.
	Name string `json:"name,omitempty"`

	// Classification is the interface class the prober detected
	// (e.g. "chatgpt", "claude", "ollama", "generic").
	Classification string `json:"classification,omitempty"`

	// DetectedModel is the model identifier extracted from the page, if any.
	DetectedModel string `json:"detected_model,omitempty"`

	// Metrics holds the four merged quality scores.
	Metrics QualityMetrics `json:"metrics"`

	// Availability is the fraction of sub-tests that succeeded, in [0, 1].
	Availability float64 `json:"availability"`

	// Metadata carries arbitrary prober-supplied details. It is replaced
	// wholesale by each new observation, never merged.
	Metadata map[string]string `json:"metadata,omitempty"`

	// DiscoveredBy is the worker that first recorded the target.
	DiscoveredBy string `json:"discovered_by"`

	// FirstDiscovered is when the target entered the store.
	FirstDiscovered time.Time `json:"first_discovered"`

	// LastVerified is when any worker last confirmed the target.
	LastVerified time.Time `json:"last_verified"`

	// VerificationCount is the total number of times any worker has
	// verified the target. It never decreases.
	VerificationCount int `json:"verification_count"`

	// VerifiedBy is the set of worker identities that have verified the
	// target. Stored as a slice for JSON stability; treated as a set.
	VerifiedBy []string `json:"verified_by"`
}

// Validate checks the invariants the knowledge store relies on.
// It is called at the store boundary so that malformed prober output
// never reaches the persisted tables.
func (t *TargetRecord) Validate() error {
	if t.URL == "" {
		return ErrMissingURL
	}
	if !t.Metrics.Valid() {
		return ErrInvalidMetrics
	}
	return nil
}

// HasVerifier reports whether the given worker already appears in the
// verifier set.
func (t *TargetRecord) HasVerifier(workerID string) bool {
	for _, id := range t.VerifiedBy {
		if id == workerID {
			return true
		}
	}
	return false
}

// AddVerifier appends the worker to the verifier set if not already present.
func (t *TargetRecord) AddVerifier(workerID string) {
	if !t.HasVerifier(workerID) {
		t.VerifiedBy = append(t.VerifiedBy, workerID)
	}
}
