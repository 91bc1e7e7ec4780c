package model

import "time"

// ProbeResult is what the prober collaborator returns for one target.
// It carries the classification and scoring of the endpoint plus the raw
// per-sub-test outcomes the scores were derived from.
//
// Design decision: We keep the raw outcomes on the result rather than only
// the derived scores because the history archive and reports want the
// per-prompt detail, and recomputing it later would require re-probing.
type ProbeResult struct {
	// URL is the probed endpoint.
	URL string `json:"url"`

	// Name is a human-readable label for the endpoint.
	Name string `json:"name,omitempty"`

	// Classification is the detected interface class.
	Classification string `json:"classification"`

	// DetectedModel is the model identifier extracted from the page.
	DetectedModel string `json:"detected_model,omitempty"`

	// Metrics holds the four quality scores for this observation.
	Metrics QualityMetrics `json:"metrics"`

	// Availability is the fraction of outcomes that succeeded, in [0, 1].
	Availability float64 `json:"availability"`

	// Metadata carries prober-specific details (page size, headers seen,
	// detection hints). Values are strings to keep the wire format simple.
	Metadata map[string]string `json:"metadata,omitempty"`

	// Outcomes are the raw per-sub-test results.
	Outcomes []ProbeOutcome `json:"outcomes,omitempty"`

	// ProbedAt is when the probe completed.
	ProbedAt time.Time `json:"probed_at"`
}

// ProbeOutcome is the result of one sub-test within a probe, typically one
// prompt sent to the endpoint.
type ProbeOutcome struct {
	// Label identifies the sub-test (usually the prompt text).
	Label string `json:"label"`

	// Payload is the response payload, truncated by the prober.
	Payload string `json:"payload,omitempty"`

	// Latency is how long the sub-test took.
	Latency time.Duration `json:"latency"`

	// Success reports whether the sub-test succeeded.
	Success bool `json:"success"`

	// Timestamp is when the sub-test ran.
	Timestamp time.Time `json:"timestamp"`
}

// Record converts the probe result into a target record attributed to the
// given worker. The store fills in discovery bookkeeping on insert.
func (p *ProbeResult) Record(workerID string) *TargetRecord {
	return &TargetRecord{
		URL:            p.URL,
		Name:           p.Name,
		Classification: p.Classification,
		DetectedModel:  p.DetectedModel,
		Metrics:        p.Metrics,
		Availability:   p.Availability,
		Metadata:       p.Metadata,
		DiscoveredBy:   workerID,
	}
}
