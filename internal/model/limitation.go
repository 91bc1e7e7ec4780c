package model

import "time"

// Well-known limitation categories. The store creates unknown categories on
// first use, so this list is a vocabulary, not a closed set.
const (
	// LimitationRateLimiting marks request throttling by the target.
	LimitationRateLimiting = "rate_limiting"

	// LimitationContentFiltering marks refusal or filtering of content.
	LimitationContentFiltering = "content_filtering"

	// LimitationGeoRestriction marks geographic access blocks.
	LimitationGeoRestriction = "geo_restriction"

	// LimitationAuthRequired marks endpoints that demand authentication.
	LimitationAuthRequired = "auth_required"
)

// DefaultLimitationCategories returns the categories a fresh store starts
// with. Keeping them pre-created makes the persisted document shape stable
// even before the first limitation is observed.
func DefaultLimitationCategories() []string {
	return []string{
		LimitationRateLimiting,
		LimitationContentFiltering,
		LimitationGeoRestriction,
		LimitationAuthRequired,
	}
}

// LimitationRecord is one observed restriction on a target.
// Records are append-only per category; there is no merge.
type LimitationRecord struct {
	// URL is the target the limitation was observed on.
	URL string `json:"url"`

	// WorkerID is the worker that observed the limitation.
	WorkerID string `json:"worker_id"`

	// Detail is free-form text describing what was observed.
	Detail string `json:"detail"`

	// Timestamp is when the limitation was observed.
	Timestamp time.Time `json:"timestamp"`
}
