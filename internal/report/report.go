package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/nao1215/aiscout/internal/model"
)

// Report sizing.
const (
	// topDiscoveries caps the per-worker highlight list.
	topDiscoveries = 5

	// topTargets caps the fleet-wide promising-target list.
	topTargets = 10

	// lowEfficiencyThreshold is the discovery efficiency (percent) below
	// which a worker gets a strategy recommendation.
	lowEfficiencyThreshold = 30.0
)

// IndividualReport summarizes one worker's contribution over the report
// period.
type IndividualReport struct {
	// WorkerID is the reported identity.
	WorkerID string `json:"worker_id"`

	// Period is a human-readable label for the covered window.
	Period string `json:"period"`

	// GeneratedAt is when the report was rendered.
	GeneratedAt time.Time `json:"generated_at"`

	// State is the worker's lifecycle state in the collective memory.
	State model.WorkerState `json:"state"`

	// TargetsExplored is how many probes the worker has archived.
	TargetsExplored int `json:"targets_explored"`

	// UniqueDiscoveries is how many targets the worker recorded first.
	UniqueDiscoveries int `json:"unique_discoveries"`

	// Verifications counts every verification including re-verifications.
	Verifications int `json:"verifications"`

	// DiscoveryEfficiency is UniqueDiscoveries per explored target, as a
	// percentage.
	DiscoveryEfficiency float64 `json:"discovery_efficiency"`

	// TopDiscoveries lists the worker's best finds by response quality.
	TopDiscoveries []model.TargetRecord `json:"top_discoveries"`

	// Limitations lists restrictions this worker filed recently.
	Limitations []model.LimitationRecord `json:"limitations"`

	// Recommendations are next-step hints derived from the numbers.
	Recommendations []string `json:"recommendations"`
}

// CollectiveReport summarizes the whole fleet over the report period.
type CollectiveReport struct {
	// Period is a human-readable label for the covered window.
	Period string `json:"period"`

	// GeneratedAt is when the report was rendered.
	GeneratedAt time.Time `json:"generated_at"`

	// ActiveWorkers is the number of workers currently marked active.
	ActiveWorkers int `json:"active_workers"`

	// TotalTargets is the number of targets in the collective memory.
	TotalTargets int `json:"total_targets"`

	// TotalProbes is the number of archived probe observations.
	TotalProbes int64 `json:"total_probes"`

	// NewDiscoveries is the number of recent discovery events.
	NewDiscoveries int `json:"new_discoveries"`

	// TopTargets lists the most promising targets by response quality.
	TopTargets []model.TargetRecord `json:"top_targets"`

	// CommonLimitations counts recently observed limitations per category.
	CommonLimitations map[string]int `json:"common_limitations"`

	// StrategyScores maps strategy names to effectiveness in [0, 1].
	StrategyScores map[string]float64 `json:"strategy_scores"`

	// RecentDiscoveries holds the latest discovery events.
	RecentDiscoveries []model.DiscoveryEvent `json:"recent_discoveries"`
}

// periodLabel formats the report window the way operators read it.
func periodLabel(now time.Time, window time.Duration) string {
	return fmt.Sprintf("%s (last %s)", now.Format("2006-01-02"), window)
}

// topByQuality returns up to n records ordered by response quality, best
// first. Ties break on URL so the output is deterministic.
func topByQuality(records []model.TargetRecord, n int) []model.TargetRecord {
	sorted := append([]model.TargetRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Metrics.ResponseQuality == sorted[j].Metrics.ResponseQuality {
			return sorted[i].URL < sorted[j].URL
		}
		return sorted[i].Metrics.ResponseQuality > sorted[j].Metrics.ResponseQuality
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// recommendations derives next-step hints for a worker from its numbers.
func recommendations(explored, limitations int, efficiency float64) []string {
	recs := make([]string, 0, 3)
	switch {
	case explored == 0:
		recs = append(recs, "Start exploring with the prioritized seed targets from the collective memory")
	case efficiency < lowEfficiencyThreshold:
		recs = append(recs, "Improve discovery strategy, efficiency is low")
	}
	if limitations == 0 {
		recs = append(recs, "Probe target limitations to map restrictions")
	}
	recs = append(recs, "Check the collective memory for updated priority targets")
	return recs
}
