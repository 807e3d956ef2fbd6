package entity

import "time"

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCanceled  RunStatus = "canceled"
)

// RunSummary describes one harvest run. It is what the run history keeps.
type RunSummary struct {
	RunID           string                  `json:"run_id"`
	Status          RunStatus               `json:"status"`
	StartedAt       time.Time               `json:"started_at"`
	FinishedAt      time.Time               `json:"finished_at"`
	Cities          []string                `json:"cities"`
	ListingsSeen    int                     `json:"listings_seen"`
	ListingsSkipped int                     `json:"listings_skipped"`
	ListingsFailed  int                     `json:"listings_failed"`
	ListingsStored  int                     `json:"listings_stored"`
	Effects         map[string]EffectCounts `json:"effects"`
	FailureReason   string                  `json:"failure_reason,omitempty"`
}

func NewRunSummary(runID string, startedAt time.Time) *RunSummary {
	return &RunSummary{
		RunID:     runID,
		StartedAt: startedAt,
		Effects:   make(map[string]EffectCounts),
	}
}

// Record adds the effects of one reconciled listing to the run totals.
func (s *RunSummary) Record(effects map[string]EffectCounts) {
	for coll, c := range effects {
		total := s.Effects[coll]
		total.Inserted += c.Inserted
		total.Updated += c.Updated
		total.Unchanged += c.Unchanged
		s.Effects[coll] = total
	}
}
