package domain

import "time"

// Report is the full outcome of one detection run, shared by the CLI export
// path and the HTTP API.
type Report struct {
	RunID            string               `json:"run_id"`
	GeneratedAt      time.Time            `json:"generated_at"`
	Duration         time.Duration        `json:"duration_ns"`
	Accounts         int                  `json:"accounts"`
	Transactions     int                  `json:"transactions"`
	SkippedRecords   int                  `json:"skipped_records"`
	TruncatedOrigins int                  `json:"truncated_origins"`
	CycleHops        []FlattenedHop       `json:"cycle_hops"`
	Cycles           []CycleSummary       `json:"cycles"`
	Structuring      []StructuringGroup   `json:"structuring"`
	StructuringStats []StructuringSummary `json:"structuring_summaries"`
}
