package dto

// ReportOverviewResponse aggregates evaluation quality across completed runs,
// optionally scoped to one subject.
type ReportOverviewResponse struct {
	Subject              string         `json:"subject,omitempty"`
	RunCount             int64          `json:"run_count"`
	ItemCount            int64          `json:"item_count"`
	AvgPassRate          float64        `json:"avg_pass_rate"`
	AvgHallucinationRate float64        `json:"avg_hallucination_rate"`
	ErrorDistribution    map[string]int `json:"error_distribution"`
	SeverityDistribution map[string]int `json:"severity_distribution"`
	RecentRuns           []RunDigest    `json:"recent_runs"`
}

// RunDigest is a compact view of one run used inside reports.
type RunDigest struct {
	RunID             uint    `json:"run_id"`
	HomeworkSetID     uint    `json:"homework_set_id"`
	Title             string  `json:"title"`
	Subject           string  `json:"subject"`
	Total             int     `json:"total"`
	PassRate          float64 `json:"pass_rate"`
	HallucinationRate float64 `json:"hallucination_rate"`
}
