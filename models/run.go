package models

import (
	"encoding/json"
	"time"
)

// Stage identifies a step of the pipeline state machine.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageFetching    Stage = "fetching"
	StageNormalizing Stage = "normalizing"
	StageMerging     Stage = "merging"
	StageLabeling    Stage = "labeling"
	StageSummarizing Stage = "summarizing"
	StageDone        Stage = "done"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Log levels.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// PipelineRun is the persisted record of one pipeline invocation.
type PipelineRun struct {
	ID          int64      `json:"id" db:"id"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at" db:"finished_at"`
	Status      string     `json:"status" db:"status"`
	LastStage   Stage      `json:"last_stage" db:"last_stage"`
	AdsFetched  int        `json:"ads_fetched" db:"ads_fetched"`
	AdsNew      int        `json:"ads_new" db:"ads_new"`
	AdsUpdated  int        `json:"ads_updated" db:"ads_updated"`
	AdsLabeled  int        `json:"ads_labeled" db:"ads_labeled"`
	Summaries   int        `json:"summaries" db:"summaries"`
	ErrorsCount int        `json:"errors_count" db:"errors_count"`
	Report      json.RawMessage `json:"report" db:"report"`
}

// PipelineLog is one log line attached to a run.
type PipelineLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Stage     Stage     `json:"stage" db:"stage"`
	Message   string    `json:"message" db:"message"`
}

// Unit failure kinds, per the error taxonomy: transient upstream failures
// degrade to a skipped unit, integrity violations are flagged, never merged.
const (
	FailureFetch            = "fetch_failed"
	FailureNormalizeSkip    = "normalize_skipped"
	FailureLabelExhausted   = "label_attempts_exhausted"
	FailureMergeConflict    = "merge_conflict"
	FailureMetricRegression = "metric_regression"
	FailureNarrative        = "narrative_failed"
)

// UnitFailure records one brand or one ad that failed without aborting the
// run. Failures are aggregated into the post-run report.
type UnitFailure struct {
	Stage  Stage  `json:"stage"`
	Kind   string `json:"kind"`
	Unit   string `json:"unit"`
	Reason string `json:"reason"`
}

// RunReport aggregates unit-level outcomes for one invocation.
type RunReport struct {
	Failures     []UnitFailure  `json:"failures,omitempty"`
	ClusterStats map[string]int `json:"cluster_stats,omitempty"`
}

// Add appends a unit failure to the report.
func (r *RunReport) Add(stage Stage, kind, unit, reason string) {
	r.Failures = append(r.Failures, UnitFailure{Stage: stage, Kind: kind, Unit: unit, Reason: reason})
}

// ToJSON serializes the report for persistence on the run record.
func (r *RunReport) ToJSON() json.RawMessage {
	b, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return b
}
