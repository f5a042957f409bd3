// Package ingest defines core types shared across subsystems.
package ingest

import (
	"time"
)

// OutcomeStatus is the terminal state of one record's upload attempt.
type OutcomeStatus string

// Outcome status values reported per uploaded record.
const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// ArticleRecord is one parsed feed entry, the unit of work for the
// batch uploader. Records are built once by the normalizer and never
// mutated afterwards.
type ArticleRecord struct {
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Creator     string `json:"creator"`
	DOI         string `json:"doi"`
}

// UploadOutcome is the result of attempting to persist one record.
// Exactly one of Location/ErrorDetail is populated depending on Status.
type UploadOutcome struct {
	Identifier  string        `json:"identifier"`
	Status      OutcomeStatus `json:"status"`
	Location    string        `json:"location,omitempty"`
	ErrorDetail string        `json:"error,omitempty"`
}

// Succeeded reports whether the outcome is a success.
func (o UploadOutcome) Succeeded() bool {
	return o.Status == OutcomeSuccess
}

// PartitionOutcomes splits outcomes into successes and errors.
func PartitionOutcomes(outcomes []UploadOutcome) (succeeded, failed []UploadOutcome) {
	for _, o := range outcomes {
		if o.Succeeded() {
			succeeded = append(succeeded, o)
		} else {
			failed = append(failed, o)
		}
	}
	return succeeded, failed
}

// RunSummary is the per-run metadata record persisted alongside the
// uploaded articles.
type RunSummary struct {
	Category      string `json:"category"`
	ProcessDate   string `json:"process_date"`
	TotalArticles int    `json:"total_articles"`
	ProcessedAt   string `json:"processed_at"`
	RSSSource     string `json:"rss_source"`
}

// RunPhase represents the lifecycle state of an ingestion run.
type RunPhase string

// Run phase values persisted in the run store.
const (
	RunPending   RunPhase = "pending"
	RunRunning   RunPhase = "running"
	RunSucceeded RunPhase = "succeeded"
	RunFailed    RunPhase = "failed"
)

// RunInput captures the trigger parameters for an ingestion run.
type RunInput struct {
	Category    string `json:"category"`
	ProcessDate string `json:"process_date"`
}

// RunOutput is the result payload recorded when a run finishes.
type RunOutput struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	ArticlesStored int    `json:"articles_stored"`
	ArticlesFailed int    `json:"articles_failed"`
	RawLocation    string `json:"raw_storage_location,omitempty"`
	MetaLocation   string `json:"metadata_location,omitempty"`
	ElapsedMs      int64  `json:"upload_elapsed_ms"`
}

// Run is the metadata tracked for each triggered ingestion run.
type Run struct {
	ID        string     `json:"run_id"`
	Phase     RunPhase   `json:"phase"`
	Input     RunInput   `json:"input"`
	Output    *RunOutput `json:"output,omitempty"`
	ErrorText string     `json:"error_text,omitempty"`
	Created   time.Time  `json:"created_at"`
	Updated   time.Time  `json:"updated_at"`
}
