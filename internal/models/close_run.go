package models

import "time"

// CloseRunStatus captures background close lifecycle states.
type CloseRunStatus string

const (
	CloseRunQueued     CloseRunStatus = "QUEUED"
	CloseRunProcessing CloseRunStatus = "PROCESSING"
	CloseRunFinished   CloseRunStatus = "FINISHED"
	CloseRunFailed     CloseRunStatus = "FAILED"
)

// CloseRun persists an asynchronous semester close request.
type CloseRun struct {
	ID           string         `db:"id" json:"id"`
	SemesterID   string         `db:"semester_id" json:"semester_id"`
	Status       CloseRunStatus `db:"status" json:"status"`
	Format       string         `db:"format" json:"format"`
	RequestedBy  string         `db:"requested_by" json:"requested_by"`
	Processed    int            `db:"processed" json:"processed"`
	Passed       int            `db:"passed" json:"passed"`
	Failed       int            `db:"failed" json:"failed"`
	Pending      int            `db:"pending" json:"pending"`
	ResultURL    *string        `db:"result_url" json:"result_url,omitempty"`
	ErrorMessage *string        `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
	FinishedAt   *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
}

// Summary returns the counters of a finished run.
func (r *CloseRun) Summary() CloseSummary {
	return CloseSummary{SemesterID: r.SemesterID, Processed: r.Processed, Passed: r.Passed, Failed: r.Failed, Pending: r.Pending}
}
