package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"     // waiting for processing
	JobStatusRunning   JobStatus = "RUNNING"    // in progress
	JobStatusExtracted JobStatus = "EXTRACT_OK" // stage 1 completed (text extracted)
	JobStatusParsed    JobStatus = "PARSED"     // stage 2 completed (line items parsed)
	JobStatusFailed    JobStatus = "FAILED"     // terminal failure
)
