package models

// Outcome is the result recorded for a single visited record.
type Outcome string

const (
	OutcomePreviewed           Outcome = "previewed"
	OutcomeSent                Outcome = "sent"
	OutcomeFailedAfterRetries  Outcome = "failed_after_retries"
	OutcomeSkippedMissingEmail Outcome = "skipped_missing_email"
	OutcomeSkippedBuildError   Outcome = "skipped_build_error"
)

// Outcomes lists every outcome in reporting order.
var Outcomes = []Outcome{
	OutcomePreviewed,
	OutcomeSent,
	OutcomeFailedAfterRetries,
	OutcomeSkippedMissingEmail,
	OutcomeSkippedBuildError,
}
