// Package report accumulates per-recipient outcomes for a run, writes the run
// log lines and forwards each outcome to the configured journals.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"email-dispatcher/internal/metrics"
	"email-dispatcher/internal/models"
)

// Event is the persisted form of one outcome.
type Event struct {
	ID         int64          `json:"id"`
	RunID      string         `json:"run_id"`
	Row        int            `json:"row_number"`
	Email      string         `json:"email"`
	Company    string         `json:"company"`
	Outcome    models.Outcome `json:"outcome"`
	Attempts   int            `json:"attempts"`
	Error      string         `json:"error"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// Journal persists outcome events outside the run log.
type Journal interface {
	Name() string
	Append(ctx context.Context, ev Event) error
}

// Entry is what the dispatch loop reports for a visited record.
type Entry struct {
	Row      int
	Email    string
	Company  string
	Outcome  models.Outcome
	Attempts int
	Err      error
}

// Summary holds the outcome counts of a run.
type Summary struct {
	RunID  string
	Counts map[models.Outcome]int
	Total  int
}

type Reporter struct {
	runID    string
	log      *zap.SugaredLogger
	journals []Journal
	counts   map[models.Outcome]int
	total    int
	now      func() time.Time
}

func New(log *zap.SugaredLogger, journals ...Journal) *Reporter {
	runID := uuid.NewString()
	return &Reporter{
		runID:    runID,
		log:      log.Named("report").With("runID", runID),
		journals: journals,
		counts:   make(map[models.Outcome]int, len(models.Outcomes)),
		now:      time.Now,
	}
}

func (r *Reporter) RunID() string {
	return r.runID
}

// Start writes the run start marker.
func (r *Reporter) Start(mode string, transport string) {
	r.log.Infow("Starting email run", "mode", mode, "transport", transport)
}

// Record counts e, logs it and forwards it to every journal. Journal
// failures are logged and otherwise ignored.
func (r *Reporter) Record(ctx context.Context, e Entry) {
	r.counts[e.Outcome]++
	r.total++
	metrics.Outcomes.WithLabelValues(string(e.Outcome)).Inc()

	fields := []interface{}{
		"row", e.Row,
		"email", e.Email,
		"company", e.Company,
		"outcome", string(e.Outcome),
	}
	if e.Attempts > 0 {
		fields = append(fields, "attempts", e.Attempts)
	}
	switch e.Outcome {
	case models.OutcomeSkippedMissingEmail:
		r.log.Warnw("Row missing email, skipping", fields...)
	case models.OutcomeFailedAfterRetries:
		r.log.Errorw("Failed to send after retries", append(fields, "error", e.Err)...)
	case models.OutcomeSkippedBuildError:
		r.log.Errorw("Message build failed, halting run", append(fields, "error", e.Err)...)
	case models.OutcomeSent:
		r.log.Infow("Sent", fields...)
	default:
		r.log.Infow("Previewed", fields...)
	}

	ev := Event{
		RunID:      r.runID,
		Row:        e.Row,
		Email:      e.Email,
		Company:    e.Company,
		Outcome:    e.Outcome,
		Attempts:   e.Attempts,
		RecordedAt: r.now().UTC(),
	}
	if e.Err != nil {
		ev.Error = e.Err.Error()
	}
	for _, j := range r.journals {
		if err := j.Append(ctx, ev); err != nil {
			metrics.JournalErrors.WithLabelValues(j.Name()).Inc()
			r.log.Warnw("Failed to journal outcome", "journal", j.Name(), "row", e.Row, "error", err)
		}
	}
}

// Summary returns a copy of the counts so far.
func (r *Reporter) Summary() Summary {
	counts := make(map[models.Outcome]int, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}
	return Summary{RunID: r.runID, Counts: counts, Total: r.total}
}

// Finish writes the run completion marker. A non-nil err marks the run as
// aborted.
func (r *Reporter) Finish(err error) Summary {
	s := r.Summary()
	fields := []interface{}{"total", s.Total}
	for _, o := range models.Outcomes {
		fields = append(fields, string(o), s.Counts[o])
	}
	if err != nil {
		r.log.Errorw("Run aborted", append(fields, "error", err)...)
		return s
	}
	r.log.Infow("Run complete.", fields...)
	return s
}
