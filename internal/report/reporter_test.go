package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"email-dispatcher/internal/metrics"
	"email-dispatcher/internal/models"
)

type memJournal struct {
	events []Event
	err    error
}

func (m *memJournal) Name() string { return "memory" }

func (m *memJournal) Append(_ context.Context, ev Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func newObserved(journals ...Journal) (*Reporter, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := New(zap.New(core).Sugar(), journals...)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return r, logs
}

func TestReporter_CountsAndJournals(t *testing.T) {
	j := &memJournal{}
	r, logs := newObserved(j)
	ctx := context.Background()

	r.Record(ctx, Entry{Row: 1, Email: "a@example.com", Company: "Acme", Outcome: models.OutcomeSent, Attempts: 2})
	r.Record(ctx, Entry{Row: 2, Outcome: models.OutcomeSkippedMissingEmail})
	r.Record(ctx, Entry{Row: 3, Email: "c@example.com", Outcome: models.OutcomeFailedAfterRetries, Attempts: 3, Err: errors.New("boom")})

	s := r.Finish(nil)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Counts[models.OutcomeSent])
	assert.Equal(t, 1, s.Counts[models.OutcomeSkippedMissingEmail])
	assert.Equal(t, 1, s.Counts[models.OutcomeFailedAfterRetries])
	assert.Equal(t, r.RunID(), s.RunID)

	require.Len(t, j.events, 3)
	assert.Equal(t, r.RunID(), j.events[0].RunID)
	assert.Equal(t, 2, j.events[0].Attempts)
	assert.Equal(t, "boom", j.events[2].Error)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), j.events[2].RecordedAt)

	assert.Equal(t, 1, logs.FilterMessage("Sent").Len())
	assert.Equal(t, 1, logs.FilterMessage("Row missing email, skipping").Len())
	assert.Equal(t, 1, logs.FilterMessage("Failed to send after retries").Len())
	assert.Equal(t, 1, logs.FilterMessage("Run complete.").Len())
}

func TestReporter_JournalFailureDoesNotStopReporting(t *testing.T) {
	j := &memJournal{err: errors.New("db down")}
	r, logs := newObserved(j)

	before := testutil.ToFloat64(metrics.JournalErrors.WithLabelValues("memory"))
	r.Record(context.Background(), Entry{Row: 1, Email: "a@example.com", Outcome: models.OutcomePreviewed})

	assert.Equal(t, 1, r.Summary().Total)
	assert.Equal(t, 1, logs.FilterMessage("Failed to journal outcome").Len())
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JournalErrors.WithLabelValues("memory")))
}

func TestReporter_FinishAborted(t *testing.T) {
	r, logs := newObserved()
	r.Record(context.Background(), Entry{Outcome: models.OutcomeSkippedBuildError, Err: errors.New("missing")})

	s := r.Finish(errors.New("missing"))
	assert.Equal(t, 1, s.Counts[models.OutcomeSkippedBuildError])
	assert.Equal(t, 1, logs.FilterMessage("Run aborted").Len())
	assert.Equal(t, 0, logs.FilterMessage("Run complete.").Len())
}

func TestReporter_SummaryIsCopy(t *testing.T) {
	r, _ := newObserved()
	r.Record(context.Background(), Entry{Outcome: models.OutcomePreviewed})

	s := r.Summary()
	s.Counts[models.OutcomePreviewed] = 99
	assert.Equal(t, 1, r.Summary().Counts[models.OutcomePreviewed])
}
