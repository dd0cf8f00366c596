package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-dispatcher/internal/models"
	"email-dispatcher/internal/report"
)

func TestInsertStatement_Event(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	ev := report.Event{
		ID:         7,
		RunID:      "run-1",
		Row:        4,
		Email:      "a@example.com",
		Company:    "Acme",
		Outcome:    models.OutcomeSent,
		Attempts:   2,
		RecordedAt: at,
	}

	query, values, err := insertStatement(OutcomesTable, ev)
	require.NoError(t, err)

	assert.Equal(t,
		"INSERT INTO dispatch_outcomes (run_id, row_number, email, company, outcome, attempts, error, recorded_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id",
		query)
	assert.Equal(t, []interface{}{"run-1", 4, "a@example.com", "Acme", models.OutcomeSent, 2, "", at}, values)
}

func TestInsertStatement_SkipsUntaggedAndOmitempty(t *testing.T) {
	type sample struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Internal string
		Ignored  string `json:"-"`
		Optional string `json:"optional,omitempty"`
	}

	query, values, err := insertStatement("samples", &sample{Name: "x"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO samples (name) VALUES ($1) RETURNING id", query)
	assert.Equal(t, []interface{}{"x"}, values)
}

func TestInsertStatement_RejectsNonStruct(t *testing.T) {
	_, _, err := insertStatement("samples", 42)
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_DSN", "")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DB_DSN", "postgres://localhost/dispatch")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Driver)
}

func TestJournalName(t *testing.T) {
	assert.Equal(t, "postgres", NewJournal(nil).Name())
}
