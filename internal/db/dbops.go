package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	_ "github.com/lib/pq" // Stellt sicher, dass der PostgreSQL-Treiber registriert ist.

	"email-dispatcher/internal/models"
	"email-dispatcher/internal/report"
)

const OutcomesTable = "dispatch_outcomes"

// Client handles database operations.
type Client struct {
	db *sql.DB
}

// NewClient initializes a new database client.
func NewClient(driverName, dataSourceName string) (*Client, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection with driver '%s': %w", driverName, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// Create inserts a single record into a table based on a struct and returns
// the generated id.
func (c *Client) Create(ctx context.Context, tableName string, model interface{}) (int64, error) {
	query, values, err := insertStatement(tableName, model)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := c.db.QueryRowContext(ctx, query, values...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create record in table '%s': %w", tableName, err)
	}
	return id, nil
}

// insertStatement builds the INSERT for model from its json tags. The id
// column is left to the database.
func insertStatement(tableName string, model interface{}) (string, []interface{}, error) {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return "", nil, fmt.Errorf("expected a struct, but got %T", model)
	}

	var cols, placeholders []string
	var values []interface{}

	for i := 0; i < v.NumField(); i++ {
		field := v.Type().Field(i)
		tag := field.Tag.Get("json")
		if tag == "id" || tag == "" || tag == "-" || strings.HasSuffix(tag, ",omitempty") {
			continue
		}

		cols = append(cols, tag)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(cols)))
		values = append(values, v.Field(i).Interface())
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		tableName,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)
	return query, values, nil
}

// Journal writes run outcomes to the outcomes table.
type Journal struct {
	client *Client
}

func NewJournal(client *Client) *Journal {
	return &Journal{client: client}
}

func (j *Journal) Name() string {
	return "postgres"
}

func (j *Journal) Append(ctx context.Context, ev report.Event) error {
	_, err := j.client.Create(ctx, OutcomesTable, ev)
	return err
}

// ListOutcomes returns the outcomes of a run in row order. An empty runID
// selects the most recent run.
func (c *Client) ListOutcomes(ctx context.Context, runID string) ([]report.Event, error) {
	const latestRunSQL = `SELECT run_id FROM ` + OutcomesTable + ` ORDER BY recorded_at DESC, id DESC LIMIT 1`
	if runID == "" {
		if err := c.db.QueryRowContext(ctx, latestRunSQL).Scan(&runID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to find latest run: %w", err)
		}
	}

	const listSQL = `SELECT id, run_id, row_number, email, company, outcome, attempts, error, recorded_at
		FROM ` + OutcomesTable + ` WHERE run_id = $1 ORDER BY id`
	rows, err := c.db.QueryContext(ctx, listSQL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var out []report.Event
	for rows.Next() {
		var ev report.Event
		var outcome string
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Row, &ev.Email, &ev.Company, &outcome, &ev.Attempts, &ev.Error, &ev.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		ev.Outcome = models.Outcome(outcome)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// RunSummary is the per-outcome count of one run.
type RunSummary struct {
	RunID     string
	StartedAt time.Time
	Counts    map[models.Outcome]int
}

// ListRuns returns the most recent runs, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	const runsSQL = `WITH runs AS (
			SELECT run_id, MIN(recorded_at) AS started_at FROM ` + OutcomesTable + `
			GROUP BY run_id ORDER BY started_at DESC LIMIT $1
		)
		SELECT r.run_id, r.started_at, o.outcome, COUNT(*)
		FROM runs r JOIN ` + OutcomesTable + ` o ON o.run_id = r.run_id
		GROUP BY r.run_id, r.started_at, o.outcome
		ORDER BY r.started_at DESC, o.outcome`
	rows, err := c.db.QueryContext(ctx, runsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var runID, outcome string
		var startedAt time.Time
		var n int
		if err := rows.Scan(&runID, &startedAt, &outcome, &n); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if len(out) == 0 || out[len(out)-1].RunID != runID {
			out = append(out, RunSummary{RunID: runID, StartedAt: startedAt, Counts: map[models.Outcome]int{}})
		}
		out[len(out)-1].Counts[models.Outcome(outcome)] = n
	}
	return out, rows.Err()
}
