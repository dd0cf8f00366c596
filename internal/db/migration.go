package db

import (
	"context"
	"fmt"
	"log"
)

// Migrate führt die Datenbankmigrationen aus, um sicherzustellen,
// dass alle erforderlichen Tabellen und Indizes vorhanden sind.
func (c *Client) Migrate(ctx context.Context) error {
	const createOutcomesTableSQL = `
    CREATE TABLE IF NOT EXISTS ` + OutcomesTable + ` (
        id SERIAL PRIMARY KEY,
        run_id TEXT NOT NULL,
        row_number INTEGER NOT NULL,
        email TEXT NOT NULL DEFAULT '',
        company TEXT NOT NULL DEFAULT '',
        outcome TEXT NOT NULL,
        attempts INTEGER NOT NULL DEFAULT 0,
        error TEXT NOT NULL DEFAULT '',
        recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );`

	if _, err := c.db.ExecContext(ctx, createOutcomesTableSQL); err != nil {
		return fmt.Errorf("failed to create '%s' table: %w", OutcomesTable, err)
	}
	log.Printf("Table '%s' is ready.", OutcomesTable)

	// Lookups are always per run.
	const createIndexSQL = `CREATE INDEX IF NOT EXISTS idx_dispatch_outcomes_run_id ON ` + OutcomesTable + `(run_id);`
	if _, err := c.db.ExecContext(ctx, createIndexSQL); err != nil {
		log.Printf("Warning: failed to create index on '%s': %v", OutcomesTable, err)
	}

	log.Println("Database migration checked/completed.")
	return nil
}
