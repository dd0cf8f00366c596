package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"email-dispatcher/internal/db"
	"email-dispatcher/internal/models"
	"email-dispatcher/internal/report"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found. Reading configuration from environment.")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	dbCfg, err := db.Load()
	if err != nil {
		log.Fatalf("Failed to load database configuration: %v", err)
	}
	dbClient, err := db.NewClient(dbCfg.Driver, dbCfg.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "init":
		handleInit(ctx, dbClient)
	case "list":
		handleList(ctx, dbClient)
	case "runs":
		handleRuns(ctx, dbClient)
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// handleInit runs the database migration.
func handleInit(ctx context.Context, client *db.Client) {
	if err := client.Migrate(ctx); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

// handleList prints the outcomes of one run, the latest by default.
func handleList(ctx context.Context, client *db.Client) {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	runID := listCmd.String("run", "", "Run ID to list (default: latest run)")
	listCmd.Parse(os.Args[2:]) //nolint:errcheck

	events, err := client.ListOutcomes(ctx, *runID)
	if err != nil {
		log.Fatalf("Failed to fetch outcomes: %v", err)
	}
	if len(events) == 0 {
		fmt.Println("No outcomes found in the database.")
		return
	}
	writeOutcomes(os.Stdout, events)
}

// handleRuns prints per-run outcome counts.
func handleRuns(ctx context.Context, client *db.Client) {
	runsCmd := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := runsCmd.Int("limit", 10, "Number of recent runs to show")
	runsCmd.Parse(os.Args[2:]) //nolint:errcheck

	runs, err := client.ListRuns(ctx, *limit)
	if err != nil {
		log.Fatalf("Failed to fetch runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs found in the database.")
		return
	}
	writeRuns(os.Stdout, runs)
}

func writeOutcomes(out io.Writer, events []report.Event) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "RUN %s\n", events[0].RunID)
	fmt.Fprintln(w, "ROW\tEMAIL\tCOMPANY\tOUTCOME\tATTEMPTS\tRECORDED AT\tERROR")
	fmt.Fprintln(w, "---\t-----\t-------\t-------\t--------\t-----------\t-----")
	for _, e := range events {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			e.Row, e.Email, e.Company, e.Outcome, e.Attempts, e.RecordedAt.UTC().Format(time.RFC3339), e.Error)
	}
	w.Flush()
}

func writeRuns(out io.Writer, runs []db.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprint(w, "RUN ID\tSTARTED")
	for _, o := range models.Outcomes {
		fmt.Fprintf(w, "\t%s", o)
	}
	fmt.Fprintln(w)
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s", r.RunID, r.StartedAt.UTC().Format(time.RFC3339))
		for _, o := range models.Outcomes {
			fmt.Fprintf(w, "\t%d", r.Counts[o])
		}
		fmt.Fprintln(w)
	}
	w.Flush()
}

func printUsage() {
	fmt.Println("Admin tool for the dispatch outcome database.")
	fmt.Println("\nUsage:")
	fmt.Println("  go run ./cmd/admin <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  init          Initializes the database and creates the tables.")
	fmt.Println("  list          Lists the outcomes of a run (-run <id>, default latest).")
	fmt.Println("  runs          Shows outcome counts for recent runs (-limit <n>).")
}
