package main

import (
	"io"

	"github.com/spf13/cobra"

	"email-dispatcher/internal/config"
)

type runOptions struct {
	csvPath        string
	attachmentPath string
	debug          bool
}

// newRootCommand builds the CLI. Flag defaults come from cfg, which was read
// from the environment, so flags only override what the environment set.
func newRootCommand(cfg config.Config, out io.Writer) *cobra.Command {
	opts := runOptions{}
	delay := cfg.Delay.Seconds()
	backoff := cfg.RetryBackoff.Seconds()

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Send personalized application emails to a list of recipients",
		Long: `Renders one message per CSV row from the role templates, attaches the
resume and either previews the messages (default, --dry-run) or delivers
them (--send) with throttling and bounded retry.`,
		Example: `  # Dry run (preview only)
  dispatch --csv recipients.csv --resume resume.pdf --dry-run

  # Actually send (SMTP credentials from env or flags)
  dispatch --csv recipients.csv --resume resume.pdf --send`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Delay = config.Seconds(delay)
			cfg.RetryBackoff = config.Seconds(backoff)
			return run(cmd.Context(), cfg, opts, out)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.csvPath, "csv", "", "Path to CSV file with recipients")
	f.StringVar(&opts.attachmentPath, "resume", "", "Path to the attachment (resume PDF)")
	f.StringVar(&cfg.SenderEmail, "from-email", cfg.SenderEmail, "Sender email (or env FROM_EMAIL)")
	f.StringVar(&cfg.SenderName, "from-name", cfg.SenderName, "Sender display name (or env FROM_NAME)")
	f.StringVar(&cfg.Transport, "transport", cfg.Transport, "Transport: smtp or graph (or env TRANSPORT)")
	f.StringVar(&cfg.SMTP.Host, "smtp-host", cfg.SMTP.Host, "SMTP host (or env SMTP_HOST)")
	f.IntVar(&cfg.SMTP.Port, "smtp-port", cfg.SMTP.Port, "SMTP port (or env SMTP_PORT)")
	f.StringVar(&cfg.SMTP.User, "smtp-user", cfg.SMTP.User, "SMTP username, often the same as from-email (or env SMTP_USER)")
	f.StringVar(&cfg.SMTP.Password, "smtp-pass", cfg.SMTP.Password, "SMTP password or app password (or env SMTP_PASS)")
	f.BoolVar(&cfg.SMTP.SSL, "smtp-ssl", cfg.SMTP.SSL, "Use implicit TLS instead of STARTTLS (or env SMTP_SSL)")
	f.Float64Var(&delay, "delay", delay, "Delay between sends in seconds (or env SEND_DELAY)")
	f.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Send attempts per recipient (or env MAX_RETRIES)")
	f.Float64Var(&backoff, "retry-backoff", backoff, "Base retry backoff in seconds, multiplied by the attempt number (or env RETRY_BACKOFF)")
	f.BoolVar(&cfg.DryRun, "dry-run", false, "Only preview messages, do not send")
	f.BoolVar(&cfg.Send, "send", false, "Actually send emails (requires transport settings)")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append-only run log (or env LOG_FILE)")
	f.StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "Record outcomes in this database (or env DB_DSN)")
	f.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "Publish outcomes to this NATS server (or env NATS_URL)")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address during the run (or env METRICS_ADDR)")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	_ = cmd.MarkFlagRequired("csv")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}
