package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"email-dispatcher/internal/config"
	"email-dispatcher/internal/db"
	"email-dispatcher/internal/delivery"
	"email-dispatcher/internal/dispatch"
	"email-dispatcher/internal/graph"
	"email-dispatcher/internal/logging"
	"email-dispatcher/internal/message"
	"email-dispatcher/internal/metrics"
	natsclient "email-dispatcher/internal/nats"
	"email-dispatcher/internal/records"
	"email-dispatcher/internal/report"
	"email-dispatcher/internal/smtp"
)

func run(ctx context.Context, cfg config.Config, opts runOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	zl, err := logging.New(opts.debug, cfg.LogFile)
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck
	log := zl.Sugar()

	if err := cfg.Validate(); err != nil {
		log.Errorw("Invalid configuration, aborting", "mode", cfg.Mode(), "transport", cfg.Transport, "error", err)
		if errors.Is(err, config.ErrMissingCredentials) {
			fmt.Fprintf(out, "Missing %s settings (%v). Aborting.\n", cfg.Transport, err)
		}
		return err
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, log)
		defer srv.Close()
	}

	journals, closeJournals, err := openJournals(cfg, log)
	if err != nil {
		return err
	}
	defer closeJournals()
	reporter := report.New(log, journals...)

	var mailer delivery.Mailer
	if cfg.SendMode() {
		mailer = newMailer(cfg, log)
	}

	src, err := records.Open(opts.csvPath)
	if err != nil {
		log.Errorw("Failed to open records, aborting", "path", opts.csvPath, "error", err)
		return err
	}
	defer src.Close()

	builder := message.NewBuilder(cfg.Sender(), opts.attachmentPath)
	var engine dispatch.Deliverer
	if mailer != nil {
		engine = delivery.NewEngine(mailer, cfg.RetryPolicy(), log)
	}
	loop := dispatch.New(dispatch.Options{Send: cfg.SendMode(), Delay: cfg.Delay}, builder, engine, out, reporter, log)

	reporter.Start(cfg.Mode(), cfg.Transport)
	runErr := loop.Run(ctx, src)
	summary := reporter.Finish(runErr)

	if runErr != nil {
		switch {
		case errors.Is(runErr, dispatch.ErrNoRecords):
			fmt.Fprintln(out, "No rows found in CSV. Aborting.")
		case errors.Is(runErr, message.ErrAttachmentNotFound):
			fmt.Fprintln(out, runErr)
		}
		return runErr
	}

	log.Infow("Run summary", "runID", summary.RunID, "total", summary.Total)
	return nil
}

func newMailer(cfg config.Config, log *zap.SugaredLogger) delivery.Mailer {
	if cfg.Transport == config.TransportGraph {
		return graph.NewClient(cfg.Graph, cfg.SenderEmail, log)
	}
	return smtp.NewSender(cfg.SMTP, log)
}

// openJournals connects the optional outcome journals. A journal that cannot
// be reached fails the run before any record is processed.
func openJournals(cfg config.Config, log *zap.SugaredLogger) ([]report.Journal, func(), error) {
	var journals []report.Journal
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.DB.DSN != "" {
		client, err := db.NewClient(cfg.DB.Driver, cfg.DB.DSN)
		if err != nil {
			log.Errorw("Failed to connect to database", "error", err)
			return nil, closeAll, err
		}
		closers = append(closers, func() { client.Close() })
		journals = append(journals, db.NewJournal(client))
	}

	if cfg.NATSURL != "" {
		nc, js, err := natsclient.Setup(cfg.NATSURL, log)
		if err != nil {
			log.Errorw("Failed to connect to NATS", "url", cfg.NATSURL, "error", err)
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, func() { nc.Drain() }) //nolint:errcheck
		journals = append(journals, natsclient.NewJournal(js))
	}

	return journals, closeAll, nil
}

func serveMetrics(addr string, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warnw("Metrics server stopped", "addr", addr, "error", err)
		}
	}()
	log.Infow("Serving metrics", "addr", addr)
	return srv
}
