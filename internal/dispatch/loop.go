// Package dispatch runs the per-recipient state machine: resolve, build,
// then preview or deliver, reporting exactly one outcome per visited record.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"email-dispatcher/internal/delivery"
	"email-dispatcher/internal/message"
	"email-dispatcher/internal/models"
	"email-dispatcher/internal/recipient"
	"email-dispatcher/internal/report"
)

var ErrNoRecords = errors.New("no records found")

// Source yields records in order and returns io.EOF when exhausted.
type Source interface {
	Next() (models.Record, error)
}

// Deliverer sends one message and returns its verdict.
type Deliverer interface {
	Deliver(ctx context.Context, msg models.OutboundMessage) delivery.Result
}

// Reporter receives one entry per visited record.
type Reporter interface {
	Record(ctx context.Context, e report.Entry)
}

type Options struct {
	// Send selects delivery; otherwise every message is previewed.
	Send bool
	// Delay is the pause after each delivery in send mode.
	Delay time.Duration
}

type Loop struct {
	opts     Options
	builder  *message.Builder
	engine   Deliverer
	preview  io.Writer
	reporter Reporter
	sleep    delivery.Sleeper
	log      *zap.SugaredLogger
}

type Option func(*Loop)

// WithSleeper replaces time.Sleep for the throttle delay.
func WithSleeper(s delivery.Sleeper) Option {
	return func(l *Loop) { l.sleep = s }
}

func New(opts Options, builder *message.Builder, engine Deliverer, preview io.Writer, reporter Reporter, log *zap.SugaredLogger, extra ...Option) *Loop {
	l := &Loop{
		opts:     opts,
		builder:  builder,
		engine:   engine,
		preview:  preview,
		reporter: reporter,
		sleep:    time.Sleep,
		log:      log.Named("dispatch"),
	}
	for _, o := range extra {
		o(l)
	}
	return l
}

// Run processes src until it is exhausted. It returns ErrNoRecords for an
// empty source and a wrapped message.ErrAttachmentNotFound when the run
// halts on a missing attachment.
func (l *Loop) Run(ctx context.Context, src Source) error {
	first, err := src.Next()
	if errors.Is(err, io.EOF) {
		l.log.Errorw("No records found, aborting")
		return ErrNoRecords
	}
	if err != nil {
		return l.sourceError(err)
	}

	// The attachment is shared by every message, so check it before the
	// first record is visited.
	if _, err := l.builder.Attachment(); err != nil {
		return l.halt(ctx, report.Entry{Row: first.Row, Email: first.Email, Company: first.Company}, err)
	}

	rec := first
	for {
		if err := l.step(ctx, rec); err != nil {
			return err
		}
		rec, err = src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return l.sourceError(err)
		}
	}
}

func (l *Loop) step(ctx context.Context, rec models.Record) error {
	entry := report.Entry{Row: rec.Row, Email: rec.Email, Company: rec.Company}

	r, err := recipient.Resolve(rec)
	if err != nil {
		entry.Outcome = models.OutcomeSkippedMissingEmail
		l.reporter.Record(ctx, entry)
		return nil
	}
	entry.Email = r.Email
	entry.Company = r.Context.Company

	msg, err := l.builder.Build(r)
	if err != nil {
		return l.halt(ctx, entry, err)
	}

	if !l.opts.Send {
		if err := WritePreview(l.preview, msg, l.builder.AttachmentPath()); err != nil {
			l.log.Warnw("Failed to write preview", "row", rec.Row, "error", err)
		}
		entry.Outcome = models.OutcomePreviewed
		l.reporter.Record(ctx, entry)
		return nil
	}

	res := l.engine.Deliver(ctx, msg)
	entry.Outcome = res.Outcome
	entry.Attempts = res.Attempts
	entry.Err = res.Err
	l.reporter.Record(ctx, entry)

	if l.opts.Delay > 0 {
		l.sleep(l.opts.Delay)
	}
	return nil
}

func (l *Loop) halt(ctx context.Context, entry report.Entry, err error) error {
	l.log.Errorw("Attachment error, halting run", "row", entry.Row, "error", err)
	entry.Outcome = models.OutcomeSkippedBuildError
	entry.Err = err
	l.reporter.Record(ctx, entry)
	return fmt.Errorf("build message: %w", err)
}

func (l *Loop) sourceError(err error) error {
	l.log.Errorw("Failed to read records, aborting", "error", err)
	return fmt.Errorf("read records: %w", err)
}
