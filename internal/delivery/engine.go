package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"email-dispatcher/internal/metrics"
	"email-dispatcher/internal/models"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 5 * time.Second
)

var ErrTransportFailure = errors.New("transport failure")

// Mailer sends a single message over a remote transport.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg models.OutboundMessage) error
}

// Sleeper blocks for the given duration.
type Sleeper func(time.Duration)

// Policy bounds the retry loop. The wait after failed attempt k is Backoff*k.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Backoff: DefaultBackoff}
}

// Wait returns the pause after the given failed attempt.
func (p Policy) Wait(attempt int) time.Duration {
	return p.Backoff * time.Duration(attempt)
}

// Result is the verdict for one message.
type Result struct {
	Outcome  models.Outcome
	Attempts int
	Err      error
}

type state int

const (
	stateAttempting state = iota
	stateSent
	stateExhausted
)

// Engine delivers messages one at a time with bounded retry.
type Engine struct {
	mailer Mailer
	policy Policy
	sleep  Sleeper
	log    *zap.SugaredLogger
}

type Option func(*Engine)

// WithSleeper replaces time.Sleep for backoff waits.
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) { e.sleep = s }
}

func NewEngine(mailer Mailer, policy Policy, log *zap.SugaredLogger, opts ...Option) *Engine {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.Backoff < 0 {
		policy.Backoff = 0
	}
	e := &Engine{
		mailer: mailer,
		policy: policy,
		sleep:  time.Sleep,
		log:    log.Named("delivery"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Deliver sends msg, retrying failed attempts until the policy is exhausted.
func (e *Engine) Deliver(ctx context.Context, msg models.OutboundMessage) Result {
	var lastErr error
	attempt := 1
	st := stateAttempting

	for st == stateAttempting {
		err := e.attempt(ctx, msg, attempt)
		switch {
		case err == nil:
			st = stateSent
		case attempt >= e.policy.MaxAttempts:
			lastErr = err
			st = stateExhausted
		default:
			wait := e.policy.Wait(attempt)
			e.log.Warnw("Send attempt failed, retrying",
				"to", msg.To,
				"attempt", attempt,
				"retryIn", wait.String(),
				"error", err)
			metrics.BackoffSeconds.WithLabelValues(e.mailer.Name()).Add(wait.Seconds())
			e.sleep(wait)
			attempt++
		}
	}

	if st == stateSent {
		return Result{Outcome: models.OutcomeSent, Attempts: attempt}
	}

	e.log.Errorw("Send attempt failed, no retries left",
		"to", msg.To,
		"attempt", attempt,
		"error", lastErr)
	return Result{
		Outcome:  models.OutcomeFailedAfterRetries,
		Attempts: attempt,
		Err:      fmt.Errorf("%w: %d attempts: %w", ErrTransportFailure, attempt, lastErr),
	}
}

func (e *Engine) attempt(ctx context.Context, msg models.OutboundMessage, n int) (err error) {
	span, ctx := tracer.StartSpanFromContext(ctx, "dispatch.deliver.attempt",
		tracer.ResourceName(e.mailer.Name()),
		tracer.Tag("attempt", n),
		tracer.Tag("recipient", msg.To))
	defer func() { span.Finish(tracer.WithError(err)) }()

	err = e.mailer.Send(ctx, msg)
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.SendAttempts.WithLabelValues(e.mailer.Name(), result).Inc()
	return err
}
