package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-dispatcher/internal/logging"
	"email-dispatcher/internal/models"
)

type scriptedMailer struct {
	// failures holds the number of leading attempts that fail.
	failures int
	calls    int
}

func (m *scriptedMailer) Name() string { return "scripted" }

func (m *scriptedMailer) Send(_ context.Context, _ models.OutboundMessage) error {
	m.calls++
	if m.calls <= m.failures {
		return errors.New("connection refused")
	}
	return nil
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(d time.Duration) { s.waits = append(s.waits, d) }

func newTestEngine(m Mailer, p Policy) (*Engine, *recordingSleeper) {
	s := &recordingSleeper{}
	return NewEngine(m, p, logging.NewTestLogger(), WithSleeper(s.sleep)), s
}

func TestDeliver_ExhaustsRetries(t *testing.T) {
	mailer := &scriptedMailer{failures: 100}
	engine, sleeper := newTestEngine(mailer, DefaultPolicy())

	res := engine.Deliver(context.Background(), models.OutboundMessage{To: "a@example.com"})

	assert.Equal(t, models.OutcomeFailedAfterRetries, res.Outcome)
	assert.Equal(t, DefaultMaxAttempts, res.Attempts)
	assert.Equal(t, DefaultMaxAttempts, mailer.calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, sleeper.waits)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, ErrTransportFailure)
	assert.Contains(t, res.Err.Error(), "connection refused")
}

func TestDeliver_ShortCircuitsOnSuccess(t *testing.T) {
	mailer := &scriptedMailer{failures: 1}
	engine, sleeper := newTestEngine(mailer, DefaultPolicy())

	res := engine.Deliver(context.Background(), models.OutboundMessage{To: "a@example.com"})

	assert.Equal(t, models.OutcomeSent, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, mailer.calls)
	assert.Equal(t, []time.Duration{5 * time.Second}, sleeper.waits)
	assert.NoError(t, res.Err)
}

func TestDeliver_FirstAttemptSucceeds(t *testing.T) {
	mailer := &scriptedMailer{}
	engine, sleeper := newTestEngine(mailer, DefaultPolicy())

	res := engine.Deliver(context.Background(), models.OutboundMessage{To: "a@example.com"})

	assert.Equal(t, models.OutcomeSent, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, sleeper.waits)
}

func TestDeliver_LinearBackoff(t *testing.T) {
	mailer := &scriptedMailer{failures: 100}
	engine, sleeper := newTestEngine(mailer, Policy{MaxAttempts: 5, Backoff: time.Second})

	res := engine.Deliver(context.Background(), models.OutboundMessage{})

	assert.Equal(t, 5, res.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}, sleeper.waits)
}

func TestNewEngine_Defaults(t *testing.T) {
	mailer := &scriptedMailer{failures: 100}
	engine, sleeper := newTestEngine(mailer, Policy{MaxAttempts: 0, Backoff: -time.Second})

	res := engine.Deliver(context.Background(), models.OutboundMessage{})

	assert.Equal(t, DefaultMaxAttempts, res.Attempts)
	assert.Equal(t, []time.Duration{0, 0}, sleeper.waits)
}
