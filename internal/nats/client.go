package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"email-dispatcher/internal/report"
)

const (
	StreamName     = "DISPATCH"
	StreamSubj     = "DISPATCH.*"
	OutcomeSubject = "DISPATCH.outcome"
)

// Setup connects to NATS and makes sure the dispatch stream exists.
func Setup(natsURL string, log *zap.SugaredLogger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(natsURL, nats.Name("email-dispatcher"))
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("error creating JetStream context: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamSubj},
	})
	if err != nil {
		log.Warnw("Could not create stream (it likely already exists)", "stream", StreamName, "error", err)
	}

	return nc, js, nil
}

type publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Journal publishes every outcome event to the dispatch stream.
type Journal struct {
	js publisher
}

func NewJournal(js nats.JetStreamContext) *Journal {
	return &Journal{js: js}
}

func (j *Journal) Name() string {
	return "nats"
}

func (j *Journal) Append(_ context.Context, ev report.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome event: %w", err)
	}
	if _, err := j.js.Publish(OutcomeSubject, data); err != nil {
		return fmt.Errorf("failed to publish outcome event: %w", err)
	}
	return nil
}
