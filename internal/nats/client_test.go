package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-dispatcher/internal/models"
	"email-dispatcher/internal/report"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return &nats.PubAck{Stream: StreamName}, nil
}

func TestJournal_Append(t *testing.T) {
	pub := &fakePublisher{}
	j := &Journal{js: pub}

	ev := report.Event{RunID: "run-1", Row: 2, Email: "a@example.com", Outcome: models.OutcomeSent, Attempts: 1}
	require.NoError(t, j.Append(context.Background(), ev))

	require.Equal(t, []string{OutcomeSubject}, pub.subjects)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "sent", decoded["outcome"])
	assert.EqualValues(t, 2, decoded["row_number"])
	assert.Equal(t, "nats", j.Name())
}

func TestJournal_AppendError(t *testing.T) {
	j := &Journal{js: &fakePublisher{err: errors.New("no responders")}}

	err := j.Append(context.Background(), report.Event{})
	assert.ErrorContains(t, err, "no responders")
}
