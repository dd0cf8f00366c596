package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"email-dispatcher/internal/config"
	"email-dispatcher/internal/logging"
	"email-dispatcher/internal/models"
)

type fakeGraph struct {
	tokenStatus int
	sendStatus  int
	received    sendMailRequest
	auth        string
	sendPath    string
}

func (f *fakeGraph) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		if f.tokenStatus != http.StatusOK {
			http.Error(w, "invalid_client", f.tokenStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(oAuthTokenResponse{AccessToken: "tok"})
	})
	mux.HandleFunc("/v1.0/users/", func(w http.ResponseWriter, r *http.Request) {
		f.sendPath = r.URL.Path
		f.auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.received))
		w.WriteHeader(f.sendStatus)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeGraph) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	cfg := config.Graph{TenantID: "tenant-1", ClientID: "client-1", ClientSecret: "secret"}
	return NewClient(cfg, "sender@example.com", logging.NewTestLogger(),
		WithEndpoints(srv.URL, srv.URL+"/v1.0"), WithHTTPClient(srv.Client()))
}

func testMessage() models.OutboundMessage {
	return models.OutboundMessage{
		From:       models.Sender{Name: "Ayush", Address: "sender@example.com"},
		To:         "hr@acme.test",
		Subject:    "Hello",
		Body:       "Hi Jane",
		Attachment: models.Attachment{Name: "resume.pdf", Content: []byte("pdf"), MimeType: "application/pdf"},
	}
}

func TestSend_Accepted(t *testing.T) {
	f := &fakeGraph{tokenStatus: http.StatusOK, sendStatus: http.StatusAccepted}
	c := newTestClient(t, f)

	require.NoError(t, c.Send(context.Background(), testMessage()))

	assert.Equal(t, "graph", c.Name())
	assert.Equal(t, "/v1.0/users/sender@example.com/sendMail", f.sendPath)
	assert.Equal(t, "Bearer tok", f.auth)
	assert.Equal(t, "Hello", f.received.Message.Subject)
	require.Len(t, f.received.Message.ToRecipients, 1)
	assert.Equal(t, "hr@acme.test", f.received.Message.ToRecipients[0].EmailAddress.Address)
	require.Len(t, f.received.Message.Attachments, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("pdf")), f.received.Message.Attachments[0].ContentBytes)
	assert.True(t, f.received.SaveToSentItems)
}

func TestSend_Failures(t *testing.T) {
	tests := []struct {
		name    string
		fake    fakeGraph
		wantErr string
	}{
		{"token rejected", fakeGraph{tokenStatus: http.StatusUnauthorized, sendStatus: http.StatusAccepted}, "authentication failed"},
		{"throttled", fakeGraph{tokenStatus: http.StatusOK, sendStatus: http.StatusTooManyRequests}, "throttled"},
		{"server error", fakeGraph{tokenStatus: http.StatusOK, sendStatus: http.StatusInternalServerError}, "unexpected status 500"},
		{"ok is not accepted", fakeGraph{tokenStatus: http.StatusOK, sendStatus: http.StatusOK}, "unexpected status 200"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.fake
			c := newTestClient(t, &f)
			err := c.Send(context.Background(), testMessage())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
