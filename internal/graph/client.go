package graph

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"email-dispatcher/internal/config"
	"email-dispatcher/internal/models"
)

const (
	DefaultLoginURL = "https://login.microsoftonline.com"
	DefaultGraphURL = "https://graph.microsoft.com/v1.0"
)

// Client sends mail through the Microsoft Graph sendMail endpoint using the
// client credentials flow.
type Client struct {
	cfg         config.Graph
	senderEmail string
	loginURL    string
	graphURL    string
	client      *http.Client
	log         *zap.SugaredLogger
}

type Option func(*Client)

// WithEndpoints overrides the identity and Graph base URLs.
func WithEndpoints(loginURL, graphURL string) Option {
	return func(c *Client) {
		c.loginURL = strings.TrimRight(loginURL, "/")
		c.graphURL = strings.TrimRight(graphURL, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// oAuthTokenResponse wird verwendet, um die Antwort des Token-Endpunkts zu parsen.
type oAuthTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type sendMailRequest struct {
	Message         graphMessage `json:"message"`
	SaveToSentItems bool         `json:"saveToSentItems"`
}

type graphMessage struct {
	Subject      string       `json:"subject"`
	Body         body         `json:"body"`
	From         *recipient   `json:"from,omitempty"`
	ToRecipients []recipient  `json:"toRecipients"`
	Attachments  []attachment `json:"attachments,omitempty"`
}

type body struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type attachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// NewClient erstellt eine neue Instanz des Graph-API-Clients.
func NewClient(cfg config.Graph, senderEmail string, log *zap.SugaredLogger, opts ...Option) *Client {
	c := &Client{
		cfg:         cfg,
		senderEmail: senderEmail,
		loginURL:    DefaultLoginURL,
		graphURL:    DefaultGraphURL,
		client:      &http.Client{Timeout: 20 * time.Second},
		log:         log.Named("graph"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Debugw("Graph client initialized", "tenantID", cfg.TenantID, "clientID", cfg.ClientID)
	return c
}

func (c *Client) Name() string {
	return config.TransportGraph
}

// Send posts msg to the sender's sendMail endpoint. Only 202 Accepted counts
// as success.
func (c *Client) Send(ctx context.Context, msg models.OutboundMessage) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	payload := sendMailRequest{
		Message: graphMessage{
			Subject:      msg.Subject,
			Body:         body{ContentType: "Text", Content: msg.Body},
			ToRecipients: []recipient{{EmailAddress: emailAddress{Address: msg.To}}},
		},
		SaveToSentItems: true,
	}
	if msg.From.Address != "" {
		payload.Message.From = &recipient{EmailAddress: emailAddress{Address: msg.From.Address, Name: msg.From.Name}}
	}
	if a := msg.Attachment; a.Name != "" {
		payload.Message.Attachments = []attachment{{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         a.Name,
			ContentType:  a.MimeType,
			ContentBytes: base64.StdEncoding.EncodeToString(a.Content),
		}}
	}

	emailBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/users/%s/sendMail", c.graphURL, url.PathEscape(c.senderEmail))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(emailBytes))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("throttled by graph api (retry-after %q): %s", resp.Header.Get("Retry-After"), string(bodyBytes))
		}
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	return nil
}

// getAccessToken ruft ein OAuth2-Zugriffstoken von Microsoft Identity Platform ab.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	tokenURL := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.loginURL, url.PathEscape(c.cfg.TenantID))
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"scope":         {"https://graph.microsoft.com/.default"},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"client_credentials"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to get token, status: %d, response: %s", resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse oAuthTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	return tokenResponse.AccessToken, nil
}
