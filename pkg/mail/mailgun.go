package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultMailgunBaseURL = "https://api.mailgun.net"

// HTTPDoer is the subset of *http.Client used by the REST mailers.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MailgunSettings configure delivery through the Mailgun messages API.
type MailgunSettings struct {
	APIKey  string
	Domain  string
	From    string
	BaseURL string
	Timeout time.Duration
}

// Configured reports whether the key, domain and sender are all present.
func (s MailgunSettings) Configured() bool {
	return strings.TrimSpace(s.APIKey) != "" &&
		strings.TrimSpace(s.Domain) != "" &&
		strings.TrimSpace(s.From) != ""
}

// MailgunMailer posts messages to {base}/v3/{domain}/messages.
type MailgunMailer struct {
	settings MailgunSettings
	client   HTTPDoer
}

// MailgunOption customises a MailgunMailer.
type MailgunOption func(*MailgunMailer)

// WithMailgunHTTPClient overrides the HTTP client.
func WithMailgunHTTPClient(client HTTPDoer) MailgunOption {
	return func(m *MailgunMailer) {
		if client != nil {
			m.client = client
		}
	}
}

// NewMailgunMailer validates settings and returns a Mailgun-backed mailer.
func NewMailgunMailer(settings MailgunSettings, opts ...MailgunOption) (*MailgunMailer, error) {
	if !settings.Configured() {
		return nil, errors.New("mailgun: api key, domain and from address are required")
	}
	if strings.TrimSpace(settings.BaseURL) == "" {
		settings.BaseURL = defaultMailgunBaseURL
	}
	settings.BaseURL = strings.TrimRight(settings.BaseURL, "/")
	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}

	m := &MailgunMailer{
		settings: settings,
		client:   &http.Client{Timeout: settings.Timeout},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *MailgunMailer) Provider() string { return "mailgun" }

// Send delivers one message. Non-2xx responses become errors carrying the body text.
func (m *MailgunMailer) Send(ctx context.Context, msg Message) error {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.settings.From
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := []struct{ name, value string }{
		{"from", from},
		{"to", strings.Join(recipients, ",")},
		{"subject", escapeHeader(msg.Subject)},
		{"text", msg.Text},
		{"html", msg.HTML},
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		if err := writer.WriteField(field.name, field.value); err != nil {
			return fmt.Errorf("mailgun: write field %s: %w", field.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("mailgun: close form: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v3/%s/messages", m.settings.BaseURL, m.settings.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return fmt.Errorf("mailgun: build request: %w", err)
	}
	req.SetBasicAuth("api", m.settings.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mailgun: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mailgun: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
