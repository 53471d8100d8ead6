package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMailgunMailerRequiresSettings(t *testing.T) {
	_, err := NewMailgunMailer(MailgunSettings{APIKey: "key"})
	require.Error(t, err)
}

func TestMailgunMailerSend(t *testing.T) {
	var (
		gotPath string
		gotUser string
		gotPass string
		form    map[string]string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		require.NoError(t, r.ParseMultipartForm(1<<20))
		form = map[string]string{}
		for key, values := range r.MultipartForm.Value {
			form[key] = values[0]
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"<1@mg>","message":"Queued. Thank you."}`))
	}))
	defer server.Close()

	mailer, err := NewMailgunMailer(MailgunSettings{
		APIKey:  "key-123",
		Domain:  "mg.lifeloop.app",
		From:    "LifeLoop <hello@lifeloop.app>",
		BaseURL: server.URL + "/",
	}, WithMailgunHTTPClient(server.Client()))
	require.NoError(t, err)
	require.Equal(t, "mailgun", Provider(mailer))

	err = mailer.Send(context.Background(), Message{
		To:      []string{"mom@example.com"},
		Subject: "LifeLoop consent request for alice_campus",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)

	require.Equal(t, "/v3/mg.lifeloop.app/messages", gotPath)
	require.Equal(t, "api", gotUser)
	require.Equal(t, "key-123", gotPass)
	require.Equal(t, "LifeLoop <hello@lifeloop.app>", form["from"])
	require.Equal(t, "mom@example.com", form["to"])
	require.Equal(t, "LifeLoop consent request for alice_campus", form["subject"])
	require.Equal(t, "plain", form["text"])
	require.Equal(t, "<p>html</p>", form["html"])
}

func TestMailgunMailerSurfacesFailureBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusUnauthorized)
	}))
	defer server.Close()

	mailer, err := NewMailgunMailer(MailgunSettings{
		APIKey:  "bad",
		Domain:  "mg.lifeloop.app",
		From:    "hello@lifeloop.app",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	err = mailer.Send(context.Background(), Message{To: []string{"mom@example.com"}, Text: "x"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 401")
	require.Contains(t, err.Error(), "Forbidden")
}

func TestMailgunMailerRequiresRecipient(t *testing.T) {
	mailer, err := NewMailgunMailer(MailgunSettings{APIKey: "k", Domain: "d", From: "a@b.co"})
	require.NoError(t, err)

	require.ErrorIs(t, mailer.Send(context.Background(), Message{}), ErrNoRecipients)
}

func TestProviderFallsBackToCustom(t *testing.T) {
	require.Equal(t, "custom", Provider(nil))
}
