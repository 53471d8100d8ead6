package handlers_test

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lifeloop/lifeloop/internal/handlers/testutil"
	"github.com/lifeloop/lifeloop/internal/models"
	appErrors "github.com/lifeloop/lifeloop/pkg/errors"
	"github.com/lifeloop/lifeloop/pkg/response"
)

var linkPattern = regexp.MustCompile(regexp.QuoteMeta(testutil.AppBaseURL) + `/api/parent-request/confirm\?token=([0-9a-f-]{36})`)

type consentBody struct {
	Message               string  `json:"message"`
	VoiceSampleURL        *string `json:"voiceSampleUrl"`
	VoiceProfileID        *string `json:"voiceProfileId"`
	ConfirmationExpiresAt string  `json:"confirmationExpiresAt"`
}

func consentValues(handle, parentEmail, granted string) url.Values {
	return url.Values{
		"instagramUsername": {handle},
		"parentEmail":       {parentEmail},
		"consentGranted":    {granted},
	}
}

func emailedToken(t *testing.T, env *testutil.Env) string {
	t.Helper()

	sent := env.Mailer.Sent()
	require.NotEmpty(t, sent)
	match := linkPattern.FindStringSubmatch(sent[len(sent)-1].Text)
	require.Len(t, match, 2, sent[len(sent)-1].Text)
	return match[1]
}

func TestConsentRequestAndConfirmEndToEnd(t *testing.T) {
	env := testutil.NewEnv(t)
	token := env.Token("student-1")

	rec := env.PostForm("/api/parent-request", consentValues("alice_campus", "mom@example.com", "true"), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := testutil.Decode[consentBody](t, rec)
	require.Equal(t, "Parent confirmation request recorded and email sent.", body.Message)
	require.Nil(t, body.VoiceSampleURL)
	require.Nil(t, body.VoiceProfileID)
	require.Equal(t, "2025-03-04T12:00:00.000Z", body.ConfirmationExpiresAt)

	sent := env.Mailer.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, []string{"mom@example.com"}, sent[0].To)

	raw := emailedToken(t, env)
	_, err := uuid.Parse(raw)
	require.NoError(t, err)

	records := env.Confirmations("student-1")
	require.Len(t, records, 1)
	require.Equal(t, models.ConfirmationStatusPending, records[0].Status)
	require.Equal(t, 72*time.Hour, records[0].ExpiresAt.Sub(records[0].CreatedAt))

	profile := env.Profile("student-1")
	require.Equal(t, "alice_campus", profile.IGUsername)
	require.False(t, profile.IsParentConfirmed)

	confirm := env.Request(http.MethodGet, "/api/parent-request/confirm?token="+raw, nil, "")
	require.Equal(t, http.StatusOK, confirm.Code)
	require.Equal(t, "text/html; charset=utf-8", confirm.Header().Get("Content-Type"))
	require.Contains(t, confirm.Body.String(), "Consent confirmed!")
	require.Contains(t, confirm.Body.String(), "Thanks for confirming!")

	require.True(t, env.Profile("student-1").IsParentConfirmed)
	records = env.Confirmations("student-1")
	require.Equal(t, models.ConfirmationStatusConfirmed, records[0].Status)
	require.NotNil(t, records[0].RespondedAt)

	replay := env.Request(http.MethodGet, "/api/parent-request/confirm?token="+raw, nil, "")
	require.Equal(t, http.StatusOK, replay.Code)
	require.Contains(t, replay.Body.String(), "already confirmed")
}

func TestConsentRequestMultipartWithVoiceSample(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.PostMultipart("/api/parent-request",
		consentValues("alice_campus", "mom@example.com", "true"),
		[]testutil.FileField{{
			Field:       "voiceSample",
			Filename:    "grandma hello.mp3",
			ContentType: "audio/mpeg",
			Data:        []byte("fake-audio"),
		}},
		env.Token("student-1"),
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := testutil.Decode[consentBody](t, rec)
	require.NotNil(t, body.VoiceSampleURL)
	require.Equal(t, "https://media.lifeloop.test/voice-samples/student-1/1740830400000-grandma_hello.mp3", *body.VoiceSampleURL)
	require.NotNil(t, body.VoiceProfileID)
	require.Equal(t, "voice-123", *body.VoiceProfileID)

	require.Equal(t, []byte("fake-audio"), env.Store.Objects["voice-samples/student-1/1740830400000-grandma_hello.mp3"])
	require.Len(t, env.Voices.Samples, 1)
}

func TestConsentRequestIgnoresEmptyVoiceFile(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.PostMultipart("/api/parent-request",
		consentValues("alice_campus", "mom@example.com", "true"),
		[]testutil.FileField{{Field: "voiceSample", Filename: "empty.mp3"}},
		env.Token("student-1"),
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Empty(t, env.Store.Objects)
	require.Nil(t, testutil.Decode[consentBody](t, rec).VoiceSampleURL)
}

func TestConsentRequestRejectsOversizedVoiceSample(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithMaxUpload(16))

	rec := env.PostMultipart("/api/parent-request",
		consentValues("alice_campus", "mom@example.com", "true"),
		[]testutil.FileField{{Field: "voiceSample", Filename: "long.mp3", Data: []byte(strings.Repeat("a", 32))}},
		env.Token("student-1"),
	)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, appErrors.CodeInvalidInput, testutil.Decode[response.ErrorBody](t, rec).Code)
	require.Empty(t, env.Store.Objects)
	require.Empty(t, env.Confirmations("student-1"))
}

func TestConsentRequestValidation(t *testing.T) {
	cases := []struct {
		name    string
		values  url.Values
		code    string
		message string
	}{
		{
			name:    "missing handle",
			values:  consentValues("", "mom@example.com", "true"),
			code:    appErrors.CodeInvalidInput,
			message: "Instagram username is required.",
		},
		{
			name:    "missing parent email",
			values:  consentValues("alice_campus", "", "true"),
			code:    appErrors.CodeInvalidInput,
			message: "Parent email is required.",
		},
		{
			name:    "handle checked before email",
			values:  consentValues(" ", "", "false"),
			code:    appErrors.CodeInvalidInput,
			message: "Instagram username is required.",
		},
		{
			name:    "invalid parent email",
			values:  consentValues("alice_campus", "not-an-email", "true"),
			code:    appErrors.CodeInvalidInput,
			message: "Parent email must be a valid email address.",
		},
		{
			name:    "consent false",
			values:  consentValues("alice_campus", "mom@example.com", "false"),
			code:    appErrors.CodeConsentRequired,
			message: "Consent must be granted before requesting parent confirmation.",
		},
		{
			name:    "consent missing",
			values:  url.Values{"instagramUsername": {"alice_campus"}, "parentEmail": {"mom@example.com"}},
			code:    appErrors.CodeConsentRequired,
			message: "Consent must be granted before requesting parent confirmation.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := testutil.NewEnv(t)

			rec := env.PostForm("/api/parent-request", tc.values, env.Token("student-1"))
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := testutil.Decode[response.ErrorBody](t, rec)
			require.Equal(t, tc.code, body.Code)
			require.Equal(t, tc.message, body.Error)

			require.Empty(t, env.Confirmations("student-1"))
			require.Empty(t, env.Mailer.Sent())
			var count int64
			require.NoError(t, env.DB.Model(&models.UserProfile{}).Count(&count).Error)
			require.Zero(t, count)
		})
	}
}

func TestConsentRequestRequiresAuthentication(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.PostForm("/api/parent-request", consentValues("alice_campus", "mom@example.com", "true"), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Unauthorized", testutil.Decode[response.ErrorBody](t, rec).Error)

	rec = env.PostForm("/api/parent-request", consentValues("alice_campus", "mom@example.com", "true"), "not-a-jwt")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, env.Mailer.Sent())
}

func TestConsentRequestEmailFailureKeepsWrites(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Mailer.Err = errTest("mailgun returned 500")

	rec := env.PostForm("/api/parent-request", consentValues("alice_campus", "mom@example.com", "true"), env.Token("student-1"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := testutil.Decode[response.ErrorBody](t, rec)
	require.Equal(t, appErrors.CodeEmailDelivery, body.Code)
	require.Equal(t, "Failed to send parent notification email.", body.Error)
	require.NotContains(t, rec.Body.String(), "mailgun returned 500")

	require.Len(t, env.Confirmations("student-1"), 1)
	require.Equal(t, "alice_campus", env.Profile("student-1").IGUsername)
}

func TestConsentRequestVoiceUploadFailure(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Store.Err = errTest("bucket unavailable")

	rec := env.PostMultipart("/api/parent-request",
		consentValues("alice_campus", "mom@example.com", "true"),
		[]testutil.FileField{{Field: "voiceSample", Filename: "voice.mp3", Data: []byte("audio")}},
		env.Token("student-1"),
	)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := testutil.Decode[response.ErrorBody](t, rec)
	require.Equal(t, appErrors.CodeUpstreamFailure, body.Code)
	require.Equal(t, "Voice sample upload failed.", body.Error)
	require.Empty(t, env.Confirmations("student-1"))
}

func TestConsentRequestNotConfigured(t *testing.T) {
	env := testutil.NewEnv(t, testutil.WithoutMailer())

	rec := env.PostForm("/api/parent-request", consentValues("alice_campus", "mom@example.com", "true"), env.Token("student-1"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, appErrors.CodeNotConfigured, testutil.Decode[response.ErrorBody](t, rec).Code)
	require.Empty(t, env.Confirmations("student-1"))
}

func TestConfirmFailurePages(t *testing.T) {
	env := testutil.NewEnv(t)

	missing := env.Request(http.MethodGet, "/api/parent-request/confirm", nil, "")
	require.Equal(t, http.StatusBadRequest, missing.Code)
	require.Contains(t, missing.Body.String(), "Missing confirmation token.")
	require.Contains(t, missing.Body.String(), "We hit a snag")

	unknown := env.Request(http.MethodGet, "/api/parent-request/confirm?token="+uuid.NewString(), nil, "")
	require.Equal(t, http.StatusBadRequest, unknown.Code)
	require.Contains(t, unknown.Body.String(), "could not find this confirmation request")
}

func TestConfirmExpiredLink(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.PostForm("/api/parent-request", consentValues("alice_campus", "mom@example.com", "true"), env.Token("student-1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	raw := emailedToken(t, env)

	require.NoError(t, env.DB.Model(&models.ParentConfirmation{}).
		Where("user_id = ?", "student-1").
		Update("expires_at", env.Now.Add(-time.Minute)).Error)

	confirm := env.Request(http.MethodGet, "/api/parent-request/confirm?token="+raw, nil, "")
	require.Equal(t, http.StatusBadRequest, confirm.Code)
	require.Contains(t, confirm.Body.String(), "This confirmation link has expired.")

	require.False(t, env.Profile("student-1").IsParentConfirmed)
	require.Equal(t, models.ConfirmationStatusPending, env.Confirmations("student-1")[0].Status)
}

type errTest string

func (e errTest) Error() string { return string(e) }
