package web

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfirmationPageSuccess(t *testing.T) {
	body, err := MustRenderer().ConfirmationPage(ConfirmationPage{Success: true, Message: "Thanks for confirming!"})
	require.NoError(t, err)

	page := string(body)
	require.Contains(t, page, "<title>LifeLoop Consent</title>")
	require.Contains(t, page, "Consent confirmed!")
	require.Contains(t, page, "#16a34a")
	require.Contains(t, page, "Thanks for confirming!")
}

func TestConfirmationPageFailureEscapesMessage(t *testing.T) {
	body, err := MustRenderer().ConfirmationPage(ConfirmationPage{Message: "<script>x</script>"})
	require.NoError(t, err)

	page := string(body)
	require.Contains(t, page, "We hit a snag")
	require.Contains(t, page, "#dc2626")
	require.NotContains(t, page, "<script>")
}

func TestParentEmail(t *testing.T) {
	link := "https://lifeloop.app/api/parent-request/confirm?token=abc-123"
	text, html, err := MustRenderer().ParentEmail(ParentEmail{Handle: "alice_campus", Link: link})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(text, "Hi there,"))
	require.Contains(t, text, "alice_campus has invited you to join LifeLoop")
	require.Contains(t, text, "Confirm consent: "+link)
	require.Contains(t, html, `href="`+link+`"`)
	require.Contains(t, html, "#1d4ed8")
}

func TestDigest(t *testing.T) {
	r := MustRenderer()

	empty, err := r.Digest(Digest{})
	require.NoError(t, err)
	require.Contains(t, empty, "your student's story")
	require.Contains(t, empty, "No new memories yet")

	full, err := r.Digest(Digest{
		StudentName: "alice_campus",
		Items: []DigestItem{{
			ImageURL:       "https://cdn.example.com/a.jpg",
			Caption:        "Robotics showcase",
			AudioURL:       "https://cdn.example.com/a.mp3",
			ProcessedLabel: "June 03, 2024",
		}},
	})
	require.NoError(t, err)
	require.Contains(t, full, "Robotics showcase")
	require.Contains(t, full, "Play narrated update")
	require.NotContains(t, full, "No new memories yet")
}
