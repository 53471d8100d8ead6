package storage

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const defaultVoiceSampleName = "voice-sample"

var whitespaceRun = regexp.MustCompile(`\s+`)

// ObjectStore persists uploaded blobs and resolves their public URLs.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	PublicURL(key string) string
}

// VoiceSampleKey builds the object key for a user's uploaded voice sample.
func VoiceSampleKey(userID, filename string, now time.Time) string {
	name := whitespaceRun.ReplaceAllString(strings.TrimSpace(filename), "_")
	if name == "" {
		name = defaultVoiceSampleName
	}
	return fmt.Sprintf("voice-samples/%s/%d-%s", userID, now.UnixMilli(), name)
}

func joinPublicURL(base, key string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return base + "/" + strings.TrimLeft(key, "/")
}
