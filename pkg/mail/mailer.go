package mail

import (
	"context"
	"errors"
	"strings"
)

// ErrNoRecipients is returned when a message has no usable recipient.
var ErrNoRecipients = errors.New("mail: at least one recipient is required")

// Message represents an outbound email. HTML is optional; when present the
// message is delivered as multipart/alternative.
type Message struct {
	From    string
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Provider returns the delivery backend name used for metrics labels.
func Provider(m Mailer) string {
	if named, ok := m.(interface{ Provider() string }); ok {
		return named.Provider()
	}
	return "custom"
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
