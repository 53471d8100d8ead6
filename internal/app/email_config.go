package app

import (
	"strings"

	"github.com/lifeloop/lifeloop/pkg/mail"
)

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// MailgunSettings converts EmailConfig to the Mailgun client settings.
func (c EmailConfig) MailgunSettings() mail.MailgunSettings {
	return mail.MailgunSettings{
		APIKey:  strings.TrimSpace(c.Mailgun.APIKey),
		Domain:  strings.TrimSpace(c.Mailgun.Domain),
		From:    strings.TrimSpace(c.Mailgun.From),
		BaseURL: strings.TrimSpace(c.Mailgun.BaseURL),
		Timeout: c.Mailgun.Timeout,
	}
}
