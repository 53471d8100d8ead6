package app

import (
	"strings"

	"github.com/lifeloop/lifeloop/internal/database"
	"github.com/lifeloop/lifeloop/pkg/storage"
	"github.com/lifeloop/lifeloop/pkg/voice"
)

// R2Settings converts StorageConfig into the object store settings.
func (c StorageConfig) R2Settings() storage.R2Settings {
	return storage.R2Settings{
		Endpoint:        strings.TrimSpace(c.Endpoint),
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: c.SecretAccessKey,
		Bucket:          strings.TrimSpace(c.Bucket),
		Region:          strings.TrimSpace(c.Region),
		PublicBaseURL:   strings.TrimSpace(c.PublicBaseURL),
	}
}

// ElevenLabsSettings converts VoiceConfig into the registrar settings.
func (c VoiceConfig) ElevenLabsSettings() voice.ElevenLabsSettings {
	return voice.ElevenLabsSettings{
		APIKey:  strings.TrimSpace(c.ElevenLabs.APIKey),
		BaseURL: strings.TrimSpace(c.ElevenLabs.BaseURL),
		Timeout: c.ElevenLabs.Timeout,
	}
}

// ConnectionConfig converts DatabaseConfig into the database package representation.
// Host based settings apply only to the enabled server driver.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	cfg := database.Config{
		Driver: strings.TrimSpace(c.Driver),
		Path:   strings.TrimSpace(c.Path),
		DSN:    strings.TrimSpace(c.DSN),
	}

	var server DBAuthConfig
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "postgresql", "pg":
		server = c.Postgres
	case "mysql":
		server = c.MySQL
	}
	if server.Enabled {
		cfg.Host = server.Host
		cfg.Port = server.Port
		cfg.Name = server.Database
		cfg.User = server.Username
		cfg.Password = server.Password
	}
	return cfg
}
