package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const (
	defaultElevenLabsBaseURL = "https://api.elevenlabs.io"
	defaultAudioContentType  = "audio/mpeg"
	defaultSampleFilename    = "voice-sample"
)

// HTTPDoer abstracts *http.Client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ElevenLabsSettings configure the voice cloning API.
type ElevenLabsSettings struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// ElevenLabsRegistrar adds instant voice clones via POST /v1/voices/add.
type ElevenLabsRegistrar struct {
	apiKey  string
	baseURL string
	client  HTTPDoer
}

// NewElevenLabsRegistrar builds a registrar; client may be nil.
func NewElevenLabsRegistrar(settings ElevenLabsSettings, client HTTPDoer) (*ElevenLabsRegistrar, error) {
	if strings.TrimSpace(settings.APIKey) == "" {
		return nil, errors.New("voice: elevenlabs api key is required")
	}
	baseURL := strings.TrimRight(settings.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	if client == nil {
		timeout := settings.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &ElevenLabsRegistrar{
		apiKey:  settings.APIKey,
		baseURL: baseURL,
		client:  client,
	}, nil
}

type addVoiceResponse struct {
	VoiceID string `json:"voice_id"`
}

// Register uploads the sample and returns the new voice_id.
func (r *ElevenLabsRegistrar) Register(ctx context.Context, sample Sample) (string, error) {
	if len(sample.Data) == 0 {
		return "", errors.New("voice: sample is empty")
	}

	filename := sample.Filename
	if strings.TrimSpace(filename) == "" {
		filename = defaultSampleFilename
	}
	contentType := sample.ContentType
	if contentType == "" {
		contentType = defaultAudioContentType
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("name", sample.Name); err != nil {
		return "", fmt.Errorf("voice: write name: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("voice: create file part: %w", err)
	}
	if _, err := part.Write(sample.Data); err != nil {
		return "", fmt.Errorf("voice: write file part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("voice: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/voices/add", &body)
	if err != nil {
		return "", fmt.Errorf("voice: build request: %w", err)
	}
	req.Header.Set("xi-api-key", r.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("voice: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("voice: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("voice: elevenlabs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded addVoiceResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("voice: decode response: %w", err)
	}
	return decoded.VoiceID, nil
}
