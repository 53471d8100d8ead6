package services

import (
	"context"
	"sync"

	"github.com/lifeloop/lifeloop/internal/ingestion"
	"github.com/lifeloop/lifeloop/pkg/mail"
	"github.com/lifeloop/lifeloop/pkg/voice"
)

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *recordingMailer) Provider() string { return "test" }

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}

type memoryStore struct {
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memoryStore) PutObject(_ context.Context, key string, body []byte, contentType string) error {
	if s.err != nil {
		return s.err
	}
	s.objects[key] = body
	s.types[key] = contentType
	return nil
}

func (s *memoryStore) PublicURL(key string) string {
	return "https://media.example.com/" + key
}

type stubRegistrar struct {
	id      string
	err     error
	samples []voice.Sample
}

func (r *stubRegistrar) Register(_ context.Context, sample voice.Sample) (string, error) {
	r.samples = append(r.samples, sample)
	return r.id, r.err
}

type stubBackend struct {
	configured   bool
	inserted     int
	processed    int
	ingestErr    error
	processErr   error
	ingestCalls  []ingestion.IngestRequest
	processCalls []int
}

func (b *stubBackend) Configured() bool { return b.configured }

func (b *stubBackend) Ingest(_ context.Context, req ingestion.IngestRequest) (int, error) {
	b.ingestCalls = append(b.ingestCalls, req)
	if b.ingestErr != nil {
		return 0, b.ingestErr
	}
	return b.inserted, nil
}

func (b *stubBackend) Process(_ context.Context, limit int) (int, error) {
	b.processCalls = append(b.processCalls, limit)
	if b.processErr != nil {
		return 0, b.processErr
	}
	return b.processed, nil
}
