package voice

import "context"

// Sample is an uploaded audio clip to register as a cloned voice.
type Sample struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// Registrar registers voice samples with a cloning provider and returns the
// provider's voice identifier.
type Registrar interface {
	Register(ctx context.Context, sample Sample) (string, error)
}

// NoopRegistrar is used when no provider is configured. It never registers anything.
type NoopRegistrar struct{}

func (NoopRegistrar) Register(context.Context, Sample) (string, error) {
	return "", nil
}
