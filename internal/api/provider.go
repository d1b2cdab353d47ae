package api

import (
	"context"
	"errors"
	"fmt"
)

// Provider defines the interface for AI chat providers.
// Implementations include DeepSeek, OpenAI-compatible endpoints and Ollama
// local models.
type Provider interface {
	// SendMessage sends a message request and returns the response.
	SendMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)

	// Name returns the provider name (e.g., "deepseek", "ollama").
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// ErrProviderDisabled is returned by Disabled.
var ErrProviderDisabled = errors.New("no LLM provider configured")

// Disabled stands in when the configured provider cannot be created, so the
// rest of the server keeps working and report generation fails cleanly.
type Disabled struct {
	Reason error
}

func (d Disabled) SendMessage(context.Context, MessageRequest) (*MessageResponse, error) {
	if d.Reason != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDisabled, d.Reason)
	}
	return nil, ErrProviderDisabled
}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Close() error { return nil }
