package core

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// Logger interface
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	Fatal(format string, args ...any)
}

// ConfigStore holds the process-wide endpoints config under a single constant key.
type ConfigStore interface {
	// GetEndpointsConfig returns false when nothing has been published yet.
	GetEndpointsConfig(ctx context.Context) (EndpointsConfig, bool, error)
	SetEndpointsConfig(ctx context.Context, cfg EndpointsConfig) error
	Close() error
}

// StorageInterface storage interface
type StorageInterface interface {
	SaveStats(stats *RequestStats) error
	LoadStats() (*RequestStats, error)
	Close() error
}

// AssistantLister is the listing capability of a vendor client.
// *openai.Client satisfies it.
type AssistantLister interface {
	ListAssistants(ctx context.Context, limit *int, order *string, after *string, before *string) (openai.AssistantsList, error)
}

// NopLogger empty logger implementation
type NopLogger struct{}

func (*NopLogger) Debug(format string, args ...any) {}
func (*NopLogger) Info(format string, args ...any)  {}
func (*NopLogger) Warn(format string, args ...any)  {}
func (*NopLogger) Error(format string, args ...any) {}
func (*NopLogger) Fatal(format string, args ...any) {}
