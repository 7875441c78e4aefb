package domain

import (
	"fmt"
	"time"
)

// StorageSettings holds object store configuration.
type StorageSettings struct {
	// DataDir is where the SQLite database lives.
	// Empty means ~/.webstash/data.
	DataDir string
}

// MessagingSettings holds cross-context messaging configuration.
type MessagingSettings struct {
	// Timeout bounds how long a sender waits for a response.
	Timeout time.Duration

	// HistorySize is how many acknowledged request ids are remembered.
	HistorySize int

	// HistoryTTL is how long an acknowledged request id is remembered.
	HistoryTTL time.Duration
}

// ServerSettings holds background daemon configuration.
type ServerSettings struct {
	// Addr is the listen address of the background daemon. When set,
	// CLI commands send mutations to it instead of running in-process.
	Addr string

	// AllowedOrigins lists the browser origins that may post messages.
	// Wildcards such as "chrome-extension://*" are accepted.
	AllowedOrigins []string
}

// CaptureSettings holds page capture configuration.
type CaptureSettings struct {
	// RatePerSecond throttles outgoing fetches.
	RatePerSecond float64

	// Timeout bounds a single page or image fetch.
	Timeout time.Duration

	// UserAgent is sent with every fetch.
	UserAgent string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Storage   StorageSettings
	Messaging MessagingSettings
	Server    ServerSettings
	Capture   CaptureSettings
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Messaging: MessagingSettings{
			Timeout:     30 * time.Second,
			HistorySize: 256,
			HistoryTTL:  10 * time.Minute,
		},
		Capture: CaptureSettings{
			RatePerSecond: 2,
			Timeout:       20 * time.Second,
			UserAgent:     "webstash/1.0",
		},
	}
}

// Validate checks that durations and sizes are usable.
func (s AppSettings) Validate() error {
	if s.Messaging.Timeout <= 0 {
		return fmt.Errorf("%w: messaging timeout must be positive", ErrInvalidInput)
	}
	if s.Messaging.HistorySize <= 0 {
		return fmt.Errorf("%w: messaging history size must be positive", ErrInvalidInput)
	}
	if s.Messaging.HistoryTTL <= 0 {
		return fmt.Errorf("%w: messaging history ttl must be positive", ErrInvalidInput)
	}
	if s.Capture.RatePerSecond <= 0 {
		return fmt.Errorf("%w: capture rate must be positive", ErrInvalidInput)
	}
	if s.Capture.Timeout <= 0 {
		return fmt.Errorf("%w: capture timeout must be positive", ErrInvalidInput)
	}
	return nil
}
