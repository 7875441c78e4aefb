package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/ports/driven"
	"github.com/custodia-labs/webstash/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyDataDir          = "storage.data_dir"
	keyMessageTimeout   = "messaging.timeout"
	keyHistorySize      = "messaging.history_size"
	keyHistoryTTL       = "messaging.history_ttl"
	keyServerAddr       = "server.addr"
	keyAllowedOrigins   = "server.allowed_origins"
	keyCaptureRate      = "capture.rate"
	keyCaptureTimeout   = "capture.timeout"
	keyCaptureUserAgent = "capture.user_agent"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Missing or unparsable values fall back to their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Storage: domain.StorageSettings{
			DataDir: s.configStore.GetString(keyDataDir),
		},
		Messaging: domain.MessagingSettings{
			Timeout:     s.getDuration(keyMessageTimeout, defaults.Messaging.Timeout),
			HistorySize: s.getInt(keyHistorySize, defaults.Messaging.HistorySize),
			HistoryTTL:  s.getDuration(keyHistoryTTL, defaults.Messaging.HistoryTTL),
		},
		Server: domain.ServerSettings{
			Addr:           s.configStore.GetString(keyServerAddr),
			AllowedOrigins: splitList(s.configStore.GetString(keyAllowedOrigins)),
		},
		Capture: domain.CaptureSettings{
			RatePerSecond: s.getFloat(keyCaptureRate, defaults.Capture.RatePerSecond),
			Timeout:       s.getDuration(keyCaptureTimeout, defaults.Capture.Timeout),
			UserAgent:     s.getString(keyCaptureUserAgent, defaults.Capture.UserAgent),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyDataDir, settings.Storage.DataDir},
		{keyMessageTimeout, settings.Messaging.Timeout.String()},
		{keyHistorySize, settings.Messaging.HistorySize},
		{keyHistoryTTL, settings.Messaging.HistoryTTL.String()},
		{keyServerAddr, settings.Server.Addr},
		{keyAllowedOrigins, strings.Join(settings.Server.AllowedOrigins, ",")},
		{keyCaptureRate, settings.Capture.RatePerSecond},
		{keyCaptureTimeout, settings.Capture.Timeout.String()},
		{keyCaptureUserAgent, settings.Capture.UserAgent},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// Set updates a single setting from its string form.
func (s *SettingsService) Set(key, value string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	switch key {
	case keyDataDir:
		settings.Storage.DataDir = value
	case keyServerAddr:
		settings.Server.Addr = value
	case keyAllowedOrigins:
		settings.Server.AllowedOrigins = splitList(value)
	case keyCaptureUserAgent:
		settings.Capture.UserAgent = value
	case keyMessageTimeout, keyHistoryTTL, keyCaptureTimeout:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
		switch key {
		case keyMessageTimeout:
			settings.Messaging.Timeout = d
		case keyHistoryTTL:
			settings.Messaging.HistoryTTL = d
		default:
			settings.Capture.Timeout = d
		}
	case keyHistorySize:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
		settings.Messaging.HistorySize = n
	case keyCaptureRate:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
		}
		settings.Capture.RatePerSecond = f
	default:
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	return s.Save(settings)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// SettingKeys returns every key accepted by Set.
func SettingKeys() []string {
	return []string{
		keyDataDir,
		keyMessageTimeout,
		keyHistorySize,
		keyHistoryTTL,
		keyServerAddr,
		keyAllowedOrigins,
		keyCaptureRate,
		keyCaptureTimeout,
		keyCaptureUserAgent,
	}
}

// Helper methods

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); ok {
		if val := s.configStore.GetInt(key); val > 0 {
			return val
		}
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); ok {
		if val := s.configStore.GetFloat(key); val > 0 {
			return val
		}
	}
	return defaultVal
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
