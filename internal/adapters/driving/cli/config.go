package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/webstash/internal/core/domain"
	"github.com/custodia-labs/webstash/internal/core/services"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change preferences and settings",
	Long: `Show or change webstash configuration.

Library preferences are stored with your documents and shared by every
client:
  list_display_type        default | domain
  image_save_type          download | url
  image_download_max_size  largest image to download, in MB (0.5 to 10)

Application settings live in ~/.webstash/config.toml:
  ` + strings.Join(services.SettingKeys(), "\n  "),
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a preference or setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

// Preference keys, updated through the background dispatcher.
const (
	prefListDisplayType      = "list_display_type"
	prefImageSaveType        = "image_save_type"
	prefImageDownloadMaxSize = "image_download_max_size"
)

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return errors.New("library service not configured")
	}

	cfg, err := libraryService.GetConfig(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	cmd.Println("Preferences:")
	cmd.Printf("  %-24s %s\n", prefListDisplayType, cfg.ListDisplayType)
	cmd.Printf("  %-24s %s\n", prefImageSaveType, cfg.ImageSaveType)
	cmd.Printf("  %-24s %.2f MB\n", prefImageDownloadMaxSize, cfg.ImageDownloadMaxSize)

	if settingsService == nil {
		return nil
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	values := map[string]string{
		"storage.data_dir":        orDefault(settings.Storage.DataDir, "~/.webstash/data"),
		"messaging.timeout":       settings.Messaging.Timeout.String(),
		"messaging.history_size":  strconv.Itoa(settings.Messaging.HistorySize),
		"messaging.history_ttl":   settings.Messaging.HistoryTTL.String(),
		"server.addr":             orDefault(settings.Server.Addr, "(in-process)"),
		"server.allowed_origins":  orDefault(strings.Join(settings.Server.AllowedOrigins, ","), "(none)"),
		"capture.rate":            strconv.FormatFloat(settings.Capture.RatePerSecond, 'f', -1, 64),
		"capture.timeout":         settings.Capture.Timeout.String(),
		"capture.user_agent":      settings.Capture.UserAgent,
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cmd.Println()
	cmd.Println("Settings:")
	for _, k := range keys {
		cmd.Printf("  %-24s %s\n", k, values[k])
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	patch, isPref, err := preferencePatch(key, value)
	if err != nil {
		return err
	}

	if isPref {
		if commandService == nil {
			return errors.New("background messenger not configured")
		}
		if _, err := commandService.UpdateConfig(commandContext(cmd), patch); err != nil {
			return fmt.Errorf("failed to update %s: %w", key, err)
		}
		cmd.Printf("%s = %s\n", key, value)
		return nil
	}

	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

// preferencePatch builds the patch for a preference key. isPref is false
// for keys that are not preferences.
func preferencePatch(key, value string) (domain.ConfigPatch, bool, error) {
	var patch domain.ConfigPatch
	switch key {
	case prefListDisplayType:
		t := domain.ListDisplayType(value)
		patch.ListDisplayType = &t
	case prefImageSaveType:
		t := domain.ImageSaveType(value)
		patch.ImageSaveType = &t
	case prefImageDownloadMaxSize:
		size, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(value), "MB"), 64)
		if err != nil {
			return patch, true, fmt.Errorf("%w: %s must be a number of MB", domain.ErrInvalidInput, key)
		}
		patch.ImageDownloadMaxSize = &size
	default:
		return patch, false, nil
	}
	return patch, true, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
