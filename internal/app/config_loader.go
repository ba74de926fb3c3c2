package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/satangel2222/tg-mtproto-uploader/internal/domain"
)

// LoadConfig loads configuration from file and environment. The three
// Telegram credentials come from the process environment and are required;
// a missing one is a startup error.
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.tg-uploader")
		v.AddConfigPath("/etc/tg-uploader")
	}

	v.SetEnvPrefix("UPLOADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials keep their deployment-facing names rather than the
	// UPLOADER_ prefix.
	v.BindEnv("telegram.bot_token", "TG_BOT_TOKEN")
	v.BindEnv("telegram.api_id", "TG_API_ID")
	v.BindEnv("telegram.api_hash", "TG_API_HASH")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.TempDir = expandPath(config.Download.TempDir)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Telegram.Gateway.DataDir = expandPath(config.Telegram.Gateway.DataDir)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	return path
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.TempDir == "" {
		return fmt.Errorf("scratch directory not configured")
	}

	if config.Download.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}

	if config.Download.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive")
	}

	if config.Download.BackoffCap < config.Download.BackoffBase {
		return fmt.Errorf("backoff cap cannot be below backoff base")
	}

	if config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	for env, value := range map[string]string{
		"TG_BOT_TOKEN": config.Telegram.BotToken,
		"TG_API_ID":    config.Telegram.APIID,
		"TG_API_HASH":  config.Telegram.APIHash,
	} {
		if value == "" {
			return fmt.Errorf("missing required credential: %s", env)
		}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}
