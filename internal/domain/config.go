package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains fetch-related configuration
type DownloadConfig struct {
	TempDir            string        `mapstructure:"temp_dir"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	BackoffBase        time.Duration `mapstructure:"backoff_base"`
	BackoffCap         time.Duration `mapstructure:"backoff_cap"`
	ChunkSize          int           `mapstructure:"chunk_size"`
	ProbeTimeout       time.Duration `mapstructure:"probe_timeout"`
	UserAgent          string        `mapstructure:"user_agent"`
	MaxConnections     int           `mapstructure:"max_connections"`
	MaxIdleConnections int           `mapstructure:"max_idle_connections"`
}

// TelegramConfig contains Telegram-specific configuration. The three
// credentials are sourced from the process environment and are required at
// startup.
type TelegramConfig struct {
	BotToken  string        `mapstructure:"bot_token"`
	APIID     string        `mapstructure:"api_id"`
	APIHash   string        `mapstructure:"api_hash"`
	ServerURL string        `mapstructure:"server_url"`
	Gateway   GatewayConfig `mapstructure:"gateway"`
}

// GatewayConfig controls the self-hosted Bot API gateway process. The hosted
// Bot API caps uploads at 50 MB; relayed videos routinely exceed that.
type GatewayConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Binary  string `mapstructure:"binary"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// HistoryConfig contains relay-history and scratch-cleanup configuration
type HistoryConfig struct {
	DatabasePath  string        `mapstructure:"database_path"`
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	TempMaxAge    time.Duration `mapstructure:"temp_max_age"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultUserAgent is sent on outbound fetches. Several CDNs reject
// unbranded clients outright.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120 Safari/537.36"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Download: DownloadConfig{
			TempDir:            "$HOME/.tg-uploader/tmp",
			MaxAttempts:        5,
			BackoffBase:        1 * time.Second,
			BackoffCap:         30 * time.Second,
			ChunkSize:          1 << 20,
			ProbeTimeout:       10 * time.Second,
			UserAgent:          DefaultUserAgent,
			MaxConnections:     10,
			MaxIdleConnections: 5,
		},
		Telegram: TelegramConfig{
			Gateway: GatewayConfig{
				Enabled: false,
				Binary:  "telegram-bot-api",
				Port:    8081,
				DataDir: "$HOME/.tg-uploader/gateway",
			},
		},
		History: HistoryConfig{
			DatabasePath:  "$HOME/.tg-uploader/history.db",
			Retention:     30 * 24 * time.Hour,
			SweepInterval: 10 * time.Minute,
			TempMaxAge:    1 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
