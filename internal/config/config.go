package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CrossWatch/models"
)

// ErrMissingSecret means the selected notifier has no credentials configured
var ErrMissingSecret = errors.New("missing delivery secret")

// Notifier names
const (
	NotifierBark     = "bark"
	NotifierTelegram = "telegram"
	NotifierLog      = "log"
)

// Source names accepted in Sources
const (
	SourceOKX        = "okx"
	SourceBinance    = "binance"
	SourceTwelveData = "twelvedata"
)

// Config holds all application configuration
type Config struct {
	Asset       string   `toml:"asset" envconfig:"ASSET"`
	Interval    string   `toml:"interval" envconfig:"INTERVAL"`
	ShortWindow int      `toml:"short_window" envconfig:"SHORT_WINDOW"`
	LongWindow  int      `toml:"long_window" envconfig:"LONG_WINDOW"`
	CandleLimit int      `toml:"candle_limit" envconfig:"CANDLE_LIMIT"`
	Sources     []string `toml:"sources" envconfig:"SOURCES"`

	Notifier       string `toml:"notifier" envconfig:"NOTIFIER"`
	BarkKey        string `toml:"bark_key" envconfig:"BARK_KEY"`
	BarkServer     string `toml:"bark_server" envconfig:"BARK_SERVER"`
	BarkGroup      string `toml:"bark_group" envconfig:"BARK_GROUP"`
	TelegramToken  string `toml:"telegram_bot_token" envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `toml:"telegram_chat_id" envconfig:"TELEGRAM_CHAT_ID"`

	TwelveAPIKey string `toml:"twelve_api_key" envconfig:"TWELVE_API_KEY"`
	TwelveSymbol string `toml:"twelve_symbol" envconfig:"TWELVE_SYMBOL"`

	PollInterval Duration `toml:"poll_interval" envconfig:"POLL_INTERVAL"`
	RunDuration  Duration `toml:"run_duration" envconfig:"RUN_DURATION"` // 0 runs a single check
	StatusEvery  int      `toml:"status_every" envconfig:"STATUS_EVERY"`

	RequestTimeout Duration `toml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
	RequestsPerSec int      `toml:"requests_per_sec" envconfig:"REQUESTS_PER_SEC"`
	MaxRetries     int      `toml:"max_retries" envconfig:"MAX_RETRIES"`
	MaxRetryTime   Duration `toml:"max_retry_time" envconfig:"MAX_RETRY_TIME"`

	BacktestCandles int `toml:"backtest_candles" envconfig:"BACKTEST_CANDLES"`
	BacktestHorizon int `toml:"backtest_horizon" envconfig:"BACKTEST_HORIZON"` // bars after a signal

	MetricsAddr string `toml:"metrics_addr" envconfig:"METRICS_ADDR"`
	LogLevel    string `toml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat   string `toml:"log_format" envconfig:"LOG_FORMAT"`
	Timezone    string `toml:"timezone" envconfig:"TIMEZONE"`
}

// Duration reads "90s" / "30m" style values from both TOML and the environment
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Asset:           "BTC-USDT",
		Interval:        "5min",
		ShortWindow:     20,
		LongWindow:      60,
		CandleLimit:     100,
		Sources:         []string{SourceOKX, SourceBinance},
		Notifier:        NotifierBark,
		BarkServer:      "https://api.day.app",
		PollInterval:    Duration{time.Minute},
		RunDuration:     Duration{30 * time.Minute},
		StatusEvery:     15,
		RequestTimeout:  Duration{10 * time.Second},
		RequestsPerSec:  5,
		MaxRetryTime:    Duration{30 * time.Second},
		BacktestCandles: 300,
		BacktestHorizon: 12,
		LogLevel:        "info",
		LogFormat:       "console",
		Timezone:        "Local",
	}
}

// Load initializes configuration: defaults, then the optional TOML file, then the
// environment (including a .env file if present).
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, relying on actual environment variables")
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.Notifier = strings.ToLower(strings.TrimSpace(cfg.Notifier))
	for i, s := range cfg.Sources {
		cfg.Sources[i] = strings.ToLower(strings.TrimSpace(s))
	}

	return cfg, nil
}

// Validate checks the configuration before anything touches the network
func (c *Config) Validate() error {
	switch c.Notifier {
	case NotifierBark:
		if c.BarkKey == "" {
			return fmt.Errorf("BARK_KEY is not set: %w", ErrMissingSecret)
		}
	case NotifierTelegram:
		if c.TelegramToken == "" || c.TelegramChatID == 0 {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set: %w", ErrMissingSecret)
		}
	case NotifierLog:
	default:
		return fmt.Errorf("unknown notifier %q", c.Notifier)
	}

	if c.Asset == "" {
		return fmt.Errorf("asset is empty")
	}
	if _, err := models.IntervalDuration(c.Interval); err != nil {
		return err
	}
	if c.ShortWindow < 1 || c.LongWindow < 1 {
		return fmt.Errorf("window lengths must be positive (short=%d long=%d)", c.ShortWindow, c.LongWindow)
	}
	if c.ShortWindow >= c.LongWindow {
		return fmt.Errorf("short window %d must be below long window %d", c.ShortWindow, c.LongWindow)
	}
	if c.CandleLimit < c.LongWindow+1 {
		return fmt.Errorf("candle limit %d must be at least long window + 1 (%d)", c.CandleLimit, c.LongWindow+1)
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("no price sources configured")
	}
	for _, s := range c.Sources {
		switch s {
		case SourceOKX, SourceBinance:
		case SourceTwelveData:
			if c.TwelveAPIKey == "" {
				return fmt.Errorf("source %s needs TWELVE_API_KEY: %w", s, ErrMissingSecret)
			}
		default:
			return fmt.Errorf("unknown price source %q", s)
		}
	}

	if c.RunDuration.Duration > 0 && c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll interval must be positive when run duration is set")
	}
	if c.RunDuration.Duration < 0 || c.StatusEvery < 0 {
		return fmt.Errorf("run duration and status interval cannot be negative")
	}
	return nil
}

// Windows returns the short and long window specs
func (c *Config) Windows() (short, long models.WindowSpec) {
	return models.NewWindowSpec(c.ShortWindow), models.NewWindowSpec(c.LongWindow)
}

// Location resolves Timezone, falling back to the local zone
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.Timezone).Msg("Unknown timezone, using local time")
		return time.Local
	}
	return loc
}
