package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CrossWatch/internal/api/bark"
	"github.com/Alias1177/CrossWatch/internal/api/binance"
	"github.com/Alias1177/CrossWatch/internal/api/okx"
	"github.com/Alias1177/CrossWatch/internal/api/telegram"
	"github.com/Alias1177/CrossWatch/internal/api/twelvedata"
	"github.com/Alias1177/CrossWatch/internal/backtest"
	"github.com/Alias1177/CrossWatch/internal/config"
	"github.com/Alias1177/CrossWatch/internal/feed"
	"github.com/Alias1177/CrossWatch/internal/metrics"
	"github.com/Alias1177/CrossWatch/internal/monitor"
	"github.com/Alias1177/CrossWatch/internal/notify"
	"github.com/Alias1177/CrossWatch/models"
)

func main() {
	configPath := flag.String("config", "", "optional TOML config file")
	once := flag.Bool("once", false, "run a single check and exit")
	replay := flag.Bool("backtest", false, "replay the crossover detector over recent history and exit")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *once {
		cfg.RunDuration = config.Duration{}
	}
	if *replay {
		// replay never delivers
		cfg.Notifier = config.NotifierLog
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrMissingSecret) {
			log.Error().Err(err).Str("notifier", cfg.Notifier).Msg("Delivery credentials are missing")
		} else {
			log.Error().Err(err).Msg("Invalid configuration")
		}
		os.Exit(1)
	}
	printConfig(cfg)

	// 3. Setup price sources and notifier
	source, err := buildSource(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up price sources")
	}
	short, long := cfg.Windows()

	if *replay {
		runBacktesting(source, short, long, cfg)
		return
	}

	notifier, err := buildNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up notifier")
	}

	mon, err := monitor.New(source, notifier, monitor.Options{
		Asset:        cfg.Asset,
		Interval:     cfg.Interval,
		Short:        short,
		Long:         long,
		CandleLimit:  cfg.CandleLimit,
		PollInterval: cfg.PollInterval.Duration,
		RunDuration:  cfg.RunDuration.Duration,
		StatusEvery:  cfg.StatusEvery,
		Location:     cfg.Location(),
	}, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create monitor")
	}

	// 4. Metrics endpoint for long runs
	if cfg.MetricsAddr != "" && cfg.RunDuration.Duration > 0 {
		srv := metrics.Serve(cfg.MetricsAddr, log.With().Str("component", "metrics").Logger())
		log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// 5. Run until the duration elapses or a signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mon.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Monitor stopped with error")
	}
}

// runBacktesting replays the detector and prints the report
func runBacktesting(source models.SeriesSource, short, long models.WindowSpec, cfg *config.Config) {
	log.Info().Int("candles", cfg.BacktestCandles).Int("horizon", cfg.BacktestHorizon).Msg("Running backtesting...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine := backtest.NewEngine(source, short, long, cfg.BacktestHorizon)
	results, err := engine.Run(ctx, cfg.BacktestCandles)
	if err != nil {
		log.Error().Err(err).Msg("Backtest failed")
		return
	}
	fmt.Println(backtest.FormatResults(results))
}

// setupLogging configures the logger
func setupLogging(logLevel, format string) {
	if format != "json" {
		output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		log.Logger = log.Output(output)
	}

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}

// printConfig outputs the current configuration without secrets
func printConfig(cfg *config.Config) {
	log.Info().
		Str("Asset", cfg.Asset).
		Str("Interval", cfg.Interval).
		Int("ShortWindow", cfg.ShortWindow).
		Int("LongWindow", cfg.LongWindow).
		Int("CandleLimit", cfg.CandleLimit).
		Strs("Sources", cfg.Sources).
		Str("Notifier", cfg.Notifier).
		Dur("PollInterval", cfg.PollInterval.Duration).
		Dur("RunDuration", cfg.RunDuration.Duration).
		Int("StatusEvery", cfg.StatusEvery).
		Msg("Configuration loaded")
}

func buildSource(cfg *config.Config) (*feed.Fallback, error) {
	sources := make([]models.SeriesSource, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		var (
			src models.SeriesSource
			err error
		)
		switch name {
		case config.SourceOKX:
			src, err = okx.NewClient(okx.ClientOptions{
				Asset:           cfg.Asset,
				Interval:        cfg.Interval,
				RequestTimeout:  cfg.RequestTimeout.Duration,
				RequestsPerSec:  cfg.RequestsPerSec,
				MaxRetries:      cfg.MaxRetries,
				MaxRetryTimeout: cfg.MaxRetryTime.Duration,
			})
		case config.SourceBinance:
			src, err = binance.NewClient(binance.ClientOptions{
				Asset:           cfg.Asset,
				Interval:        cfg.Interval,
				RequestTimeout:  cfg.RequestTimeout.Duration,
				RequestsPerSec:  cfg.RequestsPerSec,
				MaxRetries:      cfg.MaxRetries,
				MaxRetryTimeout: cfg.MaxRetryTime.Duration,
			})
		case config.SourceTwelveData:
			symbol := cfg.TwelveSymbol
			if symbol == "" {
				symbol = twelvedata.Symbol(cfg.Asset)
			}
			src, err = twelvedata.NewClient(twelvedata.ClientOptions{
				APIKey:          cfg.TwelveAPIKey,
				Symbol:          symbol,
				Interval:        cfg.Interval,
				RequestTimeout:  cfg.RequestTimeout.Duration,
				RequestsPerSec:  cfg.RequestsPerSec,
				MaxRetries:      cfg.MaxRetries,
				MaxRetryTimeout: cfg.MaxRetryTime.Duration,
			})
		default:
			err = fmt.Errorf("unknown source %q", name)
		}
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return feed.NewFallback(log.With().Str("component", "feed").Logger(), sources...), nil
}

func buildNotifier(cfg *config.Config) (models.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierBark:
		return bark.NewClient(bark.ClientOptions{
			Server:          cfg.BarkServer,
			Key:             cfg.BarkKey,
			Group:           cfg.BarkGroup,
			RequestTimeout:  cfg.RequestTimeout.Duration,
			MaxRetries:      cfg.MaxRetries,
			MaxRetryTimeout: cfg.MaxRetryTime.Duration,
		})
	case config.NotifierTelegram:
		return telegram.NewNotifier(telegram.Options{
			Token:          cfg.TelegramToken,
			ChatID:         cfg.TelegramChatID,
			RequestTimeout: cfg.RequestTimeout.Duration,
		})
	default:
		return notify.NewLogNotifier(log.With().Str("component", "notifier").Logger()), nil
	}
}
