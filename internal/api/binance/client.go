// Package binance fetches klines from the Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	httpClient "github.com/Alias1177/CrossWatch/internal/platform/http"
	"github.com/Alias1177/CrossWatch/models"
)

// SourceName is the label attached to series fetched here
const SourceName = "Binance"

const defaultBaseURL = "https://api.binance.com"

// Client is the Binance klines client
type Client struct {
	baseURL    string
	symbol     string
	interval   string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Binance client
type ClientOptions struct {
	BaseURL         string
	Asset           string // BASE-QUOTE, e.g. BTC-USDT
	Interval        string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// NewClient creates a new Binance client
func NewClient(options ClientOptions) (*Client, error) {
	interval, err := intervalCode(options.Interval)
	if err != nil {
		return nil, err
	}
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		symbol:   Symbol(options.Asset),
		interval: interval,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Component:       "binance_http",
		}),
		logger: log.With().Str("component", "binance_client").Logger(),
	}, nil
}

// Symbol converts BTC-USDT to BTCUSDT
func Symbol(asset string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", "/", "", "_", "").Replace(asset))
}

// Name implements models.SeriesSource
func (c *Client) Name() string { return SourceName }

// FetchSeries fetches the latest limit klines, oldest first
func (c *Client) FetchSeries(ctx context.Context, limit int) (models.PriceSeries, error) {
	q := url.Values{}
	q.Set("symbol", c.symbol)
	q.Set("interval", c.interval)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, q.Encode())

	c.logger.Debug().Str("url", endpoint).Msg("Fetching klines")

	var rows [][]json.RawMessage
	if err := c.httpClient.GetJSON(ctx, endpoint, &rows); err != nil {
		return models.PriceSeries{}, err
	}
	if len(rows) == 0 {
		return models.PriceSeries{}, fmt.Errorf("empty data returned")
	}

	samples := make([]models.PriceSample, 0, len(rows))
	for _, row := range rows {
		sample, err := parseRow(row)
		if err != nil {
			return models.PriceSeries{}, err
		}
		samples = append(samples, sample)
	}

	series, err := models.NewPriceSeries(SourceName, samples)
	if err != nil {
		return models.PriceSeries{}, err
	}
	c.logger.Debug().Int("count", series.Len()).Msg("Fetched klines")
	return series, nil
}

// parseRow reads [openTime, "open", "high", "low", "close", ...]
func parseRow(row []json.RawMessage) (models.PriceSample, error) {
	if len(row) < 5 {
		return models.PriceSample{}, fmt.Errorf("kline row has %d fields, want at least 5", len(row))
	}
	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return models.PriceSample{}, fmt.Errorf("parsing open time: %w", err)
	}
	var raw string
	if err := json.Unmarshal(row[4], &raw); err != nil {
		return models.PriceSample{}, fmt.Errorf("parsing close: %w", err)
	}
	closePrice, err := decimal.NewFromString(raw)
	if err != nil {
		return models.PriceSample{}, fmt.Errorf("parsing close %q: %w", raw, err)
	}
	return models.PriceSample{Timestamp: openTime, Close: closePrice.InexactFloat64()}, nil
}

func intervalCode(interval string) (string, error) {
	switch interval {
	case "1min":
		return "1m", nil
	case "5min":
		return "5m", nil
	case "15min":
		return "15m", nil
	case "30min":
		return "30m", nil
	case "1h":
		return "1h", nil
	case "4h":
		return "4h", nil
	case "1day":
		return "1d", nil
	}
	return "", fmt.Errorf("binance: unsupported interval %q", interval)
}
