// Package okx fetches candles from the OKX public market API.
package okx

import (
	"context"
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
const SourceName = "OKX"

const defaultBaseURL = "https://www.okx.com"

// Client is the OKX candles client
type Client struct {
	baseURL    string
	instID     string
	bar        string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new OKX client
type ClientOptions struct {
	BaseURL         string
	Asset           string // BASE-QUOTE, e.g. BTC-USDT
	Interval        string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

type candlesResponse struct {
	Code string     `json:"code"`
	Msg  string     `json:"msg"`
	Data [][]string `json:"data"`
}

// NewClient creates a new OKX client
func NewClient(options ClientOptions) (*Client, error) {
	bar, err := barCode(options.Interval)
	if err != nil {
		return nil, err
	}
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		instID:  strings.ToUpper(options.Asset),
		bar:     bar,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Component:       "okx_http",
		}),
		logger: log.With().Str("component", "okx_client").Logger(),
	}, nil
}

// Name implements models.SeriesSource
func (c *Client) Name() string { return SourceName }

// FetchSeries fetches the latest limit candles, oldest first
func (c *Client) FetchSeries(ctx context.Context, limit int) (models.PriceSeries, error) {
	q := url.Values{}
	q.Set("instId", c.instID)
	q.Set("bar", c.bar)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v5/market/candles?%s", c.baseURL, q.Encode())

	c.logger.Debug().Str("url", endpoint).Msg("Fetching candles")

	var data candlesResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &data); err != nil {
		return models.PriceSeries{}, err
	}
	if data.Code != "0" {
		return models.PriceSeries{}, fmt.Errorf("OKX API error code=%s msg=%s", data.Code, data.Msg)
	}
	if len(data.Data) == 0 {
		return models.PriceSeries{}, fmt.Errorf("empty data returned")
	}

	samples := make([]models.PriceSample, 0, len(data.Data))
	for _, row := range data.Data {
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
	c.logger.Debug().Int("count", series.Len()).Msg("Fetched candles")
	return series, nil
}

// parseRow reads [ts, o, h, l, c, vol, ...]
func parseRow(row []string) (models.PriceSample, error) {
	if len(row) < 5 {
		return models.PriceSample{}, fmt.Errorf("candle row has %d fields, want at least 5", len(row))
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return models.PriceSample{}, fmt.Errorf("parsing timestamp %q: %w", row[0], err)
	}
	closePrice, err := decimal.NewFromString(row[4])
	if err != nil {
		return models.PriceSample{}, fmt.Errorf("parsing close %q: %w", row[4], err)
	}
	return models.PriceSample{Timestamp: ts, Close: closePrice.InexactFloat64()}, nil
}

func barCode(interval string) (string, error) {
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
		return "1H", nil
	case "4h":
		return "4H", nil
	case "1day":
		return "1Dutc", nil
	}
	return "", fmt.Errorf("okx: unsupported interval %q", interval)
}
