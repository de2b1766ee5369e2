package twelvedata

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
const SourceName = "TwelveData"

// Client is the TwelveData API client
type Client struct {
	apiKey     string
	baseURL    string
	symbol     string
	interval   string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new TwelveData client
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	Symbol          string // e.g. BTC/USD
	Interval        string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

// timeSeriesResponse represents the API response from Twelve Data
type timeSeriesResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		Close    string `json:"close"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var datetimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// NewClient creates a new TwelveData API client
func NewClient(options ClientOptions) (*Client, error) {
	if options.APIKey == "" {
		return nil, fmt.Errorf("twelvedata: API key is required")
	}
	if _, err := models.IntervalDuration(options.Interval); err != nil {
		return nil, fmt.Errorf("twelvedata: %w", err)
	}
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}

	return &Client{
		apiKey:   options.APIKey,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		symbol:   options.Symbol,
		interval: options.Interval,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Component:       "twelvedata_http",
		}),
		logger: log.With().Str("component", "twelvedata_client").Logger(),
	}, nil
}

// Symbol converts BTC-USDT to BTC/USDT
func Symbol(asset string) string {
	return strings.ToUpper(strings.ReplaceAll(asset, "-", "/"))
}

// Name implements models.SeriesSource
func (c *Client) Name() string { return SourceName }

// FetchSeries fetches candle data from Twelve Data API, oldest first
func (c *Client) FetchSeries(ctx context.Context, limit int) (models.PriceSeries, error) {
	q := url.Values{}
	q.Set("symbol", c.symbol)
	q.Set("interval", c.interval)
	q.Set("outputsize", strconv.Itoa(limit))
	q.Set("timezone", "UTC")
	q.Set("apikey", c.apiKey)
	endpoint := fmt.Sprintf("%s/time_series?%s", c.baseURL, q.Encode())

	c.logger.Debug().Str("symbol", c.symbol).Str("interval", c.interval).Msg("Fetching candles")

	var data timeSeriesResponse
	if err := c.httpClient.GetJSON(ctx, endpoint, &data); err != nil {
		return models.PriceSeries{}, err
	}

	if data.Status == "error" {
		c.logger.Error().Int("code", data.Code).Str("message", data.Message).Msg("Twelve Data API error")
		return models.PriceSeries{}, fmt.Errorf("Twelve Data API error %d: %s", data.Code, data.Message)
	}

	if len(data.Values) == 0 {
		c.logger.Warn().Msg("No candles in response")
		return models.PriceSeries{}, fmt.Errorf("empty data returned")
	}

	samples := make([]models.PriceSample, 0, len(data.Values))
	for _, v := range data.Values {
		ts, err := parseDatetime(v.Datetime)
		if err != nil {
			return models.PriceSeries{}, err
		}
		closePrice, err := decimal.NewFromString(v.Close)
		if err != nil {
			return models.PriceSeries{}, fmt.Errorf("parsing close %q: %w", v.Close, err)
		}
		samples = append(samples, models.PriceSample{Timestamp: ts.UnixMilli(), Close: closePrice.InexactFloat64()})
	}

	// Values arrive newest first; NewPriceSeries restores ascending order
	series, err := models.NewPriceSeries(SourceName, samples)
	if err != nil {
		return models.PriceSeries{}, err
	}

	c.logger.Debug().Int("count", series.Len()).Msg("Fetched candles")
	return series, nil
}

func parseDatetime(s string) (time.Time, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing datetime %q", s)
}
