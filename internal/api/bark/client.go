// Package bark pushes alerts to iOS devices through a Bark server.
package bark

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/CrossWatch/internal/notify"
	httpClient "github.com/Alias1177/CrossWatch/internal/platform/http"
	"github.com/Alias1177/CrossWatch/models"
)

const (
	defaultServer = "https://api.day.app"
	defaultIcon   = "https://cryptologos.cc/logos/bitcoin-btc-logo.png"
)

// interruption level and sound per strength
var (
	levels = map[models.Strength]string{
		models.StrengthStrong: "timeSensitive",
		models.StrengthMedium: "active",
		models.StrengthWeak:   "passive",
	}
	sounds = map[models.Strength]string{
		models.StrengthStrong: "alarm",
		models.StrengthMedium: "bell",
		models.StrengthWeak:   "birdsong",
	}
)

// Client delivers alerts to one Bark device key
type Client struct {
	server     string
	key        string
	icon       string
	group      string
	httpClient *httpClient.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a new Bark client
type ClientOptions struct {
	Server          string
	Key             string
	Icon            string
	Group           string
	RequestTimeout  time.Duration
	MaxRetries      int
	MaxRetryTimeout time.Duration
}

type pushRequest struct {
	Body  string `json:"body"`
	Level string `json:"level"`
	Sound string `json:"sound"`
	Icon  string `json:"icon,omitempty"`
	Group string `json:"group,omitempty"`
}

type pushResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a Bark notifier
func NewClient(options ClientOptions) (*Client, error) {
	if options.Key == "" {
		return nil, fmt.Errorf("bark: device key is required")
	}
	server := options.Server
	if server == "" {
		server = defaultServer
	}
	icon := options.Icon
	if icon == "" {
		icon = defaultIcon
	}

	return &Client{
		server: strings.TrimSuffix(server, "/"),
		key:    options.Key,
		icon:   icon,
		group:  options.Group,
		httpClient: httpClient.NewClient(httpClient.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  1,
			MaxRetries:      options.MaxRetries,
			MaxRetryTimeout: options.MaxRetryTimeout,
			Component:       "bark_http",
		}),
		logger: log.With().Str("component", "bark_client").Logger(),
	}, nil
}

// Name implements models.Notifier
func (c *Client) Name() string { return "bark" }

// Deliver posts the alert. Bark answers HTTP 200 with code 200 on success.
func (c *Client) Deliver(ctx context.Context, title, body string, strength models.Strength) error {
	endpoint := fmt.Sprintf("%s/%s/%s", c.server, url.PathEscape(c.key), url.PathEscape(title))
	payload := pushRequest{
		Body:  body,
		Level: levels[strength],
		Sound: sounds[strength],
		Icon:  c.icon,
		Group: c.group,
	}

	var resp pushResponse
	if err := c.httpClient.PostJSON(ctx, endpoint, payload, &resp); err != nil {
		return fmt.Errorf("%w: bark: %v", notify.ErrDeliveryFailed, err)
	}
	if resp.Code != 200 {
		return fmt.Errorf("%w: bark answered code=%d message=%q", notify.ErrDeliveryFailed, resp.Code, resp.Message)
	}

	c.logger.Debug().Str("strength", strength.String()).Msg("Push delivered")
	return nil
}
