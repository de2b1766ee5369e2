package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientOptions{
		APIKey:          "secret",
		BaseURL:         srv.URL,
		Symbol:          "BTC/USD",
		Interval:        "5min",
		RequestTimeout:  2 * time.Second,
		RequestsPerSec:  100,
		MaxRetries:      1,
		MaxRetryTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestFetchSeries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/time_series" || q.Get("apikey") != "secret" || q.Get("outputsize") != "3" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{
			"meta": {"symbol": "BTC/USD", "interval": "5min"},
			"values": [
				{"datetime": "2024-03-01 10:10:00", "open": "1", "high": "1", "low": "1", "close": "61020.5"},
				{"datetime": "2024-03-01 10:05:00", "open": "1", "high": "1", "low": "1", "close": "61010"},
				{"datetime": "2024-03-01 10:00:00", "open": "1", "high": "1", "low": "1", "close": "61000"}
			],
			"status": "ok"
		}`))
	})

	series, err := c.FetchSeries(context.Background(), 3)
	if err != nil {
		t.Fatalf("FetchSeries returned error: %v", err)
	}
	if series.Len() != 3 || series.Source != SourceName {
		t.Fatalf("unexpected series %+v", series)
	}
	want := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	if series.Samples[0].Timestamp != want {
		t.Fatalf("oldest sample should come first, got %d", series.Samples[0].Timestamp)
	}
	if last, _ := series.Last(); last.Close != 61020.5 {
		t.Fatalf("unexpected last close %v", last.Close)
	}
}

func TestFetchSeriesAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":401,"message":"invalid api key","status":"error"}`))
	})
	if _, err := c.FetchSeries(context.Background(), 3); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(ClientOptions{Interval: "5min"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestParseDatetime(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"2024-03-01 10:05:00", false},
		{"2024-03-01", false},
		{"03/01/2024", true},
	}
	for _, tt := range tests {
		if _, err := parseDatetime(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("parseDatetime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestSymbol(t *testing.T) {
	if got := Symbol("btc-usd"); got != "BTC/USD" {
		t.Fatalf("Symbol = %q", got)
	}
}
