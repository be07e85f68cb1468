package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "fundflow/config"
)

func TestParse(t *testing.T) {
	body := []byte(`{"funding_rates": {"BTC": {"binance": 0.0001, "bybit": -0.0002}, "ETH": {"okx": 0.0003}}}`)
	table, err := Parse(body)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 instruments, got %d", len(table))
	}
	if table["BTC"]["bybit"] != -0.0002 {
		t.Errorf("unexpected bybit rate: %v", table["BTC"]["bybit"])
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := Parse([]byte(`{"funding_rates"`)); err == nil {
		t.Error("expected error for truncated body")
	}
	if _, err := Parse([]byte(`{"funding_rates": {}}`)); err == nil {
		t.Error("expected error for empty rate table")
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"funding_rates": {"BTC": {"binance": 0.0001}}}`))
	}))
	defer server.Close()

	cfg := &appconfig.Config{}
	cfg.Feed.URL = server.URL
	cfg.Feed.Timeout = 5 * time.Second

	snap, err := NewClient(cfg).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(snap.Raw) == 0 {
		t.Error("expected raw body to be kept")
	}
	if snap.Table["BTC"]["binance"] != 0.0001 {
		t.Errorf("unexpected rate: %v", snap.Table["BTC"]["binance"])
	}
}

func TestFetchServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := &appconfig.Config{}
	cfg.Feed.URL = server.URL
	cfg.Feed.Timeout = 5 * time.Second

	if _, err := NewClient(cfg).Fetch(context.Background()); err == nil {
		t.Error("expected error for non-200 status")
	}
}
