package okx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appconfig "fundflow/config"
	"fundflow/gateway"
)

func testConfig(baseURL string) *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Scanner.Timeout = 5 * time.Second
	cfg.Scanner.BookDepth = 50
	cfg.Exchanges.Okx.BaseURL = baseURL
	return cfg
}

func TestCurrentFundingRateWithIntervalHint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v5/public/funding-rate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		inst := r.URL.Query().Get("instId")
		if inst != "BTC-USDT-SWAP" {
			// unknown contract, force the convention ladder onward
			fmt.Fprint(w, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)
			return
		}
		fmt.Fprint(w, `{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","fundingRate":"0.0001","fundingTime":"1700000000000","nextFundingTime":"1700014400000"}]}`)
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	rate, interval, err := g.CurrentFundingRate(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("CurrentFundingRate: %v", err)
	}
	if rate != 0.0001 {
		t.Errorf("rate = %v", rate)
	}
	if interval == nil || *interval != 4 {
		t.Errorf("interval hint = %v, want 4h", interval)
	}
}

func TestUnknownInstrumentExhaustsConventions(t *testing.T) {
	var requested []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Query().Get("instId"))
		fmt.Fprint(w, `{"code":"51001","msg":"Instrument ID does not exist","data":[]}`)
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	_, _, err := g.CurrentFundingRate(context.Background(), "NOPE")
	if !errors.Is(err, gateway.ErrSymbolNotFound) {
		t.Fatalf("expected ErrSymbolNotFound, got %v", err)
	}
	if len(requested) != 3 {
		t.Fatalf("expected 3 convention attempts, got %v", requested)
	}
	if !strings.HasSuffix(requested[0], "-USDT-SWAP") {
		t.Errorf("first attempt should be USDT margined, got %s", requested[0])
	}
}

func TestOrderBookScalesContractSizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v5/public/instruments":
			// each BTC-USDT-SWAP contract is worth 0.01 BTC
			fmt.Fprint(w, `{"code":"0","msg":"","data":[{"instId":"BTC-USDT-SWAP","ctVal":"0.01"}]}`)
		case "/api/v5/market/books":
			fmt.Fprint(w, `{"code":"0","msg":"","data":[{"bids":[["100.5","2","0","1"],["100.0","3","0","1"]],"asks":[["101.0","1.5","0","1"]]}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	book, err := g.OrderBook(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if len(book.Bids) != 2 || len(book.Asks) != 1 {
		t.Fatalf("unexpected book shape: %d bids %d asks", len(book.Bids), len(book.Asks))
	}
	if book.Bids[0].Price != 100.5 || book.Bids[0].Quantity != 0.02 {
		t.Errorf("best bid = %+v, want price 100.5 qty 0.02", book.Bids[0])
	}
	if book.Asks[0].Quantity != 0.015 {
		t.Errorf("best ask qty = %v, want 0.015", book.Asks[0].Quantity)
	}
}

func TestFundingRateHistoryOldestFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// newest first, as the exchange returns it
		fmt.Fprint(w, `{"code":"0","msg":"","data":[
			{"instId":"BTC-USDT-SWAP","fundingRate":"0.0003","fundingTime":"1700028800000"},
			{"instId":"BTC-USDT-SWAP","fundingRate":"0.0002","fundingTime":"1700014400000"},
			{"instId":"BTC-USDT-SWAP","fundingRate":"0.0001","fundingTime":"1700000000000"}]}`)
	}))
	defer server.Close()

	g := New(testConfig(server.URL))
	events, err := g.FundingRateHistory(context.Background(), "BTC", 4)
	if err != nil {
		t.Fatalf("FundingRateHistory: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if !events[i].Timestamp.After(events[i-1].Timestamp) {
			t.Errorf("events not ascending at %d", i)
		}
	}
	if events[0].Rate != 0.0001 {
		t.Errorf("oldest rate = %v", events[0].Rate)
	}
}
