package writer

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	appconfig "fundflow/config"
	"fundflow/models"
)

func minimalConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	cfg := &appconfig.Config{}
	cfg.Fundflow.Version = "test"
	cfg.Output.Dir = t.TempDir()
	cfg.Output.Parquet.Enabled = true
	cfg.Output.Parquet.Compression = "snappy"
	cfg.Output.CSV.Enabled = true
	return cfg
}

func sampleRecords() []models.ExpectancyRecord {
	return []models.ExpectancyRecord{
		{
			Instrument:    "BTC",
			LongExchange:  "binance",
			ShortExchange: "bybit",
			Spread:        0.0004,
			Long: models.LegMetrics{
				FundingRate:    models.Float(-0.0001),
				IntervalHours:  models.Float(8),
				MeanFunding8h:  models.Float(-0.0001),
				AvgFillPrice:   models.Float(65000),
				TakerFeeAmount: models.Float(0.5),
			},
			Short: models.LegMetrics{
				FundingRate:    models.Float(0.0003),
				IntervalHours:  models.Float(8),
				MeanFunding8h:  models.Float(0.0003),
				AvgFillPrice:   models.Float(64990),
				TakerFeeAmount: models.Float(0.55),
			},
			ExecutionCost: models.Float(-1.2),
			FundingPnL8h:  models.Float(0.4),
			Expectancy:    models.Float(-0.8),
		},
		{
			// one leg entirely unavailable
			Instrument:    "ETH",
			LongExchange:  "okx",
			ShortExchange: "mexc",
			Spread:        0.0002,
			Short: models.LegMetrics{
				FundingRate: models.Float(0.0002),
			},
		},
	}
}

func TestWriteFeedSnapshot(t *testing.T) {
	w, err := NewArtifactWriter(minimalConfig(t))
	if err != nil {
		t.Fatalf("NewArtifactWriter: %v", err)
	}

	raw := []byte(`{"funding_rates": {"BTC": {"binance": 0.0001}}}`)
	if err := w.WriteFeedSnapshot(context.Background(), raw); err != nil {
		t.Fatalf("WriteFeedSnapshot: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(w.Dir(), "data.json"))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if string(got) != string(raw) {
		t.Error("snapshot should be persisted verbatim")
	}
}

func TestWriteShortlist(t *testing.T) {
	w, err := NewArtifactWriter(minimalConfig(t))
	if err != nil {
		t.Fatalf("NewArtifactWriter: %v", err)
	}

	opps := []models.Opportunity{
		{Instrument: "BTC", LongExchange: "binance", ShortExchange: "bybit", Spread: 0.0004},
		{Instrument: "ETH", LongExchange: "okx", ShortExchange: "mexc", Spread: 0.0002},
	}
	if err := w.WriteShortlist(context.Background(), opps); err != nil {
		t.Fatalf("WriteShortlist: %v", err)
	}

	info, err := os.Stat(filepath.Join(w.Dir(), "shortlist.parquet"))
	if err != nil {
		t.Fatalf("stat shortlist: %v", err)
	}
	if info.Size() == 0 {
		t.Error("shortlist parquet should not be empty")
	}
}

func TestWriteExpectancyCSVAbsentCells(t *testing.T) {
	w, err := NewArtifactWriter(minimalConfig(t))
	if err != nil {
		t.Fatalf("NewArtifactWriter: %v", err)
	}

	if err := w.WriteExpectancy(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("WriteExpectancy: %v", err)
	}

	f, err := os.Open(filepath.Join(w.Dir(), "expectancy.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(expectancyHeader, ",") {
		t.Errorf("unexpected header: %v", rows[0])
	}

	healthy := rows[1]
	if healthy[4] != "-0.0001" {
		t.Errorf("long funding rate cell = %q", healthy[4])
	}

	failed := rows[2]
	// long leg columns 4..8 must be empty, not zero
	for i := 4; i <= 8; i++ {
		if failed[i] != "" {
			t.Errorf("column %d should be empty for an absent leg, got %q", i, failed[i])
		}
	}
	if failed[9] != "0.0002" {
		t.Errorf("short funding rate cell = %q", failed[9])
	}
	if failed[16] != "" {
		t.Errorf("expectancy cell should be empty, got %q", failed[16])
	}
}

func TestWriteExpectancyParquet(t *testing.T) {
	w, err := NewArtifactWriter(minimalConfig(t))
	if err != nil {
		t.Fatalf("NewArtifactWriter: %v", err)
	}

	if err := w.WriteExpectancy(context.Background(), sampleRecords()); err != nil {
		t.Fatalf("WriteExpectancy: %v", err)
	}

	info, err := os.Stat(filepath.Join(w.Dir(), "expectancy.parquet"))
	if err != nil {
		t.Fatalf("stat expectancy parquet: %v", err)
	}
	if info.Size() == 0 {
		t.Error("expectancy parquet should not be empty")
	}
}

func TestParquetDisabledSkipsShortlist(t *testing.T) {
	cfg := minimalConfig(t)
	cfg.Output.Parquet.Enabled = false

	w, err := NewArtifactWriter(cfg)
	if err != nil {
		t.Fatalf("NewArtifactWriter: %v", err)
	}
	if err := w.WriteShortlist(context.Background(), nil); err != nil {
		t.Fatalf("WriteShortlist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(w.Dir(), "shortlist.parquet")); !os.IsNotExist(err) {
		t.Error("shortlist parquet should not exist when parquet output is disabled")
	}
}
