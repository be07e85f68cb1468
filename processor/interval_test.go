package processor

import (
	"errors"
	"math"
	"testing"
	"time"

	"fundflow/models"
)

func events(rates []float64, step time.Duration) []models.FundingEvent {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	evs := make([]models.FundingEvent, len(rates))
	for i, r := range rates {
		evs[i] = models.FundingEvent{Timestamp: base.Add(time.Duration(i) * step), Rate: r}
	}
	return evs
}

func TestNormalizeFourHourCadence(t *testing.T) {
	// [t, t+4h, t+8h, t+12h]: the last event is unsettled and dropped.
	evs := events([]float64{0.0001, 0.0002, 0.0003, 0.0009}, 4*time.Hour)
	n, err := Normalize(evs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.IntervalHours != 4 {
		t.Errorf("interval = %v, want 4", n.IntervalHours)
	}
	// mean of the 3 settled rates, doubled onto the 8h basis
	want := (0.0001 + 0.0002 + 0.0003) / 3 / 4 * 8
	if math.Abs(n.MeanFunding8h-want) > 1e-15 {
		t.Errorf("mean 8h = %v, want %v", n.MeanFunding8h, want)
	}
}

func TestNormalizeEightHourCadenceIsIdentityScale(t *testing.T) {
	evs := events([]float64{0.0002, 0.0002, 0.0002, 0.0009}, 8*time.Hour)
	n, err := Normalize(evs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.IntervalHours != 8 {
		t.Errorf("interval = %v, want 8", n.IntervalHours)
	}
	if math.Abs(n.MeanFunding8h-0.0002) > 1e-15 {
		t.Errorf("8h cadence should not rescale: %v", n.MeanFunding8h)
	}
}

func TestNormalizeShortHistory(t *testing.T) {
	for _, n := range []int{0, 1, 2} {
		evs := events(make([]float64, n), time.Hour)
		if _, err := Normalize(evs); !errors.Is(err, ErrIntervalUnknown) {
			t.Errorf("history of %d events: err = %v, want ErrIntervalUnknown", n, err)
		}
	}
}

func TestNormalizeModeGuardsAgainstIrregularGap(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	evs := []models.FundingEvent{
		{Timestamp: base, Rate: 0.0001},
		{Timestamp: base.Add(1 * time.Hour), Rate: 0.0001},
		{Timestamp: base.Add(2 * time.Hour), Rate: 0.0001},
		// maintenance gap
		{Timestamp: base.Add(9 * time.Hour), Rate: 0.0001},
		{Timestamp: base.Add(10 * time.Hour), Rate: 0.0009}, // unsettled
	}
	n, err := Normalize(evs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.IntervalHours != 1 {
		t.Errorf("interval = %v, want mode of deltas = 1", n.IntervalHours)
	}
}

func TestNormalizeModeTieTakesSmallestDelta(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	evs := []models.FundingEvent{
		{Timestamp: base, Rate: 0},
		{Timestamp: base.Add(4 * time.Hour), Rate: 0},
		{Timestamp: base.Add(12 * time.Hour), Rate: 0},
		{Timestamp: base.Add(13 * time.Hour), Rate: 0}, // unsettled
	}
	n, err := Normalize(evs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if n.IntervalHours != 4 {
		t.Errorf("tie between 4h and 8h deltas should pick 4, got %v", n.IntervalHours)
	}
}
