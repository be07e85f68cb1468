package processor

import (
	"math"
	"testing"

	"fundflow/models"
)

func fullLeg(fill, fee, mean float64) models.LegMetrics {
	return models.LegMetrics{
		AvgFillPrice:   models.Float(fill),
		TakerFeeAmount: models.Float(fee),
		MeanFunding8h:  models.Float(mean),
	}
}

func TestExpectancyWorkedExample(t *testing.T) {
	long := fullLeg(100, 0.5, 0.0001)
	short := fullLeg(101, 0.5, 0.0005)

	res := Expectancy(long, short, 1000)
	if res.ExecutionCost == nil || res.FundingPnL8h == nil || res.Expectancy == nil {
		t.Fatalf("expected all components present: %+v", res)
	}
	if math.Abs(*res.ExecutionCost-9) > 1e-9 {
		t.Errorf("execution cost = %v, want 9", *res.ExecutionCost)
	}
	if math.Abs(*res.FundingPnL8h-0.4) > 1e-9 {
		t.Errorf("funding pnl = %v, want 0.4", *res.FundingPnL8h)
	}
	if math.Abs(*res.Expectancy-9.4) > 1e-9 {
		t.Errorf("expectancy = %v, want 9.4", *res.Expectancy)
	}
}

func TestExpectancyAbsentInputs(t *testing.T) {
	complete := fullLeg(100, 0.5, 0.0001)

	strip := []struct {
		name string
		mut  func(*models.LegMetrics)
	}{
		{"fill price", func(l *models.LegMetrics) { l.AvgFillPrice = nil }},
		{"taker fee", func(l *models.LegMetrics) { l.TakerFeeAmount = nil }},
		{"mean funding", func(l *models.LegMetrics) { l.MeanFunding8h = nil }},
	}
	for _, tc := range strip {
		t.Run(tc.name, func(t *testing.T) {
			short := fullLeg(101, 0.5, 0.0005)
			tc.mut(&short)
			res := Expectancy(complete, short, 1000)
			if res.Expectancy != nil {
				t.Errorf("expectancy should be absent when short %s is missing, got %v", tc.name, *res.Expectancy)
			}
		})
	}
}

func TestExpectancyComponentsIndependent(t *testing.T) {
	long := fullLeg(100, 0.5, 0.0001)
	short := fullLeg(101, 0.5, 0.0005)
	short.MeanFunding8h = nil

	res := Expectancy(long, short, 1000)
	if res.ExecutionCost == nil {
		t.Error("execution cost should survive a missing funding rate")
	}
	if res.FundingPnL8h != nil {
		t.Errorf("funding pnl should be absent, got %v", *res.FundingPnL8h)
	}
	if res.Expectancy != nil {
		t.Errorf("expectancy should be absent, got %v", *res.Expectancy)
	}
}

func TestExpectancyEmptyLegs(t *testing.T) {
	res := Expectancy(models.LegMetrics{}, models.LegMetrics{}, 1000)
	if res.ExecutionCost != nil || res.FundingPnL8h != nil || res.Expectancy != nil {
		t.Errorf("all components should be absent for empty legs: %+v", res)
	}
}
