package models

import "time"

// FundingTable maps instrument -> exchange -> current funding rate on a
// common 8h basis. A missing exchange cell means the instrument is not
// listed there, never a zero rate.
type FundingTable map[string]map[string]float64

// FundingEvent is one settled funding payment from an exchange's history.
type FundingEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Rate      float64   `json:"rate"`
}

// Opportunity is one ranked funding spread: go long where funding is most
// negative, short where it is most positive.
type Opportunity struct {
	Instrument    string  `json:"instrument"`
	LongExchange  string  `json:"long_exchange"`
	ShortExchange string  `json:"short_exchange"`
	Spread        float64 `json:"spread"`
}

// LegMetrics holds everything fetched and derived for one leg of an
// opportunity. Nil fields mean the data could not be obtained; absence is
// carried through downstream math instead of being coerced to zero.
type LegMetrics struct {
	FundingRate    *float64 `json:"funding_rate"`
	IntervalHours  *float64 `json:"interval_hours"`
	MeanFunding8h  *float64 `json:"mean_funding_8h"`
	AvgFillPrice   *float64 `json:"avg_fill_price"`
	TakerFeeAmount *float64 `json:"taker_fee_amount"`
}

// ExpectancyRecord is the terminal output for one evaluated opportunity.
// Created once, never mutated.
type ExpectancyRecord struct {
	Instrument    string     `json:"instrument"`
	LongExchange  string     `json:"long_exchange"`
	ShortExchange string     `json:"short_exchange"`
	Spread        float64    `json:"spread"`
	Long          LegMetrics `json:"long"`
	Short         LegMetrics `json:"short"`
	ExecutionCost *float64   `json:"execution_cost"`
	FundingPnL8h  *float64   `json:"funding_pnl_8h"`
	Expectancy    *float64   `json:"expectancy"`
}

// Float returns a pointer to v, for building optional fields.
func Float(v float64) *float64 { return &v }
