package processor

import "fundflow/models"

// ExpectancyResult carries the derived cost and pnl components for one
// opportunity. Each field is nil when its inputs were not all available;
// an unknown is never reported as zero.
type ExpectancyResult struct {
	ExecutionCost *float64
	FundingPnL8h  *float64
	Expectancy    *float64
}

// Expectancy combines both legs' metrics into a net projected profit per
// 8-hour window for a fixed notional.
//
// The execution cost is the round-trip price impact of entering both legs,
// net of taker fees already expressed in currency terms. The funding pnl is
// the projected receipt on the short leg minus the payment on the long leg.
func Expectancy(long, short models.LegMetrics, notional float64) ExpectancyResult {
	var res ExpectancyResult

	if long.AvgFillPrice != nil && short.AvgFillPrice != nil &&
		long.TakerFeeAmount != nil && short.TakerFeeAmount != nil &&
		*long.AvgFillPrice != 0 {
		cost := ((*short.AvgFillPrice-*long.AvgFillPrice) / *long.AvgFillPrice)*notional -
			(*short.TakerFeeAmount + *long.TakerFeeAmount)
		res.ExecutionCost = &cost
	}

	if long.MeanFunding8h != nil && short.MeanFunding8h != nil {
		pnl := *short.MeanFunding8h*notional - *long.MeanFunding8h*notional
		res.FundingPnL8h = &pnl
	}

	if res.ExecutionCost != nil && res.FundingPnL8h != nil {
		exp := *res.FundingPnL8h + *res.ExecutionCost
		res.Expectancy = &exp
	}

	return res
}
