package processor

import (
	"sort"

	"fundflow/models"
)

// Aggregator ranks funding-rate spreads across exchanges. Columns fixes the
// canonical exchange order used for argmin/argmax tie-breaks and result
// ordering, so the same table always produces the same ranking.
type Aggregator struct {
	columns []string
}

// NewAggregator creates an Aggregator over the given canonical exchange
// column order. Exchanges missing from columns are ignored entirely.
func NewAggregator(columns []string) *Aggregator {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Aggregator{columns: cols}
}

// Rank computes the per-instrument max funding spread and the venue pair
// realizing it, then returns the topK rows by descending spread.
//
// The long venue is the exchange with the lowest rate, the short venue the
// one with the highest. Instruments listed on fewer than two of the
// configured exchanges, or quoting the same rate everywhere, carry no
// spread and are dropped; a returned row never pairs a venue with itself.
func (a *Aggregator) Rank(table models.FundingTable, topK int) []models.Opportunity {
	opps := make([]models.Opportunity, 0, len(table))

	for instrument, row := range table {
		var (
			longExch, shortExch string
			minRate, maxRate    float64
			populated           int
		)
		for _, exch := range a.columns {
			rate, ok := row[exch]
			if !ok {
				continue
			}
			if populated == 0 {
				minRate, maxRate = rate, rate
				longExch, shortExch = exch, exch
			} else {
				// Strict comparisons keep the first exchange in
				// canonical order on ties.
				if rate < minRate {
					minRate = rate
					longExch = exch
				}
				if rate > maxRate {
					maxRate = rate
					shortExch = exch
				}
			}
			populated++
		}
		if populated < 2 {
			continue
		}
		// A flat row has no spread to capture and would resolve both
		// legs to the first canonical column.
		if maxRate == minRate {
			continue
		}
		opps = append(opps, models.Opportunity{
			Instrument:    instrument,
			LongExchange:  longExch,
			ShortExchange: shortExch,
			Spread:        maxRate - minRate,
		})
	}

	sort.Slice(opps, func(i, j int) bool {
		if opps[i].Spread != opps[j].Spread {
			return opps[i].Spread > opps[j].Spread
		}
		if opps[i].LongExchange != opps[j].LongExchange {
			return a.index(opps[i].LongExchange) < a.index(opps[j].LongExchange)
		}
		if opps[i].ShortExchange != opps[j].ShortExchange {
			return a.index(opps[i].ShortExchange) < a.index(opps[j].ShortExchange)
		}
		return opps[i].Instrument < opps[j].Instrument
	})

	if topK > 0 && len(opps) > topK {
		opps = opps[:topK]
	}
	return opps
}

func (a *Aggregator) index(exchange string) int {
	for i, e := range a.columns {
		if e == exchange {
			return i
		}
	}
	return len(a.columns)
}
