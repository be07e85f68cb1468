package processor

import (
	"errors"

	"fundflow/models"
)

// ErrNoLiquidity is returned when a book side cannot fill any quantity at
// all. An empty side has no meaningful average price; callers must record
// the fill as absent instead of using zero.
var ErrNoLiquidity = errors.New("book side has no liquidity")

// WalkBook simulates filling a market order of the given notional budget
// against one book side, consuming levels from best to worst price.
//
// A single top-of-book quote understates the real cost on thin books, so
// the walk spends the budget level by level and reports the
// liquidity-weighted average price actually paid. If the levels run out
// before the budget does, the result is a partial fill.
func WalkBook(levels []models.BookLevel, notional float64) (*models.FillResult, error) {
	var spent, filled float64

	for _, level := range levels {
		remaining := notional - spent
		if remaining <= 0 {
			break
		}
		if level.Price <= 0 {
			continue
		}
		affordable := remaining / level.Price
		take := level.Quantity
		if affordable < take {
			take = affordable
		}
		spent += level.Price * take
		filled += take
	}

	if filled <= 0 {
		return nil, ErrNoLiquidity
	}

	return &models.FillResult{
		AveragePrice:      spent / filled,
		FilledQuantity:    filled,
		RequestedNotional: notional,
	}, nil
}
