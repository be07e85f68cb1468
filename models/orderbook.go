package models

// BookLevel is one depth tier of an order book side.
type BookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

// OrderBook is a point-in-time snapshot of both book sides, each ordered
// from best to worst price.
type OrderBook struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// FillResult is the outcome of simulating a market order against one book
// side for a fixed notional budget.
type FillResult struct {
	AveragePrice      float64 `json:"average_price"`
	FilledQuantity    float64 `json:"filled_quantity"`
	RequestedNotional float64 `json:"requested_notional"`
}
