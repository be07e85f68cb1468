package gateway

import (
	"context"
	"errors"
	"fmt"

	"fundflow/internal/symbols"
	"fundflow/models"
)

// Exchanges fixes the canonical exchange order. Ranking tie-breaks and
// output ordering follow this list, so it must not be reordered casually.
var Exchanges = []string{"binance", "bybit", "okx", "gateio", "mexc", "kucoin"}

// ErrSymbolNotFound reports that an instrument matched no margin convention
// (USDT, USD, USDC) on an exchange.
var ErrSymbolNotFound = errors.New("no margin convention matched for instrument")

// Gateway is one exchange's read-only market data surface. Every operation
// resolves the instrument's margin convention internally and is bounded by
// the caller's context.
type Gateway interface {
	Name() string

	// CurrentFundingRate returns the live funding rate and, when the
	// exchange reports it, the settlement interval in hours.
	CurrentFundingRate(ctx context.Context, instrument string) (float64, *float64, error)

	// FundingRateHistory returns up to limit settled funding events,
	// oldest first. The most recent event may be the in-progress
	// interval; normalization decides what to do with it.
	FundingRateHistory(ctx context.Context, instrument string, limit int) ([]models.FundingEvent, error)

	// OrderBook returns a depth snapshot with both sides ordered from
	// best to worst price.
	OrderBook(ctx context.Context, instrument string) (*models.OrderBook, error)

	// TakerFee returns the taker fee fraction for the instrument.
	TakerFee(ctx context.Context, instrument string) (float64, error)
}

// Registry maps canonical exchange identifiers to their gateway adapters.
// The variant set is closed: an exchange present in the funding feed but
// absent here simply evaluates as an unavailable leg.
type Registry map[string]Gateway

// Lookup returns the gateway for a canonical exchange identifier.
func (r Registry) Lookup(exchange string) (Gateway, bool) {
	g, ok := r[exchange]
	return g, ok
}

// Resolve tries fn with each margin convention's contract symbol until one
// succeeds. notFound classifies errors meaning "contract not listed"; any
// other error aborts immediately since retrying a different symbol cannot
// fix a network failure.
func Resolve(exchange, instrument string, notFound func(error) bool, fn func(contract string) error) error {
	for _, quote := range symbols.Quotes {
		err := fn(symbols.Contract(exchange, instrument, quote))
		if err == nil {
			return nil
		}
		if !notFound(err) {
			return err
		}
	}
	return fmt.Errorf("%s %s: %w", exchange, instrument, ErrSymbolNotFound)
}
