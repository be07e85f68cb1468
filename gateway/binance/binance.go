package binance

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/common"
	futures "github.com/adshao/go-binance/v2/futures"

	appconfig "fundflow/config"
	"fundflow/gateway"
	"fundflow/logger"
	"fundflow/models"
)

// USD-M futures VIP0 taker schedule; the commission endpoint needs an API
// key, which a credential-free scan does not have.
const takerFeeRate = 0.0005

var errEmptyResult = errors.New("empty result")

// Gateway reads Binance USD-M futures market data through the binance-go
// client.
type Gateway struct {
	client *futures.Client
	depth  int
	log    *logger.Log
}

func New(cfg *appconfig.Config) *Gateway {
	log := logger.GetLogger()

	ec, _ := cfg.Exchange("binance")
	client := futures.NewClient("", "")
	client.HTTPClient = gateway.NewHTTPClient(ec, cfg.Scanner.Timeout)
	if ec.BaseURL != "" {
		client.SetApiEndpoint(ec.BaseURL)
	}

	log.WithComponent("binance_gateway").WithFields(logger.Fields{
		"timeout":    cfg.Scanner.Timeout,
		"book_depth": cfg.Scanner.BookDepth,
	}).Debug("binance gateway initialized")

	return &Gateway{client: client, depth: cfg.Scanner.BookDepth, log: log}
}

func (g *Gateway) Name() string { return "binance" }

func notListed(err error) bool {
	if errors.Is(err, errEmptyResult) {
		return true
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		// -1121: invalid symbol
		return apiErr.Code == -1121
	}
	return false
}

func (g *Gateway) CurrentFundingRate(ctx context.Context, instrument string) (float64, *float64, error) {
	var rate float64
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		res, err := g.client.NewPremiumIndexService().Symbol(contract).Do(ctx)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return errEmptyResult
		}
		r, err := strconv.ParseFloat(res[0].LastFundingRate, 64)
		if err != nil {
			return fmt.Errorf("parse funding rate %q: %w", res[0].LastFundingRate, err)
		}
		rate = r
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	logger.IncrementGatewayFetch(g.Name(), 1)
	// The premium index does not carry the settlement cadence.
	return rate, nil, nil
}

func (g *Gateway) FundingRateHistory(ctx context.Context, instrument string, limit int) ([]models.FundingEvent, error) {
	var events []models.FundingEvent
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		res, err := g.client.NewFundingRateService().Symbol(contract).Limit(limit).Do(ctx)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return errEmptyResult
		}
		events = events[:0]
		for _, fr := range res {
			rate, err := strconv.ParseFloat(fr.FundingRate, 64)
			if err != nil {
				continue
			}
			events = append(events, models.FundingEvent{
				Timestamp: time.UnixMilli(fr.FundingTime).UTC(),
				Rate:      rate,
			})
		}
		if len(events) == 0 {
			return errEmptyResult
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	logger.IncrementGatewayFetch(g.Name(), len(events))
	return events, nil
}

func (g *Gateway) OrderBook(ctx context.Context, instrument string) (*models.OrderBook, error) {
	var book models.OrderBook
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		res, err := g.client.NewDepthService().Symbol(contract).Limit(g.depth).Do(ctx)
		if err != nil {
			return err
		}
		book = models.OrderBook{}
		for _, b := range res.Bids {
			price, err1 := strconv.ParseFloat(b.Price, 64)
			qty, err2 := strconv.ParseFloat(b.Quantity, 64)
			if err1 != nil || err2 != nil || price == 0 {
				continue
			}
			book.Bids = append(book.Bids, models.BookLevel{Price: price, Quantity: qty})
		}
		for _, a := range res.Asks {
			price, err1 := strconv.ParseFloat(a.Price, 64)
			qty, err2 := strconv.ParseFloat(a.Quantity, 64)
			if err1 != nil || err2 != nil || price == 0 {
				continue
			}
			book.Asks = append(book.Asks, models.BookLevel{Price: price, Quantity: qty})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.IncrementGatewayFetch(g.Name(), len(book.Bids)+len(book.Asks))
	return &book, nil
}

func (g *Gateway) TakerFee(ctx context.Context, instrument string) (float64, error) {
	// Resolving first keeps the symbol-not-found contract: an unlisted
	// instrument must not report a fee.
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		res, err := g.client.NewPremiumIndexService().Symbol(contract).Do(ctx)
		if err != nil {
			return err
		}
		if len(res) == 0 {
			return errEmptyResult
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return takerFeeRate, nil
}
