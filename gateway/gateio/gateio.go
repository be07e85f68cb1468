package gateio

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	appconfig "fundflow/config"
	"fundflow/gateway"
	"fundflow/logger"
	"fundflow/models"
)

const defaultBaseURL = "https://api.gateio.ws"

// Gateway reads Gate.io v4 USDT-settled futures market data.
type Gateway struct {
	client  *http.Client
	baseURL string
	depth   int
	log     *logger.Log
}

func New(cfg *appconfig.Config) *Gateway {
	log := logger.GetLogger()

	ec, _ := cfg.Exchange("gateio")
	base := ec.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	log.WithComponent("gateio_gateway").WithFields(logger.Fields{
		"base_url": base,
	}).Debug("gateio gateway initialized")

	return &Gateway{
		client:  gateway.NewHTTPClient(ec, cfg.Scanner.Timeout),
		baseURL: base,
		depth:   cfg.Scanner.BookDepth,
		log:     log,
	}
}

func (g *Gateway) Name() string { return "gateio" }

func notListed(err error) bool {
	if e, ok := err.(*gateway.StatusError); ok {
		return strings.Contains(e.Body, "CONTRACT_NOT_FOUND") ||
			strings.Contains(e.Body, "INVALID_PARAM_VALUE")
	}
	return false
}

// contractDetail is the subset of the contract descriptor the scanner
// needs. Numeric fields arrive as strings.
type contractDetail struct {
	Name             string `json:"name"`
	FundingRate      string `json:"funding_rate"`
	FundingInterval  int    `json:"funding_interval"`
	TakerFeeRate     string `json:"taker_fee_rate"`
	QuantoMultiplier string `json:"quanto_multiplier"`
}

func (g *Gateway) contract(ctx context.Context, contract string) (*contractDetail, error) {
	var detail contractDetail
	path := "/api/v4/futures/usdt/contracts/" + contract
	if err := gateway.GetJSON(ctx, g.client, g.Name(), g.baseURL, path, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (g *Gateway) CurrentFundingRate(ctx context.Context, instrument string) (float64, *float64, error) {
	var rate float64
	var interval *float64
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		detail, err := g.contract(ctx, contract)
		if err != nil {
			return err
		}
		r, err := strconv.ParseFloat(detail.FundingRate, 64)
		if err != nil {
			return err
		}
		rate = r
		if detail.FundingInterval > 0 {
			hours := float64(detail.FundingInterval) / 3600.0
			interval = &hours
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return rate, interval, nil
}

func (g *Gateway) FundingRateHistory(ctx context.Context, instrument string, limit int) ([]models.FundingEvent, error) {
	var events []models.FundingEvent
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		var data []struct {
			Timestamp int64  `json:"t"`
			Rate      string `json:"r"`
		}
		q := url.Values{
			"contract": {contract},
			"limit":    {strconv.Itoa(limit)},
		}
		if err := gateway.GetJSON(ctx, g.client, g.Name(), g.baseURL, "/api/v4/futures/usdt/funding_rate", q, &data); err != nil {
			return err
		}
		events = events[:0]
		for _, item := range data {
			rate, err := strconv.ParseFloat(item.Rate, 64)
			if err != nil {
				continue
			}
			events = append(events, models.FundingEvent{
				Timestamp: time.Unix(item.Timestamp, 0).UTC(),
				Rate:      rate,
			})
		}
		if len(events) == 0 {
			return &gateway.StatusError{Code: 404, Body: "CONTRACT_NOT_FOUND"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// v4 returns newest first
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func (g *Gateway) OrderBook(ctx context.Context, instrument string) (*models.OrderBook, error) {
	var book models.OrderBook
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		// book sizes are contract counts, scale by the multiplier to
		// get base quantities
		detail, err := g.contract(ctx, contract)
		if err != nil {
			return err
		}
		multiplier, err := strconv.ParseFloat(detail.QuantoMultiplier, 64)
		if err != nil || multiplier <= 0 {
			multiplier = 1
		}

		var data struct {
			Asks []bookEntry `json:"asks"`
			Bids []bookEntry `json:"bids"`
		}
		q := url.Values{
			"contract": {contract},
			"limit":    {strconv.Itoa(g.depth)},
		}
		if err := gateway.GetJSON(ctx, g.client, g.Name(), g.baseURL, "/api/v4/futures/usdt/order_book", q, &data); err != nil {
			return err
		}
		book = models.OrderBook{
			Bids: parseLevels(data.Bids, multiplier),
			Asks: parseLevels(data.Asks, multiplier),
		}
		if len(book.Bids) == 0 && len(book.Asks) == 0 {
			return &gateway.StatusError{Code: 404, Body: "CONTRACT_NOT_FOUND"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

type bookEntry struct {
	Price string  `json:"p"`
	Size  float64 `json:"s"`
}

func parseLevels(raw []bookEntry, multiplier float64) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, entry := range raw {
		price, err := strconv.ParseFloat(entry.Price, 64)
		if err != nil || price == 0 {
			continue
		}
		levels = append(levels, models.BookLevel{
			Price:    price,
			Quantity: entry.Size * multiplier,
		})
	}
	return levels
}

func (g *Gateway) TakerFee(ctx context.Context, instrument string) (float64, error) {
	var fee float64
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		detail, err := g.contract(ctx, contract)
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(detail.TakerFeeRate, 64)
		if err != nil {
			return err
		}
		fee = f
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fee, nil
}
