package kucoin

import (
	"context"
	"encoding/json"
	"fmt"
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

const defaultBaseURL = "https://api-futures.kucoin.com"

// Gateway reads KuCoin futures market data.
type Gateway struct {
	client  *http.Client
	baseURL string
	depth   int
	log     *logger.Log
}

func New(cfg *appconfig.Config) *Gateway {
	log := logger.GetLogger()

	ec, _ := cfg.Exchange("kucoin")
	base := ec.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	log.WithComponent("kucoin_gateway").WithFields(logger.Fields{
		"base_url": base,
	}).Debug("kucoin gateway initialized")

	return &Gateway{
		client:  gateway.NewHTTPClient(ec, cfg.Scanner.Timeout),
		baseURL: base,
		depth:   cfg.Scanner.BookDepth,
		log:     log,
	}
}

func (g *Gateway) Name() string { return "kucoin" }

// apiError carries a non-success futures API envelope.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("kucoin api error %s: %s", e.code, e.msg)
}

func notListed(err error) bool {
	if e, ok := err.(*apiError); ok {
		return e.code == "404000" ||
			strings.Contains(strings.ToLower(e.msg), "not exist")
	}
	if e, ok := err.(*gateway.StatusError); ok {
		return e.Code == http.StatusNotFound
	}
	return false
}

// get runs one futures API request and checks the code envelope.
func (g *Gateway) get(ctx context.Context, path string, query url.Values, data interface{}) error {
	var envelope struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := gateway.GetJSON(ctx, g.client, g.Name(), g.baseURL, path, query, &envelope); err != nil {
		if se, ok := err.(*gateway.StatusError); ok {
			var body struct {
				Code string `json:"code"`
				Msg  string `json:"msg"`
			}
			if jerr := json.Unmarshal([]byte(se.Body), &body); jerr == nil && body.Code != "" {
				return &apiError{code: body.Code, msg: body.Msg}
			}
		}
		return err
	}
	if envelope.Code != "200000" {
		return &apiError{code: envelope.Code, msg: envelope.Msg}
	}
	return json.Unmarshal(envelope.Data, data)
}

// contractDetail is the subset of the contract descriptor the scanner
// needs.
type contractDetail struct {
	Symbol       string  `json:"symbol"`
	Multiplier   float64 `json:"multiplier"`
	TakerFeeRate float64 `json:"takerFeeRate"`
}

func (g *Gateway) contract(ctx context.Context, symbol string) (*contractDetail, error) {
	var detail contractDetail
	if err := g.get(ctx, "/api/v1/contracts/"+symbol, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (g *Gateway) CurrentFundingRate(ctx context.Context, instrument string) (float64, *float64, error) {
	var rate float64
	var interval *float64
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		var data struct {
			Symbol      string  `json:"symbol"`
			Value       float64 `json:"value"`
			Granularity int64   `json:"granularity"`
		}
		if err := g.get(ctx, "/api/v1/funding-rate/"+contract+"/current", nil, &data); err != nil {
			return err
		}
		rate = data.Value
		if data.Granularity > 0 {
			hours := float64(data.Granularity) / (1000.0 * 3600.0)
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
		// the history endpoint wants an explicit window, cover the
		// requested settlements at the slowest 8h cadence with margin
		now := time.Now().UTC()
		from := now.Add(-time.Duration(limit*2*8) * time.Hour)

		var data []struct {
			Symbol      string  `json:"symbol"`
			FundingRate float64 `json:"fundingRate"`
			Timepoint   int64   `json:"timepoint"`
		}
		q := url.Values{
			"symbol": {contract},
			"from":   {strconv.FormatInt(from.UnixMilli(), 10)},
			"to":     {strconv.FormatInt(now.UnixMilli(), 10)},
		}
		if err := g.get(ctx, "/api/v1/contract/funding-rates", q, &data); err != nil {
			return err
		}
		if len(data) == 0 {
			return &apiError{code: "404000", msg: "empty funding history"}
		}
		events = events[:0]
		for _, item := range data {
			events = append(events, models.FundingEvent{
				Timestamp: time.UnixMilli(item.Timepoint).UTC(),
				Rate:      item.FundingRate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

func (g *Gateway) OrderBook(ctx context.Context, instrument string) (*models.OrderBook, error) {
	var book models.OrderBook
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		// book sizes are lot counts, scale by the contract multiplier
		// to get base quantities
		detail, err := g.contract(ctx, contract)
		if err != nil {
			return err
		}
		multiplier := detail.Multiplier
		if multiplier <= 0 {
			multiplier = 1
		}

		path := "/api/v1/level2/depth100"
		if g.depth <= 20 {
			path = "/api/v1/level2/depth20"
		}
		var data struct {
			Bids [][]float64 `json:"bids"`
			Asks [][]float64 `json:"asks"`
		}
		q := url.Values{"symbol": {contract}}
		if err := g.get(ctx, path, q, &data); err != nil {
			return err
		}
		book = models.OrderBook{
			Bids: parseLevels(data.Bids, multiplier),
			Asks: parseLevels(data.Asks, multiplier),
		}
		if len(book.Bids) == 0 && len(book.Asks) == 0 {
			return &apiError{code: "404000", msg: "empty order book"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func parseLevels(raw [][]float64, multiplier float64) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 || entry[0] == 0 {
			continue
		}
		levels = append(levels, models.BookLevel{
			Price:    entry[0],
			Quantity: entry[1] * multiplier,
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
		fee = detail.TakerFeeRate
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fee, nil
}
