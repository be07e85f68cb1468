package mexc

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

const defaultBaseURL = "https://contract.mexc.com"

// Gateway reads MEXC contract API market data.
type Gateway struct {
	client  *http.Client
	baseURL string
	depth   int
	log     *logger.Log
}

func New(cfg *appconfig.Config) *Gateway {
	log := logger.GetLogger()

	ec, _ := cfg.Exchange("mexc")
	base := ec.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	log.WithComponent("mexc_gateway").WithFields(logger.Fields{
		"base_url": base,
	}).Debug("mexc gateway initialized")

	return &Gateway{
		client:  gateway.NewHTTPClient(ec, cfg.Scanner.Timeout),
		baseURL: base,
		depth:   cfg.Scanner.BookDepth,
		log:     log,
	}
}

func (g *Gateway) Name() string { return "mexc" }

// apiError carries a failed contract API envelope.
type apiError struct {
	code int
	msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mexc api error %d: %s", e.code, e.msg)
}

func notListed(err error) bool {
	if e, ok := err.(*apiError); ok {
		return e.code == 1002 || e.code == 2001 ||
			strings.Contains(strings.ToLower(e.msg), "not exist")
	}
	return false
}

// get runs one contract API request and checks the success envelope.
func (g *Gateway) get(ctx context.Context, path string, query url.Values, data interface{}) error {
	var envelope struct {
		Success bool            `json:"success"`
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := gateway.GetJSON(ctx, g.client, g.Name(), g.baseURL, path, query, &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return &apiError{code: envelope.Code, msg: envelope.Message}
	}
	return json.Unmarshal(envelope.Data, data)
}

// contractDetail is the subset of the contract descriptor the scanner
// needs.
type contractDetail struct {
	Symbol       string  `json:"symbol"`
	ContractSize float64 `json:"contractSize"`
	TakerFeeRate float64 `json:"takerFeeRate"`
}

func (g *Gateway) contract(ctx context.Context, symbol string) (*contractDetail, error) {
	var detail contractDetail
	q := url.Values{"symbol": {symbol}}
	if err := g.get(ctx, "/api/v1/contract/detail", q, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (g *Gateway) CurrentFundingRate(ctx context.Context, instrument string) (float64, *float64, error) {
	var rate float64
	var interval *float64
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		var data struct {
			Symbol       string  `json:"symbol"`
			FundingRate  float64 `json:"fundingRate"`
			CollectCycle int     `json:"collectCycle"`
		}
		if err := g.get(ctx, "/api/v1/contract/funding_rate/"+contract, nil, &data); err != nil {
			return err
		}
		rate = data.FundingRate
		if data.CollectCycle > 0 {
			hours := float64(data.CollectCycle)
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
		var data struct {
			ResultList []struct {
				Symbol      string  `json:"symbol"`
				FundingRate float64 `json:"fundingRate"`
				SettleTime  int64   `json:"settleTime"`
			} `json:"resultList"`
		}
		q := url.Values{
			"symbol":    {contract},
			"page_num":  {"1"},
			"page_size": {strconv.Itoa(limit)},
		}
		if err := g.get(ctx, "/api/v1/contract/funding_rate/history", q, &data); err != nil {
			return err
		}
		if len(data.ResultList) == 0 {
			return &apiError{code: 2001, msg: "empty funding history"}
		}
		events = events[:0]
		for _, item := range data.ResultList {
			events = append(events, models.FundingEvent{
				Timestamp: time.UnixMilli(item.SettleTime).UTC(),
				Rate:      item.FundingRate,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// history pages are newest first
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func (g *Gateway) OrderBook(ctx context.Context, instrument string) (*models.OrderBook, error) {
	var book models.OrderBook
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		// depth volumes are contract counts, scale by the contract size
		// to get base quantities
		detail, err := g.contract(ctx, contract)
		if err != nil {
			return err
		}
		size := detail.ContractSize
		if size <= 0 {
			size = 1
		}

		var data struct {
			Asks [][]float64 `json:"asks"`
			Bids [][]float64 `json:"bids"`
		}
		q := url.Values{"limit": {strconv.Itoa(g.depth)}}
		if err := g.get(ctx, "/api/v1/contract/depth/"+contract, q, &data); err != nil {
			return err
		}
		book = models.OrderBook{
			Bids: parseLevels(data.Bids, size),
			Asks: parseLevels(data.Asks, size),
		}
		if len(book.Bids) == 0 && len(book.Asks) == 0 {
			return &apiError{code: 2001, msg: "empty order book"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// depth levels are [price, volume, order count]
func parseLevels(raw [][]float64, contractSize float64) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 || entry[0] == 0 {
			continue
		}
		levels = append(levels, models.BookLevel{
			Price:    entry[0],
			Quantity: entry[1] * contractSize,
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
