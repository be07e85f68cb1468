package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	appconfig "fundflow/config"
	"fundflow/gateway"
	"fundflow/logger"
	"fundflow/models"
)

const defaultBaseURL = "https://www.okx.com"

// USDT swap lvl1 taker schedule; the account fee endpoint is
// authenticated only.
const takerFeeRate = 0.0005

// Gateway reads OKX v5 public swap market data.
type Gateway struct {
	client  *http.Client
	baseURL string
	depth   int
	log     *logger.Log
}

func New(cfg *appconfig.Config) *Gateway {
	log := logger.GetLogger()

	ec, _ := cfg.Exchange("okx")
	base := ec.BaseURL
	if base == "" {
		base = defaultBaseURL
	}

	log.WithComponent("okx_gateway").WithFields(logger.Fields{
		"base_url": base,
	}).Debug("okx gateway initialized")

	return &Gateway{
		client:  gateway.NewHTTPClient(ec, cfg.Scanner.Timeout),
		baseURL: base,
		depth:   cfg.Scanner.BookDepth,
		log:     log,
	}
}

func (g *Gateway) Name() string { return "okx" }

// apiError carries a non-zero v5 response code.
type apiError struct {
	code string
	msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("okx api error %s: %s", e.code, e.msg)
}

func notListed(err error) bool {
	if e, ok := err.(*apiError); ok {
		// 51001: instrument ID does not exist
		return e.code == "51001"
	}
	return false
}

// get runs one public v5 request and checks the response envelope.
func (g *Gateway) get(ctx context.Context, path string, query url.Values, data interface{}) error {
	var envelope struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := gateway.GetJSON(ctx, g.client, g.Name(), g.baseURL, path, query, &envelope); err != nil {
		return err
	}
	if envelope.Code != "0" {
		return &apiError{code: envelope.Code, msg: envelope.Msg}
	}
	return json.Unmarshal(envelope.Data, data)
}

func (g *Gateway) CurrentFundingRate(ctx context.Context, instrument string) (float64, *float64, error) {
	var rate float64
	var interval *float64
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		var data []struct {
			InstID          string `json:"instId"`
			FundingRate     string `json:"fundingRate"`
			FundingTime     string `json:"fundingTime"`
			NextFundingTime string `json:"nextFundingTime"`
		}
		q := url.Values{"instId": {contract}}
		if err := g.get(ctx, "/api/v5/public/funding-rate", q, &data); err != nil {
			return err
		}
		if len(data) == 0 {
			return &apiError{code: "51001", msg: "empty funding rate response"}
		}
		r, err := strconv.ParseFloat(data[0].FundingRate, 64)
		if err != nil {
			return fmt.Errorf("parse funding rate %q: %w", data[0].FundingRate, err)
		}
		rate = r
		interval = intervalHint(data[0].FundingTime, data[0].NextFundingTime)
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return rate, interval, nil
}

// intervalHint derives the settlement cadence in hours from the gap
// between the current and next funding timestamps.
func intervalHint(fundingTime, nextFundingTime string) *float64 {
	ft, err1 := strconv.ParseInt(fundingTime, 10, 64)
	nft, err2 := strconv.ParseInt(nextFundingTime, 10, 64)
	if err1 != nil || err2 != nil || ft <= 0 || nft <= ft {
		return nil
	}
	hours := float64(nft-ft) / (1000.0 * 3600.0)
	return &hours
}

func (g *Gateway) FundingRateHistory(ctx context.Context, instrument string, limit int) ([]models.FundingEvent, error) {
	var events []models.FundingEvent
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		var data []struct {
			InstID      string `json:"instId"`
			FundingRate string `json:"fundingRate"`
			FundingTime string `json:"fundingTime"`
		}
		q := url.Values{
			"instId": {contract},
			"limit":  {strconv.Itoa(limit)},
		}
		if err := g.get(ctx, "/api/v5/public/funding-rate-history", q, &data); err != nil {
			return err
		}
		if len(data) == 0 {
			return &apiError{code: "51001", msg: "empty funding history"}
		}
		events = events[:0]
		for _, item := range data {
			rate, err1 := strconv.ParseFloat(item.FundingRate, 64)
			ts, err2 := strconv.ParseInt(item.FundingTime, 10, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			events = append(events, models.FundingEvent{
				Timestamp: time.UnixMilli(ts).UTC(),
				Rate:      rate,
			})
		}
		if len(events) == 0 {
			return &apiError{code: "51001", msg: "unparseable funding history"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// v5 returns newest first
	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func (g *Gateway) OrderBook(ctx context.Context, instrument string) (*models.OrderBook, error) {
	var book models.OrderBook
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		// book sizes are contract counts, scale by ctVal to get base
		// quantities
		ctVal, err := g.contractValue(ctx, contract)
		if err != nil {
			return err
		}

		var data []struct {
			Bids [][]string `json:"bids"`
			Asks [][]string `json:"asks"`
		}
		q := url.Values{
			"instId": {contract},
			"sz":     {strconv.Itoa(g.depth)},
		}
		if err := g.get(ctx, "/api/v5/market/books", q, &data); err != nil {
			return err
		}
		if len(data) == 0 {
			return &apiError{code: "51001", msg: "empty order book response"}
		}
		book = models.OrderBook{
			Bids: parseLevels(data[0].Bids, ctVal),
			Asks: parseLevels(data[0].Asks, ctVal),
		}
		if len(book.Bids) == 0 && len(book.Asks) == 0 {
			return &apiError{code: "51001", msg: "empty order book"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// contractValue looks up the swap's contract value in base units from the
// instrument definition. An unknown instrument maps to the standard
// not-listed code.
func (g *Gateway) contractValue(ctx context.Context, contract string) (float64, error) {
	var data []struct {
		InstID string `json:"instId"`
		CtVal  string `json:"ctVal"`
	}
	q := url.Values{
		"instType": {"SWAP"},
		"instId":   {contract},
	}
	if err := g.get(ctx, "/api/v5/public/instruments", q, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, &apiError{code: "51001", msg: "instrument not listed"}
	}
	ctVal, err := strconv.ParseFloat(data[0].CtVal, 64)
	if err != nil || ctVal <= 0 {
		ctVal = 1
	}
	return ctVal, nil
}

// books levels are [price, size, liquidated orders, order count]
func parseLevels(raw [][]string, multiplier float64) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(entry[0], 64)
		qty, err2 := strconv.ParseFloat(entry[1], 64)
		if err1 != nil || err2 != nil || price == 0 {
			continue
		}
		levels = append(levels, models.BookLevel{Price: price, Quantity: qty * multiplier})
	}
	return levels
}

func (g *Gateway) TakerFee(ctx context.Context, instrument string) (float64, error) {
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		_, err := g.contractValue(ctx, contract)
		return err
	})
	if err != nil {
		return 0, err
	}
	return takerFeeRate, nil
}
