package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"

	appconfig "fundflow/config"
	"fundflow/gateway"
	"fundflow/logger"
	"fundflow/models"
)

const defaultBaseURL = "https://api.bybit.com"

// Linear perpetual VIP0 taker schedule; the fee-rate endpoint is
// authenticated only.
const takerFeeRate = 0.00055

// Gateway reads Bybit v5 linear perpetual market data.
type Gateway struct {
	client *bybit.Client
	depth  int
	log    *logger.Log
}

func New(cfg *appconfig.Config) *Gateway {
	log := logger.GetLogger()

	ec, _ := cfg.Exchange("bybit")
	base := ec.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(base))
	client.HTTPClient = gateway.NewHTTPClient(ec, cfg.Scanner.Timeout)

	log.WithComponent("bybit_gateway").WithFields(logger.Fields{
		"timeout": cfg.Scanner.Timeout,
	}).Debug("bybit gateway initialized")

	return &Gateway{client: client, depth: cfg.Scanner.BookDepth, log: log}
}

func (g *Gateway) Name() string { return "bybit" }

// apiError carries a non-zero v5 retCode.
type apiError struct {
	code int
	msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("bybit api error %d: %s", e.code, e.msg)
}

func notListed(err error) bool {
	if e, ok := err.(*apiError); ok {
		// 10001: request parameter error, returned for unknown symbols
		return e.code == 10001
	}
	return false
}

// decode re-marshals the loosely typed Result of a v5 market response so
// callers can decode into their own shape.
func (g *Gateway) decode(resp *bybit.ServerResponse, err error, out interface{}) error {
	if err != nil {
		return err
	}
	if resp.RetCode != 0 {
		return &apiError{code: resp.RetCode, msg: resp.RetMsg}
	}
	payload, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	logger.IncrementGatewayFetch(g.Name(), len(payload))
	return json.Unmarshal(payload, out)
}

type tickersResult struct {
	List []struct {
		Symbol      string `json:"symbol"`
		FundingRate string `json:"fundingRate"`
	} `json:"list"`
}

func (g *Gateway) CurrentFundingRate(ctx context.Context, instrument string) (float64, *float64, error) {
	var rate float64
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		resp, err := g.client.NewUtaBybitServiceWithParams(map[string]interface{}{
			"category": "linear",
			"symbol":   contract,
		}).GetMarketTickers(ctx)
		var res tickersResult
		if err := g.decode(resp, err, &res); err != nil {
			return err
		}
		if len(res.List) == 0 || res.List[0].FundingRate == "" {
			return &apiError{code: 10001, msg: "empty ticker list"}
		}
		r, err := strconv.ParseFloat(res.List[0].FundingRate, 64)
		if err != nil {
			return fmt.Errorf("parse funding rate %q: %w", res.List[0].FundingRate, err)
		}
		rate = r
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return rate, nil, nil
}

type fundingHistoryResult struct {
	List []struct {
		Symbol               string `json:"symbol"`
		FundingRate          string `json:"fundingRate"`
		FundingRateTimestamp string `json:"fundingRateTimestamp"`
	} `json:"list"`
}

func (g *Gateway) FundingRateHistory(ctx context.Context, instrument string, limit int) ([]models.FundingEvent, error) {
	var events []models.FundingEvent
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		resp, err := g.client.NewUtaBybitServiceWithParams(map[string]interface{}{
			"category": "linear",
			"symbol":   contract,
			"limit":    limit,
		}).GetFundingRateHistory(ctx)
		var res fundingHistoryResult
		if err := g.decode(resp, err, &res); err != nil {
			return err
		}
		if len(res.List) == 0 {
			return &apiError{code: 10001, msg: "empty funding history"}
		}
		events = events[:0]
		for _, item := range res.List {
			rate, err1 := strconv.ParseFloat(item.FundingRate, 64)
			ts, err2 := strconv.ParseInt(item.FundingRateTimestamp, 10, 64)
			if err1 != nil || err2 != nil {
				continue
			}
			events = append(events, models.FundingEvent{
				Timestamp: time.UnixMilli(ts).UTC(),
				Rate:      rate,
			})
		}
		if len(events) == 0 {
			return &apiError{code: 10001, msg: "unparseable funding history"}
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

type orderBookResult struct {
	Symbol string     `json:"s"`
	Bids   [][]string `json:"b"`
	Asks   [][]string `json:"a"`
}

func (g *Gateway) OrderBook(ctx context.Context, instrument string) (*models.OrderBook, error) {
	var book models.OrderBook
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		resp, err := g.client.NewUtaBybitServiceWithParams(map[string]interface{}{
			"category": "linear",
			"symbol":   contract,
			"limit":    g.depth,
		}).GetOrderBookInfo(ctx)
		var res orderBookResult
		if err := g.decode(resp, err, &res); err != nil {
			return err
		}
		book = models.OrderBook{}
		book.Bids = parseLevels(res.Bids)
		book.Asks = parseLevels(res.Asks)
		if len(book.Bids) == 0 && len(book.Asks) == 0 {
			return &apiError{code: 10001, msg: "empty order book"}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func parseLevels(raw [][]string) []models.BookLevel {
	levels := make([]models.BookLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) < 2 {
			continue
		}
		price, err1 := strconv.ParseFloat(pair[0], 64)
		qty, err2 := strconv.ParseFloat(pair[1], 64)
		if err1 != nil || err2 != nil || price == 0 {
			continue
		}
		levels = append(levels, models.BookLevel{Price: price, Quantity: qty})
	}
	return levels
}

func (g *Gateway) TakerFee(ctx context.Context, instrument string) (float64, error) {
	err := gateway.Resolve(g.Name(), instrument, notListed, func(contract string) error {
		resp, err := g.client.NewUtaBybitServiceWithParams(map[string]interface{}{
			"category": "linear",
			"symbol":   contract,
		}).GetMarketTickers(ctx)
		var res tickersResult
		if err := g.decode(resp, err, &res); err != nil {
			return err
		}
		if len(res.List) == 0 {
			return &apiError{code: 10001, msg: "empty ticker list"}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return takerFeeRate, nil
}
