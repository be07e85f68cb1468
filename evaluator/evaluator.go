package evaluator

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	appconfig "fundflow/config"
	"fundflow/gateway"
	"fundflow/logger"
	"fundflow/models"
	"fundflow/processor"
)

// Evaluator prices ranked opportunities by pulling both legs' market data
// concurrently. A failed leg never fails the scan: whatever could not be
// fetched surfaces as nil fields on the record.
type Evaluator struct {
	registry gateway.Registry
	limiters map[string]*rate.Limiter
	retry    gateway.RetryPolicy
	notional float64
	history  int
	timeout  time.Duration
	workers  int
	log      *logger.Log
}

func New(cfg *appconfig.Config, registry gateway.Registry) *Evaluator {
	limiters := make(map[string]*rate.Limiter, len(gateway.Exchanges))
	for _, name := range gateway.Exchanges {
		ec, ok := cfg.Exchange(name)
		if !ok {
			continue
		}
		rps := ec.RequestsPerSecond
		if rps <= 0 {
			rps = 5
		}
		burst := ec.Burst
		if burst <= 0 {
			burst = 1
		}
		limiters[name] = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return &Evaluator{
		registry: registry,
		limiters: limiters,
		retry: gateway.RetryPolicy{
			MaxAttempts: cfg.Scanner.Retry.MaxAttempts,
			BaseDelay:   cfg.Scanner.Retry.BaseDelay,
		},
		notional: cfg.Scanner.Notional,
		history:  cfg.Scanner.HistoryLimit,
		timeout:  cfg.Scanner.Timeout,
		workers:  cfg.Scanner.MaxWorkers,
		log:      logger.GetLogger(),
	}
}

// Evaluate prices every opportunity and returns one record per input, in
// input order. Only context cancellation can cut the pass short.
func (e *Evaluator) Evaluate(ctx context.Context, opps []models.Opportunity) []models.ExpectancyRecord {
	records := make([]models.ExpectancyRecord, len(opps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, opp := range opps {
		i, opp := i, opp
		g.Go(func() error {
			records[i] = e.evaluateOne(gctx, opp)
			return nil
		})
	}
	g.Wait()

	return records
}

func (e *Evaluator) evaluateOne(ctx context.Context, opp models.Opportunity) models.ExpectancyRecord {
	record := models.ExpectancyRecord{
		Instrument:    opp.Instrument,
		LongExchange:  opp.LongExchange,
		ShortExchange: opp.ShortExchange,
		Spread:        opp.Spread,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		record.Long = e.leg(ctx, opp.LongExchange, opp.Instrument, sideLong)
	}()
	go func() {
		defer wg.Done()
		record.Short = e.leg(ctx, opp.ShortExchange, opp.Instrument, sideShort)
	}()
	wg.Wait()

	res := processor.Expectancy(record.Long, record.Short, e.notional)
	record.ExecutionCost = res.ExecutionCost
	record.FundingPnL8h = res.FundingPnL8h
	record.Expectancy = res.Expectancy

	return record
}

type side int

const (
	sideLong side = iota
	sideShort
)

// leg fetches one exchange's view of the instrument. Hard fetch failures
// (unknown symbol, transport errors after retries) abandon the whole leg;
// thin books and unknown cadences only blank their own fields.
func (e *Evaluator) leg(ctx context.Context, exchange, instrument string, s side) models.LegMetrics {
	var m models.LegMetrics

	log := e.log.WithComponent("evaluator").WithFields(logger.Fields{
		"exchange":   exchange,
		"instrument": instrument,
	})

	gw, ok := e.registry.Lookup(exchange)
	if !ok {
		log.Warn("no gateway for exchange, leg unavailable")
		logger.IncrementLegEvaluated(true)
		return m
	}

	var rfRate float64
	var intervalHint *float64
	err := e.call(ctx, exchange, func(cctx context.Context) error {
		var err error
		rfRate, intervalHint, err = gw.CurrentFundingRate(cctx, instrument)
		return err
	})
	if err != nil {
		log.WithError(err).Warn("funding rate fetch failed, abandoning leg")
		logger.IncrementLegEvaluated(true)
		return m
	}
	m.FundingRate = models.Float(rfRate)

	history, err := e.fetchHistory(ctx, exchange, gw, instrument)
	if err != nil {
		log.WithError(err).Warn("funding history fetch failed, abandoning leg")
		logger.IncrementLegEvaluated(true)
		return models.LegMetrics{}
	}
	e.normalize(&m, history, intervalHint)

	var book *models.OrderBook
	err = e.call(ctx, exchange, func(cctx context.Context) error {
		var err error
		book, err = gw.OrderBook(cctx, instrument)
		return err
	})
	if err != nil {
		log.WithError(err).Warn("order book fetch failed, abandoning leg")
		logger.IncrementLegEvaluated(true)
		return models.LegMetrics{}
	}
	levels := book.Asks
	if s == sideShort {
		levels = book.Bids
	}
	fill, err := processor.WalkBook(levels, e.notional)
	switch {
	case errors.Is(err, processor.ErrNoLiquidity):
		log.Warn("book too thin for target notional")
	case err != nil:
		log.WithError(err).Warn("book walk failed")
	default:
		m.AvgFillPrice = models.Float(fill.AveragePrice)
	}

	var feeRate float64
	err = e.call(ctx, exchange, func(cctx context.Context) error {
		var err error
		feeRate, err = gw.TakerFee(cctx, instrument)
		return err
	})
	if err != nil {
		log.WithError(err).Warn("taker fee fetch failed, abandoning leg")
		logger.IncrementLegEvaluated(true)
		return models.LegMetrics{}
	}
	m.TakerFeeAmount = models.Float(feeRate * e.notional)

	logger.IncrementLegEvaluated(false)
	return m
}

// normalize fills the cadence fields from settlement history, falling back
// to the exchange-reported interval when inference has too little to go on.
func (e *Evaluator) normalize(m *models.LegMetrics, history []models.FundingEvent, hint *float64) {
	norm, err := processor.Normalize(history)
	if err == nil {
		m.IntervalHours = models.Float(norm.IntervalHours)
		m.MeanFunding8h = models.Float(norm.MeanFunding8h)
		return
	}
	if !errors.Is(err, processor.ErrIntervalUnknown) || hint == nil || *hint <= 0 {
		return
	}
	m.IntervalHours = models.Float(*hint)
	if len(history) < 2 {
		return
	}
	settled := history[:len(history)-1]
	var sum float64
	for _, ev := range settled {
		sum += ev.Rate
	}
	mean := sum / float64(len(settled))
	m.MeanFunding8h = models.Float(mean / *hint * 8)
}

func (e *Evaluator) fetchHistory(ctx context.Context, exchange string, gw gateway.Gateway, instrument string) ([]models.FundingEvent, error) {
	var events []models.FundingEvent
	err := e.call(ctx, exchange, func(cctx context.Context) error {
		var err error
		events, err = gw.FundingRateHistory(cctx, instrument, e.history)
		return err
	})
	return events, err
}

// call applies the shared per-exchange rate limit, per-request timeout and
// retry policy around one gateway operation.
func (e *Evaluator) call(ctx context.Context, exchange string, fn func(context.Context) error) error {
	return e.retry.Do(ctx, func() error {
		if lim := e.limiters[exchange]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return err
			}
		}
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return fn(cctx)
	})
}
