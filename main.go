package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fundflow/config"
	"fundflow/evaluator"
	"fundflow/feed"
	"fundflow/gateway"
	"fundflow/gateway/binance"
	"fundflow/gateway/bybit"
	"fundflow/gateway/gateio"
	"fundflow/gateway/kucoin"
	"fundflow/gateway/mexc"
	"fundflow/gateway/okx"
	"fundflow/logger"
	"fundflow/processor"
	"fundflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Fundflow.Name,
		"version": cfg.Fundflow.Version,
	}).Info("starting fundflow scan")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Logging.CloudWatch {
		logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Logging.Namespace, cfg.Logging.DashboardName)
		logger.CreateDefaultDashboard(ctx)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	// Feed failure is the only fatal error class: without the funding
	// table there is nothing to rank.
	snapshot, err := feed.NewClient(cfg).Fetch(ctx)
	if err != nil {
		log.WithError(err).Error("funding feed unavailable, aborting scan")
		os.Exit(1)
	}

	artifacts, err := writer.NewArtifactWriter(cfg)
	if err != nil {
		log.WithError(err).Error("failed to initialize artifact writer")
		os.Exit(1)
	}
	if err := artifacts.WriteFeedSnapshot(ctx, snapshot.Raw); err != nil {
		log.WithError(err).Warn("failed to persist feed snapshot")
	}

	opportunities := processor.NewAggregator(gateway.Exchanges).Rank(snapshot.Table, cfg.Scanner.TopK)
	log.WithFields(logger.Fields{
		"instruments":   len(snapshot.Table),
		"opportunities": len(opportunities),
	}).Info("funding spreads ranked")
	if err := artifacts.WriteShortlist(ctx, opportunities); err != nil {
		log.WithError(err).Warn("failed to persist shortlist")
	}

	registry := gateway.Registry{
		"binance": binance.New(cfg),
		"bybit":   bybit.New(cfg),
		"okx":     okx.New(cfg),
		"gateio":  gateio.New(cfg),
		"mexc":    mexc.New(cfg),
		"kucoin":  kucoin.New(cfg),
	}

	start := time.Now()
	records := evaluator.New(cfg, registry).Evaluate(ctx, opportunities)
	logger.LogPerformanceEntry(log.WithComponent("main"), "main", "evaluation", time.Since(start), logger.Fields{
		"opportunities": len(records),
	})

	processor.SortByExpectancy(records)

	if err := artifacts.WriteExpectancy(ctx, records); err != nil {
		log.WithError(err).Error("failed to persist expectancy table")
	}

	if len(records) > 0 && records[0].Expectancy != nil {
		top := records[0]
		log.WithFields(logger.Fields{
			"instrument": top.Instrument,
			"long":       top.LongExchange,
			"short":      top.ShortExchange,
			"expectancy": *top.Expectancy,
		}).Info("best opportunity")
	}

	logger.LogFinalReport(ctx, log)
	log.WithFields(logger.Fields{
		"scan_id":    artifacts.ScanID(),
		"output_dir": artifacts.Dir(),
	}).Info("fundflow scan completed")
}
