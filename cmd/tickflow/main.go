package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tickflow/conf"
	"tickflow/internal/account"
	"tickflow/internal/engine"
	"tickflow/internal/exchange"
	"tickflow/internal/model"
	"tickflow/internal/worker"
	"tickflow/pkg/logger"
	"tickflow/pkg/ratelimit"
	"tickflow/pkg/recorder"
	"tickflow/pkg/scheduler"
	"tickflow/pkg/upbit/rest"
	"tickflow/pkg/upbit/stream"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := conf.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := conf.AppConfig

	logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		FileName:   cfg.Log.FileName,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
		Console:    cfg.Log.Console,
	})
	defer logger.Sync()

	gw, err := buildGateway(cfg)
	if err != nil {
		logger.Error("Gateway setup failed.", logger.Pair("error", err.Error()))
		os.Exit(1)
	}

	var journal engine.Recorder
	if cfg.Trading.JournalPath != "" {
		journal = recorder.NewJSONFileRecorder(cfg.Trading.JournalPath)
	}

	feeds := func(market string) engine.Feed {
		return stream.NewOrderbookFeed(cfg.Upbit.WsURL, market, cfg.Trading.PingInterval)
	}

	agg := account.NewAggregator(cfg.Trading, gw, scheduler.NewTicker(), feeds, journal)
	w := worker.New(agg)

	if err := w.Start(context.Background()); err != nil {
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	w.Stop()
}

func buildGateway(cfg conf.Config) (exchange.Gateway, error) {
	limits := ratelimit.NewGroup(
		cfg.RateLimit.OrderPerSec,
		cfg.RateLimit.ExchangePerSec,
		cfg.RateLimit.QuotationPerSec,
	)

	if cfg.Upbit.Simulated {
		logger.Info("Simulated gateway enabled; no real orders will be sent.")
		sim := exchange.NewSimulated()
		// a dry run still needs a funded account to pass the tradable check
		sim.SeedBalance(model.CoinBalance{
			Currency:     cfg.Trading.MarketCurrency,
			Balance:      cfg.Trading.MinTradableBalance * float64(cfg.Trading.MaxCoinCount),
			UnitCurrency: cfg.Trading.MarketCurrency,
		})
		return exchange.NewRateLimited(sim, limits), nil
	}

	client, err := rest.NewClient(cfg.Upbit.ApiURL, cfg.Upbit.AccessKey, cfg.Upbit.SecretKey)
	if err != nil {
		return nil, err
	}
	return exchange.NewRateLimited(client, limits), nil
}
