// Package account discovers what the account owns and partitions the
// funding-currency balance across coin engines.
package account

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"tickflow/conf"
	"tickflow/internal/engine"
	"tickflow/internal/exchange"
	"tickflow/internal/model"
	"tickflow/pkg/logger"
	"tickflow/pkg/scheduler"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusChecking Status = "checking"
	StatusChecked  Status = "checked"
	StatusFailed   Status = "failed"
)

// FeedFactory builds one order-book feed per market code.
type FeedFactory func(market string) engine.Feed

// Aggregator owns the engines for one funding currency. Init is fail-fast:
// any account-level problem (no symbols, too many symbols, allocation under
// the tradable minimum) is an error, never a silent degrade.
type Aggregator struct {
	cfg     conf.TradingConfig
	gw      exchange.Gateway
	sched   scheduler.Scheduler
	feeds   FeedFactory
	journal engine.Recorder

	status  Status
	base    model.CoinBalance
	engines []*engine.CoinEngine
}

func NewAggregator(cfg conf.TradingConfig, gw exchange.Gateway, sched scheduler.Scheduler, feeds FeedFactory, journal engine.Recorder) *Aggregator {
	return &Aggregator{
		cfg:     cfg,
		gw:      gw,
		sched:   sched,
		feeds:   feeds,
		journal: journal,
		status:  StatusPending,
	}
}

// Init discovers owned balances, merges the must-include symbols as
// zero-balance entries, splits the budget evenly and constructs engines.
func (a *Aggregator) Init(ctx context.Context) error {
	a.status = StatusChecking

	balances, err := a.gw.OwnedBalances(ctx)
	if err != nil {
		a.status = StatusFailed
		return fmt.Errorf("fetch owned balances: %w", err)
	}

	excluded := make(map[string]bool, len(a.cfg.ExcludeCoins))
	for _, c := range a.cfg.ExcludeCoins {
		excluded[c] = true
	}

	var currencies []string
	seen := make(map[string]bool)
	for _, b := range balances {
		if b.Currency == a.cfg.MarketCurrency {
			a.base = b
			continue
		}
		// other markets' funding currencies are not tradable assets here
		if b.Currency == "KRW" {
			continue
		}
		if excluded[b.Currency] {
			continue
		}
		currencies = append(currencies, b.Currency)
		seen[b.Currency] = true
	}

	// fill the remaining slots with configured must-trade symbols
	for _, c := range a.cfg.IncludeCoins {
		if len(currencies) >= a.cfg.MaxCoinCount {
			break
		}
		if !seen[c] && !excluded[c] {
			currencies = append(currencies, c)
			seen[c] = true
		}
	}

	var checkErr error
	if len(currencies) == 0 {
		checkErr = multierr.Append(checkErr, fmt.Errorf("no tradable symbols"))
	}
	if len(currencies) > a.cfg.MaxCoinCount {
		checkErr = multierr.Append(checkErr, fmt.Errorf("too many coins to run: %d > %d", len(currencies), a.cfg.MaxCoinCount))
	}
	if checkErr != nil {
		a.status = StatusFailed
		return checkErr
	}

	budget := math.Floor(a.base.Balance / float64(len(currencies)))
	if budget < a.cfg.MinTradableBalance {
		a.status = StatusFailed
		return fmt.Errorf("allocation %.0f %s per coin is under the tradable minimum %.0f",
			budget, a.cfg.MarketCurrency, a.cfg.MinTradableBalance)
	}

	for _, currency := range currencies {
		market := a.cfg.MarketCurrency + "-" + currency
		a.engines = append(a.engines, engine.NewCoinEngine(engine.Config{
			Market:            market,
			Currency:          currency,
			Budget:            budget,
			MinOrderAmount:    a.cfg.MinOrderAmount,
			ReadyPollInterval: a.cfg.ReadyPollInterval,
			WatchInterval:     a.cfg.WatchInterval,
		}, a.gw, a.feeds(market), a.sched, a.journal))
	}

	a.status = StatusChecked
	logger.Info("Account initialized.",
		logger.Pair("marketCurrency", a.cfg.MarketCurrency),
		logger.Pair("balance", a.base.Balance),
		logger.Pair("coins", currencies),
		logger.Pair("budgetPerCoin", budget))
	return nil
}

// Start launches every engine. A failing engine stays stopped without
// taking the others down; only zero engines running is fatal.
func (a *Aggregator) Start(ctx context.Context) error {
	if a.status != StatusChecked {
		return fmt.Errorf("aggregator not initialized (status %s)", a.status)
	}

	var startErr error
	started := 0
	for _, e := range a.engines {
		if err := e.Start(ctx); err != nil {
			logger.Error("Engine start failed.",
				logger.Pair("market", e.Market()),
				logger.Pair("error", err.Error()))
			startErr = multierr.Append(startErr, err)
			continue
		}
		started++
	}
	if started == 0 && len(a.engines) > 0 {
		return fmt.Errorf("no engine started: %w", startErr)
	}
	return nil
}

// Stop stops every engine. Safe to call repeatedly.
func (a *Aggregator) Stop() {
	for _, e := range a.engines {
		e.Stop()
	}
}

func (a *Aggregator) Status() Status { return a.status }

func (a *Aggregator) Engines() []*engine.CoinEngine { return a.engines }

func (a *Aggregator) Count() int { return len(a.engines) }
