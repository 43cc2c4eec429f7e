// Package engine holds the per-symbol trading state machine.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tickflow/internal/exchange"
	"tickflow/internal/model"
	"tickflow/pkg/logger"
	"tickflow/pkg/scheduler"
)

type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateWaiting  State = "waiting-ready"
	StateTrading  State = "trading"
)

// Two resting orders per side is a deliberate cap, not a tunable.
const maxOpenPerSide = 2

// Feed is the order-book stream as the engine consumes it.
type Feed interface {
	Connect()
	Ready() bool
	Updated() bool
	MarkRead()
	Latest() (model.OrderbookSnapshot, bool)
	Close()
}

// Recorder receives journal events. May be nil.
type Recorder interface {
	Record(result any) error
}

// Config is one engine's slice of the trading configuration, passed by
// value at construction.
type Config struct {
	Market            string  // 종목코드 (ex. KRW-BTC)
	Currency          string  // 화폐 코드 (ex. BTC)
	Budget            float64 // allocated funding-currency budget
	MinOrderAmount    float64
	ReadyPollInterval time.Duration
	WatchInterval     time.Duration
}

// CoinEngine runs one market: consumes the feed, reconciles order state
// against the gateway and quotes one tick off the last trade when the edge
// clears the round-trip fee. All decision cycles run inside its serial
// queue, so they never overlap.
type CoinEngine struct {
	cfg     Config
	gw      exchange.Gateway
	feed    Feed
	sched   scheduler.Scheduler
	queue   *SerialQueue
	journal Recorder

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	openingPrice float64
	available    float64 // budget minus open bid locks
	holding      model.AccountBalance
	bidFee       float64
	askFee       float64
	bids         map[string]*model.Order
	asks         map[string]*model.Order
	lastTrade    map[model.Side]*model.Trade

	readyTask scheduler.TaskHandle
	watchTask scheduler.TaskHandle
}

func NewCoinEngine(cfg Config, gw exchange.Gateway, feed Feed, sched scheduler.Scheduler, journal Recorder) *CoinEngine {
	if cfg.ReadyPollInterval <= 0 {
		cfg.ReadyPollInterval = 500 * time.Millisecond
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = time.Second
	}
	return &CoinEngine{
		cfg:       cfg,
		gw:        gw,
		feed:      feed,
		sched:     sched,
		queue:     NewSerialQueue(),
		journal:   journal,
		state:     StateStopped,
		available: cfg.Budget,
		bids:      make(map[string]*model.Order),
		asks:      make(map[string]*model.Order),
		lastTrade: make(map[model.Side]*model.Trade),
	}
}

// Start opens the feed, fetches fees once, adopts pre-existing open orders
// and begins polling for readiness. Trading starts on the first snapshot.
func (e *CoinEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateStopped {
		e.mu.Unlock()
		return fmt.Errorf("engine %s already started", e.cfg.Market)
	}
	e.state = StateStarting
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	e.feed.Connect()

	info, err := e.gw.OrderableInfo(e.ctx, e.cfg.Market)
	if err != nil {
		e.Stop()
		return fmt.Errorf("fetch orderable info for %s: %w", e.cfg.Market, err)
	}

	open, err := e.gw.OpenOrders(e.ctx, e.cfg.Market)
	if err != nil {
		e.Stop()
		return fmt.Errorf("fetch open orders for %s: %w", e.cfg.Market, err)
	}

	e.mu.Lock()
	e.bidFee = info.BidFee
	e.askFee = info.AskFee
	e.holding = info.AskAccount
	for i := range open {
		o := open[i]
		e.openSet(o.Side)[o.ID] = &o
		logger.Info("Adopted open order.",
			logger.Pair("market", e.cfg.Market),
			logger.Pair("side", o.Side),
			logger.Pair("uuid", o.ID),
			logger.Pair("remaining", o.RemainingVolume))
	}
	e.recomputeAvailable()
	e.state = StateWaiting
	e.readyTask = e.sched.Every(e.cfg.ReadyPollInterval, e.checkReady)
	e.mu.Unlock()

	logger.Info("Coin engine started.",
		logger.Pair("market", e.cfg.Market),
		logger.Pair("budget", e.cfg.Budget))
	return nil
}

// checkReady fires until the feed delivers its first snapshot, then arms
// the watch timer.
func (e *CoinEngine) checkReady() {
	if !e.feed.Ready() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateWaiting {
		return
	}
	if e.readyTask != nil {
		e.readyTask.Stop()
		e.readyTask = nil
	}

	if snap, ok := e.feed.Latest(); ok {
		if best, ok := snap.Best(); ok {
			e.openingPrice = best.AskPrice
		}
	}
	e.feed.MarkRead()

	e.state = StateTrading
	e.watchTask = e.sched.Every(e.cfg.WatchInterval, e.watch)

	logger.Info("Coin engine trading.",
		logger.Pair("market", e.cfg.Market),
		logger.Pair("openingPrice", e.openingPrice),
		logger.Pair("priceUnit", PriceUnit(e.openingPrice)))
}

// watch is one reconciliation pass: fetch details for every open order,
// collect those whose trade count moved, then hand the change-set to a
// serialized decision task. The REST calls happen here so a slow gateway
// never blocks the queue.
func (e *CoinEngine) watch() {
	e.mu.Lock()
	if e.state != StateTrading {
		e.mu.Unlock()
		return
	}
	ids := make([]string, 0, len(e.bids)+len(e.asks))
	counts := make(map[string]int, len(e.bids)+len(e.asks))
	for id, o := range e.bids {
		ids = append(ids, id)
		counts[id] = o.TradeCount
	}
	for id, o := range e.asks {
		ids = append(ids, id)
		counts[id] = o.TradeCount
	}
	e.mu.Unlock()

	var changed []*model.Order
	for _, id := range ids {
		detail, err := e.gw.OrderDetail(e.ctx, id)
		if err != nil {
			logger.Error("Order detail fetch failed.",
				logger.Pair("market", e.cfg.Market),
				logger.Pair("uuid", id),
				logger.Pair("error", err.Error()))
			return // next tick re-evaluates from fresh state
		}
		last, seen := counts[detail.ID]
		if !seen || detail.TradeCount != last {
			changed = append(changed, detail)
		}
	}

	e.queue.Enqueue(func() { e.decide(changed) })
}

// decide is one decision cycle. Runs only inside the serial queue.
func (e *CoinEngine) decide(changed []*model.Order) {
	info, err := e.gw.OrderableInfo(e.ctx, e.cfg.Market)
	if err != nil {
		logger.Error("Orderable info refresh failed.",
			logger.Pair("market", e.cfg.Market),
			logger.Pair("error", err.Error()))
		return
	}

	e.mu.Lock()
	if e.state != StateTrading {
		e.mu.Unlock()
		return
	}
	e.bidFee = info.BidFee
	e.askFee = info.AskFee
	e.holding = info.AskAccount

	for _, o := range changed {
		e.applyChange(o)
	}
	e.recomputeAvailable()

	var (
		bidQ, askQ         Quote
		placeBid, placeAsk bool
	)
	if len(e.bids) < maxOpenPerSide {
		bidQ, placeBid = e.bidQuote()
	}
	if len(e.asks) < maxOpenPerSide {
		askQ, placeAsk = e.askQuote()
	}
	e.mu.Unlock()

	if placeBid {
		e.place(model.SideBid, bidQ)
	}
	if placeAsk {
		e.place(model.SideAsk, askQ)
	}
}

func (e *CoinEngine) place(side model.Side, q Quote) {
	order, err := e.gw.PlaceOrder(e.ctx, model.OrderRequest{
		Market:  e.cfg.Market,
		Side:    side,
		Volume:  q.Volume,
		Price:   q.Price,
		OrdType: model.OrderTypeLimit,
	})
	if err != nil {
		// no retry; the next watch tick re-evaluates
		logger.Error("Order placement failed.",
			logger.Pair("market", e.cfg.Market),
			logger.Pair("side", side),
			logger.Pair("price", q.Price),
			logger.Pair("volume", q.Volume),
			logger.Pair("error", err.Error()))
		return
	}

	e.mu.Lock()
	e.openSet(side)[order.ID] = order
	e.recomputeAvailable()
	e.mu.Unlock()

	logger.Info("Order placed.",
		logger.Pair("market", e.cfg.Market),
		logger.Pair("side", side),
		logger.Pair("uuid", order.ID),
		logger.Pair("price", order.Price),
		logger.Pair("volume", order.Volume))
	e.record(journalEvent{
		Type:   "order",
		Market: e.cfg.Market,
		Side:   side,
		Price:  order.Price,
		Volume: order.Volume,
		At:     time.Now(),
	})
}

// Stop cancels the timers, closes the feed and waits for any in-flight
// decision task. Idempotent.
func (e *CoinEngine) Stop() {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	if e.readyTask != nil {
		e.readyTask.Stop()
		e.readyTask = nil
	}
	if e.watchTask != nil {
		e.watchTask.Stop()
		e.watchTask = nil
	}
	cancel := e.cancel
	e.mu.Unlock()

	// a running decision task finishes; aborting mid-placement would leave
	// an order on the book that local state never saw
	e.queue.Wait()

	if cancel != nil {
		cancel()
	}
	e.feed.Close()

	logger.Info("Coin engine stopped.", logger.Pair("market", e.cfg.Market))
}

func (e *CoinEngine) openSet(side model.Side) map[string]*model.Order {
	if side == model.SideAsk {
		return e.asks
	}
	return e.bids
}

// recomputeAvailable enforces: available = budget − Σ(open bid locks), ≥ 0.
func (e *CoinEngine) recomputeAvailable() {
	locked := 0.0
	for _, o := range e.bids {
		locked += o.Locked
	}
	avail := e.cfg.Budget - locked
	if avail < 0 {
		logger.Warn("Open bid locks exceed budget.",
			logger.Pair("market", e.cfg.Market),
			logger.Pair("budget", e.cfg.Budget),
			logger.Pair("locked", locked))
		avail = 0
	}
	e.available = avail
}

type journalEvent struct {
	Type   string     `json:"type"`
	Market string     `json:"market"`
	Side   model.Side `json:"side"`
	Price  float64    `json:"price"`
	Volume float64    `json:"volume"`
	At     time.Time  `json:"at"`
}

func (e *CoinEngine) record(ev journalEvent) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Record(ev); err != nil {
		logger.Warn("Journal write failed.",
			logger.Pair("market", e.cfg.Market),
			logger.Pair("error", err.Error()))
	}
}

func (e *CoinEngine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *CoinEngine) Market() string { return e.cfg.Market }

// Available is the funding currency not locked by open bids.
func (e *CoinEngine) Available() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// OpenOrderCounts reports resting bid and ask order counts.
func (e *CoinEngine) OpenOrderCounts() (bids, asks int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.bids), len(e.asks)
}
