package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"tickflow/internal/model"
	"tickflow/pkg/scheduler"
)

type fakeGateway struct {
	mu      sync.Mutex
	info    model.OrderableInfo
	infoErr error
	open    []model.Order
	details map[string]*model.Order
	placed  []model.OrderRequest
}

func newFakeGateway(info model.OrderableInfo) *fakeGateway {
	return &fakeGateway{info: info, details: make(map[string]*model.Order)}
}

func (g *fakeGateway) OwnedBalances(ctx context.Context) ([]model.CoinBalance, error) {
	return nil, nil
}

func (g *fakeGateway) OrderableInfo(ctx context.Context, market string) (*model.OrderableInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.infoErr != nil {
		return nil, g.infoErr
	}
	info := g.info
	return &info, nil
}

func (g *fakeGateway) PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.placed = append(g.placed, req)
	o := model.Order{
		ID:              fmt.Sprintf("order-%d", len(g.placed)),
		Market:          req.Market,
		Side:            req.Side,
		OrdType:         req.OrdType,
		State:           model.OrderStateWait,
		Price:           req.Price,
		Volume:          req.Volume,
		RemainingVolume: req.Volume,
	}
	if req.Side == model.SideBid {
		o.Locked = req.Price * req.Volume
	} else {
		o.Locked = req.Volume
	}
	cp := o
	g.details[o.ID] = &cp
	return &o, nil
}

func (g *fakeGateway) OrderDetail(ctx context.Context, id string) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.details[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	cp := *o
	cp.Trades = append([]model.Trade(nil), o.Trades...)
	return &cp, nil
}

func (g *fakeGateway) OpenOrders(ctx context.Context, market string) ([]model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Order(nil), g.open...), nil
}

func (g *fakeGateway) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.details[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	o.State = model.OrderStateCancel
	cp := *o
	return &cp, nil
}

func (g *fakeGateway) setDetail(o model.Order) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := o
	g.details[o.ID] = &cp
}

func (g *fakeGateway) setHolding(b model.AccountBalance) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.info.AskAccount = b
}

func (g *fakeGateway) placedRequests() []model.OrderRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.OrderRequest(nil), g.placed...)
}

type fakeFeed struct {
	mu        sync.Mutex
	connected bool
	ready     bool
	updated   bool
	closed    bool
	snap      model.OrderbookSnapshot
}

func (f *fakeFeed) Connect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
}

func (f *fakeFeed) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeFeed) Updated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated
}

func (f *fakeFeed) MarkRead() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = false
}

func (f *fakeFeed) Latest() (model.OrderbookSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.ready
}

func (f *fakeFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeFeed) publish(snap model.OrderbookSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	f.ready = true
	f.updated = true
}

func (f *fakeFeed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func snapshotAt(askPrice float64) model.OrderbookSnapshot {
	return model.OrderbookSnapshot{
		Market: "KRW-BTC",
		Levels: []model.OrderbookLevel{{AskPrice: askPrice, BidPrice: askPrice - 1, AskSize: 10, BidSize: 10}},
	}
}

func defaultInfo() model.OrderableInfo {
	return model.OrderableInfo{
		Market:     "KRW-BTC",
		BidFee:     0.0005,
		AskFee:     0.0005,
		MinTotal:   5_000,
		BidAccount: model.AccountBalance{Currency: "KRW"},
		AskAccount: model.AccountBalance{Currency: "BTC"},
	}
}

func newTestEngine(gw *fakeGateway, feed *fakeFeed, sched *scheduler.Manual) *CoinEngine {
	return NewCoinEngine(Config{
		Market:         "KRW-BTC",
		Currency:       "BTC",
		Budget:         100_000,
		MinOrderAmount: 5_000,
	}, gw, feed, sched, nil)
}

func TestEngineAdoptsOpenOrdersOnStart(t *testing.T) {
	gw := newFakeGateway(defaultInfo())
	gw.open = []model.Order{{
		ID: "pre", Market: "KRW-BTC", Side: model.SideBid,
		Price: 499, Volume: 1, RemainingVolume: 0.5, Locked: 249.5,
		State: model.OrderStateWait,
	}}
	gw.setDetail(gw.open[0])

	feed := &fakeFeed{}
	e := newTestEngine(gw, feed, scheduler.NewManual())
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	if got := e.State(); got != StateWaiting {
		t.Fatalf("state = %s, want %s", got, StateWaiting)
	}
	bids, asks := e.OpenOrderCounts()
	if bids != 1 || asks != 0 {
		t.Fatalf("open orders = %d bids / %d asks, want 1 / 0", bids, asks)
	}
	if got := e.Available(); got != 100_000-249.5 {
		t.Fatalf("available = %v, want budget minus adopted lock", got)
	}
	if !feed.connected {
		t.Fatal("feed was not connected")
	}
}

func TestEngineStartFailsWhenGatewayDown(t *testing.T) {
	gw := newFakeGateway(defaultInfo())
	gw.infoErr = fmt.Errorf("upstream unavailable")

	e := newTestEngine(gw, &fakeFeed{}, scheduler.NewManual())
	if err := e.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded with a failing gateway")
	}
	if got := e.State(); got != StateStopped {
		t.Fatalf("state = %s after failed start, want %s", got, StateStopped)
	}
}

func TestEngineTradingCycle(t *testing.T) {
	gw := newFakeGateway(defaultInfo())
	feed := &fakeFeed{}
	sched := scheduler.NewManual()
	e := newTestEngine(gw, feed, sched)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer e.Stop()

	// no snapshot yet: the readiness poll keeps waiting
	sched.Tick()
	if got := e.State(); got != StateWaiting {
		t.Fatalf("state = %s before first snapshot, want %s", got, StateWaiting)
	}

	feed.publish(snapshotAt(500))
	sched.Tick()
	if got := e.State(); got != StateTrading {
		t.Fatalf("state = %s after first snapshot, want %s", got, StateTrading)
	}

	// first watch pass: nothing open, opening price 500 seeds a bid one
	// tick under at 499
	sched.Tick()
	e.queue.Wait()

	placed := gw.placedRequests()
	if len(placed) != 1 {
		t.Fatalf("placed %d orders, want 1", len(placed))
	}
	if placed[0].Side != model.SideBid || placed[0].Price != 499 || placed[0].Volume != 200 {
		t.Fatalf("placed %+v, want bid 200 @ 499", placed[0])
	}
	bids, _ := e.OpenOrderCounts()
	if bids != 1 {
		t.Fatalf("tracked bids = %d, want 1", bids)
	}

	// unchanged order: the next pass must not re-place
	sched.Tick()
	e.queue.Wait()
	if got := gw.placedRequests(); len(got) != 1 {
		t.Fatalf("placed %d orders after no-op pass, want still 1", len(got))
	}

	// the bid fills completely; the engine frees the budget and quotes both
	// a fresh bid and an ask one tick over the fill
	gw.setDetail(model.Order{
		ID: "order-1", Market: "KRW-BTC", Side: model.SideBid,
		State: model.OrderStateDone, Price: 499, Volume: 200,
		RemainingVolume: 0, ExecutedVolume: 200, TradeCount: 1,
		Trades: []model.Trade{{ID: "t1", OrderID: "order-1", Side: model.SideBid, Price: 499, Volume: 200}},
	})
	gw.setHolding(model.AccountBalance{Currency: "BTC", Balance: 200})

	sched.Tick()
	e.queue.Wait()

	placed = gw.placedRequests()
	if len(placed) != 3 {
		t.Fatalf("placed %d orders after fill, want 3", len(placed))
	}
	var sawBid, sawAsk bool
	for _, req := range placed[1:] {
		switch req.Side {
		case model.SideBid:
			sawBid = true
		case model.SideAsk:
			sawAsk = true
			if req.Price != 500 || req.Volume != 200 {
				t.Errorf("ask %+v, want 200 @ 500", req)
			}
		}
	}
	if !sawBid || !sawAsk {
		t.Fatalf("after fill placed = %+v, want one bid and one ask", placed[1:])
	}
}

func TestEngineStopIsIdempotent(t *testing.T) {
	gw := newFakeGateway(defaultInfo())
	feed := &fakeFeed{}
	sched := scheduler.NewManual()
	e := newTestEngine(gw, feed, sched)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	feed.publish(snapshotAt(500))
	sched.Tick()

	e.Stop()
	e.Stop()

	if got := e.State(); got != StateStopped {
		t.Fatalf("state = %s, want %s", got, StateStopped)
	}
	if !feed.isClosed() {
		t.Fatal("feed left open after Stop")
	}
	if n := sched.Pending(); n != 0 {
		t.Fatalf("%d scheduler tasks still live after Stop", n)
	}

	// a stopped engine ignores further ticks
	sched.Tick()
	if got := gw.placedRequests(); len(got) != 0 {
		t.Fatalf("stopped engine placed %d orders", len(got))
	}
}
