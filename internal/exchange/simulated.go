package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"tickflow/internal/model"
)

// 모의 거래용 게이트웨이: orders rest unfilled until cancelled, balances are
// served from a seeded table. Selected by `upbit.simulated: true`.
type Simulated struct {
	mu       sync.Mutex
	balances []model.CoinBalance
	orders   map[string]*model.Order
	fees     map[string]model.OrderableInfo
}

func NewSimulated() *Simulated {
	return &Simulated{
		orders: make(map[string]*model.Order),
		fees:   make(map[string]model.OrderableInfo),
	}
}

// SeedBalance replaces or adds one owned-balance row.
func (s *Simulated) SeedBalance(b model.CoinBalance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.balances {
		if s.balances[i].Currency == b.Currency {
			s.balances[i] = b
			return
		}
	}
	s.balances = append(s.balances, b)
}

// SeedOrderableInfo sets the orderable info returned for a market.
func (s *Simulated) SeedOrderableInfo(market string, info model.OrderableInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info.Market = market
	s.fees[market] = info
}

func (s *Simulated) OwnedBalances(ctx context.Context) ([]model.CoinBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CoinBalance, len(s.balances))
	copy(out, s.balances)
	return out, nil
}

func (s *Simulated) OrderableInfo(ctx context.Context, market string) (*model.OrderableInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.fees[market]
	if !ok {
		// default fee 0.05% both sides
		info = model.OrderableInfo{Market: market, BidFee: 0.0005, AskFee: 0.0005}
	}
	return &info, nil
}

func (s *Simulated) PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if !req.Side.Valid() {
		return nil, fmt.Errorf("invalid order side %q", req.Side)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	locked := req.Volume
	if req.Side == model.SideBid {
		locked = req.Volume * req.Price
	}
	o := &model.Order{
		ID:              uuid.NewString(),
		Market:          req.Market,
		Side:            req.Side,
		OrdType:         req.OrdType,
		State:           model.OrderStateWait,
		Price:           req.Price,
		Volume:          req.Volume,
		RemainingVolume: req.Volume,
		Locked:          locked,
		CreatedAt:       time.Now(),
	}
	s.orders[o.ID] = o

	cp := *o
	return &cp, nil
}

func (s *Simulated) OrderDetail(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	cp := *o
	return &cp, nil
}

func (s *Simulated) OpenOrders(ctx context.Context, market string) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.Market == market && o.State == model.OrderStateWait {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *Simulated) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s not found", id)
	}
	o.State = model.OrderStateCancel
	delete(s.orders, id)
	cp := *o
	return &cp, nil
}
