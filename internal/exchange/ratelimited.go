package exchange

import (
	"context"

	"tickflow/internal/model"
	"tickflow/pkg/ratelimit"
)

// RateLimited wraps a Gateway with the shared token buckets. Every engine
// goes through the same instance, so the process as a whole stays under the
// exchange's per-second budgets.
type RateLimited struct {
	inner  Gateway
	limits *ratelimit.Group
}

func NewRateLimited(inner Gateway, limits *ratelimit.Group) *RateLimited {
	return &RateLimited{inner: inner, limits: limits}
}

func (g *RateLimited) OwnedBalances(ctx context.Context) ([]model.CoinBalance, error) {
	if err := g.limits.WaitExchange(ctx); err != nil {
		return nil, err
	}
	return g.inner.OwnedBalances(ctx)
}

func (g *RateLimited) OrderableInfo(ctx context.Context, market string) (*model.OrderableInfo, error) {
	if err := g.limits.WaitExchange(ctx); err != nil {
		return nil, err
	}
	return g.inner.OrderableInfo(ctx, market)
}

func (g *RateLimited) PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error) {
	if err := g.limits.WaitOrder(ctx); err != nil {
		return nil, err
	}
	return g.inner.PlaceOrder(ctx, req)
}

func (g *RateLimited) OrderDetail(ctx context.Context, id string) (*model.Order, error) {
	if err := g.limits.WaitExchange(ctx); err != nil {
		return nil, err
	}
	return g.inner.OrderDetail(ctx, id)
}

func (g *RateLimited) OpenOrders(ctx context.Context, market string) ([]model.Order, error) {
	if err := g.limits.WaitExchange(ctx); err != nil {
		return nil, err
	}
	return g.inner.OpenOrders(ctx, market)
}

func (g *RateLimited) CancelOrder(ctx context.Context, id string) (*model.Order, error) {
	if err := g.limits.WaitOrder(ctx); err != nil {
		return nil, err
	}
	return g.inner.CancelOrder(ctx, id)
}
