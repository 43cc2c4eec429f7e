// Package ratelimit holds the token buckets shared by every engine's
// gateway calls. Upbit meters orders, order queries and quotations as
// separate budgets.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Group bundles the three per-endpoint-class buckets.
type Group struct {
	order     *rate.Limiter
	exchange  *rate.Limiter
	quotation *rate.Limiter
}

// NewGroup builds buckets allowing n events per second each, with burst n.
func NewGroup(orderPerSec, exchangePerSec, quotationPerSec int) *Group {
	return &Group{
		order:     rate.NewLimiter(rate.Limit(orderPerSec), orderPerSec),
		exchange:  rate.NewLimiter(rate.Limit(exchangePerSec), exchangePerSec),
		quotation: rate.NewLimiter(rate.Limit(quotationPerSec), quotationPerSec),
	}
}

// WaitOrder blocks until an order placement/cancel slot is available.
func (g *Group) WaitOrder(ctx context.Context) error {
	return g.order.Wait(ctx)
}

// WaitExchange blocks until an order/balance query slot is available.
func (g *Group) WaitExchange(ctx context.Context) error {
	return g.exchange.Wait(ctx)
}

// WaitQuotation blocks until a market data slot is available.
func (g *Group) WaitQuotation(ctx context.Context) error {
	return g.quotation.Wait(ctx)
}
