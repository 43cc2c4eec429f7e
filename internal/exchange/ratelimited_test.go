package exchange

import (
	"context"
	"testing"
	"time"

	"tickflow/internal/model"
	"tickflow/pkg/ratelimit"
)

func TestRateLimitedDelegates(t *testing.T) {
	sim := NewSimulated()
	sim.SeedBalance(model.CoinBalance{Currency: "KRW", Balance: 100_000})
	gw := NewRateLimited(sim, ratelimit.NewGroup(10, 10, 10))
	ctx := context.Background()

	balances, err := gw.OwnedBalances(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 1 || balances[0].Currency != "KRW" {
		t.Fatalf("balances = %+v", balances)
	}

	placed, err := gw.PlaceOrder(ctx, model.OrderRequest{
		Market: "KRW-BTC", Side: model.SideBid, Volume: 1, Price: 100, OrdType: model.OrderTypeLimit,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gw.OrderDetail(ctx, placed.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := gw.CancelOrder(ctx, placed.ID); err != nil {
		t.Fatal(err)
	}
}

func TestRateLimitedStopsOnCancelledContext(t *testing.T) {
	gw := NewRateLimited(NewSimulated(), ratelimit.NewGroup(1, 1, 1))

	// drain the order bucket, then the next call must fail fast on a dead
	// context instead of reaching the gateway
	if _, err := gw.PlaceOrder(context.Background(), model.OrderRequest{
		Market: "KRW-BTC", Side: model.SideBid, Volume: 1, Price: 100, OrdType: model.OrderTypeLimit,
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := gw.PlaceOrder(ctx, model.OrderRequest{
		Market: "KRW-BTC", Side: model.SideBid, Volume: 1, Price: 100, OrdType: model.OrderTypeLimit,
	}); err == nil {
		t.Fatal("PlaceOrder succeeded past a cancelled context")
	}
}
