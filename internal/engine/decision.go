package engine

import (
	"math"

	"tickflow/internal/model"
)

// Quote is an accepted bid/ask proposal.
type Quote struct {
	Volume float64
	Price  float64
}

// One-tick spread capture: quote exactly one price unit off the last trade
// and only when the captured edge more than covers the round-trip fee.
// Caller holds e.mu.

// bidQuote prices one tick under the last ask-side trade and spends the
// whole available balance.
func (e *CoinEngine) bidQuote() (Quote, bool) {
	ref := e.refPrice(model.SideAsk)
	if ref <= 0 {
		return Quote{}, false
	}
	unit := PriceUnit(ref)
	price := ref - unit
	if price <= 0 {
		return Quote{}, false
	}

	fee := e.available * e.bidFee
	usable := e.available - fee
	if usable <= e.cfg.MinOrderAmount {
		return Quote{}, false
	}

	volume := math.Floor(usable / price)
	if volume <= 0 {
		return Quote{}, false
	}

	profit := unit*volume - fee
	if profit <= fee {
		return Quote{}, false
	}
	return Quote{Volume: volume, Price: price}, true
}

// askQuote prices one tick over the last bid-side trade and offers the
// whole owned quantity.
func (e *CoinEngine) askQuote() (Quote, bool) {
	ref := e.refPrice(model.SideBid)
	if ref <= 0 {
		return Quote{}, false
	}
	unit := PriceUnit(ref)
	price := ref + unit

	owned := e.holding.Balance
	if owned <= 0 {
		return Quote{}, false
	}

	notional := owned * price
	if notional <= e.cfg.MinOrderAmount {
		return Quote{}, false
	}

	fee := notional * e.askFee
	profit := unit*owned - fee
	if profit <= fee {
		return Quote{}, false
	}
	return Quote{Volume: owned, Price: price}, true
}

// refPrice is the side's last fill price, falling back to the opening
// snapshot before any fill has been seen.
func (e *CoinEngine) refPrice(side model.Side) float64 {
	if t := e.lastTrade[side]; t != nil {
		return t.Price
	}
	return e.openingPrice
}
