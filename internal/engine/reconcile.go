package engine

import (
	"time"

	"tickflow/internal/model"
	"tickflow/pkg/logger"
)

// applyChange merges one freshly fetched order detail into the tracked
// state. Caller holds e.mu. Bid and ask are handled symmetrically; only the
// side tagged on the order is touched.
//
// remaining volume zero  -> the order is fully filled: drop it and its
//
//	trade history from the open set.
//
// remaining volume > 0   -> merge fields and append fills that arrived
//
//	since the last reconciliation.
func (e *CoinEngine) applyChange(o *model.Order) {
	if !o.Side.Valid() {
		logger.Warn("Order with unknown side ignored.",
			logger.Pair("market", e.cfg.Market),
			logger.Pair("uuid", o.ID),
			logger.Pair("side", o.Side))
		return
	}
	set := e.openSet(o.Side)

	if o.Filled() {
		delete(set, o.ID)
		e.noteFills(o, o.Trades)
		logger.Info("Order fully filled.",
			logger.Pair("market", e.cfg.Market),
			logger.Pair("side", o.Side),
			logger.Pair("uuid", o.ID),
			logger.Pair("price", o.Price))
		return
	}

	tracked, ok := set[o.ID]
	if !ok {
		set[o.ID] = o
		e.noteFills(o, o.Trades)
		return
	}

	var newFills []model.Trade
	if len(o.Trades) > len(tracked.Trades) {
		newFills = o.Trades[len(tracked.Trades):]
	}
	tracked.RemainingVolume = o.RemainingVolume
	tracked.ExecutedVolume = o.ExecutedVolume
	tracked.Locked = o.Locked
	tracked.State = o.State
	tracked.TradeCount = o.TradeCount
	tracked.Trades = append(tracked.Trades, newFills...)

	e.noteFills(tracked, newFills)
}

// noteFills records the most recent fill as the side's last trade price and
// refreshes the tick size from it.
func (e *CoinEngine) noteFills(o *model.Order, fills []model.Trade) {
	if len(fills) == 0 {
		return
	}
	last := fills[len(fills)-1]
	e.lastTrade[o.Side] = &last

	for _, fill := range fills {
		e.record(journalEvent{
			Type:   "fill",
			Market: e.cfg.Market,
			Side:   o.Side,
			Price:  fill.Price,
			Volume: fill.Volume,
			At:     time.Now(),
		})
	}
}
