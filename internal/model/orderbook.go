package model

import "time"

// OrderbookLevel is one price level: best ask/bid price and resting size.
type OrderbookLevel struct {
	AskPrice float64 `json:"ask_price"`
	BidPrice float64 `json:"bid_price"`
	AskSize  float64 `json:"ask_size"`
	BidSize  float64 `json:"bid_size"`
}

// OrderbookSnapshot is the full depth message for one market. It is replaced
// wholesale on every feed message, never merged.
type OrderbookSnapshot struct {
	Market       string           `json:"market"`
	Timestamp    time.Time        `json:"timestamp"`
	TotalAskSize float64          `json:"total_ask_size"`
	TotalBidSize float64          `json:"total_bid_size"`
	Levels       []OrderbookLevel `json:"orderbook_units"`
}

// Best returns the top level, if any.
func (s *OrderbookSnapshot) Best() (OrderbookLevel, bool) {
	if len(s.Levels) == 0 {
		return OrderbookLevel{}, false
	}
	return s.Levels[0], true
}
