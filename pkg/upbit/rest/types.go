package rest

import (
	"time"

	"github.com/spf13/cast"

	"tickflow/internal/model"
)

// Upbit encodes most numerics as strings on the wire.

type accountPayload struct {
	Currency            string `json:"currency"`
	Balance             string `json:"balance"`
	Locked              string `json:"locked"`
	AvgBuyPrice         string `json:"avg_buy_price"`
	AvgBuyPriceModified bool   `json:"avg_buy_price_modified"`
	UnitCurrency        string `json:"unit_currency"`
}

func (p accountPayload) toModel() model.CoinBalance {
	return model.CoinBalance{
		Currency:            p.Currency,
		Balance:             cast.ToFloat64(p.Balance),
		Locked:              cast.ToFloat64(p.Locked),
		AvgBuyPrice:         cast.ToFloat64(p.AvgBuyPrice),
		AvgBuyPriceModified: p.AvgBuyPriceModified,
		UnitCurrency:        p.UnitCurrency,
	}
}

type chanceRestrictionPayload struct {
	Currency string `json:"currency"`
	MinTotal string `json:"min_total"`
}

type chanceMarketPayload struct {
	ID       string                   `json:"id"`
	Name     string                   `json:"name"`
	Bid      chanceRestrictionPayload `json:"bid"`
	Ask      chanceRestrictionPayload `json:"ask"`
	MaxTotal string                   `json:"max_total"`
	State    string                   `json:"state"`
}

type chancePayload struct {
	BidFee     string              `json:"bid_fee"`
	AskFee     string              `json:"ask_fee"`
	Market     chanceMarketPayload `json:"market"`
	BidAccount accountPayload      `json:"bid_account"`
	AskAccount accountPayload      `json:"ask_account"`
}

func (p chancePayload) toModel() *model.OrderableInfo {
	return &model.OrderableInfo{
		Market:   p.Market.ID,
		BidFee:   cast.ToFloat64(p.BidFee),
		AskFee:   cast.ToFloat64(p.AskFee),
		MinTotal: cast.ToFloat64(p.Market.Bid.MinTotal),
		MaxTotal: cast.ToFloat64(p.Market.MaxTotal),
		BidAccount: model.AccountBalance{
			Currency:    p.BidAccount.Currency,
			Balance:     cast.ToFloat64(p.BidAccount.Balance),
			Locked:      cast.ToFloat64(p.BidAccount.Locked),
			AvgBuyPrice: cast.ToFloat64(p.BidAccount.AvgBuyPrice),
		},
		AskAccount: model.AccountBalance{
			Currency:    p.AskAccount.Currency,
			Balance:     cast.ToFloat64(p.AskAccount.Balance),
			Locked:      cast.ToFloat64(p.AskAccount.Locked),
			AvgBuyPrice: cast.ToFloat64(p.AskAccount.AvgBuyPrice),
		},
	}
}

type tradePayload struct {
	UUID      string `json:"uuid"`
	Market    string `json:"market"`
	Price     string `json:"price"`
	Volume    string `json:"volume"`
	Funds     string `json:"funds"`
	Side      string `json:"side"`
	CreatedAt string `json:"created_at"`
}

type orderPayload struct {
	UUID            string         `json:"uuid"`
	Side            string         `json:"side"`
	OrdType         string         `json:"ord_type"`
	Price           string         `json:"price"`
	State           string         `json:"state"`
	Market          string         `json:"market"`
	CreatedAt       string         `json:"created_at"`
	Volume          string         `json:"volume"`
	RemainingVolume string         `json:"remaining_volume"`
	Locked          string         `json:"locked"`
	ExecutedVolume  string         `json:"executed_volume"`
	TradeCount      int            `json:"trades_count"`
	Trades          []tradePayload `json:"trades,omitempty"`
}

func (p orderPayload) toModel() model.Order {
	o := model.Order{
		ID:              p.UUID,
		Side:            model.Side(p.Side),
		OrdType:         model.OrderType(p.OrdType),
		State:           model.OrderState(p.State),
		Market:          p.Market,
		Price:           cast.ToFloat64(p.Price),
		Volume:          cast.ToFloat64(p.Volume),
		RemainingVolume: cast.ToFloat64(p.RemainingVolume),
		ExecutedVolume:  cast.ToFloat64(p.ExecutedVolume),
		Locked:          cast.ToFloat64(p.Locked),
		TradeCount:      p.TradeCount,
		CreatedAt:       parseTime(p.CreatedAt),
	}
	for _, t := range p.Trades {
		o.Trades = append(o.Trades, model.Trade{
			ID:        t.UUID,
			OrderID:   p.UUID,
			Market:    t.Market,
			Side:      model.Side(t.Side),
			Price:     cast.ToFloat64(t.Price),
			Volume:    cast.ToFloat64(t.Volume),
			Funds:     cast.ToFloat64(t.Funds),
			CreatedAt: parseTime(t.CreatedAt),
		})
	}
	return o
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
