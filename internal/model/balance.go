package model

// CoinBalance is one row of the account's owned balances.
type CoinBalance struct {
	Currency            string  `json:"currency"`
	Balance             float64 `json:"balance"`
	Locked              float64 `json:"locked"`
	AvgBuyPrice         float64 `json:"avg_buy_price"`
	AvgBuyPriceModified bool    `json:"avg_buy_price_modified"`
	UnitCurrency        string  `json:"unit_currency"`
}

// AccountBalance is the per-side account state reported by the orderable
// info endpoint (bid side holds the funding currency, ask side the asset).
type AccountBalance struct {
	Currency    string  `json:"currency"`
	Balance     float64 `json:"balance"`
	Locked      float64 `json:"locked"`
	AvgBuyPrice float64 `json:"avg_buy_price"`
}

// OrderableInfo is the per-market order constraint set: fee rates and both
// account sides. Refreshed before every decision cycle.
type OrderableInfo struct {
	Market     string         `json:"market"`
	BidFee     float64        `json:"bid_fee"`
	AskFee     float64        `json:"ask_fee"`
	MinTotal   float64        `json:"min_total"`
	MaxTotal   float64        `json:"max_total"`
	BidAccount AccountBalance `json:"bid_account"`
	AskAccount AccountBalance `json:"ask_account"`
}
