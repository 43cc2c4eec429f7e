package model

import "time"

// Side 주문 종류
// - bid : 매수
// - ask : 매도
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

func (s Side) Valid() bool {
	return s == SideBid || s == SideAsk
}

// OrderState 주문 상태
// - wait : 체결 대기
// - watch : 예약주문 대기
// - done : 전체 체결 완료
// - cancel : 주문 취소
type OrderState string

const (
	OrderStateWait   OrderState = "wait"
	OrderStateWatch  OrderState = "watch"
	OrderStateDone   OrderState = "done"
	OrderStateCancel OrderState = "cancel"
)

// OrderType 주문 방식
// - limit : 지정가
// - price : 시장가 매수
// - market : 시장가 매도
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypePrice  OrderType = "price"
	OrderTypeMarket OrderType = "market"
)

// Trade is one fill executed against an order.
type Trade struct {
	ID        string    `json:"uuid"`
	OrderID   string    `json:"order_uuid"`
	Market    string    `json:"market"`
	Side      Side      `json:"side"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Funds     float64   `json:"funds"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is the locally tracked record of one exchange order. It is created
// when an order is placed (or adopted at startup) and mutated only by
// reconciliation against gateway responses.
type Order struct {
	ID              string     `json:"uuid"`
	Market          string     `json:"market"`
	Side            Side       `json:"side"`
	OrdType         OrderType  `json:"ord_type"`
	State           OrderState `json:"state"`
	Price           float64    `json:"price"`
	Volume          float64    `json:"volume"`
	RemainingVolume float64    `json:"remaining_volume"`
	ExecutedVolume  float64    `json:"executed_volume"`
	Locked          float64    `json:"locked"`
	TradeCount      int        `json:"trade_count"`
	CreatedAt       time.Time  `json:"created_at"`

	Trades []Trade `json:"trades,omitempty"`
}

// Filled reports whether nothing remains to execute.
func (o *Order) Filled() bool {
	return o.RemainingVolume <= 0
}

// LastTrade returns the most recent fill, or nil.
func (o *Order) LastTrade() *Trade {
	if len(o.Trades) == 0 {
		return nil
	}
	return &o.Trades[len(o.Trades)-1]
}

// OrderRequest is what the engine submits to the gateway.
type OrderRequest struct {
	Market  string    `json:"market"`
	Side    Side      `json:"side"`
	Volume  float64   `json:"volume"`
	Price   float64   `json:"price"`
	OrdType OrderType `json:"ord_type"`
}
