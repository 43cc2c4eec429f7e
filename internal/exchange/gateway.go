package exchange

import (
	"context"

	"tickflow/internal/model"
)

// Gateway is the exchange's private REST surface as the engines consume it.
type Gateway interface {
	// 내 계좌 전체 잔고 조회
	OwnedBalances(ctx context.Context) ([]model.CoinBalance, error)
	// 종목별 주문 가능 정보 (수수료율, 양쪽 계좌 상태)
	OrderableInfo(ctx context.Context, market string) (*model.OrderableInfo, error)
	// 지정가 주문
	PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.Order, error)
	// 개별 주문 조회 (체결 내역 포함)
	OrderDetail(ctx context.Context, id string) (*model.Order, error)
	// 미체결 주문 목록
	OpenOrders(ctx context.Context, market string) ([]model.Order, error)
	// 주문 취소
	CancelOrder(ctx context.Context, id string) (*model.Order, error)
}
