package engine

// 호가 단위 staircase. Each breakpoint is inclusive at the lower bound and
// exclusive at the next one up.
// ref: https://docs.upbit.com/docs/market-info-trade-price-detail
var (
	priceUnitBreaks = []float64{
		0, 0.1, 1, 10, 100, 1_000, 10_000, 100_000, 500_000, 1_000_000, 2_000_000,
	}
	orderPriceUnits = []float64{
		0.000_1, 0.001, 0.01, 0.1, 1, 5, 10, 50, 100, 500, 1_000,
	}
)

// PriceUnit maps a trade price to the exchange's minimum order-price
// increment. Quotes always move in whole multiples of this value.
func PriceUnit(price float64) float64 {
	for i := len(priceUnitBreaks) - 1; i > 0; i-- {
		if price >= priceUnitBreaks[i] {
			return orderPriceUnits[i]
		}
	}
	return orderPriceUnits[0]
}
