package reconcile

import (
	"order-gateway/internal/types"
)

// SquareOffStrategy tags every closing order.
const SquareOffStrategy = "Squareoff"

// Closing pairs an open position with the order that flattens it.
type Closing struct {
	Position types.Position
	Request  types.OrderRequest
}

// ClosingOrders plans one MARKET order per non-flat position, in input
// order. Flat positions produce nothing.
func ClosingOrders(positions []types.Position) []Closing {
	out := make([]Closing, 0, len(positions))
	for _, p := range positions {
		if p.Flat() {
			continue
		}
		plan := Decide(0, p.NetQuantity)
		req := types.OrderRequest{
			Strategy:  SquareOffStrategy,
			Symbol:    p.Symbol,
			Exchange:  p.Exchange,
			Product:   p.Product,
			PriceType: types.PriceTypeMarket,
		}
		out = append(out, Closing{Position: p, Request: plan.Apply(req)})
	}
	return out
}

// NetQuantity returns the signed quantity of the position matching symbol,
// exchange and product, or zero when there is none.
func NetQuantity(positions []types.Position, symbol, exchange string, product types.Product) int {
	for _, p := range positions {
		if p.Symbol == symbol && p.Exchange == exchange && p.Product == product {
			return p.NetQuantity
		}
	}
	return 0
}
