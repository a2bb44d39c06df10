// Package books summarizes canonical order books and portfolios.
package books

import (
	"github.com/shopspring/decimal"

	"order-gateway/internal/types"
)

var hundred = decimal.NewFromInt(100)

// OrderStats counts orders by side and state.
type OrderStats struct {
	TotalBuyOrders       int `json:"total_buy_orders"`
	TotalSellOrders      int `json:"total_sell_orders"`
	TotalCompletedOrders int `json:"total_completed_orders"`
	TotalOpenOrders      int `json:"total_open_orders"`
	TotalRejectedOrders  int `json:"total_rejected_orders"`
}

// OrderBook is an order list with its statistics.
type OrderBook struct {
	Orders []types.Order `json:"orders"`
	Stats  OrderStats    `json:"statistics"`
}

// PortfolioStats values a set of holdings.
type PortfolioStats struct {
	TotalHoldingValue    decimal.Decimal `json:"totalholdingvalue"`
	TotalInvestmentValue decimal.Decimal `json:"totalinvvalue"`
	TotalProfitAndLoss   decimal.Decimal `json:"totalprofitandloss"`
	TotalPnLPercentage   decimal.Decimal `json:"totalpnlpercentage"`
}

// Portfolio is a holdings list with its statistics.
type Portfolio struct {
	Holdings []types.Holding `json:"holdings"`
	Stats    PortfolioStats  `json:"statistics"`
}

// Snapshot is every book of one account fetched together.
type Snapshot struct {
	Positions []types.Position `json:"positions"`
	OrderBook OrderBook        `json:"orderbook"`
	Trades    []types.Trade    `json:"tradebook"`
	Portfolio Portfolio        `json:"holdings"`
}

// NewOrderBook computes the statistics of orders. Open counts orders that
// can still be cancelled.
func NewOrderBook(orders []types.Order) OrderBook {
	var s OrderStats
	for _, o := range orders {
		switch o.Action {
		case types.ActionBuy:
			s.TotalBuyOrders++
		case types.ActionSell:
			s.TotalSellOrders++
		}
		switch {
		case o.Status == types.OrderStatusComplete:
			s.TotalCompletedOrders++
		case o.Status == types.OrderStatusRejected:
			s.TotalRejectedOrders++
		case o.Status.Cancellable():
			s.TotalOpenOrders++
		}
	}
	if orders == nil {
		orders = []types.Order{}
	}
	return OrderBook{Orders: orders, Stats: s}
}

// NewPortfolio values holdings at their last price and cost. P&L is the sum
// of the broker-reported P&L; when a broker reports none it is derived from
// value minus investment.
func NewPortfolio(holdings []types.Holding) Portfolio {
	s := PortfolioStats{
		TotalHoldingValue:    decimal.Zero,
		TotalInvestmentValue: decimal.Zero,
		TotalProfitAndLoss:   decimal.Zero,
		TotalPnLPercentage:   decimal.Zero,
	}
	reported := false
	for _, h := range holdings {
		qty := decimal.NewFromInt(int64(h.Quantity))
		s.TotalHoldingValue = s.TotalHoldingValue.Add(h.LastPrice.Mul(qty))
		s.TotalInvestmentValue = s.TotalInvestmentValue.Add(h.AveragePrice.Mul(qty))
		if !h.PnL.IsZero() {
			reported = true
		}
		s.TotalProfitAndLoss = s.TotalProfitAndLoss.Add(h.PnL)
	}
	if !reported && !s.TotalHoldingValue.IsZero() {
		s.TotalProfitAndLoss = s.TotalHoldingValue.Sub(s.TotalInvestmentValue)
	}
	if s.TotalInvestmentValue.IsPositive() {
		s.TotalPnLPercentage = s.TotalProfitAndLoss.Div(s.TotalInvestmentValue).Mul(hundred).Round(2)
	}
	if holdings == nil {
		holdings = []types.Holding{}
	}
	return Portfolio{Holdings: holdings, Stats: s}
}
