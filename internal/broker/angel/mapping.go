package angel

import (
	"strings"
	"time"

	"order-gateway/internal/broker"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

var (
	products = broker.NewEnumMap("angel product", map[types.Product]string{
		types.ProductIntraday: "INTRADAY",
		types.ProductDelivery: "DELIVERY",
		types.ProductMargin:   "CARRYFORWARD",
	})
	priceTypes = broker.NewEnumMap("angel order type", map[types.PriceType]string{
		types.PriceTypeMarket:    "MARKET",
		types.PriceTypeLimit:     "LIMIT",
		types.PriceTypeStopLimit: "STOPLOSS_LIMIT",
		types.PriceTypeStopMkt:   "STOPLOSS_MARKET",
	})
	actions = broker.NewEnumMap("angel transaction type", map[types.Action]string{
		types.ActionBuy:  "BUY",
		types.ActionSell: "SELL",
	})
)

// timeLayout is the format of Angel's order and fill timestamps.
const timeLayout = "02-Jan-2006 15:04:05"

func orderStatus(s string) types.OrderStatus {
	switch strings.ToLower(s) {
	case "complete":
		return types.OrderStatusComplete
	case "cancelled":
		return types.OrderStatusCancelled
	case "rejected":
		return types.OrderStatusRejected
	case "trigger pending":
		return types.OrderStatusTriggerPending
	default:
		return types.OrderStatusOpen
	}
}

func parseTime(s string) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// symbol maps Angel's token back to the canonical symbol.
func symbol(res interfaces.InstrumentResolver, exchange, token, tradingSymbol string) string {
	if in, ok := res.ByToken(exchange, token); ok {
		return in.Symbol
	}
	return tradingSymbol
}

func (a *Adapter) toPosition(p position) (types.Position, error) {
	const op = "angel.FetchPositions"
	if err := broker.Required(op, "exchange", p.Exchange); err != nil {
		return types.Position{}, err
	}
	if err := broker.Required(op, "producttype", p.ProductType); err != nil {
		return types.Position{}, err
	}
	if err := broker.Required(op, "tradingsymbol", p.TradingSymbol+p.SymbolToken); err != nil {
		return types.Position{}, err
	}
	net, err := p.NetQty.Quantity(op, "netqty")
	if err != nil {
		return types.Position{}, err
	}
	product, err := products.FromBroker(p.ProductType)
	if err != nil {
		return types.Position{}, err
	}
	return types.Position{
		Symbol:       symbol(a.resolver, p.Exchange, p.SymbolToken, p.TradingSymbol),
		Exchange:     p.Exchange,
		Product:      product,
		NetQuantity:  net,
		BuyQuantity:  p.BuyQty.Int(),
		SellQuantity: p.SellQty.Int(),
		AveragePrice: p.AvgNetPrice.Decimal,
		LastPrice:    p.LTP.Decimal,
		PnL:          p.PnL.Decimal,
	}, nil
}

func (a *Adapter) toOrder(o order) (types.Order, error) {
	product, err := products.FromBroker(o.ProductType)
	if err != nil {
		return types.Order{}, err
	}
	pt, err := priceTypes.FromBroker(o.OrderType)
	if err != nil {
		return types.Order{}, err
	}
	side, err := actions.FromBroker(o.TransactionType)
	if err != nil {
		return types.Order{}, err
	}
	return types.Order{
		OrderID:      o.OrderID,
		Symbol:       symbol(a.resolver, o.Exchange, o.SymbolToken, o.TradingSymbol),
		Exchange:     o.Exchange,
		Action:       side,
		PriceType:    pt,
		Product:      product,
		Quantity:     o.Quantity.Int(),
		Price:        o.Price.Decimal,
		TriggerPrice: o.TriggerPrice.Decimal,
		Status:       orderStatus(o.Status),
		Duration:     o.Duration,
		Variety:      o.Variety,
		PlacedAt:     parseTime(o.UpdateTime),
	}, nil
}

func (a *Adapter) toTrade(t trade) (types.Trade, error) {
	product, err := products.FromBroker(t.ProductType)
	if err != nil {
		return types.Trade{}, err
	}
	side, err := actions.FromBroker(t.TransactionType)
	if err != nil {
		return types.Trade{}, err
	}
	return types.Trade{
		TradeID:  t.FillID,
		OrderID:  t.OrderID,
		Symbol:   symbol(a.resolver, t.Exchange, t.SymbolToken, t.TradingSymbol),
		Exchange: t.Exchange,
		Action:   side,
		Product:  product,
		Quantity: t.FillSize.Int(),
		Price:    t.FillPrice.Decimal,
		TradedAt: parseTime(t.FillTime),
	}, nil
}

func (a *Adapter) toHolding(h holding) (types.Holding, error) {
	product, err := products.FromBroker(h.Product)
	if err != nil {
		return types.Holding{}, err
	}
	return types.Holding{
		Symbol:       symbol(a.resolver, h.Exchange, h.SymbolToken, h.TradingSymbol),
		Exchange:     h.Exchange,
		Product:      product,
		Quantity:     h.Quantity.Int(),
		AveragePrice: h.AveragePrice.Decimal,
		LastPrice:    h.LTP.Decimal,
		PnL:          h.ProfitAndLoss.Decimal,
	}, nil
}
