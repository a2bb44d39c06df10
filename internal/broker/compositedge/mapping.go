package compositedge

import (
	"strings"
	"time"

	"order-gateway/internal/broker"
	"order-gateway/internal/types"
)

var (
	segments = broker.NewEnumMap("compositedge exchange segment", map[string]string{
		"NSE": "NSECM",
		"BSE": "BSECM",
		"NFO": "NSEFO",
		"BFO": "BSEFO",
		"MCX": "MCXFO",
		"CDS": "NSECD",
	})
	products = broker.NewEnumMap("compositedge product", map[types.Product]string{
		types.ProductIntraday: "MIS",
		types.ProductDelivery: "CNC",
		types.ProductMargin:   "NRML",
	})
	priceTypes = broker.NewEnumMap("compositedge order type", map[types.PriceType]string{
		types.PriceTypeMarket:    "Market",
		types.PriceTypeLimit:     "Limit",
		types.PriceTypeStopLimit: "StopLimit",
		types.PriceTypeStopMkt:   "StopMarket",
	})
	actions = broker.NewEnumMap("compositedge order side", map[types.Action]string{
		types.ActionBuy:  "BUY",
		types.ActionSell: "SELL",
	})
)

var timeLayouts = []string{"2006-01-02T15:04:05", "02-01-2006 15:04:05", "02-01-2006 15:04:05.000"}

func orderStatus(s string) types.OrderStatus {
	switch strings.ToLower(s) {
	case "filled":
		return types.OrderStatusComplete
	case "cancelled":
		return types.OrderStatusCancelled
	case "rejected":
		return types.OrderStatusRejected
	case "triggerpending", "trigger pending":
		return types.OrderStatusTriggerPending
	default:
		return types.OrderStatusOpen
	}
}

func parseTime(s string) time.Time {
	if i := strings.IndexByte(s, '.'); i > 0 && strings.Contains(s, "T") {
		s = s[:i]
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// locate maps a segment and instrument id to the canonical exchange and
// symbol, falling back to the broker's trading symbol.
func (a *Adapter) locate(segment string, id broker.ID, tradingSymbol string) (string, string, error) {
	exchange, err := segments.FromBroker(segment)
	if err != nil {
		return "", "", err
	}
	if in, ok := a.resolver.ByToken(exchange, string(id)); ok {
		return exchange, in.Symbol, nil
	}
	return exchange, tradingSymbol, nil
}

func (a *Adapter) toPosition(p position) (types.Position, error) {
	const op = "compositedge.FetchPositions"
	if err := broker.Required(op, "ExchangeSegment", p.ExchangeSegment); err != nil {
		return types.Position{}, err
	}
	if err := broker.Required(op, "ProductType", p.ProductType); err != nil {
		return types.Position{}, err
	}
	if err := broker.Required(op, "TradingSymbol", p.TradingSymbol+string(p.ExchangeInstrumentID)); err != nil {
		return types.Position{}, err
	}
	net, err := p.Quantity.Quantity(op, "Quantity")
	if err != nil {
		return types.Position{}, err
	}
	exchange, sym, err := a.locate(p.ExchangeSegment, p.ExchangeInstrumentID, p.TradingSymbol)
	if err != nil {
		return types.Position{}, err
	}
	product, err := products.FromBroker(p.ProductType)
	if err != nil {
		return types.Position{}, err
	}
	avg := p.BuyAveragePrice.Decimal
	if p.Quantity.IsNegative() {
		avg = p.SellAveragePrice.Decimal
	}
	return types.Position{
		Symbol:       sym,
		Exchange:     exchange,
		Product:      product,
		NetQuantity:  net,
		BuyQuantity:  p.OpenBuyQuantity.Int(),
		SellQuantity: p.OpenSellQuantity.Int(),
		AveragePrice: avg,
		PnL:          p.MTM.Decimal,
	}, nil
}

func (a *Adapter) toOrder(o order) (types.Order, error) {
	exchange, sym, err := a.locate(o.ExchangeSegment, o.ExchangeInstrumentID, o.TradingSymbol)
	if err != nil {
		return types.Order{}, err
	}
	product, err := products.FromBroker(o.ProductType)
	if err != nil {
		return types.Order{}, err
	}
	pt, err := priceTypes.FromBroker(o.OrderType)
	if err != nil {
		return types.Order{}, err
	}
	side, err := actions.FromBroker(o.OrderSide)
	if err != nil {
		return types.Order{}, err
	}
	return types.Order{
		OrderID:      string(o.AppOrderID),
		Symbol:       sym,
		Exchange:     exchange,
		Action:       side,
		PriceType:    pt,
		Product:      product,
		Quantity:     o.OrderQuantity.Int(),
		Price:        o.OrderPrice.Decimal,
		TriggerPrice: o.OrderStopPrice.Decimal,
		Status:       orderStatus(o.OrderStatus),
		Duration:     o.TimeInForce,
		PlacedAt:     parseTime(o.OrderGeneratedAt),
	}, nil
}

func (a *Adapter) toTrade(t trade) (types.Trade, error) {
	exchange, sym, err := a.locate(t.ExchangeSegment, t.ExchangeInstrumentID, t.TradingSymbol)
	if err != nil {
		return types.Trade{}, err
	}
	product, err := products.FromBroker(t.ProductType)
	if err != nil {
		return types.Trade{}, err
	}
	side, err := actions.FromBroker(t.OrderSide)
	if err != nil {
		return types.Trade{}, err
	}
	return types.Trade{
		TradeID:  string(t.ExecutionID),
		OrderID:  string(t.AppOrderID),
		Symbol:   sym,
		Exchange: exchange,
		Action:   side,
		Product:  product,
		Quantity: t.LastTradedQuantity.Int(),
		Price:    t.LastTradedPrice.Decimal,
		TradedAt: parseTime(t.LastExecutionTime),
	}, nil
}

// toHolding normalizes an RMS holding. XTS reports delivery holdings by NSE
// instrument id only, so the exchange is NSE and the product CNC.
func (a *Adapter) toHolding(isin string, h holding) types.Holding {
	sym := isin
	if in, ok := a.resolver.ByToken("NSE", string(h.ExchangeNSEInstrumentID)); ok {
		sym = in.Symbol
	}
	return types.Holding{
		Symbol:       sym,
		Exchange:     "NSE",
		Product:      types.ProductDelivery,
		Quantity:     h.HoldingQuantity.Int(),
		AveragePrice: h.BuyAvgPrice.Decimal,
	}
}
