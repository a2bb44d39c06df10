package zerodha

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"order-gateway/internal/broker"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

// Kite spells products, order types and sides the same way the canonical
// model does; the maps still guard against values Kite adds later.
var (
	products = broker.NewEnumMap("zerodha product", map[types.Product]string{
		types.ProductIntraday: kiteconnect.ProductMIS,
		types.ProductDelivery: kiteconnect.ProductCNC,
		types.ProductMargin:   kiteconnect.ProductNRML,
	})
	priceTypes = broker.NewEnumMap("zerodha order type", map[types.PriceType]string{
		types.PriceTypeMarket:    kiteconnect.OrderTypeMarket,
		types.PriceTypeLimit:     kiteconnect.OrderTypeLimit,
		types.PriceTypeStopLimit: kiteconnect.OrderTypeSL,
		types.PriceTypeStopMkt:   kiteconnect.OrderTypeSLM,
	})
	actions = broker.NewEnumMap("zerodha transaction type", map[types.Action]string{
		types.ActionBuy:  kiteconnect.TransactionTypeBuy,
		types.ActionSell: kiteconnect.TransactionTypeSell,
	})
	varieties = broker.NewEnumMap("zerodha variety", map[string]string{
		"NORMAL":  kiteconnect.VarietyRegular,
		"AMO":     kiteconnect.VarietyAMO,
		"CO":      kiteconnect.VarietyCO,
		"ICEBERG": kiteconnect.VarietyIceberg,
		"AUCTION": "auction",
	})
)

// orderStatus folds Kite's intermediate states onto the canonical set.
func orderStatus(s string) types.OrderStatus {
	switch strings.ToUpper(s) {
	case "COMPLETE":
		return types.OrderStatusComplete
	case "CANCELLED":
		return types.OrderStatusCancelled
	case "REJECTED":
		return types.OrderStatusRejected
	case "TRIGGER PENDING":
		return types.OrderStatusTriggerPending
	default:
		return types.OrderStatusOpen
	}
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

// canonicalSymbol maps a Kite instrument back to the canonical symbol,
// falling back to Kite's trading symbol when the master does not know it.
func canonicalSymbol(res interfaces.InstrumentResolver, exchange string, token uint32, tradingSymbol string) string {
	if res != nil {
		if in, ok := res.ByToken(exchange, strconv.FormatUint(uint64(token), 10)); ok {
			return in.Symbol
		}
	}
	return tradingSymbol
}

func (a *Adapter) position(p kiteconnect.Position) (types.Position, error) {
	product, err := products.FromBroker(p.Product)
	if err != nil {
		return types.Position{}, err
	}
	return types.Position{
		Symbol:       canonicalSymbol(a.resolver, p.Exchange, p.InstrumentToken, p.Tradingsymbol),
		Exchange:     p.Exchange,
		Product:      product,
		NetQuantity:  int(p.Quantity),
		BuyQuantity:  int(p.BuyQuantity),
		SellQuantity: int(p.SellQuantity),
		AveragePrice: dec(p.AveragePrice),
		LastPrice:    dec(p.LastPrice),
		PnL:          dec(p.PnL),
	}, nil
}

func (a *Adapter) order(o kiteconnect.Order) (types.Order, error) {
	product, err := products.FromBroker(o.Product)
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
	variety := types.DefaultVariety
	if o.Variety != "" {
		if variety, err = varieties.FromBroker(o.Variety); err != nil {
			return types.Order{}, err
		}
	}
	return types.Order{
		OrderID:      o.OrderID,
		Symbol:       canonicalSymbol(a.resolver, o.Exchange, o.InstrumentToken, o.TradingSymbol),
		Exchange:     o.Exchange,
		Action:       side,
		PriceType:    pt,
		Product:      product,
		Quantity:     int(o.Quantity),
		Price:        dec(o.Price),
		TriggerPrice: dec(o.TriggerPrice),
		Status:       orderStatus(o.Status),
		Duration:     o.Validity,
		Variety:      variety,
		PlacedAt:     o.OrderTimestamp.Time,
	}, nil
}

func (a *Adapter) trade(t kiteconnect.Trade) (types.Trade, error) {
	product, err := products.FromBroker(t.Product)
	if err != nil {
		return types.Trade{}, err
	}
	side, err := actions.FromBroker(t.TransactionType)
	if err != nil {
		return types.Trade{}, err
	}
	return types.Trade{
		TradeID:  t.TradeID,
		OrderID:  t.OrderID,
		Symbol:   canonicalSymbol(a.resolver, t.Exchange, t.InstrumentToken, t.TradingSymbol),
		Exchange: t.Exchange,
		Action:   side,
		Product:  product,
		Quantity: int(t.Quantity),
		Price:    dec(t.AveragePrice),
		TradedAt: t.FillTimestamp.Time,
	}, nil
}

func (a *Adapter) holding(h kiteconnect.Holding) (types.Holding, error) {
	product, err := products.FromBroker(h.Product)
	if err != nil {
		return types.Holding{}, err
	}
	return types.Holding{
		Symbol:       canonicalSymbol(a.resolver, h.Exchange, h.InstrumentToken, h.Tradingsymbol),
		Exchange:     h.Exchange,
		Product:      product,
		Quantity:     int(h.Quantity),
		AveragePrice: dec(h.AveragePrice),
		LastPrice:    dec(h.LastPrice),
		PnL:          dec(h.PnL),
	}, nil
}
