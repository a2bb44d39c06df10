package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the side of an order.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Opposite returns the other side.
func (a Action) Opposite() Action {
	if a == ActionBuy {
		return ActionSell
	}
	return ActionBuy
}

// Product is the canonical product type. Every adapter maps its native
// spelling onto exactly one of these.
type Product string

const (
	ProductIntraday Product = "MIS"  // intraday, squared off by the broker at close
	ProductDelivery Product = "CNC"  // cash and carry
	ProductMargin   Product = "NRML" // carry-forward derivatives / margin
)

// Products lists every supported product type.
var Products = []Product{ProductIntraday, ProductDelivery, ProductMargin}

// PriceType is the canonical order type.
type PriceType string

const (
	PriceTypeMarket    PriceType = "MARKET"
	PriceTypeLimit     PriceType = "LIMIT"
	PriceTypeStopLimit PriceType = "SL"
	PriceTypeStopMkt   PriceType = "SL-M"
)

// OrderStatus is the canonical order book status.
type OrderStatus string

const (
	OrderStatusOpen           OrderStatus = "open"
	OrderStatusTriggerPending OrderStatus = "trigger_pending"
	OrderStatusComplete       OrderStatus = "complete"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRejected       OrderStatus = "rejected"
)

// Cancellable reports whether an order in this status can still be cancelled.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusOpen || s == OrderStatusTriggerPending
}

// Position is one net position as reported by the broker. NetQuantity is
// signed: positive long, negative short, zero flat.
type Position struct {
	Symbol       string          `json:"symbol"`
	Exchange     string          `json:"exchange"`
	Product      Product         `json:"product"`
	NetQuantity  int             `json:"net_quantity"`
	BuyQuantity  int             `json:"buy_quantity"`
	SellQuantity int             `json:"sell_quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	LastPrice    decimal.Decimal `json:"last_price"`
	PnL          decimal.Decimal `json:"pnl"`
}

// Flat reports whether the position has no open quantity.
func (p Position) Flat() bool { return p.NetQuantity == 0 }

// Order is one order book row.
type Order struct {
	OrderID      string          `json:"order_id"`
	Symbol       string          `json:"symbol"`
	Exchange     string          `json:"exchange"`
	Action       Action          `json:"action"`
	PriceType    PriceType       `json:"price_type"`
	Product      Product         `json:"product"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	TriggerPrice decimal.Decimal `json:"trigger_price"`
	Status       OrderStatus     `json:"status"`
	Duration     string          `json:"duration"`
	Variety      string          `json:"variety,omitempty"`
	PlacedAt     time.Time       `json:"placed_at"`
}

// Trade is one trade book row.
type Trade struct {
	TradeID  string          `json:"trade_id"`
	OrderID  string          `json:"order_id"`
	Symbol   string          `json:"symbol"`
	Exchange string          `json:"exchange"`
	Action   Action          `json:"action"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	TradedAt time.Time       `json:"traded_at"`
}

// Holding is one delivery holding.
type Holding struct {
	Symbol       string          `json:"symbol"`
	Exchange     string          `json:"exchange"`
	Product      Product         `json:"product"`
	Quantity     int             `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	LastPrice    decimal.Decimal `json:"last_price"`
	PnL          decimal.Decimal `json:"pnl"`
}

// Instrument ties a canonical (symbol, exchange) pair to the broker's own
// identifiers.
type Instrument struct {
	Symbol       string `csv:"symbol" json:"symbol"`
	Exchange     string `csv:"exchange" json:"exchange"`
	Token        string `csv:"token" json:"token"`
	BrokerSymbol string `csv:"brsymbol" json:"brsymbol"`
	LotSize      int    `csv:"lotsize" json:"lotsize"`
}

// Session carries the credentials an adapter needs for one call.
type Session struct {
	User      string
	AuthToken string
	APIKey    string
}
