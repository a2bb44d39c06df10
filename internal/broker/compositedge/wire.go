package compositedge

import (
	"bytes"
	"encoding/json"
	"strings"

	"order-gateway/internal/broker"
)

// envelope wraps every XTS Interactive response.
type envelope struct {
	Type        string          `json:"type"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (e envelope) success() bool { return strings.EqualFold(e.Type, "success") }

func (e envelope) empty() bool {
	d := bytes.TrimSpace(e.Result)
	return len(d) == 0 || bytes.Equal(d, []byte("null")) || bytes.Equal(d, []byte("{}")) || bytes.Equal(d, []byte("[]"))
}

type placePayload struct {
	ExchangeSegment       string `json:"exchangeSegment"`
	ExchangeInstrumentID  int    `json:"exchangeInstrumentID"`
	ProductType           string `json:"productType"`
	OrderType             string `json:"orderType"`
	OrderSide             string `json:"orderSide"`
	TimeInForce           string `json:"timeInForce"`
	DisclosedQuantity     int    `json:"disclosedQuantity"`
	OrderQuantity         int    `json:"orderQuantity"`
	LimitPrice            string `json:"limitPrice"`
	StopPrice             string `json:"stopPrice"`
	OrderUniqueIdentifier string `json:"orderUniqueIdentifier"`
}

type modifyPayload struct {
	AppOrderID                string `json:"appOrderID"`
	ModifiedProductType       string `json:"modifiedProductType"`
	ModifiedOrderType         string `json:"modifiedOrderType"`
	ModifiedOrderQuantity     int    `json:"modifiedOrderQuantity"`
	ModifiedDisclosedQuantity int    `json:"modifiedDisclosedQuantity"`
	ModifiedLimitPrice        string `json:"modifiedLimitPrice"`
	ModifiedStopPrice         string `json:"modifiedStopPrice"`
	ModifiedTimeInForce       string `json:"modifiedTimeInForce"`
	OrderUniqueIdentifier     string `json:"orderUniqueIdentifier"`
}

type orderAck struct {
	AppOrderID broker.ID `json:"AppOrderID"`
}

type positionsResult struct {
	PositionList []position `json:"positionList"`
}

type position struct {
	TradingSymbol        string        `json:"TradingSymbol"`
	ExchangeSegment      string        `json:"ExchangeSegment"`
	ExchangeInstrumentID broker.ID     `json:"ExchangeInstrumentId"`
	ProductType          string        `json:"ProductType"`
	Quantity             broker.Number `json:"Quantity"`
	OpenBuyQuantity      broker.Number `json:"OpenBuyQuantity"`
	OpenSellQuantity     broker.Number `json:"OpenSellQuantity"`
	BuyAveragePrice      broker.Number `json:"BuyAveragePrice"`
	SellAveragePrice     broker.Number `json:"SellAveragePrice"`
	MTM                  broker.Number `json:"MTM"`
}

type order struct {
	AppOrderID           broker.ID     `json:"AppOrderID"`
	ExchangeSegment      string        `json:"ExchangeSegment"`
	ExchangeInstrumentID broker.ID     `json:"ExchangeInstrumentID"`
	TradingSymbol        string        `json:"TradingSymbol"`
	OrderSide            string        `json:"OrderSide"`
	OrderType            string        `json:"OrderType"`
	ProductType          string        `json:"ProductType"`
	TimeInForce          string        `json:"TimeInForce"`
	OrderPrice           broker.Number `json:"OrderPrice"`
	OrderStopPrice       broker.Number `json:"OrderStopPrice"`
	OrderQuantity        broker.Number `json:"OrderQuantity"`
	OrderStatus          string        `json:"OrderStatus"`
	OrderGeneratedAt     string        `json:"OrderGeneratedDateTime"`
}

type trade struct {
	ExecutionID          broker.ID     `json:"ExecutionID"`
	AppOrderID           broker.ID     `json:"AppOrderID"`
	ExchangeSegment      string        `json:"ExchangeSegment"`
	ExchangeInstrumentID broker.ID     `json:"ExchangeInstrumentID"`
	TradingSymbol        string        `json:"TradingSymbol"`
	OrderSide            string        `json:"OrderSide"`
	ProductType          string        `json:"ProductType"`
	LastTradedPrice      broker.Number `json:"LastTradedPrice"`
	LastTradedQuantity   broker.Number `json:"LastTradedQuantity"`
	LastExecutionTime    string        `json:"LastExecutionTransactTime"`
}

type holdingsResult struct {
	RMSHoldings struct {
		Holdings map[string]holding `json:"Holdings"`
	} `json:"RMSHoldings"`
}

type holding struct {
	ISIN                    string        `json:"ISIN"`
	HoldingQuantity         broker.Number `json:"HoldingQuantity"`
	BuyAvgPrice             broker.Number `json:"BuyAvgPrice"`
	ExchangeNSEInstrumentID broker.ID     `json:"ExchangeNSEInstrumentId"`
}
