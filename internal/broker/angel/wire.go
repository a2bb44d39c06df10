package angel

import (
	"bytes"
	"encoding/json"

	"order-gateway/internal/broker"
)

// envelope is the common response wrapper of every SmartAPI endpoint.
type envelope struct {
	Status    broker.Bool     `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

// empty reports a null or missing data payload.
func (e envelope) empty() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) == 0 || bytes.Equal(d, []byte("null")) || bytes.Equal(d, []byte(`""`))
}

type orderPayload struct {
	Variety         string `json:"variety"`
	OrderID         string `json:"orderid,omitempty"`
	TradingSymbol   string `json:"tradingsymbol"`
	SymbolToken     string `json:"symboltoken"`
	TransactionType string `json:"transactiontype,omitempty"`
	Exchange        string `json:"exchange"`
	OrderType       string `json:"ordertype"`
	ProductType     string `json:"producttype"`
	Duration        string `json:"duration"`
	Price           string `json:"price"`
	TriggerPrice    string `json:"triggerprice"`
	SquareOff       string `json:"squareoff,omitempty"`
	StopLoss        string `json:"stoploss,omitempty"`
	Quantity        string `json:"quantity"`
	DisclosedQty    string `json:"disclosedquantity,omitempty"`
}

type cancelPayload struct {
	Variety string `json:"variety"`
	OrderID string `json:"orderid"`
}

type orderAck struct {
	OrderID string `json:"orderid"`
}

type position struct {
	Exchange      string        `json:"exchange"`
	SymbolToken   string        `json:"symboltoken"`
	ProductType   string        `json:"producttype"`
	TradingSymbol string        `json:"tradingsymbol"`
	NetQty        broker.Number `json:"netqty"`
	BuyQty        broker.Number `json:"buyqty"`
	SellQty       broker.Number `json:"sellqty"`
	AvgNetPrice   broker.Number `json:"avgnetprice"`
	LTP           broker.Number `json:"ltp"`
	PnL           broker.Number `json:"pnl"`
}

type order struct {
	OrderID         string        `json:"orderid"`
	Variety         string        `json:"variety"`
	OrderType       string        `json:"ordertype"`
	ProductType     string        `json:"producttype"`
	Duration        string        `json:"duration"`
	Price           broker.Number `json:"price"`
	TriggerPrice    broker.Number `json:"triggerprice"`
	Quantity        broker.Number `json:"quantity"`
	TradingSymbol   string        `json:"tradingsymbol"`
	SymbolToken     string        `json:"symboltoken"`
	TransactionType string        `json:"transactiontype"`
	Exchange        string        `json:"exchange"`
	Status          string        `json:"status"`
	UpdateTime      string        `json:"updatetime"`
}

type trade struct {
	OrderID         string        `json:"orderid"`
	FillID          string        `json:"fillid"`
	Exchange        string        `json:"exchange"`
	ProductType     string        `json:"producttype"`
	TradingSymbol   string        `json:"tradingsymbol"`
	SymbolToken     string        `json:"symboltoken"`
	TransactionType string        `json:"transactiontype"`
	FillPrice       broker.Number `json:"fillprice"`
	FillSize        broker.Number `json:"fillsize"`
	FillTime        string        `json:"filltime"`
}

type holding struct {
	TradingSymbol string        `json:"tradingsymbol"`
	Exchange      string        `json:"exchange"`
	SymbolToken   string        `json:"symboltoken"`
	Product       string        `json:"product"`
	Quantity      broker.Number `json:"quantity"`
	AveragePrice  broker.Number `json:"averageprice"`
	LTP           broker.Number `json:"ltp"`
	ProfitAndLoss broker.Number `json:"profitandloss"`
}

type holdingsData struct {
	Holdings []holding `json:"holdings"`
}
