package types

import (
	"github.com/shopspring/decimal"
)

// Field defaults applied by adapters when the caller left a field empty.
const (
	DefaultDuration = "DAY"
	DefaultVariety  = "NORMAL"
)

// OrderRequest is the broker-agnostic order command. When PositionSize is
// set the request is a smart order: Action and Quantity are derived by the
// reconciliation engine and whatever the caller put there is overwritten.
type OrderRequest struct {
	APIKey            string          `json:"apikey,omitempty"`
	Strategy          string          `json:"strategy,omitempty"`
	OrderID           string          `json:"orderid,omitempty" validate:"required"`
	Symbol            string          `json:"symbol" validate:"required"`
	Exchange          string          `json:"exchange" validate:"required"`
	Action            Action          `json:"action" validate:"required,oneof=BUY SELL"`
	Quantity          int             `json:"quantity" validate:"gt=0"`
	PriceType         PriceType       `json:"pricetype,omitempty"`
	Product           Product         `json:"product,omitempty"`
	Price             decimal.Decimal `json:"price"`
	TriggerPrice      decimal.Decimal `json:"trigger_price"`
	DisclosedQuantity int             `json:"disclosed_quantity,omitempty"`
	SquareOff         decimal.Decimal `json:"squareoff"`
	StopLoss          decimal.Decimal `json:"stoploss"`
	Duration          string          `json:"duration,omitempty"`
	Variety           string          `json:"variety,omitempty"`
	PositionSize      *int            `json:"position_size,omitempty" validate:"required"`
}

// Smart reports whether the request asks for a target position.
func (r OrderRequest) Smart() bool { return r.PositionSize != nil }

// WithDefaults returns a copy with MARKET / MIS / DAY / NORMAL filled in for
// fields the caller did not set. Values the caller did set are untouched.
// Decimal prices already default to zero.
func (r OrderRequest) WithDefaults() OrderRequest {
	if r.PriceType == "" {
		r.PriceType = PriceTypeMarket
	}
	if r.Product == "" {
		r.Product = ProductIntraday
	}
	if r.Duration == "" {
		r.Duration = DefaultDuration
	}
	if r.Variety == "" {
		r.Variety = DefaultVariety
	}
	return r
}

// Redacted returns the request as it may be written to the audit log.
func (r OrderRequest) Redacted() OrderRequest {
	r.APIKey = ""
	return r
}

// AccountRequest authorizes an account-wide command such as square-off.
type AccountRequest struct {
	APIKey   string `json:"apikey,omitempty"`
	Strategy string `json:"strategy" validate:"required"`
}

// Redacted drops the API key.
func (r AccountRequest) Redacted() AccountRequest {
	r.APIKey = ""
	return r
}

// CancelRequest cancels one order. Variety defaults to NORMAL; brokers
// that route cancels by variety need the one the order was placed with.
type CancelRequest struct {
	APIKey   string `json:"apikey,omitempty"`
	Strategy string `json:"strategy" validate:"required"`
	OrderID  string `json:"orderid" validate:"required"`
	Variety  string `json:"variety,omitempty"`
}

// VarietyOrDefault returns Variety, or NORMAL when it is unset.
func (r CancelRequest) VarietyOrDefault() string {
	if r.Variety == "" {
		return DefaultVariety
	}
	return r.Variety
}

// Redacted drops the API key.
func (r CancelRequest) Redacted() CancelRequest {
	r.APIKey = ""
	return r
}

// PositionQuery selects one position for OpenPosition.
type PositionQuery struct {
	APIKey   string  `json:"apikey,omitempty"`
	Symbol   string  `json:"symbol" validate:"required"`
	Exchange string  `json:"exchange" validate:"required"`
	Product  Product `json:"product" validate:"required,oneof=MIS CNC NRML"`
}

// Status of an OrderResult.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// OrderResult is the uniform envelope returned for every order command.
// Exactly one of OrderID (success), Message-only success, or an error
// Message is meaningful. HTTPStatus is the wire status to pass through.
type OrderResult struct {
	Status     Status `json:"status"`
	OrderID    string `json:"orderid,omitempty"`
	Message    string `json:"message,omitempty"`
	HTTPStatus int    `json:"-"`
	// BrokerCalled is false when the gateway answered without a network call,
	// e.g. a smart order whose target already matches the position.
	BrokerCalled bool `json:"-"`
}

// OK reports a successful result.
func (r OrderResult) OK() bool { return r.Status == StatusSuccess }

// Placed builds a success result for a broker-acknowledged order.
func Placed(orderID string) OrderResult {
	return OrderResult{Status: StatusSuccess, OrderID: orderID, HTTPStatus: 200, BrokerCalled: true}
}

// Rejected builds an error result carrying the broker's own message and
// HTTP status. The status is passed through as is; only a missing one
// becomes 500.
func Rejected(message string, httpStatus int) OrderResult {
	if httpStatus == 0 {
		httpStatus = 500
	}
	return OrderResult{Status: StatusError, Message: message, HTTPStatus: httpStatus, BrokerCalled: true}
}

// PositionOutcome is the result of closing one position during square-off.
type PositionOutcome struct {
	Symbol   string  `json:"symbol"`
	Exchange string  `json:"exchange"`
	Product  Product `json:"product"`
	Action   Action  `json:"action"`
	Quantity int     `json:"quantity"`
	Status   Status  `json:"status"`
	OrderID  string  `json:"orderid,omitempty"`
	Message  string  `json:"message,omitempty"`
}

// SquareOffResult is the composite result of closing every open position.
type SquareOffResult struct {
	OrderResult
	Outcomes []PositionOutcome `json:"outcomes,omitempty"`
	Failed   int               `json:"failed"`
}

// CancelAllResult lists which cancellations went through.
type CancelAllResult struct {
	Status    Status   `json:"status"`
	Cancelled []string `json:"canceled_orders"`
	Failed    []string `json:"failed_cancellations"`
	Message   string   `json:"message,omitempty"`
}
