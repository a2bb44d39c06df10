package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestErrorHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		want int
	}{
		{"input", InputError("op", ErrMissingField, "missing"), 400},
		{"auth default", &Error{Kind: KindAuth}, 401},
		{"auth key mismatch", AuthError("op", ErrInvalidAPIKey, 403, "Invalid API key"), 403},
		{"broker code passed through", BrokerError("op", 422, "bad"), 422},
		{"broker without code", BrokerError("op", 0, "bad"), 500},
		{"broker 200 without order id", BrokerError("op", 200, "no id"), 500},
		{"transport", TransportError("op", errors.New("dial")), 502},
		{"config", ConfigError("op", ErrUnmappedValue, "unmapped"), 500},
	}
	for _, c := range cases {
		if got := c.err.HTTPStatus(); got != c.want {
			t.Errorf("%s: HTTPStatus = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestOnlyTransportIsRetryable(t *testing.T) {
	if !TransportError("op", errors.New("timeout")).Retryable() {
		t.Error("transport error should be retryable")
	}
	for _, e := range []*Error{
		InputError("op", nil, "x"),
		AuthError("op", nil, 401, "x"),
		BrokerError("op", 500, "x"),
		ConfigError("op", nil, "x"),
	} {
		if e.Retryable() {
			t.Errorf("%s error should not be retryable", e.Kind)
		}
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("submit: %w", InputError("resolve", ErrUnresolvedInstrument, "token not found"))
	if KindOf(err) != KindInput {
		t.Errorf("KindOf = %s, want input", KindOf(err))
	}
	if !errors.Is(err, ErrUnresolvedInstrument) {
		t.Error("sentinel lost through wrapping")
	}
	if KindOf(errors.New("plain")) != KindTransport {
		t.Error("untyped errors should count as transport")
	}
}

func TestFailedUsesCleanMessage(t *testing.T) {
	r := Failed(AuthError("placeorder", ErrInvalidAPIKey, 403, "Invalid API key"))
	if r.Status != StatusError || r.Message != "Invalid API key" || r.HTTPStatus != 403 {
		t.Errorf("Failed = %+v", r)
	}

	r = Failed(TransportError("GET /x", errors.New("connection refused")))
	if r.Message != "GET /x: transport: connection refused" || r.HTTPStatus != 502 {
		t.Errorf("Failed(transport) = %+v", r)
	}

	r = Failed(errors.New("boom"))
	if r.Message != "boom" || r.HTTPStatus != 500 {
		t.Errorf("Failed(plain) = %+v", r)
	}
}

func TestRejectedPassesStatusThrough(t *testing.T) {
	if r := Rejected("Insufficient funds", 400); r.HTTPStatus != 400 || r.OK() || !r.BrokerCalled {
		t.Errorf("Rejected = %+v", r)
	}
	if r := Rejected("x", 0); r.HTTPStatus != 500 {
		t.Errorf("Rejected without status = %d, want 500", r.HTTPStatus)
	}
}

func TestWithDefaultsKeepsCallerValues(t *testing.T) {
	r := OrderRequest{}.WithDefaults()
	if r.PriceType != PriceTypeMarket || r.Product != ProductIntraday || r.Duration != "DAY" || r.Variety != "NORMAL" {
		t.Errorf("defaults = %+v", r)
	}
	if !r.Price.IsZero() || !r.TriggerPrice.IsZero() {
		t.Error("prices should default to zero")
	}

	in := OrderRequest{
		PriceType: PriceTypeLimit,
		Product:   ProductDelivery,
		Duration:  "IOC",
		Variety:   "AMO",
		Price:     decimal.RequireFromString("101.5"),
	}
	out := in.WithDefaults()
	if out.PriceType != PriceTypeLimit || out.Product != ProductDelivery || out.Duration != "IOC" || out.Variety != "AMO" {
		t.Errorf("caller values overwritten: %+v", out)
	}
	if !out.Price.Equal(in.Price) {
		t.Errorf("price = %s", out.Price)
	}
}

func TestRedactedDropsAPIKey(t *testing.T) {
	size := 5
	r := OrderRequest{APIKey: "secret", Symbol: "SBIN", PositionSize: &size}.Redacted()
	if r.APIKey != "" || r.Symbol != "SBIN" || !r.Smart() {
		t.Errorf("Redacted = %+v", r)
	}
	if c := (CancelRequest{APIKey: "secret", OrderID: "1"}).Redacted(); c.APIKey != "" || c.OrderID != "1" {
		t.Errorf("CancelRequest.Redacted = %+v", c)
	}
	if a := (AccountRequest{APIKey: "secret", Strategy: "s"}).Redacted(); a.APIKey != "" {
		t.Errorf("AccountRequest.Redacted = %+v", a)
	}
}

func TestOrderStatusCancellable(t *testing.T) {
	for s, want := range map[OrderStatus]bool{
		OrderStatusOpen:           true,
		OrderStatusTriggerPending: true,
		OrderStatusComplete:       false,
		OrderStatusCancelled:      false,
		OrderStatusRejected:       false,
	} {
		if s.Cancellable() != want {
			t.Errorf("%s.Cancellable() = %v", s, !want)
		}
	}
}
