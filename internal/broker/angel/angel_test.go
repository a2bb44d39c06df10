package angel

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"

	"order-gateway/internal/broker"
	"order-gateway/internal/instruments"
	"order-gateway/internal/types"
)

var sess = types.Session{User: "A123", AuthToken: "jwt", APIKey: "smart-key"}

type recorder struct {
	calls  int32
	method string
	last   map[string]any
}

func newTestAdapter(t *testing.T, status int, reply string) (*Adapter, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&rec.calls, 1)
		if got := r.Header.Get("Authorization"); got != "Bearer jwt" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("X-PrivateKey"); got != "smart-key" {
			t.Errorf("X-PrivateKey = %q", got)
		}
		rec.method, rec.last = r.Method, nil
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			if len(b) > 0 {
				json.Unmarshal(b, &rec.last)
			}
		}
		w.WriteHeader(status)
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	m := instruments.NewMapper()
	m.Add(types.Instrument{Symbol: "SBIN", Exchange: "NSE", Token: "3045", BrokerSymbol: "SBIN-EQ"})
	m.Add(types.Instrument{Symbol: "INFY", Exchange: "NSE", Token: "1594", BrokerSymbol: "INFY-EQ"})

	a, err := New(broker.Params{BaseURL: srv.URL, Resolver: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, rec
}

func TestSubmitOrderDefaults(t *testing.T) {
	a, rec := newTestAdapter(t, 200, `{"status":true,"message":"SUCCESS","errorcode":"","data":{"script":"SBIN-EQ","orderid":"201020000000080"}}`)

	res, err := a.SubmitOrder(context.Background(), sess, types.OrderRequest{Symbol: "SBIN", Exchange: "NSE", Action: types.ActionBuy, Quantity: 10})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if !res.OK() || res.OrderID != "201020000000080" || !res.BrokerCalled {
		t.Errorf("result = %+v", res)
	}

	want := map[string]any{
		"variety":         "NORMAL",
		"tradingsymbol":   "SBIN-EQ",
		"symboltoken":     "3045",
		"transactiontype": "BUY",
		"exchange":        "NSE",
		"ordertype":       "MARKET",
		"producttype":     "INTRADAY",
		"duration":        "DAY",
		"price":           "0",
		"triggerprice":    "0",
		"squareoff":       "0",
		"stoploss":        "0",
		"quantity":        "10",
	}
	for k, v := range want {
		if rec.last[k] != v {
			t.Errorf("payload[%s] = %v, want %v", k, rec.last[k], v)
		}
	}
}

func TestSubmitOrderPreservesCallerValues(t *testing.T) {
	a, rec := newTestAdapter(t, 200, `{"status":true,"message":"SUCCESS","data":{"orderid":"1"}}`)

	_, err := a.SubmitOrder(context.Background(), sess, types.OrderRequest{
		Symbol: "INFY", Exchange: "NSE", Action: types.ActionSell, Quantity: 3,
		PriceType: types.PriceTypeStopLimit, Product: types.ProductMargin,
		Price: decimal.RequireFromString("1500.25"), TriggerPrice: decimal.RequireFromString("1501"),
		Duration: "IOC",
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	checks := map[string]string{
		"ordertype":    "STOPLOSS_LIMIT",
		"producttype":  "CARRYFORWARD",
		"price":        "1500.25",
		"triggerprice": "1501",
		"duration":     "IOC",
	}
	for k, v := range checks {
		if rec.last[k] != v {
			t.Errorf("payload[%s] = %v, want %s", k, rec.last[k], v)
		}
	}
}

func TestSubmitOrderSuccessWithoutOrderID(t *testing.T) {
	a, _ := newTestAdapter(t, 200, `{"status":true,"message":"SUCCESS","data":null}`)
	_, err := a.SubmitOrder(context.Background(), sess, types.OrderRequest{Symbol: "SBIN", Exchange: "NSE", Action: types.ActionBuy, Quantity: 1})
	if !errors.Is(err, types.ErrNoOrderID) {
		t.Fatalf("expected ErrNoOrderID, got %v", err)
	}
	var e *types.Error
	if errors.As(err, &e) && e.HTTPStatus() != 500 {
		t.Errorf("status = %d, want 500", e.HTTPStatus())
	}
}

func TestSubmitOrderUnresolvedMakesNoCall(t *testing.T) {
	a, rec := newTestAdapter(t, 200, `{}`)
	_, err := a.SubmitOrder(context.Background(), sess, types.OrderRequest{Symbol: "TCS", Exchange: "NSE", Action: types.ActionBuy, Quantity: 1})
	if !errors.Is(err, types.ErrUnresolvedInstrument) {
		t.Fatalf("expected ErrUnresolvedInstrument, got %v", err)
	}
	if rec.calls != 0 {
		t.Errorf("broker called %d times", rec.calls)
	}
}

func TestModifyOrderSuccessChannels(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		status int
		ok     bool
		msg    string
	}{
		{"bool status", `{"status":true,"message":"","data":{"orderid":"77"}}`, 200, true, ""},
		{"string status", `{"status":"true","message":"done","data":{"orderid":"77"}}`, 200, true, ""},
		{"sentinel message", `{"status":false,"message":"SUCCESS","data":{"orderid":"77"}}`, 200, true, ""},
		{"undecodable ack", `{"status":true,"message":"SUCCESS","data":[77]}`, 200, true, ""},
		{"ack without id", `{"status":true,"message":"SUCCESS","data":{"orderid":""}}`, 200, true, ""},
		{"failure", `{"status":false,"message":"Order not found","errorcode":"AB2001","data":null}`, 400, false, "Order not found"},
	}
	for _, tt := range tests {
		a, rec := newTestAdapter(t, tt.status, tt.reply)
		res, err := a.ModifyOrder(context.Background(), sess, types.OrderRequest{OrderID: "77", Symbol: "SBIN", Exchange: "NSE", Quantity: 2, PriceType: types.PriceTypeLimit, Price: decimal.NewFromInt(801)})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if res.OK() != tt.ok {
			t.Errorf("%s: OK = %v, want %v (%+v)", tt.name, res.OK(), tt.ok, res)
		}
		if tt.ok && res.OrderID != "77" {
			t.Errorf("%s: orderid = %q", tt.name, res.OrderID)
		}
		if !tt.ok && (res.Message != tt.msg || res.HTTPStatus != tt.status) {
			t.Errorf("%s: result = %+v", tt.name, res)
		}
		if rec.last["orderid"] != "77" {
			t.Errorf("%s: payload orderid = %v", tt.name, rec.last["orderid"])
		}
	}
}

func TestCancelOrder(t *testing.T) {
	a, rec := newTestAdapter(t, 200, `{"status":true,"message":"SUCCESS","data":{"orderid":"9"}}`)
	res, err := a.CancelOrder(context.Background(), sess, types.CancelRequest{OrderID: "9"})
	if err != nil || !res.OK() || res.OrderID != "9" {
		t.Errorf("CancelOrder = %+v, %v", res, err)
	}
	if rec.method != http.MethodPost || rec.last["variety"] != "NORMAL" || rec.last["orderid"] != "9" {
		t.Errorf("request = %s %v", rec.method, rec.last)
	}

	a, rec = newTestAdapter(t, 422, `{"status":false,"message":"Order already completed"}`)
	res, err = a.CancelOrder(context.Background(), sess, types.CancelRequest{OrderID: "9", Variety: "AMO"})
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if res.OK() || res.Message != "Order already completed" || res.HTTPStatus != 422 {
		t.Errorf("rejected cancel = %+v", res)
	}
	if rec.last["variety"] != "AMO" {
		t.Errorf("variety = %v", rec.last["variety"])
	}
}

func TestFetchPositions(t *testing.T) {
	a, rec := newTestAdapter(t, 200, `{"status":true,"message":"SUCCESS","data":[
		{"exchange":"NSE","symboltoken":"3045","producttype":"DELIVERY","tradingsymbol":"SBIN-EQ","netqty":"5","buyqty":"5","sellqty":"0","avgnetprice":"801.10","ltp":"805","pnl":"19.5"},
		{"exchange":"NSE","symboltoken":"1594","producttype":"INTRADAY","tradingsymbol":"INFY-EQ","netqty":-3,"avgnetprice":1500}
	]}`)
	positions, err := a.FetchPositions(context.Background(), sess)
	if err != nil {
		t.Fatalf("FetchPositions: %v", err)
	}
	if rec.method != http.MethodGet {
		t.Errorf("method = %s", rec.method)
	}
	if len(positions) != 2 {
		t.Fatalf("len = %d", len(positions))
	}
	if p := positions[0]; p.Symbol != "SBIN" || p.Product != types.ProductDelivery || p.NetQuantity != 5 {
		t.Errorf("SBIN = %+v", p)
	}
	if p := positions[1]; p.Symbol != "INFY" || p.Product != types.ProductIntraday || p.NetQuantity != -3 {
		t.Errorf("INFY = %+v", p)
	}
}

func TestFetchPositionsNullData(t *testing.T) {
	a, _ := newTestAdapter(t, 200, `{"status":true,"message":"SUCCESS","data":null}`)
	positions, err := a.FetchPositions(context.Background(), sess)
	if err != nil {
		t.Fatalf("FetchPositions: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("positions = %v", positions)
	}
}

func TestFetchPositionsMissingKeysIsMalformed(t *testing.T) {
	rows := map[string]string{
		"no netqty":         `{"exchange":"NSE","symboltoken":"3045","producttype":"DELIVERY","tradingsymbol":"SBIN-EQ"}`,
		"empty netqty":      `{"exchange":"NSE","symboltoken":"3045","producttype":"DELIVERY","tradingsymbol":"SBIN-EQ","netqty":""}`,
		"fractional netqty": `{"exchange":"NSE","symboltoken":"3045","producttype":"DELIVERY","tradingsymbol":"SBIN-EQ","netqty":"1.5"}`,
		"no producttype":    `{"exchange":"NSE","symboltoken":"3045","tradingsymbol":"SBIN-EQ","netqty":"5"}`,
		"no symbol":         `{"exchange":"NSE","producttype":"DELIVERY","netqty":"5"}`,
		"no exchange":       `{"symboltoken":"3045","producttype":"DELIVERY","tradingsymbol":"SBIN-EQ","netqty":"5"}`,
	}
	for name, row := range rows {
		a, _ := newTestAdapter(t, 200, `{"status":true,"data":[`+row+`]}`)
		positions, err := a.FetchPositions(context.Background(), sess)
		if !errors.Is(err, types.ErrMalformedPayload) {
			t.Errorf("%s: expected ErrMalformedPayload, got positions=%+v err=%v", name, positions, err)
		}
	}
}

func TestFetchUnmappedProductIsConfigError(t *testing.T) {
	a, _ := newTestAdapter(t, 200, `{"status":true,"data":[{"exchange":"NSE","symboltoken":"3045","producttype":"MARGIN","netqty":"1"}]}`)
	_, err := a.FetchPositions(context.Background(), sess)
	if !errors.Is(err, types.ErrUnmappedValue) {
		t.Errorf("expected ErrUnmappedValue, got %v", err)
	}
}

func TestFetchMalformedPayload(t *testing.T) {
	a, _ := newTestAdapter(t, 200, `{"status":true,"data":{"unexpected":true}}`)
	_, err := a.FetchOrderBook(context.Background(), sess)
	if !errors.Is(err, types.ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	a, _ := newTestAdapter(t, 200, `{"status":false,"message":"Invalid Token","errorcode":"AG8001","data":""}`)
	_, err := a.FetchTradeBook(context.Background(), sess)
	if !errors.Is(err, types.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestFetchHoldingsAndOrderBook(t *testing.T) {
	a, _ := newTestAdapter(t, 200, `{"status":true,"data":{"holdings":[
		{"tradingsymbol":"SBIN-EQ","exchange":"NSE","symboltoken":"3045","product":"DELIVERY","quantity":10,"averageprice":700,"ltp":800,"profitandloss":1000}
	]}}`)
	holdings, err := a.FetchHoldings(context.Background(), sess)
	if err != nil {
		t.Fatalf("FetchHoldings: %v", err)
	}
	if len(holdings) != 1 || holdings[0].Symbol != "SBIN" || holdings[0].Quantity != 10 {
		t.Errorf("holdings = %+v", holdings)
	}

	a, _ = newTestAdapter(t, 200, `{"status":true,"data":[
		{"orderid":"1","ordertype":"STOPLOSS_MARKET","producttype":"INTRADAY","duration":"DAY","quantity":"4","tradingsymbol":"SBIN-EQ","symboltoken":"3045","transactiontype":"SELL","exchange":"NSE","status":"trigger pending","updatetime":"20-Oct-2026 09:15:02"}
	]}`)
	orders, err := a.FetchOrderBook(context.Background(), sess)
	if err != nil {
		t.Fatalf("FetchOrderBook: %v", err)
	}
	o := orders[0]
	if o.Status != types.OrderStatusTriggerPending || o.PriceType != types.PriceTypeStopMkt || o.Quantity != 4 {
		t.Errorf("order = %+v", o)
	}
	if o.PlacedAt.IsZero() {
		t.Error("updatetime not parsed")
	}
}
