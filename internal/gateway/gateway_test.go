package gateway

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"order-gateway/internal/types"
)

var ctx = context.Background()

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Deps{Credentials: fakeCreds{}}); err == nil {
		t.Error("expected error without adapter")
	}
	if _, err := New(Deps{Adapter: &fakeAdapter{}}); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestMissingFieldsFailBeforeBrokerCall(t *testing.T) {
	svc, err := New(Deps{Adapter: strictAdapter{t}, Credentials: fakeCreds{token: "tok", key: testKey}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		name string
		call func() (types.OrderResult, error)
		want string
	}{
		{"place without symbol", func() (types.OrderResult, error) {
			return svc.PlaceOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Exchange: "NSE", Action: types.ActionBuy, Quantity: 1})
		}, "symbol"},
		{"place without quantity", func() (types.OrderResult, error) {
			return svc.PlaceOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", Action: types.ActionBuy})
		}, "quantity"},
		{"smart without target", func() (types.OrderResult, error) {
			return svc.PlaceSmartOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE"})
		}, "position_size"},
		{"modify without order id", func() (types.OrderResult, error) {
			return svc.ModifyOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", Quantity: 1})
		}, "orderid"},
		{"cancel without order id", func() (types.OrderResult, error) {
			return svc.CancelOrder(ctx, testUser, types.CancelRequest{APIKey: testKey, Strategy: "s"})
		}, "orderid"},
		{"square-off without strategy", func() (types.OrderResult, error) {
			r, err := svc.CloseAllPositions(ctx, testUser, types.AccountRequest{APIKey: testKey})
			return r.OrderResult, err
		}, "strategy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			if !errors.Is(err, types.ErrMissingField) {
				t.Fatalf("err = %v", err)
			}
			if res.HTTPStatus != http.StatusBadRequest || res.OK() {
				t.Errorf("result = %+v", res)
			}
			if !strings.HasPrefix(res.Message, "Missing mandatory field(s):") || !strings.Contains(res.Message, tt.want) {
				t.Errorf("message = %q, want mention of %s", res.Message, tt.want)
			}
		})
	}
}

func TestInvalidActionIsInputError(t *testing.T) {
	svc, _ := New(Deps{Adapter: strictAdapter{t}, Credentials: fakeCreds{token: "tok", key: testKey}})

	res, err := svc.PlaceOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", Action: "HOLD", Quantity: 1})
	if types.KindOf(err) != types.KindInput || !strings.Contains(res.Message, "action") {
		t.Errorf("result = %+v, err = %v", res, err)
	}
}

func TestInvalidAPIKey(t *testing.T) {
	svc, _ := New(Deps{Adapter: strictAdapter{t}, Credentials: fakeCreds{token: "tok", key: testKey}})

	res, err := svc.PlaceOrder(ctx, testUser, types.OrderRequest{APIKey: "wrong", Symbol: "SBIN", Exchange: "NSE", Action: types.ActionBuy, Quantity: 1})
	if !errors.Is(err, types.ErrInvalidAPIKey) {
		t.Fatalf("err = %v", err)
	}
	if res.HTTPStatus != http.StatusForbidden || res.Message != "Invalid API key" {
		t.Errorf("result = %+v", res)
	}
}

func TestMissingTokenIsUnauthenticated(t *testing.T) {
	svc, _ := New(Deps{Adapter: strictAdapter{t}, Credentials: fakeCreds{key: testKey}})

	res, err := svc.CancelOrder(ctx, testUser, types.CancelRequest{APIKey: testKey, Strategy: "s", OrderID: "1"})
	if !errors.Is(err, types.ErrUnauthenticated) || res.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("result = %+v, err = %v", res, err)
	}
}

func TestPlaceOrderAuditsWithoutAPIKey(t *testing.T) {
	h := newHarness(t, &fakeAdapter{}, false)

	res, err := h.svc.PlaceOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Strategy: "s", Symbol: "SBIN", Exchange: "NSE", Action: types.ActionBuy, Quantity: 5})
	if err != nil || res.OrderID != "ord-1" {
		t.Fatalf("PlaceOrder = %+v, %v", res, err)
	}
	e := h.audit.last()
	if e.Operation != opPlace || e.Broker != "fake" || e.User != testUser {
		t.Errorf("audit entry = %+v", e)
	}
	if req, ok := e.Request.(types.OrderRequest); !ok || req.APIKey != "" {
		t.Errorf("audited request = %#v", e.Request)
	}
	if h.events.count(EventOrder) != 1 {
		t.Errorf("order events = %d", h.events.count(EventOrder))
	}
}

func TestPlaceOrderBrokerRejectionPassesThrough(t *testing.T) {
	a := &fakeAdapter{submit: func(types.OrderRequest) (types.OrderResult, error) {
		return types.Rejected("Insufficient funds", http.StatusBadRequest), nil
	}}
	h := newHarness(t, a, false)

	res, err := h.svc.PlaceOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", Action: types.ActionBuy, Quantity: 5})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.OK() || res.HTTPStatus != http.StatusBadRequest || res.Message != "Insufficient funds" {
		t.Errorf("result = %+v", res)
	}
}

func TestPlaceOrderTransportErrorIsRetryable(t *testing.T) {
	a := &fakeAdapter{submit: func(types.OrderRequest) (types.OrderResult, error) {
		return types.OrderResult{}, types.TransportError("fake", errors.New("connection reset"))
	}}
	h := newHarness(t, a, false)

	res, err := h.svc.PlaceOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", Action: types.ActionBuy, Quantity: 5})
	var te *types.Error
	if !errors.As(err, &te) || !te.Retryable() {
		t.Fatalf("err = %v", err)
	}
	if res.HTTPStatus != http.StatusBadGateway {
		t.Errorf("status = %d", res.HTTPStatus)
	}
	if len(a.submitted) != 1 {
		t.Errorf("submitted %d times, want no retry", len(a.submitted))
	}
}

func TestSmartOrderPlans(t *testing.T) {
	tests := []struct {
		name    string
		current int
		target  int
		action  types.Action
		qty     int
		noop    string
	}{
		{"open long", 0, 10, types.ActionBuy, 10, ""},
		{"add to long", 4, 10, types.ActionBuy, 6, ""},
		{"reduce long", 10, 4, types.ActionSell, 6, ""},
		{"flip to short", 5, -5, types.ActionSell, 10, ""},
		{"exit short", -3, 0, types.ActionBuy, 3, ""},
		{"already there", 7, 7, "", 0, "No action needed. Position size matches current position."},
		{"flat and flat", 0, 0, "", 0, "No open position found. Not placing exit order."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAdapter{positions: []types.Position{
				{Symbol: "SBIN", Exchange: "NSE", Product: types.ProductDelivery, NetQuantity: 99},
				{Symbol: "SBIN", Exchange: "NSE", Product: types.ProductIntraday, NetQuantity: tt.current},
			}}
			h := newHarness(t, a, false)

			res, err := h.svc.PlaceSmartOrder(ctx, testUser, types.OrderRequest{
				APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", Action: types.ActionSell, Quantity: 999,
				PositionSize: intp(tt.target),
			})
			if err != nil || !res.OK() {
				t.Fatalf("PlaceSmartOrder = %+v, %v", res, err)
			}
			if tt.noop != "" {
				if len(a.submitted) != 0 || res.BrokerCalled || res.Message != tt.noop {
					t.Errorf("noop result = %+v, submitted = %d", res, len(a.submitted))
				}
				if h.events.count(EventOrder) != 0 {
					t.Error("order event emitted without a broker call")
				}
				return
			}
			if len(a.submitted) != 1 {
				t.Fatalf("submitted = %d", len(a.submitted))
			}
			got := a.submitted[0]
			if got.Action != tt.action || got.Quantity != tt.qty || got.Product != types.ProductIntraday {
				t.Errorf("order = %s %d %s, want %s %d MIS", got.Action, got.Quantity, got.Product, tt.action, tt.qty)
			}
			if !res.BrokerCalled || h.events.count(EventOrder) != 1 {
				t.Errorf("result = %+v, events = %d", res, h.events.count(EventOrder))
			}
		})
	}
}

func TestSmartOrderIdempotentAfterFill(t *testing.T) {
	a := &fakeAdapter{positions: []types.Position{{Symbol: "SBIN", Exchange: "NSE", Product: types.ProductIntraday, NetQuantity: 2}}}
	h := newHarness(t, a, false)
	req := types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", PositionSize: intp(8)}

	if _, err := h.svc.PlaceSmartOrder(ctx, testUser, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	a.positions[0].NetQuantity = 8
	res, err := h.svc.PlaceSmartOrder(ctx, testUser, req)
	if err != nil || res.BrokerCalled {
		t.Fatalf("second call = %+v, %v", res, err)
	}
	if len(a.submitted) != 1 {
		t.Errorf("submitted = %d, want 1", len(a.submitted))
	}
}

func TestSmartOrdersSerializedPerPosition(t *testing.T) {
	// Each fill moves the position, so serialized calls converge on one order.
	a := &fakeAdapter{positions: []types.Position{{Symbol: "SBIN", Exchange: "NSE", Product: types.ProductIntraday}}}
	var mu sync.Mutex
	a.submit = func(req types.OrderRequest) (types.OrderResult, error) {
		mu.Lock()
		defer mu.Unlock()
		if req.Action == types.ActionBuy {
			a.positions[0].NetQuantity += req.Quantity
		} else {
			a.positions[0].NetQuantity -= req.Quantity
		}
		return types.Placed("x"), nil
	}
	h := newHarness(t, a, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.svc.PlaceSmartOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", PositionSize: intp(10)})
		}()
	}
	wg.Wait()

	if len(a.submitted) != 1 || a.positions[0].NetQuantity != 10 {
		t.Errorf("submitted = %d, position = %d", len(a.submitted), a.positions[0].NetQuantity)
	}
}

func TestModifyOrderEmitsEvent(t *testing.T) {
	h := newHarness(t, &fakeAdapter{}, false)

	res, err := h.svc.ModifyOrder(ctx, testUser, types.OrderRequest{APIKey: testKey, OrderID: "42", Symbol: "SBIN", Exchange: "NSE", Quantity: 3})
	if err != nil || res.OrderID != "42" {
		t.Fatalf("ModifyOrder = %+v, %v", res, err)
	}
	if h.events.count(EventModifyOrder) != 1 || h.audit.last().Operation != opModify {
		t.Error("modify not recorded")
	}
}

func TestCancelAllOrders(t *testing.T) {
	a := &fakeAdapter{
		orders: []types.Order{
			{OrderID: "1", Status: types.OrderStatusOpen},
			{OrderID: "2", Status: types.OrderStatusComplete},
			{OrderID: "3", Status: types.OrderStatusTriggerPending, Variety: "AMO"},
			{OrderID: "4", Status: types.OrderStatusOpen},
		},
		cancel: func(id string) (types.OrderResult, error) {
			if id == "4" {
				return types.Rejected("too late", http.StatusBadRequest), nil
			}
			return types.Placed(id), nil
		},
	}
	h := newHarness(t, a, false)

	res, err := h.svc.CancelAllOrders(ctx, testUser, types.AccountRequest{APIKey: testKey, Strategy: "s"})
	if err != nil {
		t.Fatalf("CancelAllOrders: %v", err)
	}
	if strings.Join(res.Cancelled, ",") != "1,3" || strings.Join(res.Failed, ",") != "4" {
		t.Errorf("result = %+v", res)
	}
	if len(a.cancelled) != 3 {
		t.Errorf("cancel calls = %v", a.cancelled)
	}
	if strings.Join(a.cancelVarieties, ",") != "NORMAL,AMO,NORMAL" {
		t.Errorf("cancel varieties = %v", a.cancelVarieties)
	}
	if h.events.count(EventCancelOrder) != 2 {
		t.Errorf("cancel events = %d", h.events.count(EventCancelOrder))
	}
}

func TestOpenPosition(t *testing.T) {
	a := &fakeAdapter{positions: []types.Position{{Symbol: "SBIN", Exchange: "NSE", Product: types.ProductMargin, NetQuantity: -25}}}
	h := newHarness(t, a, false)

	got, err := h.svc.OpenPosition(ctx, testUser, types.PositionQuery{APIKey: testKey, Symbol: "SBIN", Exchange: "NSE", Product: types.ProductMargin})
	if err != nil || got != -25 {
		t.Errorf("OpenPosition = %d, %v", got, err)
	}
	got, err = h.svc.OpenPosition(ctx, testUser, types.PositionQuery{APIKey: testKey, Symbol: "INFY", Exchange: "NSE", Product: types.ProductMargin})
	if err != nil || got != 0 {
		t.Errorf("OpenPosition(INFY) = %d, %v", got, err)
	}
}

func TestSnapshot(t *testing.T) {
	a := &fakeAdapter{
		positions: []types.Position{{Symbol: "SBIN", NetQuantity: 1}},
		orders:    []types.Order{{OrderID: "1", Action: types.ActionBuy, Status: types.OrderStatusComplete}},
	}
	h := newHarness(t, a, false)

	snap, err := h.svc.Snapshot(ctx, testUser, testKey)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Positions) != 1 || snap.OrderBook.Stats.TotalCompletedOrders != 1 || len(snap.Trades) != 1 || snap.Portfolio.Holdings == nil {
		t.Errorf("snapshot = %+v", snap)
	}

	a.fetchErr = types.TransportError("fake", errors.New("down"))
	if _, err := h.svc.Snapshot(ctx, testUser, testKey); err == nil {
		t.Error("expected snapshot failure")
	}
}
