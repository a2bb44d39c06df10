package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

const (
	testUser = "trader1"
	testKey  = "gw-key"
)

// fakeAdapter serves canned books and records submitted orders.
type fakeAdapter struct {
	mu              sync.Mutex
	positions       []types.Position
	orders          []types.Order
	fetchErr        error
	submitted       []types.OrderRequest
	cancelled       []string
	cancelVarieties []string
	// submit decides the result of each submission; nil means success.
	submit func(req types.OrderRequest) (types.OrderResult, error)
	cancel func(id string) (types.OrderResult, error)
}

var _ interfaces.BrokerAdapter = (*fakeAdapter)(nil)

func (f *fakeAdapter) Name() string { return "fake" }

func (f *fakeAdapter) FetchPositions(context.Context, types.Session) ([]types.Position, error) {
	return f.positions, f.fetchErr
}

func (f *fakeAdapter) FetchOrderBook(context.Context, types.Session) ([]types.Order, error) {
	return f.orders, f.fetchErr
}

func (f *fakeAdapter) FetchTradeBook(context.Context, types.Session) ([]types.Trade, error) {
	return []types.Trade{{TradeID: "t1"}}, f.fetchErr
}

func (f *fakeAdapter) FetchHoldings(context.Context, types.Session) ([]types.Holding, error) {
	return nil, f.fetchErr
}

func (f *fakeAdapter) SubmitOrder(_ context.Context, _ types.Session, req types.OrderRequest) (types.OrderResult, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, req)
	n := len(f.submitted)
	f.mu.Unlock()
	if f.submit != nil {
		return f.submit(req)
	}
	return types.Placed(fmt.Sprintf("ord-%d", n)), nil
}

func (f *fakeAdapter) ModifyOrder(_ context.Context, _ types.Session, req types.OrderRequest) (types.OrderResult, error) {
	return types.Placed(req.OrderID), nil
}

func (f *fakeAdapter) CancelOrder(_ context.Context, _ types.Session, req types.CancelRequest) (types.OrderResult, error) {
	f.mu.Lock()
	f.cancelled = append(f.cancelled, req.OrderID)
	f.cancelVarieties = append(f.cancelVarieties, req.VarietyOrDefault())
	f.mu.Unlock()
	if f.cancel != nil {
		return f.cancel(req.OrderID)
	}
	return types.Placed(req.OrderID), nil
}

// strictAdapter fails the test on any broker call.
type strictAdapter struct{ t *testing.T }

func (s strictAdapter) Name() string { return "strict" }

func (s strictAdapter) fail(op string) {
	s.t.Helper()
	s.t.Errorf("unexpected broker call: %s", op)
}

func (s strictAdapter) FetchPositions(context.Context, types.Session) ([]types.Position, error) {
	s.fail("FetchPositions")
	return nil, errors.New("unexpected")
}

func (s strictAdapter) FetchOrderBook(context.Context, types.Session) ([]types.Order, error) {
	s.fail("FetchOrderBook")
	return nil, errors.New("unexpected")
}

func (s strictAdapter) FetchTradeBook(context.Context, types.Session) ([]types.Trade, error) {
	s.fail("FetchTradeBook")
	return nil, errors.New("unexpected")
}

func (s strictAdapter) FetchHoldings(context.Context, types.Session) ([]types.Holding, error) {
	s.fail("FetchHoldings")
	return nil, errors.New("unexpected")
}

func (s strictAdapter) SubmitOrder(context.Context, types.Session, types.OrderRequest) (types.OrderResult, error) {
	s.fail("SubmitOrder")
	return types.OrderResult{}, errors.New("unexpected")
}

func (s strictAdapter) ModifyOrder(context.Context, types.Session, types.OrderRequest) (types.OrderResult, error) {
	s.fail("ModifyOrder")
	return types.OrderResult{}, errors.New("unexpected")
}

func (s strictAdapter) CancelOrder(context.Context, types.Session, types.CancelRequest) (types.OrderResult, error) {
	s.fail("CancelOrder")
	return types.OrderResult{}, errors.New("unexpected")
}

type fakeCreds struct {
	token string
	key   string
}

func (c fakeCreds) Session(_ context.Context, user string) (types.Session, error) {
	return types.Session{User: user, AuthToken: c.token, APIKey: "broker-key"}, nil
}

func (c fakeCreds) APIKey(context.Context, string) (string, error) { return c.key, nil }

type fakeAuditor struct {
	mu      sync.Mutex
	entries []interfaces.AuditEntry
}

func (a *fakeAuditor) Record(e interfaces.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *fakeAuditor) last() interfaces.AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return interfaces.AuditEntry{}
	}
	return a.entries[len(a.entries)-1]
}

type fakeEvents struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (e *fakeEvents) Emit(ev interfaces.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *fakeEvents) count(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, ev := range e.events {
		if ev.Type == name {
			n++
		}
	}
	return n
}

type harness struct {
	svc     *Service
	adapter *fakeAdapter
	audit   *fakeAuditor
	events  *fakeEvents
}

func newHarness(t *testing.T, a *fakeAdapter, strict bool) harness {
	t.Helper()
	h := harness{adapter: a, audit: &fakeAuditor{}, events: &fakeEvents{}}
	svc, err := New(Deps{
		Adapter:         a,
		Credentials:     fakeCreds{token: "tok", key: testKey},
		Auditor:         h.audit,
		Events:          h.events,
		StrictSquareOff: strict,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.svc = svc
	return h
}

func intp(v int) *int { return &v }
