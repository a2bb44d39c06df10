package gateway

import (
	"context"
	"fmt"
	"net/http"

	"order-gateway/internal/logger"
	"order-gateway/internal/reconcile"
	"order-gateway/internal/types"
)

// Audit operation names.
const (
	opPlace     = "placeorder"
	opSmart     = "placesmartorder"
	opModify    = "modifyorder"
	opCancel    = "cancelorder"
	opCancelAll = "cancelallorder"
	opClose     = "closeposition"
)

// fail builds the error envelope for err and records it.
func (s *Service) fail(user, op string, req any, err error) (types.OrderResult, error) {
	res := types.Failed(err)
	s.record(user, op, req, res)
	return res, err
}

// PlaceOrder submits req as is.
func (s *Service) PlaceOrder(ctx context.Context, user string, req types.OrderRequest) (types.OrderResult, error) {
	timer := logger.StartOperation(ctx, "gateway.PlaceOrder", "user", user, "symbol", req.Symbol)
	ctx = timer.GetContext()

	if err := check("gateway.PlaceOrder", req, placeFields...); err != nil {
		timer.EndWithError(err)
		return s.fail(user, opPlace, req.Redacted(), err)
	}
	sess, err := s.authorize(ctx, user, req.APIKey)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opPlace, req.Redacted(), err)
	}

	res, err := s.adapter.SubmitOrder(ctx, sess, req)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opPlace, req.Redacted(), err)
	}
	logger.Order(ctx, opPlace, req.Symbol, string(req.Action), req.Quantity, res.OrderID, "status", res.Status)
	s.record(user, opPlace, req.Redacted(), res)
	s.emit(user, EventOrder, orderPayload(req, res))
	timer.End("status", string(res.Status))
	return res, nil
}

// PlaceSmartOrder moves the position of (symbol, exchange, product) to
// req.PositionSize with at most one order. Concurrent calls for the same
// position are serialized. When the position already matches, a success
// carrying the reason is returned and the broker is not called.
func (s *Service) PlaceSmartOrder(ctx context.Context, user string, req types.OrderRequest) (types.OrderResult, error) {
	timer := logger.StartOperation(ctx, "gateway.PlaceSmartOrder", "user", user, "symbol", req.Symbol)
	ctx = timer.GetContext()

	if err := check("gateway.PlaceSmartOrder", req, smartFields...); err != nil {
		timer.EndWithError(err)
		return s.fail(user, opSmart, req.Redacted(), err)
	}
	sess, err := s.authorize(ctx, user, req.APIKey)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opSmart, req.Redacted(), err)
	}
	req = req.WithDefaults()

	key := reconcile.Key(user, req.Symbol, req.Exchange, req.Product)
	unlock, err := s.locker.Lock(ctx, key)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opSmart, req.Redacted(), err)
	}
	defer unlock()
	logger.Debug(ctx, "Reconciliation lock held", "key", key)

	positions, err := s.adapter.FetchPositions(ctx, sess)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opSmart, req.Redacted(), err)
	}
	target := *req.PositionSize
	current := reconcile.NetQuantity(positions, req.Symbol, req.Exchange, req.Product)
	plan := reconcile.Decide(target, current)
	logger.Reconcile(ctx, req.Symbol, target, current, string(plan.Action), plan.Quantity, "plan", plan.String())

	if plan.NoOp {
		res := types.OrderResult{Status: types.StatusSuccess, Message: plan.Reason, HTTPStatus: http.StatusOK}
		s.record(user, opSmart, req.Redacted(), res)
		timer.End("status", string(res.Status), "noop", true)
		return res, nil
	}

	order := plan.Apply(req)
	res, err := s.adapter.SubmitOrder(ctx, sess, order)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opSmart, order.Redacted(), err)
	}
	logger.Order(ctx, opSmart, order.Symbol, string(order.Action), order.Quantity, res.OrderID, "status", res.Status, "target", target)
	s.record(user, opSmart, order.Redacted(), res)
	if res.BrokerCalled {
		s.emit(user, EventOrder, orderPayload(order, res))
	}
	timer.End("status", string(res.Status))
	return res, nil
}

// ModifyOrder changes an open order.
func (s *Service) ModifyOrder(ctx context.Context, user string, req types.OrderRequest) (types.OrderResult, error) {
	timer := logger.StartOperation(ctx, "gateway.ModifyOrder", "user", user, "order_id", req.OrderID)
	ctx = timer.GetContext()

	if err := check("gateway.ModifyOrder", req, modifyFields...); err != nil {
		timer.EndWithError(err)
		return s.fail(user, opModify, req.Redacted(), err)
	}
	sess, err := s.authorize(ctx, user, req.APIKey)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opModify, req.Redacted(), err)
	}

	res, err := s.adapter.ModifyOrder(ctx, sess, req)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opModify, req.Redacted(), err)
	}
	logger.Order(ctx, opModify, req.Symbol, string(req.Action), req.Quantity, req.OrderID, "status", res.Status)
	s.record(user, opModify, req.Redacted(), res)
	s.emit(user, EventModifyOrder, map[string]any{"status": res.Status, "orderid": req.OrderID, "message": res.Message})
	timer.End("status", string(res.Status))
	return res, nil
}

// CancelOrder cancels one order.
func (s *Service) CancelOrder(ctx context.Context, user string, req types.CancelRequest) (types.OrderResult, error) {
	timer := logger.StartOperation(ctx, "gateway.CancelOrder", "user", user, "order_id", req.OrderID)
	ctx = timer.GetContext()

	if err := check("gateway.CancelOrder", req); err != nil {
		timer.EndWithError(err)
		return s.fail(user, opCancel, req.Redacted(), err)
	}
	sess, err := s.authorize(ctx, user, req.APIKey)
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opCancel, req.Redacted(), err)
	}

	res, err := s.adapter.CancelOrder(ctx, sess, req.Redacted())
	if err != nil {
		timer.EndWithError(err)
		return s.fail(user, opCancel, req.Redacted(), err)
	}
	logger.Order(ctx, opCancel, "", "", 0, req.OrderID, "status", res.Status)
	s.record(user, opCancel, req.Redacted(), res)
	s.emit(user, EventCancelOrder, map[string]any{"status": res.Status, "orderid": req.OrderID, "message": res.Message})
	timer.End("status", string(res.Status))
	return res, nil
}

// CancelAllOrders cancels every order that is still open or waiting on its
// trigger. One failed cancellation does not stop the others.
func (s *Service) CancelAllOrders(ctx context.Context, user string, req types.AccountRequest) (types.CancelAllResult, error) {
	timer := logger.StartOperation(ctx, "gateway.CancelAllOrders", "user", user)
	ctx = timer.GetContext()

	failAll := func(err error) (types.CancelAllResult, error) {
		timer.EndWithError(err)
		f := types.Failed(err)
		res := types.CancelAllResult{Status: types.StatusError, Cancelled: []string{}, Failed: []string{}, Message: f.Message}
		s.record(user, opCancelAll, req.Redacted(), res)
		return res, err
	}
	if err := check("gateway.CancelAllOrders", req); err != nil {
		return failAll(err)
	}
	sess, err := s.authorize(ctx, user, req.APIKey)
	if err != nil {
		return failAll(err)
	}
	orders, err := s.adapter.FetchOrderBook(ctx, sess)
	if err != nil {
		return failAll(err)
	}

	res := types.CancelAllResult{Status: types.StatusSuccess, Cancelled: []string{}, Failed: []string{}}
	for _, o := range orders {
		if !o.Status.Cancellable() {
			continue
		}
		r, err := s.adapter.CancelOrder(ctx, sess, types.CancelRequest{Strategy: req.Strategy, OrderID: o.OrderID, Variety: o.Variety})
		if err != nil || !r.OK() {
			if err != nil {
				logger.ErrorWithErr(ctx, "Cancel failed", err, "order_id", o.OrderID)
			}
			res.Failed = append(res.Failed, o.OrderID)
			continue
		}
		res.Cancelled = append(res.Cancelled, o.OrderID)
		s.emit(user, EventCancelOrder, map[string]any{"status": r.Status, "orderid": o.OrderID})
	}
	res.Message = fmt.Sprintf("Canceled %d orders. Failed to cancel %d orders.", len(res.Cancelled), len(res.Failed))
	s.record(user, opCancelAll, req.Redacted(), res)
	timer.End("cancelled", len(res.Cancelled), "failed", len(res.Failed))
	return res, nil
}

func orderPayload(req types.OrderRequest, res types.OrderResult) map[string]any {
	return map[string]any{
		"symbol":   req.Symbol,
		"exchange": req.Exchange,
		"action":   req.Action,
		"quantity": req.Quantity,
		"product":  req.Product,
		"status":   res.Status,
		"orderid":  res.OrderID,
		"message":  res.Message,
	}
}
