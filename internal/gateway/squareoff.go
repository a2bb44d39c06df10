package gateway

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/multierr"

	"order-gateway/internal/logger"
	"order-gateway/internal/reconcile"
	"order-gateway/internal/types"
)

const (
	msgNoPositions = "No open positions found"
	msgSquaredOff  = "All Open Positions SquaredOff"
)

// CloseAllPositions flattens every open position with one MARKET order
// each, submitted in broker order. A failed closing order does not stop the
// sweep. Each position's outcome is reported; the overall status is success
// unless the service runs in strict mode and some order failed.
func (s *Service) CloseAllPositions(ctx context.Context, user string, req types.AccountRequest) (types.SquareOffResult, error) {
	timer := logger.StartOperation(ctx, "gateway.CloseAllPositions", "user", user)
	ctx = timer.GetContext()

	failAll := func(err error) (types.SquareOffResult, error) {
		timer.EndWithError(err)
		res := types.SquareOffResult{OrderResult: types.Failed(err)}
		s.record(user, opClose, req.Redacted(), res)
		s.emit(user, EventClose, map[string]any{"status": res.Status, "message": res.Message})
		return res, err
	}
	if err := check("gateway.CloseAllPositions", req); err != nil {
		return failAll(err)
	}
	sess, err := s.authorize(ctx, user, req.APIKey)
	if err != nil {
		return failAll(err)
	}
	positions, err := s.adapter.FetchPositions(ctx, sess)
	if err != nil {
		return failAll(err)
	}

	closing := reconcile.ClosingOrders(positions)
	if len(closing) == 0 {
		res := types.SquareOffResult{OrderResult: types.OrderResult{Status: types.StatusSuccess, Message: msgNoPositions, HTTPStatus: http.StatusOK}}
		s.record(user, opClose, req.Redacted(), res)
		timer.End("orders", 0)
		return res, nil
	}

	var errs error
	outcomes := make([]types.PositionOutcome, 0, len(closing))
	for _, c := range closing {
		order := c.Request
		out := types.PositionOutcome{
			Symbol:   order.Symbol,
			Exchange: order.Exchange,
			Product:  order.Product,
			Action:   order.Action,
			Quantity: order.Quantity,
		}
		res, err := s.adapter.SubmitOrder(ctx, sess, order)
		switch {
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("%s:%s: %w", order.Exchange, order.Symbol, err))
			out.Status, out.Message = types.StatusError, types.Failed(err).Message
		case !res.OK():
			errs = multierr.Append(errs, fmt.Errorf("%s:%s: %s", order.Exchange, order.Symbol, res.Message))
			out.Status, out.Message = types.StatusError, res.Message
		default:
			out.Status, out.OrderID = types.StatusSuccess, res.OrderID
		}
		logger.Order(ctx, opClose, order.Symbol, string(order.Action), order.Quantity, out.OrderID, "status", out.Status)
		outcomes = append(outcomes, out)
	}

	failed := len(multierr.Errors(errs))
	res := types.SquareOffResult{
		OrderResult: types.OrderResult{Status: types.StatusSuccess, Message: msgSquaredOff, HTTPStatus: http.StatusOK, BrokerCalled: true},
		Outcomes:    outcomes,
		Failed:      failed,
	}
	if failed > 0 {
		logger.ErrorWithErr(ctx, "Square-off completed with failed orders", errs, "failed", failed, "total", len(outcomes))
		if s.strict {
			res.Status = types.StatusError
			res.Message = fmt.Sprintf("%d of %d closing orders failed", failed, len(outcomes))
			res.HTTPStatus = http.StatusInternalServerError
		}
	}
	s.record(user, opClose, req.Redacted(), res)
	s.emit(user, EventClose, map[string]any{"status": res.Status, "message": res.Message, "failed": failed})

	if failed > 0 && s.strict {
		timer.EndWithError(errs)
		return res, errs
	}
	timer.End("orders", len(outcomes), "failed", failed)
	return res, nil
}

// OpenPosition returns the signed net quantity of one position, zero when
// there is none.
func (s *Service) OpenPosition(ctx context.Context, user string, q types.PositionQuery) (int, error) {
	ctx, span := logger.StartSpan(ctx, "gateway.OpenPosition")
	defer span.End()

	if err := check("gateway.OpenPosition", q); err != nil {
		return 0, err
	}
	sess, err := s.authorize(ctx, user, q.APIKey)
	if err != nil {
		return 0, err
	}
	positions, err := s.adapter.FetchPositions(ctx, sess)
	if err != nil {
		return 0, err
	}
	return reconcile.NetQuantity(positions, q.Symbol, q.Exchange, q.Product), nil
}
