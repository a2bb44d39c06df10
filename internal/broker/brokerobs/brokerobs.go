package brokerobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/logger"
	"order-gateway/internal/trace"
	"order-gateway/internal/types"
)

// observableAdapter wraps a BrokerAdapter with observability (logging & tracing)
type observableAdapter struct {
	adapter interfaces.BrokerAdapter
}

// Compile-time interface check
var _ interfaces.BrokerAdapter = (*observableAdapter)(nil)

// Wrap wraps an adapter with observability middleware
func Wrap(adapter interfaces.BrokerAdapter) interfaces.BrokerAdapter {
	return &observableAdapter{
		adapter: adapter,
	}
}

func (ob *observableAdapter) Name() string { return ob.adapter.Name() }

func (ob *observableAdapter) span(ctx context.Context, op string, sess types.Session) (context.Context, func()) {
	ctx, span := trace.StartSpan(ctx, "broker."+op)
	span.SetAttributes(
		attribute.String("broker", ob.adapter.Name()),
		attribute.String("user", sess.User),
	)
	return ctx, func() { span.End() }
}

// FetchPositions fetches positions with observability
func (ob *observableAdapter) FetchPositions(ctx context.Context, sess types.Session) ([]types.Position, error) {
	ctx, end := ob.span(ctx, "FetchPositions", sess)
	defer end()

	logger.DebugSkip(ctx, 1, "Fetching positions", "broker", ob.adapter.Name(), "user", sess.User)

	positions, err := ob.adapter.FetchPositions(ctx, sess)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch positions", err, "broker", ob.adapter.Name())
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Positions fetched successfully", "count", len(positions))
	return positions, nil
}

// FetchOrderBook fetches the order book with observability
func (ob *observableAdapter) FetchOrderBook(ctx context.Context, sess types.Session) ([]types.Order, error) {
	ctx, end := ob.span(ctx, "FetchOrderBook", sess)
	defer end()

	orders, err := ob.adapter.FetchOrderBook(ctx, sess)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch order book", err, "broker", ob.adapter.Name())
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Order book fetched successfully", "count", len(orders))
	return orders, nil
}

// FetchTradeBook fetches the trade book with observability
func (ob *observableAdapter) FetchTradeBook(ctx context.Context, sess types.Session) ([]types.Trade, error) {
	ctx, end := ob.span(ctx, "FetchTradeBook", sess)
	defer end()

	trades, err := ob.adapter.FetchTradeBook(ctx, sess)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch trade book", err, "broker", ob.adapter.Name())
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Trade book fetched successfully", "count", len(trades))
	return trades, nil
}

// FetchHoldings fetches holdings with observability
func (ob *observableAdapter) FetchHoldings(ctx context.Context, sess types.Session) ([]types.Holding, error) {
	ctx, end := ob.span(ctx, "FetchHoldings", sess)
	defer end()

	holdings, err := ob.adapter.FetchHoldings(ctx, sess)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch holdings", err, "broker", ob.adapter.Name())
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Holdings fetched successfully", "count", len(holdings))
	return holdings, nil
}

// SubmitOrder places an order with observability
func (ob *observableAdapter) SubmitOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	ctx, end := ob.span(ctx, "SubmitOrder", sess)
	defer end()

	logger.InfoSkip(ctx, 1, "Placing order",
		"broker", ob.adapter.Name(),
		"symbol", req.Symbol,
		"exchange", req.Exchange,
		"action", req.Action,
		"qty", req.Quantity,
		"strategy", req.Strategy,
	)

	res, err := ob.adapter.SubmitOrder(ctx, sess, req)
	return ob.finish(ctx, "place", req.Symbol, res, err)
}

// ModifyOrder modifies an order with observability
func (ob *observableAdapter) ModifyOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	ctx, end := ob.span(ctx, "ModifyOrder", sess)
	defer end()

	logger.InfoSkip(ctx, 1, "Modifying order",
		"broker", ob.adapter.Name(),
		"order_id", req.OrderID,
		"symbol", req.Symbol,
		"qty", req.Quantity,
	)

	res, err := ob.adapter.ModifyOrder(ctx, sess, req)
	return ob.finish(ctx, "modify", req.Symbol, res, err)
}

// CancelOrder cancels an order with observability
func (ob *observableAdapter) CancelOrder(ctx context.Context, sess types.Session, req types.CancelRequest) (types.OrderResult, error) {
	ctx, end := ob.span(ctx, "CancelOrder", sess)
	defer end()

	logger.InfoSkip(ctx, 1, "Cancelling order", "broker", ob.adapter.Name(), "order_id", req.OrderID, "variety", req.VarietyOrDefault())

	res, err := ob.adapter.CancelOrder(ctx, sess, req)
	return ob.finish(ctx, "cancel", req.OrderID, res, err)
}

func (ob *observableAdapter) finish(ctx context.Context, op, subject string, res types.OrderResult, err error) (types.OrderResult, error) {
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "Order "+op+" failed", err,
			"broker", ob.adapter.Name(),
			"subject", subject,
			"kind", types.KindOf(err),
		)
		return res, err
	}
	if !res.OK() {
		logger.WarnSkip(ctx, 2, "Order "+op+" rejected by broker",
			"broker", ob.adapter.Name(),
			"subject", subject,
			"message", res.Message,
			"status", res.HTTPStatus,
		)
		return res, nil
	}
	logger.InfoSkip(ctx, 2, "Order "+op+" accepted",
		"broker", ob.adapter.Name(),
		"subject", subject,
		"order_id", res.OrderID,
	)
	return res, nil
}

// observableStream wraps an OrderStream with observability
type observableStream struct {
	name   string
	stream interfaces.OrderStream
}

var _ interfaces.OrderStream = (*observableStream)(nil)

// WrapStream wraps an order stream with observability middleware
func WrapStream(name string, stream interfaces.OrderStream) interfaces.OrderStream {
	return &observableStream{name: name, stream: stream}
}

// Start starts the stream with observability
func (s *observableStream) Start(ctx context.Context, onUpdate func(context.Context, interfaces.OrderUpdate)) error {
	ctx, span := trace.StartSpan(ctx, "broker.StreamStart")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Starting order stream", "broker", s.name)

	if err := s.stream.Start(ctx, onUpdate); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to start order stream", err, "broker", s.name)
		return err
	}

	logger.InfoSkip(ctx, 1, "Order stream started successfully", "broker", s.name)
	return nil
}

// Stop shuts down the stream with observability
func (s *observableStream) Stop(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "broker.StreamStop")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Stopping order stream", "broker", s.name)
	s.stream.Stop(ctx)
	logger.InfoSkip(ctx, 1, "Order stream stopped successfully", "broker", s.name)
}
