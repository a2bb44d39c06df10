package zerodha

import (
	"context"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/logger"
	"order-gateway/internal/types"
)

// orderStream forwards order postbacks from the Kite ticker websocket.
// No instruments are subscribed; the ticker delivers order updates for the
// session's account regardless.
type orderStream struct {
	sess     types.Session
	resolver interfaces.InstrumentResolver

	mu       sync.Mutex
	ticker   *kiteticker.Ticker
	onUpdate func(context.Context, interfaces.OrderUpdate)
	ctx      context.Context
}

var _ interfaces.OrderStream = (*orderStream)(nil)

// NewOrderStream returns a stream of order updates for one session.
func NewOrderStream(sess types.Session, resolver interfaces.InstrumentResolver) interfaces.OrderStream {
	return &orderStream{sess: sess, resolver: resolver}
}

func (s *orderStream) Start(ctx context.Context, onUpdate func(context.Context, interfaces.OrderUpdate)) error {
	if s.sess.APIKey == "" || s.sess.AuthToken == "" {
		return types.AuthError("zerodha.OrderStream", types.ErrUnauthenticated, 401, "missing API key/access token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		return nil
	}

	s.ctx = ctx
	s.onUpdate = onUpdate
	s.ticker = kiteticker.New(s.sess.APIKey, s.sess.AuthToken)
	s.setupEventHandlers()

	go func() {
		logger.Info(ctx, "Starting Zerodha order stream", "user", s.sess.User)
		s.ticker.Serve()
	}()
	return nil
}

func (s *orderStream) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ticker != nil {
		logger.Info(ctx, "Stopping Zerodha order stream", "user", s.sess.User)
		s.ticker.Stop()
		s.ticker = nil
	}
}

func (s *orderStream) setupEventHandlers() {
	s.ticker.OnConnect(s.onConnect)
	s.ticker.OnError(s.onError)
	s.ticker.OnClose(s.onClose)
	s.ticker.OnReconnect(s.onReconnect)
	s.ticker.OnNoReconnect(s.onNoReconnect)
	s.ticker.OnOrderUpdate(s.onOrderUpdate)
}

func (s *orderStream) onConnect() {
	logger.Info(s.ctx, "Order stream connected")
}

func (s *orderStream) onError(err error) {
	logger.ErrorWithErr(s.ctx, "Order stream error", err)
}

func (s *orderStream) onClose(code int, reason string) {
	logger.Warn(s.ctx, "Order stream closed", "code", code, "reason", reason)
}

func (s *orderStream) onReconnect(attempt int, delay time.Duration) {
	logger.Info(s.ctx, "Order stream reconnecting", "attempt", attempt, "delay", delay)
}

func (s *orderStream) onNoReconnect(attempt int) {
	logger.Warn(s.ctx, "Order stream reconnection failed - giving up", "attempts", attempt)
}

func (s *orderStream) onOrderUpdate(order kiteconnect.Order) {
	s.onUpdate(s.ctx, toOrderUpdate(s.sess.User, s.resolver, order))
}

func toOrderUpdate(user string, res interfaces.InstrumentResolver, order kiteconnect.Order) interfaces.OrderUpdate {
	return interfaces.OrderUpdate{
		Broker:   Name,
		User:     user,
		OrderID:  order.OrderID,
		Symbol:   canonicalSymbol(res, order.Exchange, order.InstrumentToken, order.TradingSymbol),
		Exchange: order.Exchange,
		Status:   string(orderStatus(order.Status)),
		Message:  order.StatusMessage,
	}
}
