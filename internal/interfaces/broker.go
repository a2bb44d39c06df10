package interfaces

import (
	"context"

	"order-gateway/internal/types"
)

// BrokerAdapter translates canonical commands into one broker's wire
// protocol and normalizes the broker's answers back. A broker rejection is
// returned as an error-status OrderResult with a nil error; the error return
// is reserved for transport, resolution and payload failures.
type BrokerAdapter interface {
	Name() string
	FetchPositions(ctx context.Context, sess types.Session) ([]types.Position, error)
	FetchOrderBook(ctx context.Context, sess types.Session) ([]types.Order, error)
	FetchTradeBook(ctx context.Context, sess types.Session) ([]types.Trade, error)
	FetchHoldings(ctx context.Context, sess types.Session) ([]types.Holding, error)
	SubmitOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error)
	ModifyOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error)
	CancelOrder(ctx context.Context, sess types.Session, req types.CancelRequest) (types.OrderResult, error)
}

// InstrumentResolver maps canonical symbols to broker tokens and back.
type InstrumentResolver interface {
	Resolve(ctx context.Context, symbol, exchange string) (types.Instrument, error)
	ByToken(exchange, token string) (types.Instrument, bool)
}
