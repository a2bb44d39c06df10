package interfaces

import (
	"context"

	"order-gateway/internal/types"
)

// OrderGateway is the surface the web layer talks to. Every method returns
// a result envelope that is usable even when err is non-nil.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, user string, req types.OrderRequest) (types.OrderResult, error)
	PlaceSmartOrder(ctx context.Context, user string, req types.OrderRequest) (types.OrderResult, error)
	ModifyOrder(ctx context.Context, user string, req types.OrderRequest) (types.OrderResult, error)
	CancelOrder(ctx context.Context, user string, req types.CancelRequest) (types.OrderResult, error)
	CancelAllOrders(ctx context.Context, user string, req types.AccountRequest) (types.CancelAllResult, error)
	CloseAllPositions(ctx context.Context, user string, req types.AccountRequest) (types.SquareOffResult, error)
	OpenPosition(ctx context.Context, user string, q types.PositionQuery) (int, error)
}

// Locker serializes smart orders that touch the same position. The returned
// unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// CredentialStore resolves the broker session and API key of a user.
type CredentialStore interface {
	Session(ctx context.Context, user string) (types.Session, error)
	APIKey(ctx context.Context, user string) (string, error)
}
