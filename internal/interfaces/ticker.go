package interfaces

import (
	"context"
)

// OrderUpdate is a single order status change pushed by a broker stream.
type OrderUpdate struct {
	Broker   string
	User     string
	OrderID  string
	Symbol   string
	Exchange string
	Status   string
	Message  string
}

// OrderStream pushes broker order updates to a handler until stopped.
type OrderStream interface {
	Start(ctx context.Context, onUpdate func(context.Context, OrderUpdate)) error
	Stop(ctx context.Context)
}
