// Package reconcile turns a target position into at most one corrective
// order.
package reconcile

import (
	"fmt"

	"order-gateway/internal/types"
)

// Reasons reported for a reconciliation that needs no order.
const (
	ReasonNoPosition = "No open position found. Not placing exit order."
	ReasonMatched    = "No action needed. Position size matches current position."
)

// Plan is the outcome of comparing a target with the current position.
// When NoOp is true Action and Quantity are zero and Reason explains why.
type Plan struct {
	Action   types.Action
	Quantity int
	NoOp     bool
	Reason   string
}

func (p Plan) String() string {
	if p.NoOp {
		return "noop: " + p.Reason
	}
	return fmt.Sprintf("%s %d", p.Action, p.Quantity)
}

// Decide computes the single order that moves a position from current to
// target. Rows are evaluated in order and every (target, current) pair
// matches exactly one of them:
//
//	T = 0, C = 0  none
//	T = C         none
//	T = 0, C > 0  SELL C
//	T = 0, C < 0  BUY -C
//	C = 0, T > 0  BUY T
//	C = 0, T < 0  SELL -T
//	T > C         BUY T-C
//	T < C         SELL C-T
//
// An emitted plan always has Quantity > 0.
func Decide(target, current int) Plan {
	switch {
	case target == 0 && current == 0:
		return Plan{NoOp: true, Reason: ReasonNoPosition}
	case target == current:
		return Plan{NoOp: true, Reason: ReasonMatched}
	case target == 0 && current > 0:
		return Plan{Action: types.ActionSell, Quantity: current}
	case target == 0 && current < 0:
		return Plan{Action: types.ActionBuy, Quantity: -current}
	case current == 0 && target > 0:
		return Plan{Action: types.ActionBuy, Quantity: target}
	case current == 0 && target < 0:
		return Plan{Action: types.ActionSell, Quantity: -target}
	case target > current:
		return Plan{Action: types.ActionBuy, Quantity: target - current}
	default:
		return Plan{Action: types.ActionSell, Quantity: current - target}
	}
}

// Apply returns a copy of req carrying the plan's action and quantity. The
// caller must not submit a no-op plan.
func (p Plan) Apply(req types.OrderRequest) types.OrderRequest {
	req.Action = p.Action
	req.Quantity = p.Quantity
	return req
}

// Key identifies the position a reconciliation reads and writes.
func Key(account, symbol, exchange string, product types.Product) string {
	return account + "|" + symbol + "|" + exchange + "|" + string(product)
}
