// Package angel implements the Angel One SmartAPI REST adapter.
package angel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"order-gateway/internal/api"
	"order-gateway/internal/broker"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/logger"
	"order-gateway/internal/types"
)

// Name is the registry identifier of this adapter.
const Name = "angel"

const (
	defaultBaseURL = "https://apiconnect.angelbroking.com"

	pathOrderBook = "/rest/secure/angelbroking/order/v1/getOrderBook"
	pathTradeBook = "/rest/secure/angelbroking/order/v1/getTradeBook"
	pathPositions = "/rest/secure/angelbroking/order/v1/getPosition"
	pathHoldings  = "/rest/secure/angelbroking/portfolio/v1/getAllHolding"
	pathPlace     = "/rest/secure/angelbroking/order/v1/placeOrder"
	pathModify    = "/rest/secure/angelbroking/order/v1/modifyOrder"
	pathCancel    = "/rest/secure/angelbroking/order/v1/cancelOrder"

	// modifySuccess is the message Angel sends on a successful modify,
	// sometimes without a truthy status.
	modifySuccess = "SUCCESS"
)

// Angel error codes for an invalid or expired session token.
var tokenErrors = map[string]bool{"AG8001": true, "AG8002": true, "AB1010": true}

type Adapter struct {
	client   *api.Client
	resolver interfaces.InstrumentResolver
}

var _ interfaces.BrokerAdapter = (*Adapter)(nil)

func New(p broker.Params) (*Adapter, error) {
	if p.Resolver == nil {
		return nil, types.ConfigError("angel.New", nil, "instrument resolver is required")
	}
	base := p.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	c := api.NewClient(
		api.WithBaseURL(base),
		api.WithTimeout(p.Timeout),
		api.WithHTTPClient(p.HTTPClient),
		api.WithHeader("Accept", "application/json"),
		api.WithHeader("X-UserType", "USER"),
		api.WithHeader("X-SourceID", "WEB"),
		api.WithHeader("X-ClientLocalIP", "CLIENT_LOCAL_IP"),
		api.WithHeader("X-ClientPublicIP", "CLIENT_PUBLIC_IP"),
		api.WithHeader("X-MACAddress", "MAC_ADDRESS"),
		api.WithLogging(true),
	)
	return &Adapter{client: c, resolver: p.Resolver}, nil
}

func (a *Adapter) Name() string { return Name }

func headers(sess types.Session) (map[string]string, error) {
	if sess.AuthToken == "" {
		return nil, types.AuthError("angel", types.ErrUnauthenticated, http.StatusUnauthorized, "session not authenticated")
	}
	return map[string]string{
		"Authorization": "Bearer " + sess.AuthToken,
		"Content-Type":  "application/json",
		"X-PrivateKey":  sess.APIKey,
	}, nil
}

// call performs one request and decodes the envelope. The HTTP status is
// returned alongside for pass-through.
func (a *Adapter) call(ctx context.Context, sess types.Session, method, path string, body any) (envelope, int, error) {
	h, err := headers(sess)
	if err != nil {
		return envelope{}, 0, err
	}
	var resp *api.Response
	if method == http.MethodGet {
		resp, err = a.client.GET(ctx, path, h)
	} else {
		resp, err = a.client.POST(ctx, path, body, h)
	}
	if err != nil {
		return envelope{}, 0, err
	}
	var env envelope
	if err := resp.ParseJSON(&env); err != nil {
		return envelope{}, resp.StatusCode, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || tokenErrors[env.ErrorCode] {
		return env, resp.StatusCode, types.AuthError("angel"+path, types.ErrUnauthenticated, http.StatusUnauthorized, env.Message)
	}
	return env, resp.StatusCode, nil
}

// fetch reads a list endpoint into out. A null payload leaves out empty.
func (a *Adapter) fetch(ctx context.Context, sess types.Session, op, path string, out any) error {
	env, code, err := a.call(ctx, sess, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if !env.Status {
		return types.BrokerError(op, code, env.Message)
	}
	if env.empty() {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return types.MalformedError(op, fmt.Sprintf("decode %s: %v", path, err))
	}
	return nil
}

func (a *Adapter) FetchPositions(ctx context.Context, sess types.Session) ([]types.Position, error) {
	var rows []position
	if err := a.fetch(ctx, sess, "angel.FetchPositions", pathPositions, &rows); err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(rows))
	for _, r := range rows {
		p, err := a.toPosition(r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *Adapter) FetchOrderBook(ctx context.Context, sess types.Session) ([]types.Order, error) {
	var rows []order
	if err := a.fetch(ctx, sess, "angel.FetchOrderBook", pathOrderBook, &rows); err != nil {
		return nil, err
	}
	out := make([]types.Order, 0, len(rows))
	for _, r := range rows {
		o, err := a.toOrder(r)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (a *Adapter) FetchTradeBook(ctx context.Context, sess types.Session) ([]types.Trade, error) {
	var rows []trade
	if err := a.fetch(ctx, sess, "angel.FetchTradeBook", pathTradeBook, &rows); err != nil {
		return nil, err
	}
	out := make([]types.Trade, 0, len(rows))
	for _, r := range rows {
		t, err := a.toTrade(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *Adapter) FetchHoldings(ctx context.Context, sess types.Session) ([]types.Holding, error) {
	var data holdingsData
	if err := a.fetch(ctx, sess, "angel.FetchHoldings", pathHoldings, &data); err != nil {
		return nil, err
	}
	out := make([]types.Holding, 0, len(data.Holdings))
	for _, r := range data.Holdings {
		h, err := a.toHolding(r)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// payload resolves the symbol token and fills Angel's order fields. Zero
// prices are sent as "0", matching an omitted field.
func (a *Adapter) payload(ctx context.Context, req types.OrderRequest) (orderPayload, error) {
	req = req.WithDefaults()

	in, err := a.resolver.Resolve(ctx, req.Symbol, req.Exchange)
	if err != nil {
		return orderPayload{}, err
	}
	product, err := products.ToBroker(req.Product)
	if err != nil {
		return orderPayload{}, err
	}
	orderType, err := priceTypes.ToBroker(req.PriceType)
	if err != nil {
		return orderPayload{}, err
	}
	p := orderPayload{
		Variety:       req.Variety,
		TradingSymbol: in.BrokerSymbol,
		SymbolToken:   in.Token,
		Exchange:      in.Exchange,
		OrderType:     orderType,
		ProductType:   product,
		Duration:      req.Duration,
		Price:         req.Price.String(),
		TriggerPrice:  req.TriggerPrice.String(),
		SquareOff:     req.SquareOff.String(),
		StopLoss:      req.StopLoss.String(),
		Quantity:      fmt.Sprint(req.Quantity),
	}
	if req.DisclosedQuantity > 0 {
		p.DisclosedQty = fmt.Sprint(req.DisclosedQuantity)
	}
	if req.Action != "" {
		if p.TransactionType, err = actions.ToBroker(req.Action); err != nil {
			return orderPayload{}, err
		}
	}
	return p, nil
}

func (a *Adapter) SubmitOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	p, err := a.payload(ctx, req)
	if err != nil {
		return types.OrderResult{}, err
	}
	env, code, err := a.call(ctx, sess, http.MethodPost, pathPlace, p)
	if err != nil {
		return types.OrderResult{}, err
	}
	if !env.Status {
		return types.Rejected(env.Message, code), nil
	}
	var ack orderAck
	if !env.empty() {
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			return types.OrderResult{}, types.MalformedError("angel.SubmitOrder", err.Error())
		}
	}
	if ack.OrderID == "" {
		return types.OrderResult{}, &types.Error{Kind: types.KindBroker, Op: "angel.SubmitOrder", Code: http.StatusInternalServerError, Message: types.ErrNoOrderID.Error(), Err: types.ErrNoOrderID}
	}
	return types.Placed(ack.OrderID), nil
}

func (a *Adapter) ModifyOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	p, err := a.payload(ctx, req)
	if err != nil {
		return types.OrderResult{}, err
	}
	p.OrderID = req.OrderID
	p.TransactionType, p.SquareOff, p.StopLoss = "", "", ""

	env, code, err := a.call(ctx, sess, http.MethodPost, pathModify, p)
	if err != nil {
		return types.OrderResult{}, err
	}
	if !env.Status && env.Message != modifySuccess {
		return types.Rejected(env.Message, code), nil
	}
	var ack orderAck
	if !env.empty() {
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			logger.Warn(ctx, "Undecodable modify acknowledgement, keeping request order id",
				"orderid", req.OrderID, "data", string(env.Data), "error", err)
		}
	}
	if ack.OrderID == "" {
		ack.OrderID = req.OrderID
	}
	return types.Placed(ack.OrderID), nil
}

func (a *Adapter) CancelOrder(ctx context.Context, sess types.Session, req types.CancelRequest) (types.OrderResult, error) {
	env, code, err := a.call(ctx, sess, http.MethodPost, pathCancel, cancelPayload{Variety: req.VarietyOrDefault(), OrderID: req.OrderID})
	if err != nil {
		return types.OrderResult{}, err
	}
	if !env.Status {
		msg := env.Message
		if msg == "" {
			msg = "Failed to cancel order"
		}
		return types.Rejected(msg, code), nil
	}
	return types.Placed(req.OrderID), nil
}
