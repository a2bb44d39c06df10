// Package compositedge implements the Compositedge (Symphony XTS
// Interactive) REST adapter.
package compositedge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"order-gateway/internal/api"
	"order-gateway/internal/broker"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

// Name is the registry identifier of this adapter.
const Name = "compositedge"

const (
	defaultBaseURL = "https://xts.compositedge.com"

	pathOrders    = "/interactive/orders"
	pathTrades    = "/interactive/orders/trades"
	pathPositions = "/interactive/portfolio/positions?dayOrNet=NetWise"
	pathHoldings  = "/interactive/portfolio/holdings"

	// successPrefix marks a success code even when type is missing.
	successPrefix = "s-"
	sessionPrefix = "e-session"
)

type Adapter struct {
	client   *api.Client
	resolver interfaces.InstrumentResolver
}

var _ interfaces.BrokerAdapter = (*Adapter)(nil)

func New(p broker.Params) (*Adapter, error) {
	if p.Resolver == nil {
		return nil, types.ConfigError("compositedge.New", nil, "instrument resolver is required")
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
		api.WithLogging(true),
	)
	return &Adapter{client: c, resolver: p.Resolver}, nil
}

func (a *Adapter) Name() string { return Name }

// call performs one request and decodes the envelope.
func (a *Adapter) call(ctx context.Context, sess types.Session, method, path string, body any) (envelope, int, error) {
	if sess.AuthToken == "" {
		return envelope{}, 0, types.AuthError("compositedge", types.ErrUnauthenticated, http.StatusUnauthorized, "session not authenticated")
	}
	h := map[string]string{"authorization": sess.AuthToken}
	var (
		resp *api.Response
		err  error
	)
	switch method {
	case http.MethodGet:
		resp, err = a.client.GET(ctx, path, h)
	case http.MethodPut:
		resp, err = a.client.PUT(ctx, path, body, h)
	case http.MethodDelete:
		resp, err = a.client.DELETE(ctx, path, h)
	default:
		resp, err = a.client.POST(ctx, path, body, h)
	}
	if err != nil {
		return envelope{}, 0, err
	}
	var env envelope
	if err := resp.ParseJSON(&env); err != nil {
		return envelope{}, resp.StatusCode, err
	}
	if resp.StatusCode == http.StatusUnauthorized || strings.HasPrefix(env.Code, sessionPrefix) {
		return env, resp.StatusCode, types.AuthError("compositedge"+path, types.ErrUnauthenticated, http.StatusUnauthorized, env.Description)
	}
	return env, resp.StatusCode, nil
}

func (a *Adapter) fetch(ctx context.Context, sess types.Session, op, path string, out any) error {
	env, code, err := a.call(ctx, sess, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if !env.success() {
		return types.BrokerError(op, code, env.Description)
	}
	if env.empty() {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return types.MalformedError(op, fmt.Sprintf("decode %s: %v", path, err))
	}
	return nil
}

func (a *Adapter) FetchPositions(ctx context.Context, sess types.Session) ([]types.Position, error) {
	var res positionsResult
	if err := a.fetch(ctx, sess, "compositedge.FetchPositions", pathPositions, &res); err != nil {
		return nil, err
	}
	out := make([]types.Position, 0, len(res.PositionList))
	for _, r := range res.PositionList {
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
	if err := a.fetch(ctx, sess, "compositedge.FetchOrderBook", pathOrders, &rows); err != nil {
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
	if err := a.fetch(ctx, sess, "compositedge.FetchTradeBook", pathTrades, &rows); err != nil {
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
	var res holdingsResult
	if err := a.fetch(ctx, sess, "compositedge.FetchHoldings", pathHoldings, &res); err != nil {
		return nil, err
	}
	out := make([]types.Holding, 0, len(res.RMSHoldings.Holdings))
	for isin, h := range res.RMSHoldings.Holdings {
		out = append(out, a.toHolding(isin, h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// instrumentID resolves the symbol to XTS's numeric instrument id and its
// exchange segment.
func (a *Adapter) instrumentID(ctx context.Context, symbol, exchange string) (int, string, error) {
	in, err := a.resolver.Resolve(ctx, symbol, exchange)
	if err != nil {
		return 0, "", err
	}
	id, err := strconv.Atoi(in.Token)
	if err != nil {
		return 0, "", types.ConfigError("compositedge.instrumentID", err, fmt.Sprintf("instrument token %q is not numeric", in.Token))
	}
	seg, err := segments.ToBroker(in.Exchange)
	if err != nil {
		return 0, "", err
	}
	return id, seg, nil
}

func (a *Adapter) SubmitOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	req = req.WithDefaults()
	id, seg, err := a.instrumentID(ctx, req.Symbol, req.Exchange)
	if err != nil {
		return types.OrderResult{}, err
	}
	p := placePayload{
		ExchangeSegment:       seg,
		ExchangeInstrumentID:  id,
		TimeInForce:           req.Duration,
		DisclosedQuantity:     req.DisclosedQuantity,
		OrderQuantity:         req.Quantity,
		LimitPrice:            req.Price.String(),
		StopPrice:             req.TriggerPrice.String(),
		OrderUniqueIdentifier: req.Strategy,
	}
	if p.ProductType, err = products.ToBroker(req.Product); err != nil {
		return types.OrderResult{}, err
	}
	if p.OrderType, err = priceTypes.ToBroker(req.PriceType); err != nil {
		return types.OrderResult{}, err
	}
	if p.OrderSide, err = actions.ToBroker(req.Action); err != nil {
		return types.OrderResult{}, err
	}

	env, code, err := a.call(ctx, sess, http.MethodPost, pathOrders, p)
	if err != nil {
		return types.OrderResult{}, err
	}
	if !env.success() {
		return types.Rejected(env.Description, code), nil
	}
	var ack orderAck
	if !env.empty() {
		if err := json.Unmarshal(env.Result, &ack); err != nil {
			return types.OrderResult{}, types.MalformedError("compositedge.SubmitOrder", err.Error())
		}
	}
	if ack.AppOrderID == "" {
		return types.OrderResult{}, &types.Error{Kind: types.KindBroker, Op: "compositedge.SubmitOrder", Code: http.StatusInternalServerError, Message: types.ErrNoOrderID.Error(), Err: types.ErrNoOrderID}
	}
	return types.Placed(string(ack.AppOrderID)), nil
}

func (a *Adapter) ModifyOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	req = req.WithDefaults()
	if _, _, err := a.instrumentID(ctx, req.Symbol, req.Exchange); err != nil {
		return types.OrderResult{}, err
	}
	p := modifyPayload{
		AppOrderID:                req.OrderID,
		ModifiedOrderQuantity:     req.Quantity,
		ModifiedDisclosedQuantity: req.DisclosedQuantity,
		ModifiedLimitPrice:        req.Price.String(),
		ModifiedStopPrice:         req.TriggerPrice.String(),
		ModifiedTimeInForce:       req.Duration,
		OrderUniqueIdentifier:     req.Strategy,
	}
	var err error
	if p.ModifiedProductType, err = products.ToBroker(req.Product); err != nil {
		return types.OrderResult{}, err
	}
	if p.ModifiedOrderType, err = priceTypes.ToBroker(req.PriceType); err != nil {
		return types.OrderResult{}, err
	}

	env, code, err := a.call(ctx, sess, http.MethodPut, pathOrders, p)
	if err != nil {
		return types.OrderResult{}, err
	}
	if !env.success() && !strings.HasPrefix(env.Code, successPrefix) {
		return types.Rejected(env.Description, code), nil
	}
	orderID := req.OrderID
	var ack orderAck
	if !env.empty() && json.Unmarshal(env.Result, &ack) == nil && ack.AppOrderID != "" {
		orderID = string(ack.AppOrderID)
	}
	return types.Placed(orderID), nil
}

// CancelOrder ignores the variety; XTS cancels by AppOrderID alone.
func (a *Adapter) CancelOrder(ctx context.Context, sess types.Session, req types.CancelRequest) (types.OrderResult, error) {
	path := pathOrders + "?appOrderID=" + url.QueryEscape(req.OrderID)
	env, code, err := a.call(ctx, sess, http.MethodDelete, path, nil)
	if err != nil {
		return types.OrderResult{}, err
	}
	if !env.success() {
		msg := env.Description
		if msg == "" {
			msg = "Failed to cancel order"
		}
		return types.Rejected(msg, code), nil
	}
	return types.Placed(req.OrderID), nil
}
