package zerodha

import (
	"context"
	"errors"
	"net/http"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	"order-gateway/internal/broker"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

// Name is the registry identifier of this adapter.
const Name = "zerodha"

// Adapter implements interfaces.BrokerAdapter over the Kite Connect REST
// API. It holds no per-user state; a Kite client is built for each call
// from the session.
type Adapter struct {
	baseURL    string
	httpClient *http.Client
	resolver   interfaces.InstrumentResolver
}

var _ interfaces.BrokerAdapter = (*Adapter)(nil)

func New(p broker.Params) (*Adapter, error) {
	if p.Resolver == nil {
		return nil, types.ConfigError("zerodha.New", nil, "instrument resolver is required")
	}
	hc := p.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: p.Timeout}
	}
	return &Adapter{baseURL: p.BaseURL, httpClient: hc, resolver: p.Resolver}, nil
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) client(ctx context.Context, sess types.Session) (*kiteconnect.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.TransportError("zerodha", err)
	}
	if sess.AuthToken == "" || sess.APIKey == "" {
		return nil, types.AuthError("zerodha", types.ErrUnauthenticated, http.StatusUnauthorized, "missing API key/access token")
	}
	kc := kiteconnect.New(sess.APIKey)
	kc.SetAccessToken(sess.AuthToken)
	kc.SetHTTPClient(a.httpClient)
	if a.baseURL != "" {
		kc.SetBaseURI(a.baseURL)
	}
	return kc, nil
}

// kiteError classifies a Kite client error for read operations.
func kiteError(op string, err error) error {
	var kerr kiteconnect.Error
	if !errors.As(err, &kerr) {
		return types.TransportError(op, err)
	}
	switch kerr.ErrorType {
	case "NetworkException":
		return types.TransportError(op, err)
	case "TokenException":
		return types.AuthError(op, types.ErrUnauthenticated, http.StatusUnauthorized, kerr.Message)
	case "DataException":
		return types.MalformedError(op, kerr.Message)
	default:
		return types.BrokerError(op, kerr.Code, kerr.Message)
	}
}

// rejection turns a Kite error on an order command into a result. Only
// network failures and expired tokens stay errors.
func rejection(op string, err error) (types.OrderResult, error) {
	var kerr kiteconnect.Error
	if !errors.As(err, &kerr) {
		return types.OrderResult{}, types.TransportError(op, err)
	}
	switch kerr.ErrorType {
	case "NetworkException":
		return types.OrderResult{}, types.TransportError(op, err)
	case "TokenException":
		return types.OrderResult{}, types.AuthError(op, types.ErrUnauthenticated, http.StatusUnauthorized, kerr.Message)
	}
	return types.Rejected(kerr.Message, kerr.Code), nil
}

func (a *Adapter) FetchPositions(ctx context.Context, sess types.Session) ([]types.Position, error) {
	kc, err := a.client(ctx, sess)
	if err != nil {
		return nil, err
	}
	resp, err := kc.GetPositions()
	if err != nil {
		return nil, kiteError("zerodha.FetchPositions", err)
	}
	out := make([]types.Position, 0, len(resp.Net))
	for _, p := range resp.Net {
		pos, err := a.position(p)
		if err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, nil
}

func (a *Adapter) FetchOrderBook(ctx context.Context, sess types.Session) ([]types.Order, error) {
	kc, err := a.client(ctx, sess)
	if err != nil {
		return nil, err
	}
	orders, err := kc.GetOrders()
	if err != nil {
		return nil, kiteError("zerodha.FetchOrderBook", err)
	}
	out := make([]types.Order, 0, len(orders))
	for _, o := range orders {
		ord, err := a.order(o)
		if err != nil {
			return nil, err
		}
		out = append(out, ord)
	}
	return out, nil
}

func (a *Adapter) FetchTradeBook(ctx context.Context, sess types.Session) ([]types.Trade, error) {
	kc, err := a.client(ctx, sess)
	if err != nil {
		return nil, err
	}
	trades, err := kc.GetTrades()
	if err != nil {
		return nil, kiteError("zerodha.FetchTradeBook", err)
	}
	out := make([]types.Trade, 0, len(trades))
	for _, t := range trades {
		tr, err := a.trade(t)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, nil
}

func (a *Adapter) FetchHoldings(ctx context.Context, sess types.Session) ([]types.Holding, error) {
	kc, err := a.client(ctx, sess)
	if err != nil {
		return nil, err
	}
	holdings, err := kc.GetHoldings()
	if err != nil {
		return nil, kiteError("zerodha.FetchHoldings", err)
	}
	out := make([]types.Holding, 0, len(holdings))
	for _, h := range holdings {
		hold, err := a.holding(h)
		if err != nil {
			return nil, err
		}
		out = append(out, hold)
	}
	return out, nil
}

// orderParams resolves the instrument and translates req into Kite's form.
func (a *Adapter) orderParams(ctx context.Context, req types.OrderRequest) (string, kiteconnect.OrderParams, error) {
	req = req.WithDefaults()

	in, err := a.resolver.Resolve(ctx, req.Symbol, req.Exchange)
	if err != nil {
		return "", kiteconnect.OrderParams{}, err
	}
	variety, err := varieties.ToBroker(req.Variety)
	if err != nil {
		return "", kiteconnect.OrderParams{}, err
	}
	product, err := products.ToBroker(req.Product)
	if err != nil {
		return "", kiteconnect.OrderParams{}, err
	}
	orderType, err := priceTypes.ToBroker(req.PriceType)
	if err != nil {
		return "", kiteconnect.OrderParams{}, err
	}

	params := kiteconnect.OrderParams{
		Exchange:          in.Exchange,
		Tradingsymbol:     in.BrokerSymbol,
		Validity:          req.Duration,
		Product:           product,
		OrderType:         orderType,
		Quantity:          req.Quantity,
		DisclosedQuantity: req.DisclosedQuantity,
		Price:             req.Price.InexactFloat64(),
		TriggerPrice:      req.TriggerPrice.InexactFloat64(),
		Squareoff:         req.SquareOff.InexactFloat64(),
		Stoploss:          req.StopLoss.InexactFloat64(),
		Tag:               tag(req.Strategy),
	}
	if req.Action != "" {
		side, err := actions.ToBroker(req.Action)
		if err != nil {
			return "", kiteconnect.OrderParams{}, err
		}
		params.TransactionType = side
	}
	return variety, params, nil
}

// tag trims a strategy name to Kite's 20 character tag limit.
func tag(strategy string) string {
	if len(strategy) > 20 {
		return strategy[:20]
	}
	return strategy
}

func (a *Adapter) SubmitOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	kc, err := a.client(ctx, sess)
	if err != nil {
		return types.OrderResult{}, err
	}
	variety, params, err := a.orderParams(ctx, req)
	if err != nil {
		return types.OrderResult{}, err
	}
	resp, err := kc.PlaceOrder(variety, params)
	if err != nil {
		return rejection("zerodha.SubmitOrder", err)
	}
	if resp.OrderID == "" {
		return types.OrderResult{}, &types.Error{Kind: types.KindBroker, Op: "zerodha.SubmitOrder", Code: http.StatusInternalServerError, Err: types.ErrNoOrderID, Message: types.ErrNoOrderID.Error()}
	}
	return types.Placed(resp.OrderID), nil
}

func (a *Adapter) ModifyOrder(ctx context.Context, sess types.Session, req types.OrderRequest) (types.OrderResult, error) {
	kc, err := a.client(ctx, sess)
	if err != nil {
		return types.OrderResult{}, err
	}
	variety, params, err := a.orderParams(ctx, req)
	if err != nil {
		return types.OrderResult{}, err
	}
	// Kite rejects a modify that names the instrument or side.
	params.Exchange, params.Tradingsymbol, params.TransactionType, params.Tag = "", "", "", ""

	resp, err := kc.ModifyOrder(variety, req.OrderID, params)
	if err != nil {
		return rejection("zerodha.ModifyOrder", err)
	}
	id := resp.OrderID
	if id == "" {
		id = req.OrderID
	}
	return types.Placed(id), nil
}

func (a *Adapter) CancelOrder(ctx context.Context, sess types.Session, req types.CancelRequest) (types.OrderResult, error) {
	variety, err := varieties.ToBroker(req.VarietyOrDefault())
	if err != nil {
		return types.OrderResult{}, err
	}
	kc, err := a.client(ctx, sess)
	if err != nil {
		return types.OrderResult{}, err
	}
	resp, err := kc.CancelOrder(variety, req.OrderID, nil)
	if err != nil {
		return rejection("zerodha.CancelOrder", err)
	}
	id := resp.OrderID
	if id == "" {
		id = req.OrderID
	}
	return types.Placed(id), nil
}
