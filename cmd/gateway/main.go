// Command gateway executes one order-gateway operation against the
// configured broker and prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"

	"order-gateway/internal/broker/registry"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/logger"
	"order-gateway/internal/types"
)

const usage = `usage: gateway [-config file] [-user name] [-apikey key] <command> [flags]

commands:
  place      place an order
  smart      move a position to -target with at most one order
  modify     modify an open order
  cancel     cancel one order
  cancelall  cancel every open order
  closeall   square off every open position
  position   print the net quantity of one position
  positions | orderbook | tradebook | holdings | snapshot
  stream     publish broker order updates until interrupted
`

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	user := flag.String("user", "", "account to act for (default broker.user)")
	apiKey := flag.String("apikey", os.Getenv("GATEWAY_API_KEY"), "gateway API key of the account")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := initializeSystem(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, *configPath)
	if err != nil {
		logger.ErrorWithErr(ctx, "Startup failed", err)
		os.Exit(1)
	}
	if *user == "" {
		*user = a.cfg.Broker.User
	}

	code := run(ctx, a, *user, *apiKey, flag.Arg(0), flag.Args()[1:])
	a.Close(context.Background())
	os.Exit(code)
}

// orderFlags are the flags shared by the order commands.
type orderFlags struct {
	fs        *flag.FlagSet
	strategy  *string
	symbol    *string
	exchange  *string
	action    *string
	quantity  *int
	priceType *string
	product   *string
	price     *string
	trigger   *string
	disclosed *int
	duration  *string
	orderID   *string
	target    *int
}

func newOrderFlags(name string) *orderFlags {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &orderFlags{
		fs:        fs,
		strategy:  fs.String("strategy", "cli", "strategy tag"),
		symbol:    fs.String("symbol", "", "canonical symbol"),
		exchange:  fs.String("exchange", "NSE", "exchange"),
		action:    fs.String("action", "", "BUY or SELL"),
		quantity:  fs.Int("qty", 0, "quantity"),
		priceType: fs.String("pricetype", "", "MARKET, LIMIT, SL or SL-M"),
		product:   fs.String("product", "", "MIS, CNC or NRML"),
		price:     fs.String("price", "0", "limit price"),
		trigger:   fs.String("trigger", "0", "trigger price"),
		disclosed: fs.Int("disclosed", 0, "disclosed quantity"),
		duration:  fs.String("duration", "", "DAY or IOC"),
		orderID:   fs.String("orderid", "", "order id"),
		target:    fs.Int("target", 0, "target position size (smart)"),
	}
}

func (f *orderFlags) request(apiKey string) (types.OrderRequest, error) {
	price, err := decimal.NewFromString(*f.price)
	if err != nil {
		return types.OrderRequest{}, fmt.Errorf("-price: %w", err)
	}
	trigger, err := decimal.NewFromString(*f.trigger)
	if err != nil {
		return types.OrderRequest{}, fmt.Errorf("-trigger: %w", err)
	}
	req := types.OrderRequest{
		APIKey:            apiKey,
		Strategy:          *f.strategy,
		OrderID:           *f.orderID,
		Symbol:            strings.ToUpper(*f.symbol),
		Exchange:          strings.ToUpper(*f.exchange),
		Action:            types.Action(strings.ToUpper(*f.action)),
		Quantity:          *f.quantity,
		PriceType:         types.PriceType(strings.ToUpper(*f.priceType)),
		Product:           types.Product(strings.ToUpper(*f.product)),
		Price:             price,
		TriggerPrice:      trigger,
		DisclosedQuantity: *f.disclosed,
		Duration:          strings.ToUpper(*f.duration),
	}
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == "target" {
			req.PositionSize = f.target
		}
	})
	return req, nil
}

func run(ctx context.Context, a *app, user, apiKey, cmd string, args []string) int {
	g := a.gateway
	switch cmd {
	case "place", "smart", "modify":
		f := newOrderFlags(cmd)
		if err := f.fs.Parse(args); err != nil {
			return 2
		}
		req, err := f.request(apiKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		var res types.OrderResult
		switch cmd {
		case "place":
			res, err = g.PlaceOrder(ctx, user, req)
		case "smart":
			res, err = g.PlaceSmartOrder(ctx, user, req)
		default:
			res, err = g.ModifyOrder(ctx, user, req)
		}
		return result(res, res.OK(), err)

	case "cancel":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		orderID := fs.String("orderid", "", "order id")
		strategy := fs.String("strategy", "cli", "strategy tag")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		res, err := g.CancelOrder(ctx, user, types.CancelRequest{APIKey: apiKey, Strategy: *strategy, OrderID: *orderID})
		return result(res, res.OK(), err)

	case "cancelall", "closeall":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		strategy := fs.String("strategy", "cli", "strategy tag")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		req := types.AccountRequest{APIKey: apiKey, Strategy: *strategy}
		if cmd == "cancelall" {
			res, err := g.CancelAllOrders(ctx, user, req)
			return result(res, res.Status == types.StatusSuccess, err)
		}
		res, err := g.CloseAllPositions(ctx, user, req)
		return result(res, res.OK(), err)

	case "position":
		fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
		symbol := fs.String("symbol", "", "canonical symbol")
		exchange := fs.String("exchange", "NSE", "exchange")
		product := fs.String("product", string(types.ProductIntraday), "MIS, CNC or NRML")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		qty, err := g.OpenPosition(ctx, user, types.PositionQuery{
			APIKey:   apiKey,
			Symbol:   strings.ToUpper(*symbol),
			Exchange: strings.ToUpper(*exchange),
			Product:  types.Product(strings.ToUpper(*product)),
		})
		return result(map[string]int{"quantity": qty}, true, err)

	case "positions":
		v, err := g.Positions(ctx, user, apiKey)
		return result(v, true, err)
	case "orderbook":
		v, err := g.OrderBook(ctx, user, apiKey)
		return result(v, true, err)
	case "tradebook":
		v, err := g.TradeBook(ctx, user, apiKey)
		return result(v, true, err)
	case "holdings":
		v, err := g.Holdings(ctx, user, apiKey)
		return result(v, true, err)
	case "snapshot":
		v, err := g.Snapshot(ctx, user, apiKey)
		return result(v, true, err)

	case "stream":
		return stream(ctx, a, user)

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

// result prints v, or the error envelope when v carries none, and maps the
// outcome to an exit code.
func result(v any, ok bool, err error) int {
	if err != nil {
		if _, isResult := v.(types.OrderResult); !isResult && !hasStatus(v) {
			v = types.Failed(err)
		}
		ok = false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	if !ok {
		return 1
	}
	return 0
}

func hasStatus(v any) bool {
	switch v.(type) {
	case types.SquareOffResult, types.CancelAllResult:
		return true
	}
	return false
}

// stream relays broker order updates as order_update events until the
// process is interrupted.
func stream(ctx context.Context, a *app, user string) int {
	if !a.cfg.Broker.Stream {
		fmt.Fprintln(os.Stderr, "order stream is disabled; set broker.stream in the config")
		return 2
	}
	sess, err := a.creds.Session(ctx, user)
	if err == nil && sess.AuthToken == "" {
		err = types.AuthError("stream", types.ErrUnauthenticated, 401, "Session not authenticated")
	}
	if err != nil {
		return result(nil, false, err)
	}
	s, err := registry.OpenStream(a.cfg.Broker.Name, sess, a.resolver)
	if err != nil {
		return result(nil, false, err)
	}
	err = s.Start(ctx, func(ctx context.Context, u interfaces.OrderUpdate) {
		a.events.Emit(interfaces.Event{Type: "order_update", User: u.User, Broker: u.Broker, Payload: u})
	})
	if err != nil {
		return result(nil, false, err)
	}
	<-ctx.Done()
	s.Stop(context.Background())
	if errors.Is(ctx.Err(), context.Canceled) {
		return 0
	}
	return 1
}
