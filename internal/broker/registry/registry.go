// Package registry selects a broker adapter by name. The table is static:
// adding a broker means adding a package and one line here.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"order-gateway/internal/broker"
	"order-gateway/internal/broker/angel"
	"order-gateway/internal/broker/brokerobs"
	"order-gateway/internal/broker/compositedge"
	"order-gateway/internal/broker/zerodha"
	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

// Factory builds an adapter from startup parameters.
type Factory func(broker.Params) (interfaces.BrokerAdapter, error)

// StreamFactory builds an order update stream for one session.
type StreamFactory func(types.Session, interfaces.InstrumentResolver) interfaces.OrderStream

var factories = map[string]Factory{
	zerodha.Name:      func(p broker.Params) (interfaces.BrokerAdapter, error) { return zerodha.New(p) },
	angel.Name:        func(p broker.Params) (interfaces.BrokerAdapter, error) { return angel.New(p) },
	compositedge.Name: func(p broker.Params) (interfaces.BrokerAdapter, error) { return compositedge.New(p) },
}

var streams = map[string]StreamFactory{
	zerodha.Name: zerodha.NewOrderStream,
}

// Open builds the named adapter wrapped with logging and tracing.
func Open(name string, p broker.Params) (interfaces.BrokerAdapter, error) {
	f, ok := factories[strings.ToLower(name)]
	if !ok {
		return nil, types.ConfigError("registry.Open", types.ErrUnknownBroker,
			fmt.Sprintf("unknown broker %q (supported: %s)", name, strings.Join(Names(), ", ")))
	}
	a, err := f(p)
	if err != nil {
		return nil, err
	}
	return brokerobs.Wrap(a), nil
}

// OpenStream builds the named broker's order update stream.
func OpenStream(name string, sess types.Session, res interfaces.InstrumentResolver) (interfaces.OrderStream, error) {
	f, ok := streams[strings.ToLower(name)]
	if !ok {
		return nil, types.ConfigError("registry.OpenStream", types.ErrUnknownBroker,
			fmt.Sprintf("broker %q has no order stream", name))
	}
	return brokerobs.WrapStream(name, f(sess, res)), nil
}

// Names lists the registered brokers in order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
