package instruments

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"order-gateway/internal/interfaces"
	"order-gateway/internal/types"
)

// Mapper is the bidirectional symbol/token index for one broker's
// instrument master. Keys are scoped by exchange.
type Mapper struct {
	bySymbol map[string]types.Instrument
	byToken  map[string]types.Instrument
	mu       sync.RWMutex
}

var _ interfaces.InstrumentResolver = (*Mapper)(nil)

func NewMapper() *Mapper {
	return &Mapper{
		bySymbol: make(map[string]types.Instrument),
		byToken:  make(map[string]types.Instrument),
	}
}

func key(exchange, v string) string {
	return strings.ToUpper(exchange) + ":" + strings.ToUpper(v)
}

// Add registers an instrument, replacing any earlier entry for the same
// symbol or token on that exchange.
func (m *Mapper) Add(in types.Instrument) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bySymbol[key(in.Exchange, in.Symbol)] = in
	m.byToken[key(in.Exchange, in.Token)] = in
}

// Resolve returns the instrument for a canonical symbol. An unknown symbol
// is an input error.
func (m *Mapper) Resolve(_ context.Context, symbol, exchange string) (types.Instrument, error) {
	m.mu.RLock()
	in, ok := m.bySymbol[key(exchange, symbol)]
	m.mu.RUnlock()
	if !ok {
		return types.Instrument{}, types.InputError("instruments.Resolve", types.ErrUnresolvedInstrument,
			fmt.Sprintf("instrument token not found for %s on %s", symbol, exchange))
	}
	return in, nil
}

// ByToken looks an instrument up by broker token.
func (m *Mapper) ByToken(exchange, token string) (types.Instrument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	in, ok := m.byToken[key(exchange, token)]
	return in, ok
}

// ByBrokerSymbol finds an instrument by the broker's own trading symbol.
func (m *Mapper) ByBrokerSymbol(exchange, brsymbol string) (types.Instrument, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, in := range m.bySymbol {
		if strings.EqualFold(in.Exchange, exchange) && strings.EqualFold(in.BrokerSymbol, brsymbol) {
			return in, true
		}
	}
	return types.Instrument{}, false
}

// Len returns the number of registered symbols.
func (m *Mapper) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bySymbol)
}

// Reset removes all mappings
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bySymbol = make(map[string]types.Instrument)
	m.byToken = make(map[string]types.Instrument)
}
