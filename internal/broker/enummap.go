package broker

import (
	"fmt"
	"strings"

	"order-gateway/internal/types"
)

// EnumMap is a bijection between a canonical enum and one broker's spelling
// of it. Broker-side lookups ignore case.
type EnumMap[C ~string] struct {
	name string
	to   map[C]string
	from map[string]C
}

// NewEnumMap builds the map from canonical to broker values. It panics when
// two canonical values share a broker spelling, since the table is static.
func NewEnumMap[C ~string](name string, pairs map[C]string) EnumMap[C] {
	m := EnumMap[C]{
		name: name,
		to:   make(map[C]string, len(pairs)),
		from: make(map[string]C, len(pairs)),
	}
	for c, b := range pairs {
		key := strings.ToLower(b)
		if prev, dup := m.from[key]; dup {
			panic(fmt.Sprintf("broker: %s maps %q and %q to %q", name, prev, c, b))
		}
		m.to[c] = b
		m.from[key] = c
	}
	return m
}

// ToBroker returns the broker spelling of c.
func (m EnumMap[C]) ToBroker(c C) (string, error) {
	if b, ok := m.to[c]; ok {
		return b, nil
	}
	return "", types.ConfigError(m.name+".ToBroker", types.ErrUnmappedValue, fmt.Sprintf("%s %q has no broker mapping", m.name, string(c)))
}

// FromBroker returns the canonical value for a broker spelling.
func (m EnumMap[C]) FromBroker(b string) (C, error) {
	if c, ok := m.from[strings.ToLower(b)]; ok {
		return c, nil
	}
	var zero C
	return zero, types.ConfigError(m.name+".FromBroker", types.ErrUnmappedValue, fmt.Sprintf("%s %q has no canonical mapping", m.name, b))
}

// CheckTotal reports the first canonical value in all that has no mapping.
func (m EnumMap[C]) CheckTotal(all []C) error {
	for _, c := range all {
		if _, err := m.ToBroker(c); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of mapped values.
func (m EnumMap[C]) Len() int { return len(m.to) }
