package broker

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"order-gateway/internal/types"
)

// Bool decodes a status flag that brokers send as a JSON bool, as the
// strings "true"/"false", or as null. Anything unparseable is false.
type Bool bool

func (f *Bool) UnmarshalJSON(b []byte) error {
	v, err := strconv.ParseBool(unquote(b))
	*f = Bool(err == nil && v)
	return nil
}

// Number decodes a decimal sent either quoted or bare. Empty strings and
// null decode to zero. Set records whether a value was actually present.
type Number struct {
	decimal.Decimal
	Set bool
}

func (n *Number) UnmarshalJSON(b []byte) error {
	s := unquote(b)
	if s == "" || s == "null" {
		n.Decimal, n.Set = decimal.Zero, false
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return err
	}
	n.Decimal, n.Set = d, true
	return nil
}

// Int truncates the number to an int.
func (n Number) Int() int { return int(n.IntPart()) }

// Quantity returns the number as a whole quantity. An absent or fractional
// value is a malformed payload: a missing quantity must never read as flat.
func (n Number) Quantity(op, key string) (int, error) {
	if !n.Set {
		return 0, types.MalformedError(op, fmt.Sprintf("missing %s", key))
	}
	if !n.IsInteger() {
		return 0, types.MalformedError(op, fmt.Sprintf("%s is not a whole quantity: %s", key, n.String()))
	}
	return n.Int(), nil
}

// Required reports a malformed payload when a string key is absent.
func Required(op, key, v string) error {
	if strings.TrimSpace(v) == "" {
		return types.MalformedError(op, fmt.Sprintf("missing %s", key))
	}
	return nil
}

// ID decodes an identifier sent as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s := unquote(b)
	if s == "null" {
		s = ""
	}
	*id = ID(s)
	return nil
}

func unquote(b []byte) string {
	return strings.Trim(string(bytes.TrimSpace(b)), `"`)
}
