package broker

import (
	"errors"
	"testing"

	"order-gateway/internal/types"
)

var testProducts = NewEnumMap("product", map[types.Product]string{
	types.ProductIntraday: "INTRADAY",
	types.ProductDelivery: "DELIVERY",
	types.ProductMargin:   "CARRYFORWARD",
})

func TestEnumMapRoundTrip(t *testing.T) {
	for _, p := range types.Products {
		b, err := testProducts.ToBroker(p)
		if err != nil {
			t.Fatalf("ToBroker(%s): %v", p, err)
		}
		back, err := testProducts.FromBroker(b)
		if err != nil {
			t.Fatalf("FromBroker(%s): %v", b, err)
		}
		if back != p {
			t.Errorf("round trip %s -> %s -> %s", p, b, back)
		}
	}
}

func TestEnumMapIgnoresBrokerCase(t *testing.T) {
	p, err := testProducts.FromBroker("delivery")
	if err != nil {
		t.Fatalf("FromBroker: %v", err)
	}
	if p != types.ProductDelivery {
		t.Errorf("got %s, want CNC", p)
	}
}

func TestEnumMapUnmappedIsConfigError(t *testing.T) {
	_, err := testProducts.FromBroker("MTF")
	if !errors.Is(err, types.ErrUnmappedValue) {
		t.Fatalf("expected ErrUnmappedValue, got %v", err)
	}
	if types.KindOf(err) != types.KindConfig {
		t.Errorf("kind = %s, want config", types.KindOf(err))
	}

	partial := NewEnumMap("product", map[types.Product]string{types.ProductIntraday: "MIS"})
	if err := partial.CheckTotal(types.Products); !errors.Is(err, types.ErrUnmappedValue) {
		t.Errorf("CheckTotal on partial map = %v, want ErrUnmappedValue", err)
	}
	if err := testProducts.CheckTotal(types.Products); err != nil {
		t.Errorf("CheckTotal on full map: %v", err)
	}
}

func TestNewEnumMapPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non-injective map")
		}
	}()
	NewEnumMap("product", map[types.Product]string{
		types.ProductIntraday: "X",
		types.ProductDelivery: "x",
	})
}
