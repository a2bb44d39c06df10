package instruments

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"order-gateway/internal/logger"
	"order-gateway/internal/types"
)

// LoadCSV reads an instrument master with the header
// symbol,exchange,token,brsymbol,lotsize into m. Rows without a symbol or
// token are skipped.
func LoadCSV(ctx context.Context, r io.Reader, m *Mapper) (int, error) {
	var rows []types.Instrument
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return 0, fmt.Errorf("parse instrument master: %w", err)
	}

	n := 0
	for _, in := range rows {
		if in.Symbol == "" || in.Token == "" || in.Exchange == "" {
			continue
		}
		if in.BrokerSymbol == "" {
			in.BrokerSymbol = in.Symbol
		}
		m.Add(in)
		n++
	}
	logger.Info(ctx, "Instrument master loaded", "rows", len(rows), "loaded", n)
	return n, nil
}

// LoadFile opens path and loads it with LoadCSV.
func LoadFile(ctx context.Context, path string) (*Mapper, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open instrument master: %w", err)
	}
	defer f.Close()

	m := NewMapper()
	if _, err := LoadCSV(ctx, f, m); err != nil {
		return nil, err
	}
	return m, nil
}
