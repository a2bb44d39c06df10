package gateway

import (
	"context"

	"golang.org/x/sync/errgroup"

	"order-gateway/internal/books"
	"order-gateway/internal/logger"
	"order-gateway/internal/types"
)

func (s *Service) Positions(ctx context.Context, user, apiKey string) ([]types.Position, error) {
	ctx, span := logger.StartSpan(ctx, "gateway.Positions")
	defer span.End()

	sess, err := s.authorize(ctx, user, apiKey)
	if err != nil {
		return nil, err
	}
	return s.adapter.FetchPositions(ctx, sess)
}

func (s *Service) OrderBook(ctx context.Context, user, apiKey string) (books.OrderBook, error) {
	ctx, span := logger.StartSpan(ctx, "gateway.OrderBook")
	defer span.End()

	sess, err := s.authorize(ctx, user, apiKey)
	if err != nil {
		return books.OrderBook{}, err
	}
	orders, err := s.adapter.FetchOrderBook(ctx, sess)
	if err != nil {
		return books.OrderBook{}, err
	}
	return books.NewOrderBook(orders), nil
}

func (s *Service) TradeBook(ctx context.Context, user, apiKey string) ([]types.Trade, error) {
	ctx, span := logger.StartSpan(ctx, "gateway.TradeBook")
	defer span.End()

	sess, err := s.authorize(ctx, user, apiKey)
	if err != nil {
		return nil, err
	}
	return s.adapter.FetchTradeBook(ctx, sess)
}

func (s *Service) Holdings(ctx context.Context, user, apiKey string) (books.Portfolio, error) {
	ctx, span := logger.StartSpan(ctx, "gateway.Holdings")
	defer span.End()

	sess, err := s.authorize(ctx, user, apiKey)
	if err != nil {
		return books.Portfolio{}, err
	}
	holdings, err := s.adapter.FetchHoldings(ctx, sess)
	if err != nil {
		return books.Portfolio{}, err
	}
	return books.NewPortfolio(holdings), nil
}

// Snapshot fetches all four books concurrently. Any failure fails the
// snapshot.
func (s *Service) Snapshot(ctx context.Context, user, apiKey string) (books.Snapshot, error) {
	ctx, span := logger.StartSpan(ctx, "gateway.Snapshot")
	defer span.End()

	sess, err := s.authorize(ctx, user, apiKey)
	if err != nil {
		return books.Snapshot{}, err
	}

	var (
		positions []types.Position
		orders    []types.Order
		trades    []types.Trade
		holdings  []types.Holding
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		positions, err = s.adapter.FetchPositions(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.adapter.FetchOrderBook(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		trades, err = s.adapter.FetchTradeBook(gctx, sess)
		return err
	})
	g.Go(func() (err error) {
		holdings, err = s.adapter.FetchHoldings(gctx, sess)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.ErrorWithErr(ctx, "Snapshot failed", err, "user", user)
		return books.Snapshot{}, err
	}
	if positions == nil {
		positions = []types.Position{}
	}
	if trades == nil {
		trades = []types.Trade{}
	}
	return books.Snapshot{
		Positions: positions,
		OrderBook: books.NewOrderBook(orders),
		Trades:    trades,
		Portfolio: books.NewPortfolio(holdings),
	}, nil
}
