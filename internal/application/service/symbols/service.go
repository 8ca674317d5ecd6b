package symbols

import (
	"context"
	"errors"

	domain "main/internal/domain/entity/symbols"
	interfaces "main/internal/domain/interfaces"
)

var ErrNoPairs = errors.New("symbol set is empty")

// Service maintains the fixed trading-pair registry.
type Service struct {
	repo interfaces.SymbolsRepository
}

func NewService(repo interfaces.SymbolsRepository) *Service {
	return &Service{repo: repo}
}

// Sync persists the configured symbol set, replacing stale registry rows.
func (s *Service) Sync(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return ErrNoPairs
	}
	pairs := make([]domain.Pair, 0, len(symbols))
	for _, symbol := range symbols {
		pair, err := domain.NewPair(symbol)
		if err != nil {
			return err
		}
		pairs = append(pairs, *pair)
	}
	return s.repo.SyncPairs(ctx, pairs)
}

func (s *Service) List(ctx context.Context) ([]domain.Pair, error) {
	return s.repo.ListPairs(ctx)
}

func (s *Service) Close() {
	s.repo.Close()
}
