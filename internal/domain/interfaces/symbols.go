package interfaces

import (
	"context"

	symbols "main/internal/domain/entity/symbols"
)

type SymbolsRepository interface {
	EnsureSchema(ctx context.Context) error
	SyncPairs(ctx context.Context, pairs []symbols.Pair) error
	ListPairs(ctx context.Context) ([]symbols.Pair, error)
	Close()
}
