package symbols

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "main/internal/domain/entity/symbols"
	"main/internal/domain/interfaces"
	"main/internal/infrastructure/symbols/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/gorm"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ interfaces.SymbolsRepository = (*Repository)(nil)

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS pairs (
			uid        UUID PRIMARY KEY,
			symbol     VARCHAR(32) NOT NULL UNIQUE,
			base       VARCHAR(16) NOT NULL,
			quote      VARCHAR(16) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMPTZ
		)`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure pairs schema: %w", err)
	}
	return nil
}

// SyncPairs upserts the configured pairs and soft-deletes the rest.
func (r *Repository) SyncPairs(ctx context.Context, pairs []domain.Pair) error {
	if len(pairs) == 0 {
		return errors.New("no pairs to sync")
	}
	now := time.Now().UTC()

	const upsert = `
		INSERT INTO pairs (uid, symbol, base, quote, created_at, updated_at, deleted_at)
		VALUES ($1,$2,$3,$4,$5,$6,NULL)
		ON CONFLICT (symbol) DO UPDATE
		SET base=EXCLUDED.base,
			quote=EXCLUDED.quote,
			updated_at=EXCLUDED.updated_at,
			deleted_at=NULL`

	symbols := make([]string, 0, len(pairs))
	for i := range pairs {
		model := toModel(&pairs[i], now)
		if _, err := r.pool.Exec(ctx, upsert,
			model.UID,
			model.Symbol,
			model.Base,
			model.Quote,
			model.CreatedAt,
			model.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert pair %s: %w", model.Symbol, err)
		}
		symbols = append(symbols, model.Symbol)
	}

	const retire = `
		UPDATE pairs
		SET deleted_at=$1, updated_at=$1
		WHERE deleted_at IS NULL AND NOT (symbol = ANY($2))`
	if _, err := r.pool.Exec(ctx, retire, now, symbols); err != nil {
		return fmt.Errorf("retire stale pairs: %w", err)
	}
	return nil
}

func (r *Repository) ListPairs(ctx context.Context) ([]domain.Pair, error) {
	const query = `
		SELECT uid, symbol, base, quote, created_at, updated_at, deleted_at
		FROM pairs
		WHERE deleted_at IS NULL
		ORDER BY symbol`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []domain.Pair
	for rows.Next() {
		var model models.PairModel
		var deletedAt *time.Time
		if err := rows.Scan(
			&model.UID,
			&model.Symbol,
			&model.Base,
			&model.Quote,
			&model.CreatedAt,
			&model.UpdatedAt,
			&deletedAt,
		); err != nil {
			return nil, err
		}
		if deletedAt != nil {
			model.DeletedAt = gorm.DeletedAt{Time: *deletedAt, Valid: true}
		}
		pairs = append(pairs, toDomain(&model))
	}
	return pairs, rows.Err()
}

func toModel(pair *domain.Pair, now time.Time) *models.PairModel {
	model := &models.PairModel{
		UID:       pair.UID,
		Symbol:    pair.Symbol,
		Base:      pair.Base,
		Quote:     pair.Quote,
		CreatedAt: pair.CreatedAt,
		UpdatedAt: now,
	}
	if model.UID == uuid.Nil {
		model.UID = uuid.New()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	return model
}

func toDomain(model *models.PairModel) domain.Pair {
	pair := domain.Pair{
		UID:       model.UID,
		Symbol:    model.Symbol,
		Base:      model.Base,
		Quote:     model.Quote,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if model.DeletedAt.Valid {
		deletedAt := model.DeletedAt.Time
		pair.DeletedAt = &deletedAt
	}
	return pair
}
