package cache

import (
	"context"
	"time"

	"github.com/254Kioko/chemist-mgs/internal/domain"
)

// CatalogCache holds the medicine list between inventory writes.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]domain.Medicine, bool, error)
	Set(ctx context.Context, key string, value []domain.Medicine, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) ([]domain.Medicine, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ []domain.Medicine, _ time.Duration) error {
	return nil
}

func (NoopCatalogCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
