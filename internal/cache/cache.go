package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_shop/internal/domain"
)

type CartCache interface {
	Get(ctx context.Context, userID int64) (*domain.Cart, error)
	Set(ctx context.Context, userID int64, cart *domain.Cart) error
	Delete(ctx context.Context, userID int64) error
}

var ErrCacheMiss = errors.New("cache miss")

// NopCache always misses. It is used when no Redis address is configured.
type NopCache struct{}

func (NopCache) Get(context.Context, int64) (*domain.Cart, error) { return nil, ErrCacheMiss }

func (NopCache) Set(context.Context, int64, *domain.Cart) error { return nil }

func (NopCache) Delete(context.Context, int64) error { return nil }
