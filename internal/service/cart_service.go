package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/go_shop/internal/cache"
	"github.com/fjod/go_shop/internal/domain"
	"github.com/fjod/go_shop/internal/repository"
	"github.com/fjod/go_shop/pkg/logger"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	users   repository.UserRepository
	catalog repository.ProductRepository
	repo    repository.CartRepository
	cache   cache.CartCache
	sfg     singleflight.Group // collapses concurrent cache misses per user
	locks   *keyedMutex[int64]
	log     zerolog.Logger
	now     func() time.Time
}

func NewCartService(
	users repository.UserRepository,
	catalog repository.ProductRepository,
	repo repository.CartRepository,
	cartCache cache.CartCache,
	log zerolog.Logger,
) *CartService {
	if cartCache == nil {
		cartCache = cache.NopCache{}
	}
	return &CartService{
		users:   users,
		catalog: catalog,
		repo:    repo,
		cache:   cartCache,
		locks:   newKeyedMutex[int64](),
		log:     log.With().Str("component", "cart_service").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreateCart returns the user's cart, persisting an empty one on first access.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.FromContext(ctx, s.log).Warn().Err(err).Int64("user_id", userID).Msg("cart cache get failed")
		}

		// Filling the cache under the user lock keeps a concurrent mutation from being overwritten by a stale read.
		unlock := s.locks.Lock(userID)
		defer unlock()

		cart, err = s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, userID, cart); err != nil {
			logger.FromContext(ctx, s.log).Warn().Err(err).Int64("user_id", userID).Msg("cart cache set failed")
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart).Clone(), nil
}

func (s *CartService) loadOrCreate(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrCartNotFound) {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	if err := s.repo.CreateCart(ctx, domain.NewCart(userID, s.now())); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return s.readCart(ctx, userID)
}

// AddItem merges quantity into the line for productID, appending a new line if there is none.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityTooLarge
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	unlock := s.lockCart(userID)
	defer unlock()

	// Every writer for this user holds the lock, so the merged quantity cannot change before AddLine.
	current, err := s.repo.GetCart(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
	case err != nil:
		return nil, s.mutationError(ctx, userID, "load cart", err)
	default:
		if existing, ok := current.LineForProduct(productID); ok && existing.Quantity+quantity > domain.MaxLineQuantity {
			return nil, domain.ErrQuantityTooLarge
		}
	}

	line := domain.CartLine{
		ID:        uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
		AddedAt:   s.now(),
	}
	if err := s.repo.AddLine(ctx, userID, line); err != nil {
		logger.FromContext(ctx, s.log).Error().Err(err).Int64("user_id", userID).Msg("repo add line failed")
		return nil, fmt.Errorf("add cart line: %w", err)
	}

	return s.readCart(ctx, userID)
}

// UpdateItem replaces the line quantity. A quantity of zero or less removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID int64, lineID string, quantity int) (*domain.Cart, error) {
	if quantity > domain.MaxLineQuantity {
		return nil, domain.ErrQuantityTooLarge
	}
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	unlock := s.lockCart(userID)
	defer unlock()

	var err error
	if quantity <= 0 {
		err = s.repo.RemoveLine(ctx, userID, lineID)
	} else {
		err = s.repo.SetLineQuantity(ctx, userID, lineID, quantity)
	}
	if err != nil {
		return nil, s.mutationError(ctx, userID, "update cart line", err)
	}

	return s.readCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID int64, lineID string) (*domain.Cart, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	unlock := s.lockCart(userID)
	defer unlock()

	if err := s.repo.RemoveLine(ctx, userID, lineID); err != nil {
		return nil, s.mutationError(ctx, userID, "remove cart line", err)
	}

	return s.readCart(ctx, userID)
}

// Clear empties the cart. Clearing an empty or missing cart succeeds.
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return err
	}

	unlock := s.lockCart(userID)
	defer unlock()

	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return s.mutationError(ctx, userID, "clear cart", err)
	}
	return nil
}

// lockCart takes the user's cart lock. The returned func invalidates the cached cart, then releases the lock.
func (s *CartService) lockCart(userID int64) func() {
	unlock := s.locks.Lock(userID)
	return func() {
		s.invalidateCache(userID)
		unlock()
	}
}

func (s *CartService) readCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) mutationError(ctx context.Context, userID int64, op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	logger.FromContext(ctx, s.log).Error().Err(err).Int64("user_id", userID).Msg(op + " failed")
	return fmt.Errorf("%s: %w", op, err)
}

func (s *CartService) invalidateCache(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("cart cache invalidate failed")
	}
}
