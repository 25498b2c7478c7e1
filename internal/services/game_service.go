package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/codyseavey/gameradar/internal/logging"
	"github.com/codyseavey/gameradar/internal/metrics"
	"github.com/codyseavey/gameradar/internal/models"
)

// ErrNotImplemented marks operations that exist in the API but have no
// implementation yet. It is distinct from an empty successful result.
var ErrNotImplemented = errors.New("not implemented")

const defaultStoreTimeout = 10 * time.Second

// GameService aggregates prices across the configured storefronts
type GameService struct {
	stores       []Store
	location     CountryResolver
	storeTimeout time.Duration
}

// NewGameService creates the aggregator. The first store answers detail
// lookups; all stores take part in searches.
func NewGameService(location CountryResolver, storeTimeout time.Duration, stores ...Store) *GameService {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &GameService{
		stores:       stores,
		location:     location,
		storeTimeout: storeTimeout,
	}
}

// SearchGames searches every store for query. A blank countryCode is resolved
// from the caller's location. Stores that fail are left out of the result.
func (s *GameService) SearchGames(ctx context.Context, query, countryCode string) ([]models.GamePrice, error) {
	logger := logging.FromContext(ctx)

	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		countryCode = s.resolveCountry(ctx)
		logger.Debug("using country code from location service", "country", countryCode)
	}

	// Each store writes only its own slot, so order follows configuration
	perStore := make([][]models.GamePrice, len(s.stores))
	var wg sync.WaitGroup
	for i, store := range s.stores {
		wg.Add(1)
		go func(i int, store Store) {
			defer wg.Done()
			prices, err := s.searchStore(ctx, store, query, countryCode)
			if err != nil {
				metrics.StoreErrorsTotal.WithLabelValues(store.Name()).Inc()
				logger.Warn("store search failed, skipping store", "store", store.Name(), "query", query, "error", err)
				return
			}
			perStore[i] = prices
		}(i, store)
	}
	wg.Wait()

	results := []models.GamePrice{}
	for _, prices := range perStore {
		results = append(results, prices...)
	}

	logger.Info("game search completed", "query", query, "country", countryCode, "results", len(results))
	return results, nil
}

// GetGameDetails returns the price record for a storefront-scoped id
func (s *GameService) GetGameDetails(ctx context.Context, id string) ([]models.GamePrice, error) {
	if len(s.stores) == 0 {
		return []models.GamePrice{}, nil
	}

	store := s.stores[0]
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	prices, err := store.GetDetails(storeCtx, id)
	if err != nil {
		// Our own store deadline means the upstream was too slow: no data,
		// not a failed request. Only the caller's context ending is an error.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			metrics.StoreErrorsTotal.WithLabelValues(store.Name()).Inc()
			logging.FromContext(ctx).Warn("store details timed out, returning no results",
				"store", store.Name(), "game_id", id, "timeout", s.storeTimeout)
			return []models.GamePrice{}, nil
		}
		return nil, fmt.Errorf("%s details for %s: %w", store.Name(), id, err)
	}
	if prices == nil {
		prices = []models.GamePrice{}
	}
	return prices, nil
}

// GetPriceHistory has no data source yet and always reports ErrNotImplemented
func (s *GameService) GetPriceHistory(_ context.Context, id string) ([]models.PriceHistory, error) {
	return nil, fmt.Errorf("price history for %s: %w", id, ErrNotImplemented)
}

func (s *GameService) resolveCountry(ctx context.Context) string {
	if s.location == nil {
		return FallbackCountryCode
	}
	return s.location.GetCountryCode(ctx)
}

// searchStore runs one store under its own timeout and turns a panic into an
// error so one broken store cannot take the request down.
func (s *GameService) searchStore(ctx context.Context, store Store, query, countryCode string) (prices []models.GamePrice, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			prices = nil
			err = fmt.Errorf("store %s panicked: %v", store.Name(), r)
		}
	}()

	return store.Search(ctx, query, countryCode)
}
