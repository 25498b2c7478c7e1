package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/gameradar/internal/cache"
	"github.com/codyseavey/gameradar/internal/logging"
	"github.com/codyseavey/gameradar/internal/models"
)

const (
	defaultSteamBaseURL  = "https://store.steampowered.com"
	defaultSteamTimeout  = 10 * time.Second
	defaultSteamCacheTTL = 1 * time.Hour

	steamSearchKeyPrefix  = "steam_search_"
	steamDetailsKeyPrefix = "steam_appdetails_"
)

// SteamConfig configures SteamService. Zero values get sensible defaults.
type SteamConfig struct {
	BaseURL        string
	Language       string
	DetailsCountry string
	UserAgent      string
	Timeout        time.Duration
	CacheTTL       time.Duration
}

// SteamService is the Steam storefront client. It reads and writes the
// price cache around the storesearch and appdetails endpoints.
type SteamService struct {
	baseURL        string
	language       string
	detailsCountry string
	userAgent      string
	cacheTTL       time.Duration
	httpClient     *http.Client
	cache          cache.Cache
}

// storeSearchResponse is the storesearch payload
type storeSearchResponse struct {
	Total int               `json:"total"`
	Items []storeSearchItem `json:"items"`
}

type storeSearchItem struct {
	Type      string            `json:"type"` // "app", "sub", "bundle"
	ID        int64             `json:"id"`
	Name      string            `json:"name"`
	Price     *storeSearchPrice `json:"price"`
	TinyImage string            `json:"tiny_image"`
	Capsule   string            `json:"capsule"`
}

// storeSearchPrice amounts are in minor units (cents)
type storeSearchPrice struct {
	Currency        string `json:"currency"`
	Initial         int64  `json:"initial"`
	Final           int64  `json:"final"`
	DiscountPercent int    `json:"discount_percent"`
}

// appDetailsContainer is one value of the appdetails map, keyed by app id
type appDetailsContainer struct {
	Success bool            `json:"success"`
	Data    *appDetailsData `json:"data"`
}

type appDetailsData struct {
	Type          string              `json:"type"`
	Name          string              `json:"name"`
	SteamAppID    int64               `json:"steam_appid"`
	IsFree        bool                `json:"is_free"`
	HeaderImage   string              `json:"header_image"`
	PriceOverview *steamPriceOverview `json:"price_overview"`
}

type steamPriceOverview struct {
	Currency         string `json:"currency"`
	Initial          int64  `json:"initial"`
	Final            int64  `json:"final"`
	DiscountPercent  int    `json:"discount_percent"`
	InitialFormatted string `json:"initial_formatted"`
	FinalFormatted   string `json:"final_formatted"`
}

// NewSteamService creates a Steam client backed by the given cache
func NewSteamService(cfg SteamConfig, c cache.Cache) *SteamService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSteamBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.DetailsCountry == "" {
		cfg.DetailsCountry = "us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSteamTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultSteamCacheTTL
	}

	return &SteamService{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		language:       cfg.Language,
		detailsCountry: strings.ToLower(cfg.DetailsCountry),
		userAgent:      cfg.UserAgent,
		cacheTTL:       cfg.CacheTTL,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		cache:          c,
	}
}

func (s *SteamService) Name() string { return models.StoreSteam }

// Search looks up term on the Steam store for the given country.
// Only priced apps are returned; free titles, packages and bundles are dropped.
func (s *SteamService) Search(ctx context.Context, term, countryCode string) ([]models.GamePrice, error) {
	logger := logging.FromContext(ctx).With("store", s.Name())
	cacheKey := SearchCacheKey(term, countryCode)

	if cached, ok := s.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("cc", countryCode)
	params.Set("l", s.language)
	searchURL := fmt.Sprintf("%s/api/storesearch/?%s", s.baseURL, params.Encode())

	var root storeSearchResponse
	if err := fetchJSON(ctx, s.httpClient, "steam_search", searchURL, s.userAgent, &root); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("steam search failed, returning no results", "term", term, "country", countryCode, "error", err)
		return []models.GamePrice{}, nil
	}

	results := make([]models.GamePrice, 0, len(root.Items))
	for _, item := range root.Items {
		if price, ok := mapSearchItem(item); ok {
			results = append(results, price)
		}
	}

	logger.Debug("steam search completed", "term", term, "country", countryCode, "items", len(root.Items), "priced", len(results))
	s.writeCache(ctx, cacheKey, results)
	return results, nil
}

// GetDetails fetches a single app by id. The result has at most one entry:
// a priced record, a zero-price record for free apps, or nothing.
func (s *SteamService) GetDetails(ctx context.Context, id string) ([]models.GamePrice, error) {
	logger := logging.FromContext(ctx).With("store", s.Name())
	cacheKey := DetailsCacheKey(id)

	if cached, ok := s.readCache(ctx, cacheKey); ok {
		return cached, nil
	}

	params := url.Values{}
	params.Set("appids", id)
	params.Set("cc", s.detailsCountry)
	params.Set("l", s.language)
	detailsURL := fmt.Sprintf("%s/api/appdetails?%s", s.baseURL, params.Encode())

	var root map[string]appDetailsContainer
	if err := fetchJSON(ctx, s.httpClient, "steam_appdetails", detailsURL, s.userAgent, &root); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn("steam app details failed, returning no results", "app_id", id, "error", err)
		return []models.GamePrice{}, nil
	}

	results := []models.GamePrice{}
	container, ok := root[id]
	if !ok || !container.Success || container.Data == nil {
		logger.Debug("steam app details unavailable", "app_id", id, "present", ok, "success", container.Success)
		return results, nil
	}

	if price, ok := mapAppDetails(id, container.Data); ok {
		results = append(results, price)
	}

	s.writeCache(ctx, cacheKey, results)
	return results, nil
}

// readCache returns the cached list for key. Backend errors and undecodable
// payloads count as misses.
func (s *SteamService) readCache(ctx context.Context, key string) ([]models.GamePrice, bool) {
	if s.cache == nil {
		return nil, false
	}
	logger := logging.FromContext(ctx)

	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "key", key, "backend", s.cache.Name(), "error", err)
		return nil, false
	}
	if !found || data == "" {
		logger.Debug("cache miss", "key", key)
		return nil, false
	}

	var prices []models.GamePrice
	if err := json.Unmarshal([]byte(data), &prices); err != nil {
		logger.Warn("cached value is not a price list, ignoring it", "key", key, "error", err)
		return nil, false
	}
	if prices == nil {
		prices = []models.GamePrice{}
	}

	logger.Debug("cache hit", "key", key, "count", len(prices))
	return prices, true
}

// writeCache stores non-empty results for the configured TTL
func (s *SteamService) writeCache(ctx context.Context, key string, prices []models.GamePrice) {
	if s.cache == nil || len(prices) == 0 {
		return
	}
	logger := logging.FromContext(ctx)

	data, err := json.Marshal(prices)
	if err != nil {
		logger.Warn("failed to serialize prices for cache", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
		logger.Warn("cache write failed", "key", key, "backend", s.cache.Name(), "error", err)
		return
	}
	logger.Debug("stored prices in cache", "key", key, "count", len(prices), "ttl", s.cacheTTL)
}

// SearchCacheKey builds steam_search_{term}_{country}: the term is lowercased
// with whitespace runs collapsed to "_", the country is lowercased.
func SearchCacheKey(term, countryCode string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(term)), "_")
	return steamSearchKeyPrefix + normalized + "_" + strings.ToLower(countryCode)
}

// DetailsCacheKey builds steam_appdetails_{id}
func DetailsCacheKey(id string) string {
	return steamDetailsKeyPrefix + id
}

func steamAppLink(id string) string {
	return "https://store.steampowered.com/app/" + id
}

func mapSearchItem(item storeSearchItem) (models.GamePrice, bool) {
	if item.Type != "app" || item.Price == nil {
		return models.GamePrice{}, false
	}

	id := strconv.FormatInt(item.ID, 10)
	image := item.TinyImage
	if image == "" {
		image = item.Capsule
	}

	return models.GamePrice{
		ID:            id,
		Title:         item.Name,
		CurrentPrice:  models.FromMinorUnits(item.Price.Final),
		OriginalPrice: models.FromMinorUnits(item.Price.Initial),
		Discount:      models.DiscountFromPrices(item.Price.Initial, item.Price.Final),
		Platform:      models.PlatformSteam,
		Store:         models.StoreSteam,
		Link:          steamAppLink(id),
		ImageURL:      models.StringPtr(image),
		CurrencyCode:  models.StringPtr(item.Price.Currency),
	}, true
}

func mapAppDetails(requestedID string, data *appDetailsData) (models.GamePrice, bool) {
	id := requestedID
	if data.SteamAppID != 0 {
		id = strconv.FormatInt(data.SteamAppID, 10)
	}
	title := data.Name
	if title == "" {
		title = "N/A"
	}

	price := models.GamePrice{
		ID:       id,
		Title:    title,
		Platform: models.PlatformSteam,
		Store:    models.StoreSteam,
		Link:     steamAppLink(id),
		ImageURL: models.StringPtr(data.HeaderImage),
	}

	switch {
	case data.PriceOverview != nil:
		price.CurrentPrice = models.FromMinorUnits(data.PriceOverview.Final)
		price.OriginalPrice = models.FromMinorUnits(data.PriceOverview.Initial)
		price.Discount = models.ClampDiscount(data.PriceOverview.DiscountPercent)
		price.CurrencyCode = models.StringPtr(data.PriceOverview.Currency)
	case data.IsFree:
		price.CurrentPrice = decimal.Zero
		price.OriginalPrice = decimal.Zero
	default:
		return models.GamePrice{}, false
	}
	return price, true
}
