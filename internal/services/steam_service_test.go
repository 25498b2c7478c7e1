package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/gameradar/internal/cache"
	"github.com/codyseavey/gameradar/internal/models"
)

// fakeSteam serves canned storesearch/appdetails bodies and counts calls
type fakeSteam struct {
	server        *httptest.Server
	searchCalls   atomic.Int32
	detailsCalls  atomic.Int32
	searchStatus  int
	searchBody    string
	detailsStatus int
	detailsBody   string
	lastQuery     atomic.Value
}

func newFakeSteam(t *testing.T) *fakeSteam {
	t.Helper()
	f := &fakeSteam{searchStatus: http.StatusOK, detailsStatus: http.StatusOK}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastQuery.Store(r.URL.RawQuery)
		switch r.URL.Path {
		case "/api/storesearch/":
			f.searchCalls.Add(1)
			w.WriteHeader(f.searchStatus)
			fmt.Fprint(w, f.searchBody)
		case "/api/appdetails":
			f.detailsCalls.Add(1)
			w.WriteHeader(f.detailsStatus)
			fmt.Fprint(w, f.detailsBody)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSteam) service(c cache.Cache) *SteamService {
	return NewSteamService(SteamConfig{BaseURL: f.server.URL, Timeout: 2 * time.Second}, c)
}

type brokenCache struct{}

func (brokenCache) Name() string { return "broken" }

func (brokenCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("dial tcp: connection refused")
}

func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("dial tcp: connection refused")
}

const portalSearchBody = `{"total":1,"items":[{"type":"app","name":"Portal","id":400,"price":{"currency":"USD","initial":999,"final":999},"tiny_image":"https://cdn.example/400/capsule_231x87.jpg"}]}`

func TestSteamSearch_PortalScenario(t *testing.T) {
	f := newFakeSteam(t)
	f.searchBody = portalSearchBody

	results, err := f.service(cache.NewMemoryCache()).Search(context.Background(), "portal", "US")
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "400", got.ID)
	assert.Equal(t, "Portal", got.Title)
	assert.True(t, got.CurrentPrice.Equal(decimal.RequireFromString("9.99")), "current price %s", got.CurrentPrice)
	assert.True(t, got.OriginalPrice.Equal(decimal.RequireFromString("9.99")), "original price %s", got.OriginalPrice)
	assert.Equal(t, 0, got.Discount)
	require.NotNil(t, got.CurrencyCode)
	assert.Equal(t, "USD", *got.CurrencyCode)
	assert.Equal(t, "Steam", got.Platform)
	assert.Equal(t, "Steam", got.Store)
	assert.Equal(t, "https://store.steampowered.com/app/400", got.Link)

	query, _ := f.lastQuery.Load().(string)
	assert.Contains(t, query, "term=portal")
	assert.Contains(t, query, "cc=US")
	assert.Contains(t, query, "l=en")
}

func TestSteamSearch_MapsOnlyPricedApps(t *testing.T) {
	f := newFakeSteam(t)
	f.searchBody = `{"total":5,"items":[
		{"type":"app","name":"Half-Life 2","id":220,"price":{"currency":"EUR","initial":999,"final":199},"capsule":"https://cdn.example/220/capsule.jpg"},
		{"type":"app","name":"Dota 2","id":570},
		{"type":"sub","name":"Orange Box","id":469,"price":{"currency":"EUR","initial":2999,"final":2999}},
		{"type":"bundle","name":"Valve Complete","id":232,"price":{"currency":"EUR","initial":9999,"final":4999}},
		{"type":"app","name":"Portal 2","id":620,"price":{"currency":"EUR","initial":999,"final":1299},"tiny_image":"https://cdn.example/620/tiny.jpg","capsule":"https://cdn.example/620/capsule.jpg"}
	]}`

	results, err := f.service(nil).Search(context.Background(), "valve", "DE")
	require.NoError(t, err)
	require.Len(t, results, 2, "free apps, subs and bundles are dropped")

	assert.Equal(t, "220", results[0].ID)
	assert.Equal(t, 80, results[0].Discount)
	assert.Equal(t, "1.99", results[0].CurrentPrice.String())
	assert.Equal(t, "9.99", results[0].OriginalPrice.String())
	require.NotNil(t, results[0].ImageURL)
	assert.Equal(t, "https://cdn.example/220/capsule.jpg", *results[0].ImageURL, "capsule is the fallback image")

	assert.Equal(t, "620", results[1].ID)
	assert.Equal(t, 0, results[1].Discount, "no discount when final exceeds initial")
	require.NotNil(t, results[1].ImageURL)
	assert.Equal(t, "https://cdn.example/620/tiny.jpg", *results[1].ImageURL, "tiny image is preferred")
}

func TestSteamSearch_DiscountProperties(t *testing.T) {
	cases := []struct{ initial, final int64 }{
		{999, 999}, {999, 0}, {1999, 1499}, {4999, 3749}, {100, 1}, {59, 58}, {999, 1999},
	}
	for _, c := range cases {
		item := storeSearchItem{Type: "app", ID: 1, Name: "x", Price: &storeSearchPrice{Currency: "USD", Initial: c.initial, Final: c.final}}
		price, ok := mapSearchItem(item)
		require.True(t, ok)

		assert.GreaterOrEqual(t, price.Discount, 0)
		assert.LessOrEqual(t, price.Discount, 100)
		if c.initial <= c.final {
			assert.Equal(t, 0, price.Discount, "initial=%d final=%d", c.initial, c.final)
			continue
		}
		expected := decimal.NewFromInt(c.initial - c.final).Div(decimal.NewFromInt(c.initial)).Mul(decimal.NewFromInt(100)).RoundBank(0).IntPart()
		assert.Equal(t, int(expected), price.Discount, "initial=%d final=%d", c.initial, c.final)
	}
}

func TestSteamSearch_CachedWithinTTL(t *testing.T) {
	f := newFakeSteam(t)
	f.searchBody = portalSearchBody
	svc := f.service(cache.NewMemoryCache())
	ctx := context.Background()

	first, err := svc.Search(ctx, "portal", "US")
	require.NoError(t, err)
	second, err := svc.Search(ctx, "Portal", "us")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.searchCalls.Load(), "second search should be served from cache")

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	assert.Equal(t, string(firstJSON), string(secondJSON))
}

func TestSteamSearch_EmptyResultsNotCached(t *testing.T) {
	f := newFakeSteam(t)
	f.searchBody = `{"total":0,"items":[]}`
	svc := f.service(cache.NewMemoryCache())

	for i := 0; i < 2; i++ {
		results, err := svc.Search(context.Background(), "nothing", "US")
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.NotNil(t, results)
	}
	assert.Equal(t, int32(2), f.searchCalls.Load())
}

func TestSteamSearch_UpstreamFailuresAreEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "oops"},
		{"rate limited", http.StatusTooManyRequests, ""},
		{"malformed json", http.StatusOK, "{not json"},
		{"null items", http.StatusOK, `{"total":0,"items":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSteam(t)
			f.searchStatus = tt.status
			f.searchBody = tt.body

			results, err := f.service(cache.NewMemoryCache()).Search(context.Background(), "portal", "US")
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}

func TestSteamSearch_TransportFailureIsEmpty(t *testing.T) {
	f := newFakeSteam(t)
	svc := f.service(nil)
	f.server.Close()

	results, err := svc.Search(context.Background(), "portal", "US")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSteamSearch_CancelledContextIsError(t *testing.T) {
	f := newFakeSteam(t)
	f.searchBody = portalSearchBody

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service(nil).Search(ctx, "portal", "US")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSteamSearch_CacheFailureFallsThrough(t *testing.T) {
	f := newFakeSteam(t)
	f.searchBody = portalSearchBody

	results, err := f.service(brokenCache{}).Search(context.Background(), "portal", "US")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(1), f.searchCalls.Load())
}

func TestSteamSearch_CorruptCacheEntryIsMiss(t *testing.T) {
	f := newFakeSteam(t)
	f.searchBody = portalSearchBody
	c := cache.NewMemoryCache()
	require.NoError(t, c.Set(context.Background(), SearchCacheKey("portal", "US"), "{garbage", time.Hour))

	results, err := f.service(c).Search(context.Background(), "portal", "US")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(1), f.searchCalls.Load())
}

func TestSearchCacheKey(t *testing.T) {
	tests := []struct {
		term, country, expected string
	}{
		{"portal", "US", "steam_search_portal_us"},
		{"Half Life 2", "GB", "steam_search_half_life_2_gb"},
		{"  half   life  ", "de", "steam_search_half_life_de"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SearchCacheKey(tt.term, tt.country))
	}
	assert.Equal(t, "steam_appdetails_400", DetailsCacheKey("400"))
}

func TestSteamDetails_PriceOverview(t *testing.T) {
	f := newFakeSteam(t)
	f.detailsBody = `{"620":{"success":true,"data":{"type":"game","name":"Portal 2","steam_appid":620,"is_free":false,"header_image":"https://cdn.example/620/header.jpg","price_overview":{"currency":"USD","initial":999,"final":199,"discount_percent":80,"initial_formatted":"$9.99","final_formatted":"$1.99"}}}}`

	results, err := f.service(cache.NewMemoryCache()).GetDetails(context.Background(), "620")
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "620", got.ID)
	assert.Equal(t, "Portal 2", got.Title)
	assert.Equal(t, "1.99", got.CurrentPrice.String())
	assert.Equal(t, "9.99", got.OriginalPrice.String())
	assert.Equal(t, 80, got.Discount)
	require.NotNil(t, got.ImageURL)
	assert.Equal(t, "https://cdn.example/620/header.jpg", *got.ImageURL)

	query, _ := f.lastQuery.Load().(string)
	assert.Contains(t, query, "appids=620")
	assert.Contains(t, query, "cc=us")
}

func TestSteamDetails_FreeApp(t *testing.T) {
	f := newFakeSteam(t)
	f.detailsBody = `{"570":{"success":true,"data":{"type":"game","name":"Dota 2","steam_appid":570,"is_free":true,"header_image":"https://cdn.example/570/header.jpg"}}}`

	results, err := f.service(nil).GetDetails(context.Background(), "570")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].CurrentPrice.IsZero())
	assert.True(t, results[0].OriginalPrice.IsZero())
	assert.Equal(t, 0, results[0].Discount)
}

func TestSteamDetails_NotFreeWithoutPriceIsEmpty(t *testing.T) {
	f := newFakeSteam(t)
	f.detailsBody = `{"1":{"success":true,"data":{"type":"game","name":"Unreleased","steam_appid":1,"is_free":false}}}`

	results, err := f.service(nil).GetDetails(context.Background(), "1")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSteamDetails_UnsuccessfulIsEmpty(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"success false", http.StatusOK, `{"999999":{"success":false}}`},
		{"missing key", http.StatusOK, `{}`},
		{"success without data", http.StatusOK, `{"999999":{"success":true}}`},
		{"bad status", http.StatusBadGateway, ""},
		{"malformed", http.StatusOK, `[`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeSteam(t)
			f.detailsStatus = tt.status
			f.detailsBody = tt.body

			results, err := f.service(cache.NewMemoryCache()).GetDetails(context.Background(), "999999")
			require.NoError(t, err)
			assert.NotNil(t, results)
			assert.Empty(t, results)
		})
	}
}

func TestSteamDetails_CachedWithinTTL(t *testing.T) {
	f := newFakeSteam(t)
	f.detailsBody = `{"400":{"success":true,"data":{"name":"Portal","steam_appid":400,"price_overview":{"currency":"USD","initial":999,"final":999,"discount_percent":0}}}}`
	c := cache.NewMemoryCache()
	svc := f.service(c)
	ctx := context.Background()

	first, err := svc.GetDetails(ctx, "400")
	require.NoError(t, err)
	second, err := svc.GetDetails(ctx, "400")
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.detailsCalls.Load())

	cached, ok, err := c.Get(ctx, "steam_appdetails_400")
	require.NoError(t, err)
	require.True(t, ok)

	var decoded []models.GamePrice
	require.NoError(t, json.Unmarshal([]byte(cached), &decoded))
	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	decodedJSON, _ := json.Marshal(decoded)
	assert.Equal(t, string(firstJSON), string(secondJSON))
	assert.Equal(t, string(firstJSON), string(decodedJSON))
}

func TestSteamDetails_MissingAppIDUsesRequestedID(t *testing.T) {
	price, ok := mapAppDetails("42", &appDetailsData{Name: "", PriceOverview: &steamPriceOverview{Initial: 500, Final: 500, DiscountPercent: 140}})
	require.True(t, ok)
	assert.Equal(t, "42", price.ID)
	assert.Equal(t, "N/A", price.Title)
	assert.Equal(t, 100, price.Discount, "discount is clamped")
	assert.Nil(t, price.CurrencyCode)
	assert.Equal(t, "https://store.steampowered.com/app/42", price.Link)
}
