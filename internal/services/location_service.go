package services

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/codyseavey/gameradar/internal/logging"
	"github.com/codyseavey/gameradar/internal/metrics"
)

const (
	// FallbackCountryCode is used whenever geolocation cannot answer
	FallbackCountryCode = "US"

	defaultGeolocationTimeout = 5 * time.Second
)

// CountryResolver finds the caller's country. Implementations never fail.
type CountryResolver interface {
	GetCountryCode(ctx context.Context) string
}

// LocationService resolves the caller's country through an IP geolocation
// provider (ipapi.co compatible).
type LocationService struct {
	url        string
	fallback   string
	userAgent  string
	httpClient *http.Client
}

// locationResponse is the subset of the ipapi.co payload we read
type locationResponse struct {
	CountryCode  string  `json:"country_code"`
	CountryName  string  `json:"country_name"`
	City         string  `json:"city"`
	Region       string  `json:"region"`
	Currency     string  `json:"currency"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Error        bool    `json:"error"`
	ErrorMessage string  `json:"reason"`
}

// NewLocationService creates a resolver for url. A zero timeout means 5s and
// an empty fallback means "US".
func NewLocationService(url string, timeout time.Duration, fallback, userAgent string) *LocationService {
	if timeout <= 0 {
		timeout = defaultGeolocationTimeout
	}
	fallback = strings.ToUpper(strings.TrimSpace(fallback))
	if len(fallback) != 2 {
		fallback = FallbackCountryCode
	}
	return &LocationService{
		url:        url,
		fallback:   fallback,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetCountryCode returns the caller's two-letter country code, uppercased.
// Any failure yields the fallback country.
func (s *LocationService) GetCountryCode(ctx context.Context) string {
	logger := logging.FromContext(ctx)

	var location locationResponse
	if err := fetchJSON(ctx, s.httpClient, "geolocation", s.url, s.userAgent, &location); err != nil {
		logger.Warn("geolocation lookup failed, using fallback country", "error", err, "fallback", s.fallback)
		metrics.GeolocationFallbacksTotal.Inc()
		return s.fallback
	}

	code := strings.ToUpper(strings.TrimSpace(location.CountryCode))
	if location.Error || len(code) != 2 {
		logger.Warn("geolocation response has no usable country code, using fallback country",
			"country_code", location.CountryCode, "reason", location.ErrorMessage, "fallback", s.fallback)
		metrics.GeolocationFallbacksTotal.Inc()
		return s.fallback
	}

	logger.Debug("geolocation resolved",
		"country_code", code,
		"country", location.CountryName,
		"city", location.City,
		"region", location.Region,
		"currency", location.Currency)
	return code
}
