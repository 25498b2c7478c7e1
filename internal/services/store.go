package services

import (
	"context"

	"github.com/codyseavey/gameradar/internal/models"
)

// Store is a storefront the aggregator can query. Implementations treat
// upstream trouble as "no data" and only return an error when the caller's
// context is done.
type Store interface {
	Name() string
	Search(ctx context.Context, term, countryCode string) ([]models.GamePrice, error)
	GetDetails(ctx context.Context, id string) ([]models.GamePrice, error)
}
