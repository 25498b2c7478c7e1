package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	PlatformSteam = "Steam"
	StoreSteam    = "Steam"
)

// GamePrice is the normalized price record for a single title on a storefront.
// Amounts are exact decimals in major currency units.
type GamePrice struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	Discount      int             `json:"discount"`
	Platform      string          `json:"platform"`
	Store         string          `json:"store"`
	Link          string          `json:"link"`
	ImageURL      *string         `json:"imageUrl,omitempty"`
	CurrencyCode  *string         `json:"currencyCode,omitempty"`
}

// gamePriceJSON is the wire form of GamePrice: amounts are JSON numbers,
// not the quoted strings decimal.Decimal produces by default.
type gamePriceJSON struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	CurrentPrice  json.Number `json:"currentPrice"`
	OriginalPrice json.Number `json:"originalPrice"`
	Discount      int         `json:"discount"`
	Platform      string      `json:"platform"`
	Store         string      `json:"store"`
	Link          string      `json:"link"`
	ImageURL      *string     `json:"imageUrl,omitempty"`
	CurrencyCode  *string     `json:"currencyCode,omitempty"`
}

// MarshalJSON writes prices as numbers. Decoding needs no counterpart since
// decimal.Decimal accepts both numbers and strings.
func (p GamePrice) MarshalJSON() ([]byte, error) {
	return json.Marshal(gamePriceJSON{
		ID:            p.ID,
		Title:         p.Title,
		CurrentPrice:  json.Number(p.CurrentPrice.String()),
		OriginalPrice: json.Number(p.OriginalPrice.String()),
		Discount:      p.Discount,
		Platform:      p.Platform,
		Store:         p.Store,
		Link:          p.Link,
		ImageURL:      p.ImageURL,
		CurrencyCode:  p.CurrencyCode,
	})
}

// FromMinorUnits converts an integer amount of the smallest currency unit
// (cents) into a major-unit decimal. Negative amounts clamp to zero.
func FromMinorUnits(amount int64) decimal.Decimal {
	if amount <= 0 {
		return decimal.Zero
	}
	return decimal.New(amount, -2)
}

// ClampDiscount bounds a discount percentage to [0,100]
func ClampDiscount(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// DiscountFromPrices derives the discount percentage from minor-unit prices.
// Midpoints round to even. No discount is reported unless initial > final.
func DiscountFromPrices(initial, final int64) int {
	if initial <= 0 || initial <= final {
		return 0
	}
	if final < 0 {
		final = 0
	}
	pct := decimal.NewFromInt(initial - final).
		Div(decimal.NewFromInt(initial)).
		Mul(decimal.NewFromInt(100)).
		RoundBank(0)
	return ClampDiscount(int(pct.IntPart()))
}

// StringPtr returns nil for an empty string so optional fields are omitted
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
