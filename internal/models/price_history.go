package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PriceHistory is a historical price point for a game.
// No data source backs it yet.
type PriceHistory struct {
	GameID string          `json:"gameId"`
	Price  decimal.Decimal `json:"price"`
	Date   time.Time       `json:"date"`
}

func (h PriceHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		GameID string      `json:"gameId"`
		Price  json.Number `json:"price"`
		Date   time.Time   `json:"date"`
	}{h.GameID, json.Number(h.Price.String()), h.Date})
}
