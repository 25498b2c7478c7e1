package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/gameradar/internal/logging"
	"github.com/codyseavey/gameradar/internal/models"
	"github.com/codyseavey/gameradar/internal/services"
)

// GameFinder is the part of services.GameService the handlers depend on
type GameFinder interface {
	SearchGames(ctx context.Context, query, countryCode string) ([]models.GamePrice, error)
	GetGameDetails(ctx context.Context, id string) ([]models.GamePrice, error)
	GetPriceHistory(ctx context.Context, id string) ([]models.PriceHistory, error)
}

type GamesHandler struct {
	games GameFinder
}

func NewGamesHandler(games GameFinder) *GamesHandler {
	return &GamesHandler{games: games}
}

// SearchGames searches the stores for a title.
// GET /api/games/search?query=<title>&countryCode=<optional ISO code>
func (h *GamesHandler) SearchGames(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter is required"})
		return
	}
	countryCode := c.Query("countryCode")

	logger := logging.FromContext(c.Request.Context())
	logger.Info("search request", "query", query, "country", countryCode)

	results, err := h.games.SearchGames(c.Request.Context(), query, countryCode)
	if err != nil {
		logger.Error("search failed", "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error searching games: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetGame returns the current price record for one game
func (h *GamesHandler) GetGame(c *gin.Context) {
	gameID := strings.TrimSpace(c.Param("gameId"))
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game id is required"})
		return
	}

	results, err := h.games.GetGameDetails(c.Request.Context(), gameID)
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("game lookup failed", "game_id", gameID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error getting game prices: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetPriceHistory reports 501 until a history source exists
func (h *GamesHandler) GetPriceHistory(c *gin.Context) {
	gameID := c.Param("gameId")

	history, err := h.games.GetPriceHistory(c.Request.Context(), gameID)
	if err != nil {
		if errors.Is(err, services.ErrNotImplemented) {
			c.JSON(http.StatusNotImplemented, gin.H{
				"error": "price history is not implemented",
				"code":  "NOT_IMPLEMENTED",
			})
			return
		}
		logging.FromContext(c.Request.Context()).Error("price history failed", "game_id", gameID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error getting price history: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, history)
}
