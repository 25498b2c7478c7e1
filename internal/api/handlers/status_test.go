package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/gameradar/internal/cache"
	"github.com/codyseavey/gameradar/internal/services"
)

func newStatusRouter(h *StatusHandler) *gin.Engine {
	router := gin.New()
	router.GET("/health", h.Health)
	router.GET("/api/status", h.GetStatus)
	return router
}

func TestHealth(t *testing.T) {
	rr := serve(newStatusRouter(NewStatusHandler(nil, "memory")), "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestGetStatus(t *testing.T) {
	mem := cache.NewMemoryCache()
	require.NoError(t, mem.Set(context.Background(), "k", "v", -time.Second))

	janitor := services.NewCacheJanitor(mem, time.Minute)
	janitor.RunOnce(context.Background())

	rr := serve(newStatusRouter(NewStatusHandler(janitor, mem.Name())), "/api/status")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		CacheBackend string                 `json:"cache_backend"`
		Janitor      services.JanitorStatus `json:"janitor"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "memory", body.CacheBackend)
	assert.True(t, body.Janitor.Enabled)
	assert.Equal(t, 1, body.Janitor.Runs)
	assert.EqualValues(t, 1, body.Janitor.PurgedTotal)
}
