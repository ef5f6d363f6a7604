package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/config"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/gate"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/middleware"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/service"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/valuation"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/vault"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/venue"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "handler-test-secret"

type staticAdapter struct {
	name string
	snap *venue.Snapshot
}

func (s *staticAdapter) Name() string { return s.name }

func (s *staticAdapter) FetchBalances(_ context.Context, _ model.Credentials) (*venue.Snapshot, error) {
	return s.snap, nil
}

type staticResolver struct {
	creds []vault.VenueCredentials
}

func (s *staticResolver) Resolve(_ context.Context, _ string) ([]vault.VenueCredentials, error) {
	return s.creds, nil
}

type noopSessions struct{}

func (noopSessions) UpdateEquity(_ context.Context, _ string, _ decimal.Decimal) error { return nil }

type mapCacheRepo struct {
	entries map[string]*model.CacheEntry
}

func (m *mapCacheRepo) Get(_ context.Context, userID, venueName string) (*model.CacheEntry, error) {
	return m.entries[userID+"/"+venueName], nil
}

func (m *mapCacheRepo) Upsert(_ context.Context, entry *model.CacheEntry) error {
	m.entries[entry.UserID+"/"+entry.Venue] = entry
	return nil
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Cache: config.CacheConfig{
			StalenessCeiling: 15 * time.Minute,
			ShortBackoff:     2 * time.Second,
			MediumBackoff:    30 * time.Second,
		},
		Venues: map[string]config.VenueConfig{
			venue.Binance: {Enabled: true, Window: 10 * time.Second, Timeout: 5 * time.Second},
		},
	}

	adapter := &staticAdapter{
		name: venue.Binance,
		snap: &venue.Snapshot{
			Balances: []venue.RawBalance{
				{Asset: "BTC", Free: decimal.RequireFromString("0.01")},
			},
			Prices: valuation.Snapshot{"BTCUSD": decimal.RequireFromString("60000")},
		},
	}

	agg := service.NewAggregator(
		&staticResolver{creds: []vault.VenueCredentials{{Venue: venue.Binance}}},
		gate.New(&mapCacheRepo{entries: make(map[string]*model.CacheEntry)}, cfg),
		[]venue.Adapter{adapter},
		noopSessions{},
		cfg,
	)

	h := NewBalanceHandler(agg)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/health", Health)
	v1 := r.Group("/v1", middleware.AuthMiddleware(handlerTestSecret))
	v1.GET("/balances", h.GetBalances)
	return r
}

func TestGetBalances_ReturnsAggregate(t *testing.T) {
	token, err := middleware.GenerateToken("user-1", handlerTestSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/balances", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	testRouter(t).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success  bool `json:"success"`
		Balances []struct {
			Venue     string `json:"venue"`
			Connected bool   `json:"connected"`
		} `json:"balances"`
		TotalEquityUsd     string   `json:"totalEquityUsd"`
		ConnectedExchanges []string `json:"connectedExchanges"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	assert.True(t, body.Success)
	require.Len(t, body.Balances, 1)
	assert.True(t, body.Balances[0].Connected)
	assert.Equal(t, []string{venue.Binance}, body.ConnectedExchanges)

	total, err := decimal.NewFromString(body.TotalEquityUsd)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("600")))
}

func TestGetBalances_RequiresAuth(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/balances", nil)
	testRouter(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	testRouter(t).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
