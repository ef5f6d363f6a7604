package venue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capitalTestServer(t *testing.T, sessionStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc(capitalSessionPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "cfd-api-key", r.Header.Get("X-CAP-API-KEY"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if sessionStatus != http.StatusOK {
			w.WriteHeader(sessionStatus)
			return
		}
		assert.Equal(t, "trader@example.com", body["identifier"])
		assert.Equal(t, "hunter2", body["password"])

		w.Header().Set("CST", "cst-token")
		w.Header().Set("X-SECURITY-TOKEN", "sec-token")
		w.Write([]byte(`{"accountType":"CFD"}`))
	})

	mux.HandleFunc(capitalAccountsPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cst-token", r.Header.Get("CST"))
		assert.Equal(t, "sec-token", r.Header.Get("X-SECURITY-TOKEN"))
		w.Write([]byte(`{"accounts":[
			{"accountName":"main","currency":"USD","balance":{"balance":1500.0,"available":1200.0}},
			{"accountName":"eur","currency":"EUR","balance":{"balance":100.0,"available":100.0}},
			{"accountName":"empty","currency":"GBP","balance":{"balance":0,"available":0}}
		]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCapital_SessionThenAccounts(t *testing.T) {
	srv := capitalTestServer(t, http.StatusOK)
	a := NewCapitalAdapter(srv.URL)

	snap, err := a.FetchBalances(context.Background(), model.Credentials{
		APIKey:     "cfd-api-key",
		Identifier: "trader@example.com",
		Password:   "hunter2",
	})
	require.NoError(t, err)

	require.Len(t, snap.Balances, 2) // empty GBP account dropped
	byAsset := map[string]RawBalance{}
	for _, b := range snap.Balances {
		byAsset[b.Asset] = b
	}
	assert.True(t, decimal.NewFromInt(1200).Equal(byAsset["USD"].Free))
	assert.True(t, decimal.NewFromInt(300).Equal(byAsset["USD"].Locked))
	assert.True(t, decimal.NewFromInt(100).Equal(byAsset["EUR"].Free))
}

func TestCapital_RejectedSession(t *testing.T) {
	srv := capitalTestServer(t, http.StatusUnauthorized)
	a := NewCapitalAdapter(srv.URL)

	_, err := a.FetchBalances(context.Background(), model.Credentials{
		APIKey: "cfd-api-key", Identifier: "x", Password: "y",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrAuthReject, apperrors.TypeOf(err))
}

func TestCapital_ThrottledSession(t *testing.T) {
	srv := capitalTestServer(t, http.StatusTooManyRequests)
	a := NewCapitalAdapter(srv.URL)

	_, err := a.FetchBalances(context.Background(), model.Credentials{
		APIKey: "cfd-api-key", Identifier: "x", Password: "y",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrRateLimited, apperrors.TypeOf(err))
}
