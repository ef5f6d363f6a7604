package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoinbase_FetchBalances(t *testing.T) {
	fixedNow := time.Unix(1735000000, 0)

	mux := http.NewServeMux()
	mux.HandleFunc(coinbaseAccountsPath, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cb-key", r.Header.Get("CB-ACCESS-KEY"))
		assert.Equal(t, "1735000000", r.Header.Get("CB-ACCESS-TIMESTAMP"))

		mac := hmac.New(sha256.New, []byte("cb-secret"))
		mac.Write([]byte("1735000000" + http.MethodGet + coinbaseAccountsPath))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("CB-ACCESS-SIGN"))

		w.Write([]byte(`{"accounts":[
			{"currency":"BTC","available_balance":{"value":"0.5"},"hold":{"value":"0.1"}},
			{"currency":"USD","available_balance":{"value":"250"},"hold":{"value":"0"}},
			{"currency":"ETH","available_balance":{"value":"0"},"hold":{"value":"0"}}
		]}`))
	})
	mux.HandleFunc(coinbaseProductsPath, func(w http.ResponseWriter, r *http.Request) {
		// The products snapshot is public; no signing headers expected.
		assert.Empty(t, r.Header.Get("CB-ACCESS-KEY"))
		w.Write([]byte(`{"products":[
			{"product_id":"BTC-USD","price":"60000"},
			{"product_id":"ETH-USD","price":"3000"}
		]}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	a := NewCoinbaseAdapter(srv.URL)
	a.now = func() time.Time { return fixedNow }

	snap, err := a.FetchBalances(context.Background(), model.Credentials{
		APIKey: "cb-key", APISecret: "cb-secret",
	})
	require.NoError(t, err)

	require.Len(t, snap.Balances, 2) // zero ETH account dropped
	byAsset := map[string]RawBalance{}
	for _, b := range snap.Balances {
		byAsset[b.Asset] = b
	}
	assert.True(t, decimal.NewFromFloat(0.5).Equal(byAsset["BTC"].Free))
	assert.True(t, decimal.NewFromFloat(0.1).Equal(byAsset["BTC"].Locked))
	assert.True(t, decimal.NewFromInt(60000).Equal(snap.Prices["BTCUSD"]))
	assert.True(t, decimal.NewFromInt(3000).Equal(snap.Prices["ETHUSD"]))
}

func TestCoinbase_AuthRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	t.Cleanup(srv.Close)

	a := NewCoinbaseAdapter(srv.URL)
	_, err := a.FetchBalances(context.Background(), model.Credentials{APIKey: "k", APISecret: "s"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrAuthReject, apperrors.TypeOf(err))
}

func TestNonceSource_Monotonic(t *testing.T) {
	src := &nonceSource{}
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		n := src.Next()
		assert.Greater(t, n, prev)
		prev = n
	}
}
