package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/asset"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/valuation"
	"github.com/shopspring/decimal"
)

const (
	coinbaseAccountsPath = "/api/v3/brokerage/accounts"
	coinbaseProductsPath = "/api/v3/brokerage/market/products"
)

// CoinbaseAdapter signs brokerage requests with the CB-ACCESS scheme:
// hex(HMAC-SHA256(secret, timestamp || method || path || body)).
type CoinbaseAdapter struct {
	baseURL string
	client  *http.Client
	// now is swappable so tests can pin the signature timestamp.
	now func() time.Time
}

func NewCoinbaseAdapter(baseURL string) *CoinbaseAdapter {
	if baseURL == "" {
		baseURL = "https://api.coinbase.com"
	}
	return &CoinbaseAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
}

func (a *CoinbaseAdapter) Name() string { return Coinbase }

type coinbaseAccounts struct {
	Accounts []struct {
		Currency         string `json:"currency"`
		AvailableBalance struct {
			Value string `json:"value"`
		} `json:"available_balance"`
		Hold struct {
			Value string `json:"value"`
		} `json:"hold"`
	} `json:"accounts"`
}

type coinbaseProducts struct {
	Products []struct {
		ProductID string `json:"product_id"`
		Price     string `json:"price"`
	} `json:"products"`
}

func (a *CoinbaseAdapter) FetchBalances(ctx context.Context, creds model.Credentials) (*Snapshot, error) {
	var accounts coinbaseAccounts
	if err := a.get(ctx, coinbaseAccountsPath, &creds, &accounts); err != nil {
		return nil, err
	}

	var products coinbaseProducts
	if err := a.get(ctx, coinbaseProductsPath, nil, &products); err != nil {
		return nil, err
	}

	raw := make([]RawBalance, 0, len(accounts.Accounts))
	for _, acct := range accounts.Accounts {
		free, err := decimal.NewFromString(acct.AvailableBalance.Value)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrSchema, "coinbase: unparseable balance for "+acct.Currency, err)
		}
		locked := decimal.Zero
		if acct.Hold.Value != "" {
			locked, err = decimal.NewFromString(acct.Hold.Value)
			if err != nil {
				return nil, apperrors.New(apperrors.ErrSchema, "coinbase: unparseable hold for "+acct.Currency, err)
			}
		}
		if free.IsZero() && locked.IsZero() {
			continue
		}
		raw = append(raw, RawBalance{Asset: acct.Currency, Free: free, Locked: locked})
	}

	prices := make(valuation.Snapshot, len(products.Products))
	for _, p := range products.Products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			continue
		}
		// "BTC-USD" -> "BTCUSD"
		base, quote, ok := strings.Cut(p.ProductID, "-")
		if !ok {
			continue
		}
		prices[asset.Canonical(base)+quote] = price
	}

	return &Snapshot{Balances: raw, Prices: prices}, nil
}

// get performs a GET against path, signing it when creds are supplied.
func (a *CoinbaseAdapter) get(ctx context.Context, path string, creds *model.Credentials, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return apperrors.New(apperrors.ErrInternal, "coinbase: build request", err)
	}

	if creds != nil {
		timestamp := strconv.FormatInt(a.now().Unix(), 10)
		mac := hmac.New(sha256.New, []byte(creds.APISecret))
		mac.Write([]byte(timestamp + http.MethodGet + path))
		req.Header.Set("CB-ACCESS-KEY", creds.APIKey)
		req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("CB-ACCESS-SIGN", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return apperrors.New(apperrors.ErrUpstream, "coinbase: request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.New(apperrors.ErrUpstream, "coinbase: read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.New(apperrors.ErrAuthReject,
			fmt.Sprintf("coinbase: http %d: %s", resp.StatusCode, truncate(body)), nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrRateLimited, "coinbase: rate limit exceeded", nil)
	default:
		return apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("coinbase: http %d: %s", resp.StatusCode, truncate(body)), nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.New(apperrors.ErrSchema, "coinbase: unexpected response schema", err)
	}
	return nil
}

func truncate(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
