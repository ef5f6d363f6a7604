package venue

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
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
	krakenBalancePath = "/0/private/Balance"
	krakenTickerPath  = "/0/public/Ticker"
)

// KrakenAdapter signs requests with the Kraken scheme: API-Sign is
// base64(HMAC-SHA512(b64decode(secret), path || SHA256(nonce || postdata))).
// The account endpoint is the strictest of the four venues, which is why
// its configured window is an order of magnitude longer.
type KrakenAdapter struct {
	baseURL string
	client  *http.Client
	nonces  *nonceSource
}

func NewKrakenAdapter(baseURL string) *KrakenAdapter {
	if baseURL == "" {
		baseURL = "https://api.kraken.com"
	}
	return &KrakenAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		nonces:  &nonceSource{},
	}
}

func (a *KrakenAdapter) Name() string { return Kraken }

type krakenResponse struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (a *KrakenAdapter) FetchBalances(ctx context.Context, creds model.Credentials) (*Snapshot, error) {
	balances, err := a.fetchBalanceMap(ctx, creds)
	if err != nil {
		return nil, err
	}

	prices, err := a.fetchTicker(ctx)
	if err != nil {
		return nil, err
	}

	raw := make([]RawBalance, 0, len(balances))
	for code, amountStr := range balances {
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrSchema,
				fmt.Sprintf("kraken: unparseable balance for %s", code), err)
		}
		// Kraken's Balance endpoint reports totals only; holds are not
		// broken out at this granularity.
		raw = append(raw, RawBalance{Asset: code, Free: amount, Locked: decimal.Zero})
	}

	return &Snapshot{Balances: raw, Prices: prices}, nil
}

func (a *KrakenAdapter) fetchBalanceMap(ctx context.Context, creds model.Credentials) (map[string]string, error) {
	nonce := strconv.FormatInt(a.nonces.Next(), 10)
	form := url.Values{}
	form.Set("nonce", nonce)
	postData := form.Encode()

	sign, err := krakenSign(krakenBalancePath, nonce, postData, creds.APISecret)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCredentials, "kraken: malformed api secret", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+krakenBalancePath, strings.NewReader(postData))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "kraken: build request", err)
	}
	req.Header.Set("API-Key", creds.APIKey)
	req.Header.Set("API-Sign", sign)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var balances map[string]string
	if err := json.Unmarshal(body, &balances); err != nil {
		return nil, apperrors.New(apperrors.ErrSchema, "kraken: unexpected balance schema", err)
	}
	return balances, nil
}

func (a *KrakenAdapter) fetchTicker(ctx context.Context) (valuation.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+krakenTickerPath, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "kraken: build ticker request", err)
	}

	body, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var tickers map[string]struct {
		C []string `json:"c"` // last trade: [price, lot volume]
	}
	if err := json.Unmarshal(body, &tickers); err != nil {
		return nil, apperrors.New(apperrors.ErrSchema, "kraken: unexpected ticker schema", err)
	}

	prices := make(valuation.Snapshot, len(tickers))
	for pair, t := range tickers {
		if len(t.C) == 0 {
			continue
		}
		key, ok := normalizeKrakenPair(pair)
		if !ok {
			continue
		}
		price, err := decimal.NewFromString(t.C[0])
		if err != nil {
			continue
		}
		prices[key] = price
	}
	return prices, nil
}

func (a *KrakenAdapter) do(req *http.Request) (json.RawMessage, error) {
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "kraken: request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "kraken: read response", err)
	}

	var kr krakenResponse
	if err := json.Unmarshal(raw, &kr); err != nil {
		return nil, apperrors.New(apperrors.ErrSchema,
			fmt.Sprintf("kraken: non-json response (status %d)", resp.StatusCode), err)
	}
	if len(kr.Error) > 0 {
		return nil, classifyKrakenError(kr.Error[0])
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.New(apperrors.ErrUpstream,
			fmt.Sprintf("kraken: http %d", resp.StatusCode), nil)
	}
	return kr.Result, nil
}

// classifyKrakenError maps Kraken's EFamily:message strings onto the
// error taxonomy. The distinction matters downstream: a nonce conflict
// self-resolves on the next attempt, a rate-limit rejection only gets
// worse if retried inside the window.
func classifyKrakenError(msg string) *apperrors.AppError {
	switch {
	case strings.Contains(msg, "Invalid nonce"):
		return apperrors.New(apperrors.ErrNonce, "kraken: "+msg, nil)
	case strings.Contains(msg, "Rate limit") || strings.Contains(msg, "Too many requests"):
		return apperrors.New(apperrors.ErrRateLimited, "kraken: "+msg, nil)
	case strings.Contains(msg, "Invalid key"),
		strings.Contains(msg, "Invalid signature"),
		strings.Contains(msg, "Permission denied"):
		return apperrors.New(apperrors.ErrAuthReject, "kraken: "+msg, nil)
	default:
		return apperrors.New(apperrors.ErrUpstream, "kraken: "+msg, nil)
	}
}

func krakenSign(path, nonce, postData, secretB64 string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// krakenQuotes maps the quote suffixes worth keeping to their canonical
// quote. Order matters: longest first so ZUSD wins over USD.
var krakenQuotes = []struct{ suffix, quote string }{
	{"ZUSD", "USD"},
	{"USDT", "USDT"},
	{"USD", "USD"},
}

// normalizeKrakenPair turns a native pair name ("XXBTZUSD", "DOTUSD")
// into a canonical snapshot key ("BTCUSD", "DOTUSD"). Pairs quoted in
// anything but USD/USDT are dropped; valuation never consults them.
func normalizeKrakenPair(pair string) (string, bool) {
	for _, q := range krakenQuotes {
		if strings.HasSuffix(pair, q.suffix) && len(pair) > len(q.suffix) {
			base := strings.TrimSuffix(pair, q.suffix)
			return asset.Canonical(base) + q.quote, true
		}
	}
	return "", false
}
