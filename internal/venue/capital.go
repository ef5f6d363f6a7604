package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/model"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/valuation"
	"github.com/shopspring/decimal"
)

const (
	capitalSessionPath  = "/api/v1/session"
	capitalAccountsPath = "/api/v1/accounts"
)

// CapitalAdapter talks to the CFD broker. Unlike the spot venues it
// authenticates with a session handshake (API key header + identifier
// and password body) and reports equity as fiat account balances, so no
// price snapshot is needed.
type CapitalAdapter struct {
	baseURL string
	client  *http.Client
}

func NewCapitalAdapter(baseURL string) *CapitalAdapter {
	if baseURL == "" {
		baseURL = "https://api-capital.backend-capital.com"
	}
	return &CapitalAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *CapitalAdapter) Name() string { return Capital }

type capitalSession struct {
	cst           string
	securityToken string
}

type capitalAccounts struct {
	Accounts []struct {
		AccountName string `json:"accountName"`
		Currency    string `json:"currency"`
		Balance     struct {
			Balance   float64 `json:"balance"`
			Available float64 `json:"available"`
		} `json:"balance"`
	} `json:"accounts"`
}

func (a *CapitalAdapter) FetchBalances(ctx context.Context, creds model.Credentials) (*Snapshot, error) {
	session, err := a.openSession(ctx, creds)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+capitalAccountsPath, nil)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "capital: build request", err)
	}
	req.Header.Set("CST", session.cst)
	req.Header.Set("X-SECURITY-TOKEN", session.securityToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "capital: accounts request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "capital: read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyCapitalStatus(resp.StatusCode, body)
	}

	var accounts capitalAccounts
	if err := json.Unmarshal(body, &accounts); err != nil {
		return nil, apperrors.New(apperrors.ErrSchema, "capital: unexpected accounts schema", err)
	}

	raw := make([]RawBalance, 0, len(accounts.Accounts))
	for _, acct := range accounts.Accounts {
		total := decimal.NewFromFloat(acct.Balance.Balance)
		free := decimal.NewFromFloat(acct.Balance.Available)
		locked := total.Sub(free)
		if locked.IsNegative() {
			locked = decimal.Zero
		}
		if total.IsZero() {
			continue
		}
		raw = append(raw, RawBalance{Asset: acct.Currency, Free: free, Locked: locked})
	}

	// Fiat-only equity: valuation's static tables cover everything here.
	return &Snapshot{Balances: raw, Prices: valuation.Snapshot{}}, nil
}

func (a *CapitalAdapter) openSession(ctx context.Context, creds model.Credentials) (*capitalSession, error) {
	payload, err := json.Marshal(map[string]string{
		"identifier": creds.Identifier,
		"password":   creds.Password,
	})
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "capital: marshal session payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+capitalSessionPath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "capital: build session request", err)
	}
	req.Header.Set("X-CAP-API-KEY", creds.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrUpstream, "capital: session request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, classifyCapitalStatus(resp.StatusCode, body)
	}

	session := &capitalSession{
		cst:           resp.Header.Get("CST"),
		securityToken: resp.Header.Get("X-SECURITY-TOKEN"),
	}
	if session.cst == "" || session.securityToken == "" {
		return nil, apperrors.New(apperrors.ErrSchema, "capital: session response missing tokens", nil)
	}
	return session, nil
}

func classifyCapitalStatus(status int, body []byte) *apperrors.AppError {
	msg := fmt.Sprintf("capital: http %d: %s", status, truncate(body))
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.New(apperrors.ErrAuthReject, msg, nil)
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrRateLimited, msg, nil)
	default:
		return apperrors.New(apperrors.ErrUpstream, msg, nil)
	}
}
